// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts JWT from Authorization header and adds the merchant to context

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopyhq/shopy/internal/store"
)

// MerchantStore is the subset of the store the middleware needs.
type MerchantStore interface {
	GetMerchant(ctx context.Context, id string) (*store.Merchant, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// HTTPAuthMiddleware creates an HTTP middleware that extracts and validates
// JWT bearer tokens, looks up the merchant, and attaches AuthContext to the
// request context.
func HTTPAuthMiddleware(merchants MerchantStore, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			merchantID, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			merchant, err := merchants.GetMerchant(r.Context(), merchantID)
			if err != nil {
				http.Error(w, `{"error":"merchant not found"}`, http.StatusUnauthorized)
				return
			}

			authCtx := &AuthContext{MerchantID: merchant.ID, Email: merchant.Email}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}
