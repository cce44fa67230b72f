// ABOUTME: Unit tests for the HTTP bearer-token middleware
// ABOUTME: Tests header parsing, token validation, and merchant lookup failures

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopyhq/shopy/internal/store"
)

type fakeMerchantStore struct {
	merchants map[string]*store.Merchant
}

func (f *fakeMerchantStore) GetMerchant(ctx context.Context, id string) (*store.Merchant, error) {
	m, ok := f.merchants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func TestHTTPAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret-key-for-jwt-signing")
	verifier := NewJWTVerifier(secret)
	merchants := &fakeMerchantStore{merchants: map[string]*store.Merchant{
		"m1": {ID: "m1", Email: "owner@example.com"},
	}}

	var captured *AuthContext
	handler := HTTPAuthMiddleware(merchants, verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	token, err := verifier.Generate("m1", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured = nil
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if captured == nil || captured.MerchantID != "m1" {
					t.Errorf("AuthContext = %+v, want merchant m1", captured)
				}
			}
		})
	}
}

func TestHTTPAuthMiddleware_UnknownMerchant(t *testing.T) {
	verifier := NewJWTVerifier([]byte("test-secret-key-for-jwt-signing"))
	merchants := &fakeMerchantStore{merchants: map[string]*store.Merchant{}}

	handler := HTTPAuthMiddleware(merchants, verifier)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run for unknown merchant")
		}))

	token, _ := verifier.Generate("ghost", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
