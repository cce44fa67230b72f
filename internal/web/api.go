// ABOUTME: JSON API handlers for merchant clients
// ABOUTME: Token issue, profile, and product list/create under bearer auth

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopyhq/shopy/internal/auth"
	"github.com/shopyhq/shopy/internal/catalog"
	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleAPIToken exchanges email/password credentials for a bearer token.
func (s *Server) handleAPIToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	merchant, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, identity.ErrThrottled) {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, apiError{Error: "invalid credentials"})
		return
	}

	token, err := s.verifier.Generate(merchant.ID, APITokenTTL)
	if err != nil {
		s.logger.Error("failed to generate API token", "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "token generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(APITokenTTL.Seconds()),
	})
}

// handleAPIMe returns the authenticated merchant's profile and onboarding
// progress.
func (s *Server) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	resp := map[string]any{
		"id":    authCtx.MerchantID,
		"email": authCtx.Email,
	}

	rec, err := s.catalog.StoreByOwner(r.Context(), authCtx.MerchantID)
	switch {
	case err == nil:
		n, err := s.store.CountProductsByStore(r.Context(), rec.ID)
		if err != nil {
			n = 0
		}
		resp["store"] = map[string]any{
			"id":         rec.ID,
			"name":       rec.Name,
			"industries": rec.Industries,
		}
		resp["has_store"] = true
		resp["has_product"] = n > 0
	case errors.Is(err, store.ErrNotFound):
		resp["has_store"] = false
		resp["has_product"] = false
	default:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "store lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type apiProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"price_cents"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
}

func toAPIProduct(p *store.Product) apiProduct {
	return apiProduct{
		ID:          p.ID,
		Name:        p.Name,
		PriceCents:  p.PriceCents,
		Price:       catalog.FormatPrice(p.PriceCents),
		Description: p.Description,
		ImagePath:   mediaPath(p.ImagePath),
	}
}

// handleAPIProducts lists the merchant's products, newest first.
func (s *Server) handleAPIProducts(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	rec, err := s.catalog.StoreByOwner(r.Context(), authCtx.MerchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"products": []apiProduct{}})
			return
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "store lookup failed"})
		return
	}

	products, err := s.catalog.Products(r.Context(), rec.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "product lookup failed"})
		return
	}

	items := make([]apiProduct, len(products))
	for i, p := range products {
		items[i] = toAPIProduct(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": items})
}

// handleAPIProductCreate creates a product from a JSON body. Image uploads
// stay on the form endpoint; the API takes name, price, and description.
func (s *Server) handleAPIProductCreate(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	var req struct {
		Name        string `json:"name"`
		Price       string `json:"price"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	rec, err := s.catalog.StoreByOwner(r.Context(), authCtx.MerchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusConflict, apiError{Error: "store setup required first"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "store lookup failed"})
		return
	}

	p, err := s.catalog.AddProduct(r.Context(), rec.ID, catalog.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNameRequired),
			errors.Is(err, catalog.ErrInvalidPrice):
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		default:
			s.logger.Error("API product create failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, apiError{Error: "product creation failed"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toAPIProduct(p))
}
