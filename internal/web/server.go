// ABOUTME: Web server core for shopy: routes, sessions, CSRF, and the gate middleware
// ABOUTME: Every page request is routed through the onboarding gate before rendering

package web

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/shopyhq/shopy/internal/auth"
	"github.com/shopyhq/shopy/internal/catalog"
	"github.com/shopyhq/shopy/internal/gate"
	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "shopy_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "shopy_csrf"

	// APITokenTTL is how long issued API bearer tokens last
	APITokenTTL = time.Hour
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const principalContextKey contextKey = "principal"
const csrfContextKey contextKey = "csrf_token"

// Config holds web server configuration
type Config struct {
	// BaseURL is the external URL, used for passkey relying-party config
	// and password reset links
	BaseURL string
}

// Server handles all shopy web routes
type Server struct {
	store            store.Store
	identity         *identity.Service
	catalog          *catalog.Service
	gates            *gate.Manager
	media            *catalog.MediaStore
	verifier         *auth.JWTVerifier
	config           Config
	logger           *slog.Logger
	webauthn         *webauthn.WebAuthn
	webauthnSessions *webAuthnSessionStore
}

// New creates a web server. media may be nil when uploads are disabled.
func New(st store.Store, idsvc *identity.Service, cat *catalog.Service, gates *gate.Manager, media *catalog.MediaStore, verifier *auth.JWTVerifier, cfg Config) *Server {
	s := &Server{
		store:    st,
		identity: idsvc,
		catalog:  cat,
		gates:    gates,
		media:    media,
		verifier: verifier,
		config:   cfg,
		logger:   slog.Default().With("component", "web"),
	}

	// Initialize WebAuthn (errors are logged but don't prevent startup)
	if err := s.initWebAuthn(); err != nil {
		s.logger.Warn("failed to initialize WebAuthn, passkey login disabled", "error", err)
	}

	return s
}

// Close cleans up server resources
func (s *Server) Close() {
	if s.webauthnSessions != nil {
		s.webauthnSessions.Close()
	}
}

// RegisterRoutes registers all routes on the given mux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Pages, all behind the onboarding gate
	mux.HandleFunc("GET /{$}", s.gated(s.handleLanding))
	mux.HandleFunc("GET /login", s.gated(s.handleLoginPage))
	mux.HandleFunc("GET /signup", s.gated(s.handleSignupPage))
	mux.HandleFunc("GET /verify-otp", s.gated(s.handleVerifyOTPPage))
	mux.HandleFunc("GET /forgot-password", s.gated(s.handleForgotPasswordPage))
	mux.HandleFunc("GET /reset-password", s.gated(s.handleResetPasswordPage))
	mux.HandleFunc("GET /store-setup", s.gated(s.handleStoreSetupPage))
	mux.HandleFunc("GET /add-product", s.gated(s.handleAddProductPage))
	mux.HandleFunc("GET /dashboard", s.gated(s.handleDashboard))
	mux.HandleFunc("GET /products", s.gated(s.handleProductsPage))
	mux.HandleFunc("GET /products/{id}", s.gated(s.handleProductDetail))

	// Catch-all: the gate redirects unknown paths by auth state
	mux.HandleFunc("GET /", s.gated(s.handleNotFound))

	// Form submissions
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /verify-otp", s.requirePrincipal(s.handleVerifyOTP))
	mux.HandleFunc("POST /forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /store-setup", s.requirePrincipal(s.handleStoreSetup))
	mux.HandleFunc("POST /add-product", s.requirePrincipal(s.handleAddProduct))
	mux.HandleFunc("POST /products/{id}/delete", s.requirePrincipal(s.handleProductDelete))

	// Product images, long-lived cache (names are content-unique UUIDs)
	mux.HandleFunc("GET /media/{name}", s.handleMedia)

	// WebAuthn/Passkey routes
	mux.HandleFunc("POST /webauthn/register/begin", s.requirePrincipal(s.handleWebAuthnRegisterBegin))
	mux.HandleFunc("POST /webauthn/register/finish", s.requirePrincipal(s.handleWebAuthnRegisterFinish))
	mux.HandleFunc("POST /webauthn/login/begin", s.handleWebAuthnLoginBegin)
	mux.HandleFunc("POST /webauthn/login/finish", s.handleWebAuthnLoginFinish)

	// JSON API with bearer-token auth
	apiAuth := auth.HTTPAuthMiddleware(s.store, s.verifier)
	mux.HandleFunc("POST /api/token", s.handleAPIToken)
	mux.Handle("GET /api/me", apiAuth(http.HandlerFunc(s.handleAPIMe)))
	mux.Handle("GET /api/products", apiAuth(http.HandlerFunc(s.handleAPIProducts)))
	mux.Handle("POST /api/products", apiAuth(http.HandlerFunc(s.handleAPIProductCreate)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.logger.Info("web routes registered")
}

// gated wraps a page handler with the onboarding gate: the gate's decision
// for the request path either renders a loading affordance, redirects with
// history-replacing semantics, or lets the page render. The resolved
// principal, when present, is attached to the request context.
func (s *Server) gated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)

		var decision gate.Decision
		if token == "" {
			decision = gate.Decide(gate.Progress{}, false, r.URL.Path)
		} else {
			decision = s.gates.Gate(r.Context(), token).Decide(r.URL.Path)
		}

		if decision.ShowLoading {
			s.renderLoading(w)
			return
		}
		if decision.TargetPath != "" {
			http.Redirect(w, r, decision.TargetPath, http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(s.withPrincipal(r)))
	}
}

// requirePrincipal wraps a mutation handler to require a signed-in session.
// Resolution failures read as signed-out, so transient identity errors
// degrade to a login redirect instead of an error page.
func (s *Server) requirePrincipal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := s.resolvePrincipal(r)
		if principal == nil {
			http.Redirect(w, r, gate.PathLogin, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// sessionToken returns the session cookie value, or empty.
func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// resolvePrincipal maps the session cookie to a principal, failing open to
// nil on resolution errors.
func (s *Server) resolvePrincipal(r *http.Request) *identity.Principal {
	token := s.sessionToken(r)
	if token == "" {
		return nil
	}
	p, err := s.identity.ResolveSession(r.Context(), token)
	if err != nil {
		s.logger.Warn("session resolution failed", "error", err)
		return nil
	}
	return p
}

// withPrincipal attaches the resolved principal (possibly nil) to context.
func (s *Server) withPrincipal(r *http.Request) context.Context {
	p := s.resolvePrincipal(r)
	if p == nil {
		return r.Context()
	}
	return context.WithValue(r.Context(), principalContextKey, p)
}

// principalFromContext retrieves the principal from the request context.
func principalFromContext(r *http.Request) *identity.Principal {
	p, _ := r.Context().Value(principalContextKey).(*identity.Principal)
	return p
}

// getCSRFToken retrieves the CSRF token from the request context.
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (s *Server) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		s.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (s *Server) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// setSessionCookie attaches a freshly created session to the browser.
func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshGate re-runs the session's aggregation pass after a mutation that
// advances onboarding (store created, product added or removed).
func (s *Server) refreshGate(r *http.Request) {
	token := s.sessionToken(r)
	if token == "" {
		return
	}
	s.gates.Gate(r.Context(), token).RefreshSync(r.Context())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// generateSecureToken creates a random URL-safe token of byteLen random bytes.
func generateSecureToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
