// ABOUTME: Page and form handlers for the storefront UI
// ABOUTME: Signup/login, OTP verification, password reset, store setup, and products

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopyhq/shopy/internal/catalog"
	"github.com/shopyhq/shopy/internal/gate"
	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
)

// maxUploadFormMemory bounds in-memory multipart parsing; larger parts
// spill to disk.
const maxUploadFormMemory = 4 << 20

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "landing", pageData{Title: "Shopy", CSRFToken: csrfToken})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	// The gate redirects unknown paths before they get here; this is the
	// backstop for registered prefixes with no page.
	w.WriteHeader(http.StatusNotFound)
	s.renderPage(w, "not_found", pageData{Title: "Not Found"})
}

// --- Auth pages ---

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "login", pageData{Title: "Log in", CSRFToken: csrfToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLoginError(w, r, "Invalid form data")
		return
	}
	if !s.validateCSRF(r) {
		s.renderLoginError(w, r, "Invalid request, please try again")
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		s.renderLoginError(w, r, "Email and password required")
		return
	}

	merchant, err := s.identity.Login(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrThrottled):
			s.renderLoginError(w, r, "Too many attempts, try again later")
		case errors.Is(err, identity.ErrInvalidCredentials):
			s.renderLoginError(w, r, "Invalid email or password")
		default:
			s.logger.Error("login failed", "error", err)
			s.renderLoginError(w, r, "An error occurred")
		}
		return
	}

	sess, err := s.identity.StartSession(r.Context(), merchant)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		s.renderLoginError(w, r, "An error occurred")
		return
	}
	s.setSessionCookie(w, r, sess)

	s.logger.Info("login successful", "merchant_id", merchant.ID)
	// The gate steers onboarding from here
	http.Redirect(w, r, gate.PathDashboard, http.StatusSeeOther)
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, msg string) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "login", pageData{Title: "Log in", Error: msg, CSRFToken: csrfToken})
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "signup", pageData{Title: "Create account", CSRFToken: csrfToken})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSignupError(w, r, "Invalid form data")
		return
	}
	if !s.validateCSRF(r) {
		s.renderSignupError(w, r, "Invalid request, please try again")
		return
	}

	merchant, err := s.identity.Signup(r.Context(),
		r.FormValue("email"),
		r.FormValue("phone"),
		r.FormValue("password"),
		r.FormValue("name"),
	)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidEmail),
			errors.Is(err, identity.ErrWeakPassword),
			errors.Is(err, identity.ErrInvalidPhone):
			s.renderSignupError(w, r, capitalize(err.Error()))
		case errors.Is(err, store.ErrEmailExists):
			s.renderSignupError(w, r, "That email is already registered")
		default:
			s.logger.Error("signup failed", "error", err)
			s.renderSignupError(w, r, "An error occurred")
		}
		return
	}

	sess, err := s.identity.StartSession(r.Context(), merchant)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		s.renderSignupError(w, r, "An error occurred")
		return
	}
	s.setSessionCookie(w, r, sess)

	// Phone given: verify it before onboarding continues
	if merchant.Phone != "" {
		if _, err := s.identity.IssueOTP(r.Context(), merchant.ID); err != nil {
			s.logger.Warn("failed to issue verification code", "error", err)
		}
		http.Redirect(w, r, gate.PathVerifyOTP, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, gate.PathStoreSetup, http.StatusSeeOther)
}

func (s *Server) renderSignupError(w http.ResponseWriter, r *http.Request, msg string) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "signup", pageData{Title: "Create account", Error: msg, CSRFToken: csrfToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		// Validate CSRF - but don't block logout if invalid (security trade-off)
		if !s.validateCSRF(r) {
			s.logger.Warn("logout request with invalid CSRF token")
		}
	}

	token := s.sessionToken(r)
	if token != "" {
		if err := s.identity.EndSession(r.Context(), token); err != nil {
			s.logger.Warn("failed to end session", "error", err)
		}
		s.gates.Remove(token)
	}
	s.clearSessionCookie(w, r)
	http.Redirect(w, r, gate.PathLanding, http.StatusSeeOther)
}

// --- Phone verification ---

func (s *Server) handleVerifyOTPPage(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	if p == nil {
		http.Redirect(w, r, gate.PathLogin, http.StatusSeeOther)
		return
	}
	if p.PhoneVerified || p.Phone == "" {
		http.Redirect(w, r, gate.PathStoreSetup, http.StatusSeeOther)
		return
	}
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "verify_otp", pageData{
		Title:     "Verify your phone",
		Principal: p,
		CSRFToken: csrfToken,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.renderVerifyOTPError(w, r, p, "Invalid request, please try again")
		return
	}

	if r.FormValue("action") == "resend" {
		if _, err := s.identity.IssueOTP(r.Context(), p.ID); err != nil {
			if errors.Is(err, identity.ErrThrottled) {
				s.renderVerifyOTPError(w, r, p, "Too many codes requested, wait a bit")
				return
			}
			s.logger.Error("failed to issue verification code", "error", err)
			s.renderVerifyOTPError(w, r, p, "An error occurred")
			return
		}
		http.Redirect(w, r, gate.PathVerifyOTP, http.StatusSeeOther)
		return
	}

	if err := s.identity.VerifyOTP(r.Context(), p.ID, r.FormValue("code")); err != nil {
		switch {
		case errors.Is(err, identity.ErrOTPInvalid):
			s.renderVerifyOTPError(w, r, p, "Incorrect code, try again")
		case errors.Is(err, identity.ErrOTPExpired):
			s.renderVerifyOTPError(w, r, p, "Code expired, request a new one")
		case errors.Is(err, identity.ErrThrottled):
			s.renderVerifyOTPError(w, r, p, "Too many attempts, try again later")
		default:
			s.logger.Error("verification failed", "error", err)
			s.renderVerifyOTPError(w, r, p, "An error occurred")
		}
		return
	}
	http.Redirect(w, r, gate.PathStoreSetup, http.StatusSeeOther)
}

func (s *Server) renderVerifyOTPError(w http.ResponseWriter, r *http.Request, p *identity.Principal, msg string) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "verify_otp", pageData{
		Title:     "Verify your phone",
		Principal: p,
		Error:     msg,
		CSRFToken: csrfToken,
	})
}

// --- Password reset ---

func (s *Server) handleForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "forgot_password", pageData{Title: "Forgot password", CSRFToken: csrfToken})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		http.Redirect(w, r, gate.PathForgotPassword, http.StatusSeeOther)
		return
	}

	email := r.FormValue("email")
	token, err := s.identity.CreateResetToken(r.Context(), email)
	if err == nil {
		// No mailer is wired up; the reset link goes to the log for the
		// operator to relay.
		s.logger.Info("password reset link",
			"email", email,
			"url", s.config.BaseURL+gate.PathResetPassword+"?token="+token)
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to create reset token", "error", err)
	}

	// Respond the same whether or not the email exists
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "forgot_password", pageData{
		Title:     "Forgot password",
		Message:   "If that email is registered, a reset link is on its way.",
		CSRFToken: csrfToken,
	})
}

func (s *Server) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "reset_password", pageData{
		Title:      "Reset password",
		ResetToken: r.URL.Query().Get("token"),
		CSRFToken:  csrfToken,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		http.Redirect(w, r, gate.PathForgotPassword, http.StatusSeeOther)
		return
	}

	token := r.FormValue("token")
	err := s.identity.ResetPassword(r.Context(), token, r.FormValue("password"))
	if err != nil {
		msg := "An error occurred"
		switch {
		case errors.Is(err, identity.ErrWeakPassword):
			msg = capitalize(identity.ErrWeakPassword.Error())
		case errors.Is(err, identity.ErrResetInvalid):
			msg = "Reset link is invalid or expired"
		default:
			s.logger.Error("password reset failed", "error", err)
		}
		_, csrfToken := s.ensureCSRFToken(w, r)
		s.renderPage(w, "reset_password", pageData{
			Title:      "Reset password",
			ResetToken: token,
			Error:      msg,
			CSRFToken:  csrfToken,
		})
		return
	}
	http.Redirect(w, r, gate.PathLogin, http.StatusSeeOther)
}

// --- Onboarding: store setup and first product ---

func (s *Server) handleStoreSetupPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "store_setup", pageData{
		Title:      "Set up your store",
		Principal:  principalFromContext(r),
		Industries: catalog.Industries,
		CSRFToken:  csrfToken,
	})
}

func (s *Server) handleStoreSetup(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		s.renderStoreSetupError(w, r, p, "Invalid request, please try again")
		return
	}

	_, err := s.catalog.SetupStore(r.Context(), p.ID,
		r.FormValue("store_name"), r.Form["industries"])
	// An existing store is not an error here; the gate routes onward
	if err != nil && !errors.Is(err, store.ErrStoreExists) {
		switch {
		case errors.Is(err, catalog.ErrStoreNameRequired),
			errors.Is(err, catalog.ErrIndustryCount),
			errors.Is(err, catalog.ErrUnknownIndustry):
			s.renderStoreSetupError(w, r, p, capitalize(err.Error()))
		default:
			s.logger.Error("store setup failed", "error", err)
			s.renderStoreSetupError(w, r, p, "An error occurred")
		}
		return
	}

	s.refreshGate(r)
	http.Redirect(w, r, gate.PathAddProduct, http.StatusSeeOther)
}

func (s *Server) renderStoreSetupError(w http.ResponseWriter, r *http.Request, p *identity.Principal, msg string) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "store_setup", pageData{
		Title:      "Set up your store",
		Principal:  p,
		Industries: catalog.Industries,
		Error:      msg,
		CSRFToken:  csrfToken,
	})
}

func (s *Server) handleAddProductPage(w http.ResponseWriter, r *http.Request) {
	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "add_product", pageData{
		Title:     "Add your first product",
		Principal: principalFromContext(r),
		CSRFToken: csrfToken,
	})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	if err := r.ParseMultipartForm(maxUploadFormMemory); err != nil {
		s.renderAddProductError(w, r, p, "Invalid form data")
		return
	}
	if !s.validateCSRF(r) {
		s.renderAddProductError(w, r, p, "Invalid request, please try again")
		return
	}

	rec, err := s.catalog.StoreByOwner(r.Context(), p.ID)
	if err != nil {
		// No store yet; the gate sends them to store setup
		http.Redirect(w, r, gate.PathStoreSetup, http.StatusSeeOther)
		return
	}

	in := catalog.ProductInput{
		Name:        r.FormValue("product_name"),
		Price:       r.FormValue("price"),
		Description: r.FormValue("description"),
	}
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		in.Image = file
		in.ImageName = header.Filename
	}

	if _, err := s.catalog.AddProduct(r.Context(), rec.ID, in); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNameRequired),
			errors.Is(err, catalog.ErrInvalidPrice),
			errors.Is(err, catalog.ErrImageTooLarge),
			errors.Is(err, catalog.ErrUnsupportedImage):
			s.renderAddProductError(w, r, p, capitalize(err.Error()))
		default:
			s.logger.Error("add product failed", "error", err)
			s.renderAddProductError(w, r, p, "An error occurred")
		}
		return
	}

	s.refreshGate(r)
	http.Redirect(w, r, gate.PathProducts, http.StatusSeeOther)
}

func (s *Server) renderAddProductError(w http.ResponseWriter, r *http.Request, p *identity.Principal, msg string) {
	_, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "add_product", pageData{
		Title:     "Add your first product",
		Principal: p,
		Error:     msg,
		CSRFToken: csrfToken,
	})
}

// --- Member pages ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	rec, products := s.storefront(r, p)

	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "dashboard", pageData{
		Title:        "Dashboard",
		Principal:    p,
		Store:        rec,
		ProductCount: len(products),
		CSRFToken:    csrfToken,
	})
}

func (s *Server) handleProductsPage(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	rec, products := s.storefront(r, p)

	items := make([]productItem, len(products))
	for i, prod := range products {
		items[i] = productItem{
			ID:        prod.ID,
			Name:      prod.Name,
			Price:     catalog.FormatPrice(prod.PriceCents),
			ImagePath: mediaPath(prod.ImagePath),
		}
	}

	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "products", pageData{
		Title:     "Products",
		Principal: p,
		Store:     rec,
		Products:  items,
		CSRFToken: csrfToken,
	})
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	rec, err := s.catalog.StoreByOwner(r.Context(), p.ID)
	if err != nil {
		http.Redirect(w, r, gate.PathDashboard, http.StatusSeeOther)
		return
	}

	prod, err := s.catalog.Product(r.Context(), rec.ID, r.PathValue("id"))
	if err != nil {
		s.handleNotFound(w, r)
		return
	}

	r, csrfToken := s.ensureCSRFToken(w, r)
	s.renderPage(w, "product_detail", pageData{
		Title:     prod.Name,
		Principal: p,
		Store:     rec,
		Product: &productItem{
			ID:          prod.ID,
			Name:        prod.Name,
			Price:       catalog.FormatPrice(prod.PriceCents),
			ImagePath:   mediaPath(prod.ImagePath),
			Description: s.catalog.RenderDescription(prod.Description),
		},
		CSRFToken: csrfToken,
	})
}

func (s *Server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r)
	if err := r.ParseForm(); err != nil || !s.validateCSRF(r) {
		http.Redirect(w, r, gate.PathProducts, http.StatusSeeOther)
		return
	}

	rec, err := s.catalog.StoreByOwner(r.Context(), p.ID)
	if err == nil {
		if err := s.catalog.DeleteProduct(r.Context(), rec.ID, r.PathValue("id")); err != nil {
			s.logger.Warn("product delete failed", "product_id", r.PathValue("id"), "error", err)
		}
	}

	// Deleting the last product moves onboarding back a step
	s.refreshGate(r)
	http.Redirect(w, r, gate.PathProducts, http.StatusSeeOther)
}

// storefront loads the merchant's store and products for rendering; both
// degrade to empty on lookup errors.
func (s *Server) storefront(r *http.Request, p *identity.Principal) (*store.StoreRecord, []*store.Product) {
	if p == nil {
		return nil, nil
	}
	rec, err := s.catalog.StoreByOwner(r.Context(), p.ID)
	if err != nil {
		return nil, nil
	}
	products, err := s.catalog.Products(r.Context(), rec.ID)
	if err != nil {
		return rec, nil
	}
	return rec, products
}

// handleMedia serves uploaded product images with long-lived cache headers;
// stored names are unique per upload so stale caches cannot occur.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		http.NotFound(w, r)
		return
	}
	f, err := s.media.Open(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// mediaPath maps a stored image name to its serving URL.
func mediaPath(name string) string {
	if name == "" {
		return ""
	}
	return "/media/" + name
}

// capitalize upper-cases the first letter of a message for display.
func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
