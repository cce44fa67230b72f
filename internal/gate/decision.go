// ABOUTME: Pure route decision engine for the onboarding gate
// ABOUTME: Ordered rules map progress and current path to a single destination

package gate

import "strings"

// Well-known paths the decision engine steers between.
const (
	PathLanding        = "/"
	PathLogin          = "/login"
	PathSignup         = "/signup"
	PathVerifyOTP      = "/verify-otp"
	PathForgotPassword = "/forgot-password"
	PathResetPassword  = "/reset-password"
	PathStoreSetup     = "/store-setup"
	PathAddProduct     = "/add-product"
	PathDashboard      = "/dashboard"
	PathProducts       = "/products"
)

// Decision is the outcome of one decision pass. Exactly one of the three
// shapes occurs: loading affordance, redirect (TargetPath set), or stay
// (zero value).
type Decision struct {
	// ShowLoading suppresses navigation while an aggregation pass is in
	// flight, so stale/default progress never causes a premature redirect.
	ShowLoading bool
	// TargetPath is the redirect destination; empty means stay put.
	TargetPath string
}

// Stay reports whether the decision is to render the current path as-is.
func (d Decision) Stay() bool {
	return !d.ShowLoading && d.TargetPath == ""
}

// publicPaths are reachable without authentication: the landing page and
// the auth flow. A signed-out visitor on one of these stays put.
var publicPaths = map[string]bool{
	PathLanding:        true,
	PathLogin:          true,
	PathSignup:         true,
	PathVerifyOTP:      true,
	PathForgotPassword: true,
	PathResetPassword:  true,
}

// entryPaths are the public and onboarding pages a fully-onboarded merchant
// has no business lingering on; landing there redirects to the dashboard.
var entryPaths = map[string]bool{
	PathLanding:        true,
	PathLogin:          true,
	PathSignup:         true,
	PathVerifyOTP:      true,
	PathForgotPassword: true,
	PathResetPassword:  true,
	PathStoreSetup:     true,
	PathAddProduct:     true,
}

// registeredPath reports whether path names a known page.
func registeredPath(path string) bool {
	if publicPaths[path] || path == PathStoreSetup || path == PathAddProduct ||
		path == PathDashboard || path == PathProducts {
		return true
	}
	// Product detail pages: /products/{id}
	if rest, ok := strings.CutPrefix(path, PathProducts+"/"); ok && rest != "" {
		return true
	}
	return false
}

// Decide maps onboarding progress and the current path to a route decision.
// It is a pure total function: every input combination yields exactly one
// decision. Rules are evaluated in order and are mutually exclusive by
// construction (each matches a distinct progress combination); the ordering
// is load-bearing documentation of how the destinations nest, and reordering
// it can create redirect loops.
func Decide(p Progress, loading bool, currentPath string) Decision {
	// Rule 1: a pass is in flight; render the loading affordance, never
	// navigate on stale or default progress.
	if loading {
		return Decision{ShowLoading: true}
	}

	// Rule 2: signed out. Public pages render; everything else goes to
	// the landing page.
	if !p.Authenticated {
		if publicPaths[currentPath] {
			return Decision{}
		}
		return Decision{TargetPath: PathLanding}
	}

	// Rule 3: signed in, no store yet. Store setup is next; phone
	// verification sits between signup and store setup, so it may render
	// too.
	if !p.HasStore {
		if currentPath != PathStoreSetup && currentPath != PathVerifyOTP {
			return Decision{TargetPath: PathStoreSetup}
		}
		return Decision{}
	}

	// Rule 4: store exists, no product yet. First product is next.
	if !p.HasProduct {
		if currentPath != PathAddProduct {
			return Decision{TargetPath: PathAddProduct}
		}
		return Decision{}
	}

	// Rule 5: fully onboarded. Entry pages bounce to the dashboard; the
	// remaining registered pages are free navigation.
	if entryPaths[currentPath] {
		return Decision{TargetPath: PathDashboard}
	}
	if registeredPath(currentPath) {
		return Decision{}
	}

	// Rule 6: unknown path under a fully-onboarded merchant. Route to the
	// dashboard rather than rendering a dead end; the signed-out and
	// mid-onboarding variants of this catch-all are already folded into
	// rules 2-4.
	return Decision{TargetPath: PathDashboard}
}
