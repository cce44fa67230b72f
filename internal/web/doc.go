// Package web serves the shopy storefront UI and JSON API. Every page
// request passes through the onboarding gate, which decides whether the
// visitor sees the requested page or is redirected to their next
// onboarding step. Forms are CSRF-protected with a double-submit cookie;
// the JSON API authenticates with JWT bearer tokens.
package web
