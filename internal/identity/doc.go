// Package identity provides merchant signup, login, session resolution,
// phone OTP verification, and password reset for shopy.
//
// # Sessions
//
// Browser sessions are random 256-bit tokens persisted in the store with an
// expiry. ResolveSession maps a token to a Principal; a missing or expired
// session is simply "no principal", and callers gating access are expected to
// treat an unexpected resolution error as signed-out so a transient database
// hiccup degrades to the logged-out experience instead of an error page.
//
// # Auth events
//
// Sign-in and sign-out publish sequence-numbered AuthEvents on an in-memory
// Broadcaster keyed by session ID. The onboarding gate subscribes to these to
// re-derive onboarding progress; the per-event sequence number is what lets a
// consumer discard results of a stale resolution pass.
package identity
