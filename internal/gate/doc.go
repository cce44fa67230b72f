// Package gate implements the onboarding gate: the state machine that
// decides which screen a visitor sees based on authentication and
// onboarding progress.
//
// The gate has four parts:
//
//   - a session resolver contract that maps the browser session to a
//     Principal (or nil when signed out)
//   - an aggregator that derives Progress{Authenticated, HasStore,
//     HasProduct} from sequential, short-circuiting lookups
//   - a pure decision function that maps (progress, loading, path) to a
//     route decision
//   - a per-session controller that re-runs aggregation on auth events and
//     explicit refreshes, applying results in logical trigger order
//
// Aggregation is deliberately conservative: a failed lookup counts as
// "record absent", so a flaky backend routes the merchant to the earliest
// incomplete onboarding step instead of crashing or trapping them.
// Progress is recomputed whole on every pass, never patched; the invariant
// HasProduct implies HasStore holds for every value the aggregator emits.
package gate
