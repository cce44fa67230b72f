// ABOUTME: Per-session gate controller holding onboarding progress state
// ABOUTME: Runs aggregation passes with sequence-numbered last-logical-writer-wins application

package gate

import (
	"context"
	"log/slog"
	"sync"
)

// Gate owns the mutable onboarding state for one browser session. Progress
// and the loading flag are written only here; everything else reads
// snapshots. Each aggregation pass is tagged with a sequence number assigned
// at trigger time, so the result of the logically-latest trigger wins even
// when passes complete out of order.
type Gate struct {
	agg    *Aggregator
	logger *slog.Logger

	mu         sync.Mutex
	progress   Progress
	loading    bool
	nextSeq    uint64 // last assigned trigger sequence
	appliedSeq uint64 // sequence of the trigger whose result is current
	inflight   int
	closed     bool
}

// New creates a gate controller around the aggregator. The gate starts with
// zero progress and not loading; call Refresh to run the initial pass.
func New(agg *Aggregator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		agg:    agg,
		logger: logger.With("component", "gate"),
	}
}

// Snapshot returns the current progress and loading flag as one consistent
// read. Decisions must be made from a snapshot, never from separate reads.
func (g *Gate) Snapshot() (Progress, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress, g.loading
}

// Decide takes a snapshot and runs the decision rules for currentPath.
func (g *Gate) Decide(currentPath string) Decision {
	progress, loading := g.Snapshot()
	return Decide(progress, loading, currentPath)
}

// Refresh triggers an asynchronous aggregation pass. Called on session
// attach, on sign-in, and after mutations that advance onboarding (store
// created, first product added). No-op after Close.
func (g *Gate) Refresh(ctx context.Context) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.nextSeq++
	seq := g.nextSeq
	g.inflight++
	g.loading = true
	g.mu.Unlock()

	go g.runPass(ctx, seq)
}

// RefreshSync runs an aggregation pass and waits for it to be applied.
// Used where the caller needs the updated snapshot immediately, such as the
// redirect right after creating a store.
func (g *Gate) RefreshSync(ctx context.Context) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.nextSeq++
	seq := g.nextSeq
	g.inflight++
	g.loading = true
	g.mu.Unlock()

	g.runPass(ctx, seq)
}

// SignedIn records a sign-in event and triggers a fresh aggregation pass.
func (g *Gate) SignedIn(ctx context.Context) {
	g.Refresh(ctx)
}

// SignedOut resets progress immediately. The reset is itself a
// sequence-numbered trigger, so any still-running pass from before the
// sign-out resolves stale and is discarded when it completes.
func (g *Gate) SignedOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.nextSeq++
	g.appliedSeq = g.nextSeq
	g.progress = Progress{}
	g.loading = false
}

// Close tears the gate down. In-flight passes finish but their results are
// not applied.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.loading = false
}

// runPass executes one aggregation pass and applies its result if no newer
// trigger has been applied in the meantime.
func (g *Gate) runPass(ctx context.Context, seq uint64) {
	result := g.agg.Aggregate(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.inflight--
	if g.closed {
		return
	}
	if seq > g.appliedSeq {
		g.progress = result
		g.appliedSeq = seq
	} else {
		g.logger.Debug("discarding stale aggregation result",
			"seq", seq, "applied_seq", g.appliedSeq)
	}
	if g.inflight == 0 {
		g.loading = false
	}
}
