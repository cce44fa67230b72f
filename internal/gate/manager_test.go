// ABOUTME: Tests for the per-session gate manager
// ABOUTME: Covers get-or-create, auth event forwarding, removal, and shutdown

package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopyhq/shopy/internal/identity"
)

func newTestManager(t *testing.T, resolver *fakeResolver) (*Manager, *identity.Broadcaster) {
	t.Helper()

	events := identity.NewBroadcaster(nil)
	t.Cleanup(events.Close)

	factory := func(sessionID string) *Aggregator {
		return newTestAggregator(resolver, &fakeStoreLookup{}, &fakeProductLookup{})
	}
	m := NewManager(factory, events, time.Hour, nil)
	t.Cleanup(m.Close)
	return m, events
}

func TestManager_GateReuse(t *testing.T) {
	m, _ := newTestManager(t, &fakeResolver{})
	ctx := context.Background()

	g1 := m.Gate(ctx, "sess-1")
	g2 := m.Gate(ctx, "sess-1")
	other := m.Gate(ctx, "sess-2")

	assert.Same(t, g1, g2)
	assert.NotSame(t, g1, other)
}

func TestManager_InitialPassRunsOnCreate(t *testing.T) {
	resolver := &fakeResolver{principal: &Principal{ID: "u1"}}
	m, _ := newTestManager(t, resolver)

	g := m.Gate(context.Background(), "sess-1")

	progress, loading := g.Snapshot()
	assert.True(t, progress.Authenticated)
	assert.False(t, loading)
}

func TestManager_ForwardsAuthEvents(t *testing.T) {
	resolver := &fakeResolver{}
	m, events := newTestManager(t, resolver)

	g := m.Gate(context.Background(), "sess-1")
	progress, _ := g.Snapshot()
	assert.False(t, progress.Authenticated)

	// Sign-in lands on the identity side, event re-runs aggregation
	resolver.mu.Lock()
	resolver.principal = &Principal{ID: "u1"}
	resolver.mu.Unlock()
	events.Publish(identity.AuthEvent{Type: identity.EventSignedIn, SessionID: "sess-1"})

	require.Eventually(t, func() bool {
		progress, loading := g.Snapshot()
		return progress.Authenticated && !loading
	}, time.Second, 5*time.Millisecond)

	events.Publish(identity.AuthEvent{Type: identity.EventSignedOut, SessionID: "sess-1"})

	require.Eventually(t, func() bool {
		progress, _ := g.Snapshot()
		return !progress.Authenticated
	}, time.Second, 5*time.Millisecond)
}

func TestManager_EventsScopedToSession(t *testing.T) {
	resolver := &fakeResolver{principal: &Principal{ID: "u1"}}
	m, events := newTestManager(t, resolver)

	g1 := m.Gate(context.Background(), "sess-1")
	g2 := m.Gate(context.Background(), "sess-2")

	events.Publish(identity.AuthEvent{Type: identity.EventSignedOut, SessionID: "sess-1"})

	require.Eventually(t, func() bool {
		progress, _ := g1.Snapshot()
		return !progress.Authenticated
	}, time.Second, 5*time.Millisecond)

	// The other session's gate is untouched
	progress, _ := g2.Snapshot()
	assert.True(t, progress.Authenticated)
}

func TestManager_Remove(t *testing.T) {
	m, _ := newTestManager(t, &fakeResolver{})
	ctx := context.Background()

	g1 := m.Gate(ctx, "sess-1")
	m.Remove("sess-1")
	m.Remove("sess-1") // idempotent
	m.Remove("never-existed")

	g2 := m.Gate(ctx, "sess-1")
	assert.NotSame(t, g1, g2)
}

func TestManager_CloseThenGate(t *testing.T) {
	m, _ := newTestManager(t, &fakeResolver{principal: &Principal{ID: "u1"}})
	m.Close()
	m.Close() // idempotent

	// A request racing shutdown still gets a working gate
	g := m.Gate(context.Background(), "sess-1")
	progress, _ := g.Snapshot()
	assert.True(t, progress.Authenticated)
}
