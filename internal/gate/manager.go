// ABOUTME: Per-session gate registry with auth event subscriptions
// ABOUTME: Creates gates on demand, forwards SIGNED_IN/SIGNED_OUT, and sweeps idle sessions

package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopyhq/shopy/internal/identity"
)

const sweepInterval = time.Minute

// AggregatorFactory builds an aggregator bound to one session token, so the
// gate's session resolver resolves that session and nothing else.
type AggregatorFactory func(sessionID string) *Aggregator

// Manager hands out one Gate per browser session. Each gate subscribes to
// the session's auth events for its lifetime; gates idle longer than the
// TTL are closed and dropped by a background sweep.
type Manager struct {
	factory AggregatorFactory
	events  *identity.Broadcaster
	idleTTL time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	gates  map[string]*gateEntry
	done   chan struct{}
	closed bool
}

type gateEntry struct {
	gate     *Gate
	cancel   context.CancelFunc
	lastSeen time.Time
}

// NewManager creates a gate manager. idleTTL bounds how long an untouched
// session keeps its gate; pass the session TTL. Pass nil logger for default.
func NewManager(factory AggregatorFactory, events *identity.Broadcaster, idleTTL time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		factory: factory,
		events:  events,
		idleTTL: idleTTL,
		logger:  logger.With("component", "gate-manager"),
		gates:   make(map[string]*gateEntry),
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Gate returns the gate for a session, creating it on first use. Creation
// runs a synchronous aggregation pass so the first decision is made on
// fresh progress, and subscribes the gate to the session's auth events.
func (m *Manager) Gate(ctx context.Context, sessionID string) *Gate {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		// A closed manager still hands out a working one-shot gate so a
		// request racing shutdown gets a decision instead of a panic.
		g := New(m.factory(sessionID), m.logger)
		g.RefreshSync(ctx)
		return g
	}
	if e, ok := m.gates[sessionID]; ok {
		e.lastSeen = time.Now()
		m.mu.Unlock()
		return e.gate
	}

	g := New(m.factory(sessionID), m.logger)
	gctx, cancel := context.WithCancel(context.Background())
	m.gates[sessionID] = &gateEntry{gate: g, cancel: cancel, lastSeen: time.Now()}
	m.mu.Unlock()

	if m.events != nil {
		ch, _ := m.events.Subscribe(gctx, sessionID)
		go m.forward(gctx, g, ch)
	}

	g.RefreshSync(ctx)
	return g
}

// Remove closes and drops the gate for a session, releasing its event
// subscription. Safe to call for unknown sessions.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	e, ok := m.gates[sessionID]
	if ok {
		delete(m.gates, sessionID)
	}
	m.mu.Unlock()

	if ok {
		e.cancel()
		e.gate.Close()
	}
}

// Close shuts down the sweeper and every gate.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	entries := make([]*gateEntry, 0, len(m.gates))
	for id, e := range m.gates {
		entries = append(entries, e)
		delete(m.gates, id)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.gate.Close()
	}
}

// forward relays auth events to the gate until the subscription ends.
func (m *Manager) forward(ctx context.Context, g *Gate, ch <-chan identity.AuthEvent) {
	for ev := range ch {
		switch ev.Type {
		case identity.EventSignedIn:
			g.SignedIn(ctx)
		case identity.EventSignedOut:
			g.SignedOut()
		}
	}
}

// sweep periodically closes gates that have not been touched within the TTL.
func (m *Manager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepIdle()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*gateEntry
	for id, e := range m.gates {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(m.gates, id)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		e.cancel()
		e.gate.Close()
	}
	if len(expired) > 0 {
		m.logger.Debug("swept idle gates", "count", len(expired))
	}
}
