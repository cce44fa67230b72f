// ABOUTME: In-memory fan-out broadcaster for auth state change events
// ABOUTME: Publishes sequence-numbered SIGNED_IN/SIGNED_OUT events per session key

package identity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 16
)

// AuthEventType identifies the kind of auth state change.
type AuthEventType string

const (
	EventSignedIn  AuthEventType = "SIGNED_IN"
	EventSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is an auth state change notification for one browser session.
// Seq is assigned by the broadcaster and is strictly increasing across all
// published events; consumers use it to order logically-concurrent triggers.
type AuthEvent struct {
	Seq       uint64
	Type      AuthEventType
	SessionID string
	Principal *Principal // nil for SIGNED_OUT
}

// Broadcaster provides in-memory pub/sub for AuthEvents. Subscribers register
// for a session key and receive events as they are published.
type Broadcaster struct {
	seq         atomic.Uint64
	mu          sync.RWMutex
	subscribers map[string]map[string]chan AuthEvent // sessionID -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan AuthEvent),
		logger:      logger.With("component", "auth-events"),
	}
}

// Subscribe registers a subscriber for events on the given session key.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan AuthEvent, string) {
	subID := uuid.New().String()
	ch := make(chan AuthEvent, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[string]chan AuthEvent)
	}
	b.subscribers[sessionID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "session_id", sessionID, "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(sessionID, subID)
	}()

	return ch, subID
}

// Publish assigns the next sequence number to the event and sends it to all
// subscribers of its session key. Returns the assigned sequence number.
// Non-blocking: events are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(event AuthEvent) uint64 {
	event.Seq = b.seq.Add(1)

	b.mu.RLock()
	subs, ok := b.subscribers[event.SessionID]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return event.Seq
	}

	// Copy subscriber channels under read lock to avoid holding lock during sends
	targets := make([]chan AuthEvent, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
			// Sent
		default:
			// Subscriber channel full — drop event for this subscriber
			b.logger.Debug("dropped event for slow subscriber",
				"session_id", event.SessionID,
				"seq", event.Seq)
		}
	}

	return event.Seq
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sessionID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sessionID]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty session key entries
	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}

	b.logger.Debug("subscriber removed", "session_id", sessionID, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sessionID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, sessionID)
	}

	b.logger.Debug("broadcaster closed")
}
