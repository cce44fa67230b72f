// ABOUTME: Tests for the auth event broadcaster
// ABOUTME: Covers sequencing, session key isolation, unsubscribe, and close

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SequenceStrictlyIncreasing(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	s1 := b.Publish(AuthEvent{Type: EventSignedIn, SessionID: "a"})
	s2 := b.Publish(AuthEvent{Type: EventSignedOut, SessionID: "b"})
	s3 := b.Publish(AuthEvent{Type: EventSignedIn, SessionID: "a"})

	assert.Less(t, s1, s2)
	assert.Less(t, s2, s3)
}

func TestBroadcaster_DeliversToSessionKey(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx := context.Background()
	chA, _ := b.Subscribe(ctx, "session-a")
	chB, _ := b.Subscribe(ctx, "session-b")

	seq := b.Publish(AuthEvent{Type: EventSignedIn, SessionID: "session-a"})

	select {
	case ev := <-chA:
		assert.Equal(t, EventSignedIn, ev.Type)
		assert.Equal(t, seq, ev.Seq)
	case <-time.After(time.Second):
		t.Fatal("subscriber A did not receive event")
	}

	select {
	case ev := <-chB:
		t.Fatalf("subscriber B received event for another session: %+v", ev)
	case <-time.After(50 * time.Millisecond):
		// Correct: nothing delivered
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(context.Background(), "session-a")
	b.Unsubscribe("session-a", subID)

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")

	// Double unsubscribe is a no-op
	b.Unsubscribe("session-a", subID)
}

func TestBroadcaster_ContextCancelCleansUp(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "session-a")
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "channel should close after context cancel")
}

func TestBroadcaster_CloseClosesSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)

	ch, _ := b.Subscribe(context.Background(), "session-a")
	b.Close()

	_, open := <-ch
	assert.False(t, open)
}
