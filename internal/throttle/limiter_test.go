// ABOUTME: Tests for the TTL hit limiter
// ABOUTME: Covers window counting, reset, eviction, and expiry

package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowWithinLimit(t *testing.T) {
	l := New(time.Minute, 100)
	defer l.Close()

	assert.True(t, l.Allow("key", 3))
	assert.True(t, l.Allow("key", 3))
	assert.True(t, l.Allow("key", 3))
	assert.False(t, l.Allow("key", 3))
	assert.False(t, l.Allow("key", 3))
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l := New(time.Minute, 100)
	defer l.Close()

	assert.True(t, l.Allow("a", 1))
	assert.False(t, l.Allow("a", 1))
	assert.True(t, l.Allow("b", 1))
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := New(20*time.Millisecond, 100)
	defer l.Close()

	assert.True(t, l.Allow("key", 1))
	assert.False(t, l.Allow("key", 1))

	time.Sleep(30 * time.Millisecond)

	assert.True(t, l.Allow("key", 1))
}

func TestLimiter_Reset(t *testing.T) {
	l := New(time.Minute, 100)
	defer l.Close()

	assert.True(t, l.Allow("key", 1))
	assert.False(t, l.Allow("key", 1))

	l.Reset("key")

	assert.True(t, l.Allow("key", 1))
}

func TestLimiter_EvictsOldestAtCapacity(t *testing.T) {
	l := New(time.Minute, 2)
	defer l.Close()

	assert.True(t, l.Allow("a", 1))
	assert.True(t, l.Allow("b", 1))
	// Adding a third key evicts "a"
	assert.True(t, l.Allow("c", 1))

	// "a" was evicted, so its window restarts
	assert.True(t, l.Allow("a", 1))
}

func TestLimiter_CloseIdempotent(t *testing.T) {
	l := New(time.Minute, 10)
	l.Close()
	l.Close()
}
