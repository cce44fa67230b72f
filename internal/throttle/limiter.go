// ABOUTME: Thread-safe TTL limiter for throttling repeated actions by key.
// ABOUTME: Used to rate-limit OTP resends and login attempts.

package throttle

import (
	"container/list"
	"sync"
	"time"
)

// entry stores the window start, hit count, and list element for a key.
type entry struct {
	windowStart time.Time
	hits        int
	element     *list.Element
}

// Limiter provides a thread-safe, TTL-based, size-limited hit counter keyed
// by string. Keys accumulate hits within a rolling window; once the window
// expires the count resets. Uses a doubly-linked list to maintain insertion
// order for O(1) eviction.
type Limiter struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // List of keys in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a limiter with the specified window TTL and maximum tracked keys.
// A background goroutine periodically cleans up expired entries.
func New(ttl time.Duration, maxSize int) *Limiter {
	l := &Limiter{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow records a hit for key and reports whether it is within limit hits for
// the current window. The hit is counted even when the limit is exceeded, so
// hammering a key extends nothing but keeps it denied.
func (l *Limiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	e, ok := l.seen[key]
	if ok && now.Sub(e.windowStart) < l.ttl {
		e.hits++
		return e.hits <= limit
	}

	// New key or expired window
	if !ok {
		if len(l.seen) >= l.maxSize {
			l.evictOldest()
		}
		elem := l.order.PushBack(key)
		e = &entry{element: elem}
		l.seen[key] = e
	} else {
		l.order.MoveToBack(e.element)
	}

	e.windowStart = now
	e.hits = 1
	return limit >= 1
}

// Reset clears the window for a key (e.g. after a successful login).
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.seen[key]
	if !ok {
		return
	}
	l.order.Remove(e.element)
	delete(l.seen, key)
}

// evictOldest removes the oldest entry. Must be called with mu held.
// O(1) operation using the linked list.
func (l *Limiter) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	l.order.Remove(front)
	delete(l.seen, key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCleanup()
		case <-l.done:
			return
		}
	}
}

// runCleanup removes all expired entries.
func (l *Limiter) runCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, e := range l.seen {
		if now.Sub(e.windowStart) > l.ttl {
			l.order.Remove(e.element)
			delete(l.seen, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}
