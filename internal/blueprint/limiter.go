package blueprint

// limiter.go guards against duplicate and runaway submissions.
//
// Gate allows one in-flight validation or submission per session: a second
// attempt while the first is outstanding fails immediately with
// ErrSubmitInFlight. SubmitLimiter caps submissions across all sessions with
// a semaphore; requests that cannot get a slot within maxWait fail with
// ErrTooManySubmissions. WaitForDrain supports graceful shutdown.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSubmitInFlight is returned when a session already has a request outstanding.
var ErrSubmitInFlight = errors.New("submission already in progress")

// ErrTooManySubmissions is returned when all submission slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManySubmissions = errors.New("too many submissions in progress, please try again later")

// DefaultMaxConcurrentSubmissions is the default limit for parallel submissions.
const DefaultMaxConcurrentSubmissions = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Gate admits one holder at a time without blocking.
// The zero value is an open gate.
type Gate struct {
	busy atomic.Bool
}

// Enter claims the gate. It returns ErrSubmitInFlight if another caller holds it.
// A successful Enter must be paired with Leave.
func (g *Gate) Enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	return nil
}

// Leave releases the gate so the operation can be retried.
func (g *Gate) Leave() {
	g.busy.Store(false)
}

// Busy reports whether the gate is currently held.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// SubmitLimiter controls concurrent submission processing using a semaphore.
type SubmitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter creates a limiter that allows at most maxConcurrent
// simultaneous submissions.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmissions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &SubmitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a submission slot.
// The caller MUST call Release() when the submission completes (use defer).
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManySubmissions
	}
}

// Release releases a previously acquired slot.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of submissions currently holding a slot.
func (l *SubmitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *SubmitLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active submissions complete or ctx is done.
func (l *SubmitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *SubmitLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
