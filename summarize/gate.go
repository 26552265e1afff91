package summarize

import (
	"context"
	"sync"
	"time"
)

// Gate protects the metered summarization backend from bursts: at most
// maxConcurrent calls in flight, and no two calls starting closer together
// than minInterval. The last-call time is a single shared value behind a
// mutex, so the gate is safe under whatever parallelism callers use.
type Gate struct {
	sem         chan struct{}
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewGate builds a gate. maxConcurrent < 1 is treated as 1.
func NewGate(maxConcurrent int, minInterval time.Duration) *Gate {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Gate{
		sem:         make(chan struct{}, maxConcurrent),
		minInterval: minInterval,
	}
}

// Do runs fn under the gate. It blocks until a slot is free and the
// minimum interval since the previous call has elapsed.
func (g *Gate) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-g.sem }()

	g.mu.Lock()
	if wait := g.minInterval - time.Since(g.last); wait > 0 {
		// The lock is held across the wait on purpose: the next caller's
		// interval starts from this call, not from the lock handoff.
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			g.mu.Unlock()
			return "", ctx.Err()
		}
	}
	g.last = time.Now()
	g.mu.Unlock()

	return fn()
}

// Throttled wraps a Summarizer behind a gate.
type Throttled struct {
	inner Summarizer
	gate  *Gate
}

// NewThrottled returns s gated by g.
func NewThrottled(s Summarizer, g *Gate) *Throttled {
	return &Throttled{inner: s, gate: g}
}

func (t *Throttled) Summarize(ctx context.Context, plain string) (string, error) {
	return t.gate.Do(ctx, func() (string, error) {
		return t.inner.Summarize(ctx, plain)
	})
}
