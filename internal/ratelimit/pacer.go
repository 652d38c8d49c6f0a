// Package ratelimit paces outbound calls to third-party APIs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between consecutive external calls.
// It is shared by every adapter call of a running monitor.
//
// Two rules apply: call starts are at least one interval apart, and a call
// reported through Done is followed by a full interval of silence before the
// next one starts.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration

	mu       sync.Mutex
	lastDone time.Time
}

// NewPacer creates a Pacer that admits one call per interval. A non-positive
// interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next call may proceed, or ctx is done.
// Uses Reserve() so exactly one token is consumed per call.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := p.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("pacer: cannot reserve token")
	}

	delay := r.Delay()
	if gap := p.untilQuiet(); gap > delay {
		delay = gap
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Done records that the call admitted by the last Wait has finished. The next
// Wait returns no sooner than one interval from now.
func (p *Pacer) Done() {
	if p.interval <= 0 {
		return
	}
	p.mu.Lock()
	p.lastDone = time.Now()
	p.mu.Unlock()
}

func (p *Pacer) untilQuiet() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastDone.IsZero() {
		return 0
	}
	return time.Until(p.lastDone.Add(p.interval))
}
