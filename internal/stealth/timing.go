package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func float64n() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

func intn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}

// RandomDelay returns a uniformly random duration in [min, max)
func RandomDelay(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// ShortDelay returns a short random delay
func ShortDelay() time.Duration {
	return RandomDelay(100*time.Millisecond, 500*time.Millisecond)
}

// Sleep blocks for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pause sleeps for a random duration in [min, max), honouring ctx
func Pause(ctx context.Context, min, max time.Duration) error {
	return Sleep(ctx, RandomDelay(min, max))
}

// PacerOptions configures request pacing
type PacerOptions struct {
	MinDelay   time.Duration
	MaxDelay   time.Duration
	BreakEvery int
	BreakMin   time.Duration
	BreakMax   time.Duration
	// BreakChance is the probability of taking a due break; 0 means always
	BreakChance float64
}

// Pacer spaces out connection requests and schedules periodic longer breaks
type Pacer struct {
	opts  PacerOptions
	sleep func(ctx context.Context, d time.Duration) error
	roll  func() float64
}

// NewPacer creates a Pacer
func NewPacer(opts PacerOptions) *Pacer {
	return &Pacer{opts: opts, sleep: Sleep, roll: float64n}
}

// BetweenRequests waits a random delay in the configured range. When succeeded is a
// positive multiple of BreakEvery it may additionally take a long break.
func (p *Pacer) BetweenRequests(ctx context.Context, succeeded int) error {
	if err := p.sleep(ctx, RandomDelay(p.opts.MinDelay, p.opts.MaxDelay)); err != nil {
		return err
	}

	if p.ShouldTakeBreak(succeeded) {
		return p.sleep(ctx, RandomDelay(p.opts.BreakMin, p.opts.BreakMax))
	}
	return nil
}

// ShouldTakeBreak reports whether a long break is due after succeeded requests
func (p *Pacer) ShouldTakeBreak(succeeded int) bool {
	if p.opts.BreakEvery <= 0 || succeeded <= 0 || succeeded%p.opts.BreakEvery != 0 {
		return false
	}
	if p.opts.BreakChance <= 0 {
		return true
	}
	return p.roll() < p.opts.BreakChance
}
