package stealth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDelay(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := RandomDelay(3*time.Second, 5*time.Second)
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.Less(t, d, 5*time.Second)
	}

	assert.Equal(t, 2*time.Second, RandomDelay(2*time.Second, 2*time.Second))
	assert.Equal(t, 4*time.Second, RandomDelay(4*time.Second, 1*time.Second))
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func TestPacerBetweenRequests(t *testing.T) {
	rec := &sleepRecorder{}
	p := NewPacer(PacerOptions{
		MinDelay:   3 * time.Second,
		MaxDelay:   5 * time.Second,
		BreakEvery: 2,
		BreakMin:   10 * time.Minute,
		BreakMax:   11 * time.Minute,
	})
	p.sleep = rec.sleep

	require.NoError(t, p.BetweenRequests(context.Background(), 1))
	require.Len(t, rec.calls, 1)
	assert.GreaterOrEqual(t, rec.calls[0], 3*time.Second)
	assert.Less(t, rec.calls[0], 5*time.Second)

	require.NoError(t, p.BetweenRequests(context.Background(), 2))
	require.Len(t, rec.calls, 3)
	assert.GreaterOrEqual(t, rec.calls[2], 10*time.Minute)
}

func TestPacerStopsOnCancel(t *testing.T) {
	rec := &sleepRecorder{}
	p := NewPacer(PacerOptions{MinDelay: time.Second, MaxDelay: 2 * time.Second, BreakEvery: 1})
	p.sleep = rec.sleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.BetweenRequests(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.calls, 1)
}

func TestShouldTakeBreak(t *testing.T) {
	tests := []struct {
		name      string
		opts      PacerOptions
		roll      float64
		succeeded int
		want      bool
	}{
		{"disabled", PacerOptions{BreakEvery: 0}, 0, 25, false},
		{"no successes yet", PacerOptions{BreakEvery: 5}, 0, 0, false},
		{"not a multiple", PacerOptions{BreakEvery: 5}, 0, 7, false},
		{"due without chance", PacerOptions{BreakEvery: 5}, 0.99, 10, true},
		{"due and rolled under chance", PacerOptions{BreakEvery: 25, BreakChance: 0.7}, 0.5, 25, true},
		{"due but rolled over chance", PacerOptions{BreakEvery: 25, BreakChance: 0.7}, 0.9, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacer(tt.opts)
			p.roll = func() float64 { return tt.roll }
			assert.Equal(t, tt.want, p.ShouldTakeBreak(tt.succeeded))
		})
	}
}
