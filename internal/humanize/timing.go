package humanize

import (
	"context"
	"math/rand"
	"time"
)

// TimingConfig contains the pauses of an unattended reader.
type TimingConfig struct {
	// Dwell between scroll bursts (milliseconds), time spent looking at items.
	DwellMinMs int
	DwellMaxMs int

	// Wait after reaching the bottom before looking again (milliseconds),
	// giving the next page time to arrive.
	BottomWaitMinMs int
	BottomWaitMaxMs int
}

// DefaultTimingConfig returns defaults for a leisurely reader.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		DwellMinMs:      800,
		DwellMaxMs:      2500,
		BottomWaitMinMs: 1500,
		BottomWaitMaxMs: 3000,
	}
}

// Timing provides humanized pauses.
type Timing struct {
	config TimingConfig
}

// NewTimingWithConfig creates a timing utility with a custom config.
func NewTimingWithConfig(config TimingConfig) *Timing {
	return &Timing{config: config}
}

// Dwell returns the pause between scroll bursts.
func (t *Timing) Dwell() time.Duration {
	return RandomDuration(t.config.DwellMinMs, t.config.DwellMaxMs)
}

// BottomWait returns the pause after reaching the bottom of the page.
func (t *Timing) BottomWait() time.Duration {
	return RandomDuration(t.config.BottomWaitMinMs, t.config.BottomWaitMaxMs)
}

// RandomDuration returns a random duration between min and max milliseconds.
func RandomDuration(minMs, maxMs int) time.Duration {
	return time.Duration(randomInt(minMs, maxMs)) * time.Millisecond
}

// randomInt returns a random int in [lo, hi], or lo when the range is empty.
func randomInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.Intn(hi-lo+1)
}

// sleepWithContext sleeps for d or until ctx is canceled.
// Returns false if interrupted.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
