// Package humanize scrolls the listing page the way a person reading it would,
// for unattended runs.
package humanize

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/monitor"
)

// Target is a page that can be scrolled.
type Target interface {
	ScrollPosition(ctx context.Context) (monitor.Position, error)
	ScrollTo(ctx context.Context, y float64) error
}

// ScrollConfig contains configuration for humanized scroll behavior.
type ScrollConfig struct {
	// MinScrollSteps is the minimum number of increments of one burst.
	MinScrollSteps int
	// MaxScrollSteps is the maximum number of increments of one burst.
	MaxScrollSteps int
	// MinStepDelayMs and MaxStepDelayMs bound the delay between increments.
	MinStepDelayMs int
	MaxStepDelayMs int
	// MinBurstPx and MaxBurstPx bound the distance of one burst.
	MinBurstPx int
	MaxBurstPx int
}

// DefaultScrollConfig returns defaults for human-like scrolling.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		MinScrollSteps: 8,
		MaxScrollSteps: 20,
		MinStepDelayMs: 20,
		MaxStepDelayMs: 60,
		MinBurstPx:     300,
		MaxBurstPx:     900,
	}
}

// Scroller provides smooth scrolling of a Target.
type Scroller struct {
	target Target
	config ScrollConfig
}

// NewScrollerWithConfig creates a scroller with a custom config.
func NewScrollerWithConfig(target Target, config ScrollConfig) *Scroller {
	return &Scroller{target: target, config: config}
}

// ScrollBy scrolls by deltaY, clamped to the scrollable range.
func (s *Scroller) ScrollBy(ctx context.Context, deltaY float64) error {
	pos, err := s.target.ScrollPosition(ctx)
	if err != nil {
		return err
	}

	targetY := pos.Top + deltaY
	maxY := pos.MaxHeight - pos.Height
	if targetY > maxY {
		targetY = maxY
	}
	if targetY < 0 {
		targetY = 0
	}

	return s.smoothScrollTo(ctx, pos.Top, targetY)
}

// Burst scrolls down by a random distance.
func (s *Scroller) Burst(ctx context.Context) error {
	return s.ScrollBy(ctx, float64(randomInt(s.config.MinBurstPx, s.config.MaxBurstPx)))
}

// smoothScrollTo scrolls from fromY to toY in eased increments.
func (s *Scroller) smoothScrollTo(ctx context.Context, fromY, toY float64) error {
	distance := math.Abs(toY - fromY)
	if distance < 1 {
		return nil
	}

	// More steps for longer distances
	numSteps := s.config.MinScrollSteps + int(distance/100)
	if numSteps > s.config.MaxScrollSteps {
		numSteps = s.config.MaxScrollSteps
	}
	if numSteps < 1 {
		numSteps = 1
	}

	log.Debug().
		Float64("from_y", fromY).
		Float64("to_y", toY).
		Int("steps", numSteps).
		Msg("Starting smooth scroll")

	for i := 1; i <= numSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := float64(i) / float64(numSteps)
		y := fromY + (toY-fromY)*easeOutCubic(t)

		if err := s.target.ScrollTo(ctx, y); err != nil {
			return err
		}

		if !sleepWithContext(ctx, RandomDuration(s.config.MinStepDelayMs, s.config.MaxStepDelayMs)) {
			return ctx.Err()
		}
	}
	return nil
}

// easeOutCubic decelerates towards the end of a scroll.
func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}
