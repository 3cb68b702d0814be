package humanize

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// AutoScroller reads down the listing until it is exhausted.
type AutoScroller struct {
	scroller *Scroller
	target   Target
	timing   *Timing
	// done reports that no more pages will arrive.
	done func() bool
}

// NewAutoScroller creates an AutoScroller. done may be nil, in which case
// the scroller runs until its context ends.
func NewAutoScroller(target Target, scroll ScrollConfig, timing TimingConfig, done func() bool) *AutoScroller {
	return &AutoScroller{
		scroller: NewScrollerWithConfig(target, scroll),
		target:   target,
		timing:   NewTimingWithConfig(timing),
		done:     done,
	}
}

// Run scrolls in bursts with dwell pauses. At the bottom it waits for the
// next page and stops once done reports true and nothing is left to scroll.
func (a *AutoScroller) Run(ctx context.Context) error {
	log.Info().Msg("Auto-scroll started")
	defer log.Info().Msg("Auto-scroll stopped")

	for {
		pos, err := a.target.ScrollPosition(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, types.ErrPageClosed) {
				return err
			}
			log.Debug().Err(err).Msg("Auto-scroll could not read position")
			if !sleepWithContext(ctx, a.timing.BottomWait()) {
				return nil
			}
			continue
		}

		if pos.Remaining() < 1 {
			if a.done != nil && a.done() {
				return nil
			}
			if !sleepWithContext(ctx, a.timing.BottomWait()) {
				return nil
			}
			continue
		}

		if err := a.scroller.Burst(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, types.ErrPageClosed) {
				return err
			}
			log.Debug().Err(err).Msg("Auto-scroll burst failed")
		}

		if !sleepWithContext(ctx, a.timing.Dwell()) {
			return nil
		}
	}
}
