// Package monitor polls the page scroll position and loads the next listing
// page when the reader nears the bottom.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// Defaults for Config.
const (
	DefaultInterval  = 500 * time.Millisecond
	DefaultThreshold = 500
)

// State is the monitor state.
type State int32

// Monitor states.
const (
	StateIdle State = iota
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	}
	return "unknown"
}

// Position is the scroll geometry of the page in CSS pixels.
type Position struct {
	MaxHeight float64 // height of the scrollable content
	Height    float64 // viewport height
	Top       float64 // scroll offset
	Bottom    float64 // Top + Height
}

// Remaining returns the distance from the viewport bottom to the end of the content.
func (p Position) Remaining() float64 {
	return p.MaxHeight - p.Bottom
}

// Probe reads the current scroll position.
type Probe interface {
	ScrollPosition(ctx context.Context) (Position, error)
}

// LoadFunc loads and renders the next page. It returns types.ErrNoMorePages
// once the listing is exhausted.
type LoadFunc func(ctx context.Context) error

// Config configures a Monitor.
type Config struct {
	Interval  time.Duration
	Threshold float64
}

// Monitor is a two-state machine. A tick near the bottom while idle starts
// one asynchronous load; ticks while loading do nothing, so at most one load
// is ever in flight.
type Monitor struct {
	probe     Probe
	load      LoadFunc
	interval  time.Duration
	threshold float64

	state     atomic.Int32
	exhausted atomic.Bool
	loads     atomic.Int64
	wg        sync.WaitGroup
}

// New creates a Monitor. Zero config values use the defaults.
func New(probe Probe, load LoadFunc, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Monitor{
		probe:     probe,
		load:      load,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
	}
}

// State returns the current state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Loads returns the number of loads started.
func (m *Monitor) Loads() int64 {
	return m.loads.Load()
}

// Exhausted reports whether the listing has no more pages.
func (m *Monitor) Exhausted() bool {
	return m.exhausted.Load()
}

// Tick runs one poll. It reports whether a load was started.
func (m *Monitor) Tick(ctx context.Context) (bool, error) {
	if m.exhausted.Load() || m.State() == StateLoading {
		return false, nil
	}

	pos, err := m.probe.ScrollPosition(ctx)
	if err != nil {
		return false, err
	}
	if pos.Remaining() >= m.threshold {
		return false, nil
	}

	if !m.state.CompareAndSwap(int32(StateIdle), int32(StateLoading)) {
		return false, nil
	}
	metrics.SetMonitorLoading(true)
	m.loads.Add(1)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.state.Store(int32(StateIdle))
			metrics.SetMonitorLoading(false)
		}()

		if err := m.load(ctx); err != nil {
			if errors.Is(err, types.ErrNoMorePages) {
				m.exhausted.Store(true)
				log.Info().Msg("Listing exhausted, no more pages to load")
				return
			}
			log.Debug().Err(err).Msg("Page load failed")
		}
	}()

	return true, nil
}

// Wait blocks until the in-flight load, if any, has finished.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Run ticks every interval until ctx is done, then waits for the in-flight load.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", m.interval).
		Float64("threshold", m.threshold).
		Msg("Scroll monitor started")

	for {
		select {
		case <-ctx.Done():
			m.Wait()
			log.Info().Int64("loads", m.Loads()).Msg("Scroll monitor stopped")
			return nil
		case <-ticker.C:
			if _, err := m.Tick(ctx); err != nil {
				if errors.Is(err, types.ErrPageClosed) {
					m.Wait()
					return err
				}
				log.Debug().Err(err).Msg("Failed to read scroll position")
			}
		}
	}
}
