// Package session ties the pagination state of one augmented page to the
// loader, the fragment extractor, the augmenter and the live page.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/augment"
	"github.com/Rorqualx/marketplace-scroll/internal/extract"
	"github.com/Rorqualx/marketplace-scroll/internal/listing"
	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
	"github.com/Rorqualx/marketplace-scroll/internal/security"
	"github.com/Rorqualx/marketplace-scroll/internal/selectors"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// Fetcher downloads a listing page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Appender inserts markup at the end of the element matching selector.
type Appender interface {
	AppendHTML(ctx context.Context, selector, markup string) error
}

// SelectorSource returns the current site markers.
type SelectorSource interface {
	Get() *selectors.Selectors
}

// OverlayCounter reports the number of open zoom overlays.
type OverlayCounter interface {
	Len() int
}

// Config holds the collaborators of a Session.
type Config struct {
	Location  string
	Plan      *listing.Plan
	Fetcher   Fetcher
	Appender  Appender
	Selectors SelectorSource
	Overlays  OverlayCounter
}

// Session is the state of one augmented page.
type Session struct {
	location  string
	plan      *listing.Plan
	fetcher   Fetcher
	appender  Appender
	selectors SelectorSource
	overlays  OverlayCounter

	monitorState atomic.Value // func() string
}

// New creates a Session. Plan and Selectors are required; Fetcher and
// Appender are required when the plan scrolls.
func New(cfg Config) (*Session, error) {
	if cfg.Plan == nil {
		return nil, errors.New("session: plan is required")
	}
	if cfg.Selectors == nil {
		return nil, errors.New("session: selectors are required")
	}
	if cfg.Plan.Mode == listing.ModeInfinite && (cfg.Fetcher == nil || cfg.Appender == nil) {
		return nil, errors.New("session: fetcher and appender are required for infinite scroll")
	}
	return &Session{
		location:  cfg.Location,
		plan:      cfg.Plan,
		fetcher:   cfg.Fetcher,
		appender:  cfg.Appender,
		selectors: cfg.Selectors,
		overlays:  cfg.Overlays,
	}, nil
}

// Plan returns the page plan.
func (s *Session) Plan() *listing.Plan {
	return s.plan
}

// SetMonitorState registers the function reporting the scroll monitor state.
func (s *Session) SetMonitorState(fn func() string) {
	s.monitorState.Store(fn)
}

// LoadNext fetches the next listing page and appends its new items.
//
// The page is reserved before the fetch, so a failed page is dropped and
// never retried. Items count as rendered only once they are on the page. A page without a listing fragment renders nothing.
// It returns types.ErrNoMorePages once the listing is exhausted, or when the
// page does not scroll at all.
func (s *Session) LoadNext(ctx context.Context) error {
	state := s.plan.State
	if state == nil {
		return types.ErrNoMorePages
	}

	page, url, err := state.Next()
	if err != nil {
		return err
	}

	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		state.Drop()
		var statusErr *types.StatusError
		if errors.As(err, &statusErr) {
			metrics.RecordFetch(metrics.FetchStatusError, time.Since(start))
		} else {
			metrics.RecordFetch(metrics.FetchError, time.Since(start))
		}
		s.updateGauges()
		return fmt.Errorf("load page %d: %w", page, err)
	}

	sel := s.selectors.Get()
	fragment, ok := extract.Fragment(body, sel)
	if !ok {
		metrics.RecordFetch(metrics.FetchNoFragment, time.Since(start))
		s.updateGauges()
		log.Debug().
			Int("page", page).
			Str("url", security.RedactURL(url)).
			Msg("No listing in fetched page")
		return nil
	}

	aug := augment.New(sel, state.Layout())
	batch, err := aug.Build(fragment, state.Rendered())
	if err != nil {
		metrics.RecordFetch(metrics.FetchNoFragment, time.Since(start))
		s.updateGauges()
		if errors.Is(err, types.ErrFragmentNotFound) {
			return nil
		}
		return fmt.Errorf("build page %d: %w", page, err)
	}
	batch.Indicator = aug.PageIndicator(url, page, state.MaxPage())

	if err := s.appender.AppendHTML(ctx, s.plan.Container, batch.HTML()); err != nil {
		state.Drop()
		metrics.RecordFetch(metrics.FetchError, time.Since(start))
		s.updateGauges()
		return fmt.Errorf("append page %d: %w", page, err)
	}
	batch.Commit(state.Rendered())

	metrics.RecordFetch(metrics.FetchOK, time.Since(start))
	metrics.RecordBatch(len(batch.IDs), batch.Skipped)
	s.updateGauges()

	log.Info().
		Int("page", page).
		Int("max_page", state.MaxPage()).
		Int("items", len(batch.IDs)).
		Int("duplicates", batch.Skipped).
		Int("zoomable", batch.Zoomable).
		Dur("duration", time.Since(start)).
		Msg("Page appended")

	return nil
}

func (s *Session) updateGauges() {
	snap := s.plan.State.Snapshot()
	metrics.UpdatePagination(snap.LoadedPages, snap.MaxPage)
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() types.SessionStatus {
	status := types.SessionStatus{
		URL:          security.RedactURL(s.location),
		Mode:         string(s.plan.Mode),
		Layout:       string(s.plan.Layout),
		MonitorState: "stopped",
	}
	if fn, ok := s.monitorState.Load().(func() string); ok && fn != nil {
		status.MonitorState = fn()
	}
	if s.overlays != nil {
		status.OpenOverlays = s.overlays.Len()
	}

	if s.plan.State == nil {
		return status
	}
	snap := s.plan.State.Snapshot()
	status.Page = snap.Page
	status.PerPage = snap.PerPage
	status.FetchPerPage = snap.FetchPerPage
	status.MaxPage = snap.MaxPage
	status.NextOffset = snap.NextOffset
	status.LoadedPages = snap.LoadedPages
	status.DroppedPages = snap.DroppedPages
	status.RenderedItems = snap.RenderedItems
	status.LastPage = snap.LastPage
	status.LastPageURL = security.RedactURL(snap.LastURL)
	return status
}
