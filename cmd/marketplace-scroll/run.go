package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rorqualx/marketplace-scroll/internal/augment"
	"github.com/Rorqualx/marketplace-scroll/internal/browser"
	"github.com/Rorqualx/marketplace-scroll/internal/config"
	"github.com/Rorqualx/marketplace-scroll/internal/handlers"
	"github.com/Rorqualx/marketplace-scroll/internal/humanize"
	"github.com/Rorqualx/marketplace-scroll/internal/listing"
	"github.com/Rorqualx/marketplace-scroll/internal/loader"
	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
	"github.com/Rorqualx/marketplace-scroll/internal/middleware"
	"github.com/Rorqualx/marketplace-scroll/internal/monitor"
	"github.com/Rorqualx/marketplace-scroll/internal/security"
	"github.com/Rorqualx/marketplace-scroll/internal/selectors"
	"github.com/Rorqualx/marketplace-scroll/internal/session"
	"github.com/Rorqualx/marketplace-scroll/internal/tui"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
	"github.com/Rorqualx/marketplace-scroll/internal/zoom"
	"github.com/Rorqualx/marketplace-scroll/pkg/version"
)

const shutdownTimeout = 30 * time.Second

// augmented is what runs on a page that passed detection.
type augmented struct {
	session  *session.Session
	monitor  *monitor.Monitor // nil unless the page scrolls
	overlays *zoom.Controller
}

func run(ctx context.Context, cfg *config.Config) error {
	mgr, err := selectors.NewManager(cfg.SelectorsPath, cfg.SelectorsHotReload)
	if err != nil {
		return fmt.Errorf("failed to load selectors: %w", err)
	}
	defer mgr.Close()

	b, err := browser.Launch(ctx, browser.Options{
		Headless:         cfg.Headless,
		BrowserPath:      cfg.BrowserPath,
		IgnoreCertErrors: cfg.IgnoreCertErrors,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("Browser close error")
		}
	}()

	page, err := b.Open(ctx, cfg.StartURL)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", security.RedactURL(cfg.StartURL), err)
	}

	app, err := setupPage(ctx, cfg, page, mgr)
	if err != nil {
		// The page stays exactly as the site rendered it
		log.Warn().Err(err).Msg("Page not augmented")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// Typed nils must not reach the interfaces below
	var status handlers.StatusSource
	if app != nil {
		status = app.session
	}
	var reloader handlers.Reloader
	if cfg.SelectorsPath != "" {
		reloader = mgr
	}

	if cfg.StatusEnabled {
		startStatusServer(gctx, g, cfg, status, reloader)
	}

	if cfg.PrometheusEnabled {
		metrics.SetBuildInfo(version.Full(), version.GoVersion())
		g.Go(func() error {
			metrics.StartMemoryCollector(10*time.Second, gctx.Done())
			return nil
		})
	}

	var mon *monitor.Monitor
	if app != nil {
		mon = app.monitor
	}
	if mon != nil {
		g.Go(func() error {
			err := mon.Run(gctx)
			if errors.Is(err, types.ErrPageClosed) {
				log.Info().Msg("Page closed, stopping")
				cancel()
				return nil
			}
			return err
		})
	}

	if cfg.AutoScroll && app != nil {
		done := func() bool { return mon == nil || mon.Exhausted() }
		scroller := humanize.NewAutoScroller(page, humanize.DefaultScrollConfig(), humanize.DefaultTimingConfig(), done)
		g.Go(func() error {
			if err := scroller.Run(gctx); errors.Is(err, types.ErrPageClosed) {
				cancel()
			}
			return nil
		})
	}

	if cfg.TUIEnabled {
		dashboard := tui.New(gctx, status, reloader)
		g.Go(func() error {
			defer cancel()
			return dashboard.Run()
		})
	}

	log.Info().
		Bool("augmented", app != nil).
		Bool("status_enabled", cfg.StatusEnabled).
		Bool("auto_scroll", cfg.AutoScroll).
		Msg("marketplace-scroll is running")

	<-gctx.Done()
	log.Info().Msg("Shutting down...")
	err = g.Wait()

	if app != nil {
		app.overlays.CloseAll()
	}
	return err
}

// setupPage detects the page mode, decorates the initial items and builds
// the session. An error means nothing on the page was changed.
func setupPage(ctx context.Context, cfg *config.Config, page *browser.Page, mgr *selectors.Manager) (*augmented, error) {
	location, err := page.Location(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}

	sel := mgr.Get()
	plan, err := listing.Detect(location, doc, sel)
	if err != nil {
		return nil, err
	}

	overlays := zoom.NewController(page)
	scfg := session.Config{
		Location:  location,
		Plan:      plan,
		Selectors: mgr,
		Overlays:  overlays,
	}
	if plan.Mode == listing.ModeInfinite {
		client, err := newLoader(ctx, cfg, page, location)
		if err != nil {
			return nil, err
		}
		scfg.Fetcher = client
		scfg.Appender = page
	} else if plan.Reason != nil {
		log.Info().Err(plan.Reason).Msg("Infinite scroll disabled")
	}

	sess, err := session.New(scfg)
	if err != nil {
		return nil, err
	}
	app := &augmented{session: sess, overlays: overlays}

	if plan.Layout.Zoomable() {
		if err := page.InstallZoom(ctx, overlays); err != nil {
			return nil, fmt.Errorf("failed to install zoom: %w", err)
		}
		if err := decorate(ctx, page, plan, sel); err != nil {
			log.Warn().Err(err).Msg("Failed to add zoom to the initial items")
		}
	}

	if plan.Mode == listing.ModeInfinite {
		mon := monitor.New(page, sess.LoadNext, monitor.Config{
			Interval:  cfg.PollInterval,
			Threshold: float64(cfg.ScrollThreshold),
		})
		sess.SetMonitorState(func() string { return mon.State().String() })
		app.monitor = mon
	}

	log.Info().
		Str("mode", string(plan.Mode)).
		Str("layout", string(plan.Layout)).
		Str("url", security.RedactURL(location)).
		Msg("Page augmented")

	return app, nil
}

// decorate adds zoom affordances to the items already on the page. The
// live nodes are edited in place.
func decorate(ctx context.Context, page *browser.Page, plan *listing.Plan, sel *selectors.Selectors) error {
	markup, err := page.OuterHTML(ctx, plan.Container)
	if err != nil {
		return err
	}

	aug := augment.New(sel, plan.Layout)
	var layers []augment.Affordance
	if plan.Mode == listing.ModeProduct {
		layers, err = aug.RelatedAffordances(markup)
	} else {
		layers, err = aug.ListingAffordances(markup)
	}
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		return nil
	}

	added, err := page.AttachAffordances(ctx, plan.Container, layers)
	if err != nil {
		return err
	}
	log.Debug().
		Int("affordances", added).
		Int("computed", len(layers)).
		Msg("Initial items decorated")
	return nil
}

// newLoader creates the page loader with the browser's identity and cookies.
func newLoader(ctx context.Context, cfg *config.Config, page *browser.Page, location string) (*loader.Client, error) {
	ua, err := page.UserAgent(ctx)
	if err != nil || ua == "" {
		ua = version.UserAgent
	}

	client, err := loader.New(loader.Config{
		Origin:       location,
		UserAgent:    ua,
		Timeout:      cfg.FetchTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read browser cookies, loading pages without them")
	} else {
		client.SetCookies(cookies)
	}
	return client, nil
}

func startStatusServer(ctx context.Context, g *errgroup.Group, cfg *config.Config, status handlers.StatusSource, reloader handlers.Reloader) {
	h := handlers.New(status, reloader).Routes(cfg.PrometheusEnabled)
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      middleware.Chain(middleware.Recovery, middleware.Logging)(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		log.Info().
			Str("address", cfg.Addr()).
			Bool("metrics_enabled", cfg.PrometheusEnabled).
			Msg("Status server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown error")
		}
		return nil
	})
}
