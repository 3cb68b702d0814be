// Package browser drives the Chromium instance that shows the listing page.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// Options configures the browser launch.
type Options struct {
	Headless         bool
	BrowserPath      string
	IgnoreCertErrors bool
}

// Browser is a launched browser and the pages opened in it.
type Browser struct {
	rod    *rod.Browser
	closed atomic.Bool

	mu    sync.Mutex
	pages []*Page
}

// Launch starts a browser and connects to it over CDP.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	log.Info().
		Bool("headless", opts.Headless).
		Str("browser_path", opts.BrowserPath).
		Msg("Launching browser")

	url, err := createLauncher(opts).Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	if opts.IgnoreCertErrors {
		log.Warn().Msg("Certificate validation disabled")
		if err := b.IgnoreCertErrors(true); err != nil {
			log.Warn().Err(err).Msg("Failed to set IgnoreCertErrors")
		}
	}

	log.Debug().Str("url", url).Msg("Browser connected")
	return &Browser{rod: b}, nil
}

// createLauncher builds the launcher flags. A headed browser is the default;
// the page is meant to be looked at.
func createLauncher(opts Options) *launcher.Launcher {
	l := launcher.New()

	if opts.BrowserPath != "" {
		l = l.Bin(opts.BrowserPath)
	}

	if opts.Headless {
		l = l.Set("headless", "new")
	} else {
		// rod enables headless unless told otherwise
		l = l.Headless(false)
	}

	l = l.Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation").
		Set("disable-features", "Translate,TranslateUI").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("disable-search-engine-choice-screen").
		Set("accept-lang", "en-US,en;q=0.9").
		Set("window-size", "1280,1024")

	if opts.IgnoreCertErrors {
		l = l.Set("ignore-certificate-errors")
	}

	if isARM() {
		l = l.Set("disable-gpu-compositing")
	}

	return l
}

// Open creates a stealth page, navigates it to url and waits for it to load.
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	if b.closed.Load() {
		return nil, types.ErrBrowserClosed
	}

	rp, err := stealth.Page(b.rod)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	p := newPage(rp)
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()

	if err := rp.Context(ctx).Navigate(url); err != nil {
		return nil, wrapErr(ctx, fmt.Errorf("failed to navigate: %w", err))
	}
	if err := rp.Context(ctx).WaitLoad(); err != nil {
		return nil, wrapErr(ctx, fmt.Errorf("failed to wait for page load: %w", err))
	}

	log.Debug().Str("url", url).Msg("Page loaded")
	return p, nil
}

// Close closes every page and then the browser. Safe to call more than once.
func (b *Browser) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	pages := b.pages
	b.pages = nil
	b.mu.Unlock()

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, p := range pages {
		eg.Go(p.Close)
	}
	if err := eg.Wait(); err != nil {
		log.Debug().Err(err).Msg("Error closing page")
	}

	if err := b.rod.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	log.Info().Msg("Browser closed")
	return nil
}

func isARM() bool {
	arch := runtime.GOARCH
	return arch == "arm" || arch == "arm64"
}
