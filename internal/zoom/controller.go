package zoom

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
)

// Renderer injects and removes overlay markup in the page.
type Renderer interface {
	ShowOverlay(ctx context.Context, id, markup string) error
	RemoveOverlay(ctx context.Context, id string) error
}

// Controller keeps the open overlays of a page. Open and Close are called
// from the page's zoom bindings.
type Controller struct {
	renderer Renderer
	seq      atomic.Uint64

	mu       sync.Mutex
	overlays map[string]*Overlay
}

// NewController creates a Controller that renders through r.
func NewController(r Renderer) *Controller {
	return &Controller{
		renderer: r,
		overlays: make(map[string]*Overlay),
	}
}

// Open shows an overlay for the large image at target and returns its id.
func (c *Controller) Open(ctx context.Context, target string) (string, error) {
	if err := ValidateTarget(target); err != nil {
		log.Warn().Str("target", target).Msg("Rejected zoom target")
		return "", err
	}

	id := strconv.FormatUint(c.seq.Add(1), 10)
	overlay := NewOverlay(id, target, func() error {
		return c.renderer.RemoveOverlay(ctx, id)
	})

	if err := c.renderer.ShowOverlay(ctx, id, Markup(id, target)); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.overlays[id] = overlay
	c.mu.Unlock()

	metrics.RecordZoomOpened()
	log.Debug().Str("id", id).Str("target", target).Msg("Zoom overlay opened")
	return id, nil
}

// Close closes the overlay with the given id. Unknown or already closed
// ids are ignored.
func (c *Controller) Close(id string) error {
	c.mu.Lock()
	overlay, ok := c.overlays[id]
	delete(c.overlays, id)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return overlay.Close()
}

// CloseAll closes every open overlay.
func (c *Controller) CloseAll() {
	c.mu.Lock()
	open := make([]*Overlay, 0, len(c.overlays))
	for id, o := range c.overlays {
		open = append(open, o)
		delete(c.overlays, id)
	}
	c.mu.Unlock()

	for _, o := range open {
		if err := o.Close(); err != nil {
			log.Debug().Err(err).Str("id", o.ID).Msg("Failed to remove zoom overlay")
		}
	}
}

// Len returns the number of open overlays.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.overlays)
}
