// Package zoom provides the full-viewport image overlay opened from a zoom
// affordance.
package zoom

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// IDAttr marks every layer of an overlay with the overlay id. A click on any
// marked layer closes the overlay.
const IDAttr = "data-slm-zoom-id"

// ErrInvalidTarget is returned for zoom targets that are not image URLs.
var ErrInvalidTarget = errors.New("invalid zoom target")

const (
	screenStyle = "cursor: zoom-out; display: table; position: fixed; top: 0px; left: 0px; " +
		"width: 100%; height: 100%; z-index: 9998; background-color: rgba(34, 34, 34, 0.6);"
	cellStyle  = "cursor: zoom-out; position: static; display: table-cell; vertical-align: middle;"
	panelStyle = "cursor: zoom-out; margin-left: auto; margin-right: auto; text-align: center; " +
		"height: auto; width: 700px; border-radius: 5px; background-color: white; padding: 1em;"
)

// ElementID returns the DOM id of the overlay's outer layer.
func ElementID(id string) string {
	return "slm-zoom-" + id
}

// Markup renders the overlay for imageURL: a fixed backdrop, a centring
// cell and a white panel holding the image.
func Markup(id, imageURL string) string {
	eid := html.EscapeString(id)
	return fmt.Sprintf(`<div id="%s" %s="%s" style="%s"><div %s="%s" style="%s"><div %s="%s" style="%s"><img src="%s"></div></div></div>`,
		ElementID(eid), IDAttr, eid, screenStyle,
		IDAttr, eid, cellStyle,
		IDAttr, eid, panelStyle,
		html.EscapeString(imageURL))
}

// ValidateTarget accepts absolute http(s) URLs and root-relative paths.
func ValidateTarget(target string) error {
	if target == "" {
		return ErrInvalidTarget
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return ErrInvalidTarget
		}
		return nil
	case "":
		if strings.HasPrefix(target, "/") {
			return nil
		}
	}
	return ErrInvalidTarget
}

// Overlay is one open zoom overlay. Close removes it exactly once no matter
// how many layers receive the click.
type Overlay struct {
	ID     string
	Target string

	once   sync.Once
	closed atomic.Bool
	remove func() error
	err    error
}

// NewOverlay creates an overlay whose removal is performed by remove.
func NewOverlay(id, target string, remove func() error) *Overlay {
	return &Overlay{ID: id, Target: target, remove: remove}
}

// Close runs the removal on the first call. Later calls are no-ops and
// return the first call's error.
func (o *Overlay) Close() error {
	o.once.Do(func() {
		o.closed.Store(true)
		if o.remove != nil {
			o.err = o.remove()
		}
	})
	return o.err
}

// Closed reports whether Close has been called.
func (o *Overlay) Closed() bool {
	return o.closed.Load()
}
