package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"github.com/ysmood/gson"

	"github.com/Rorqualx/marketplace-scroll/internal/augment"
	"github.com/Rorqualx/marketplace-scroll/internal/monitor"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
	"github.com/Rorqualx/marketplace-scroll/internal/zoom"
)

// Names of the page bindings that reach the zoom controller.
const (
	bindingOpen  = "slmZoomOpen"
	bindingClose = "slmZoomClose"
)

// Page is the live listing page.
type Page struct {
	rod *rod.Page

	mu    sync.Mutex
	stops []func() error
}

func newPage(p *rod.Page) *Page {
	return &Page{rod: p}
}

const scrollScript = `() => {
	const div = document.getElementsByTagName("div")[0];
	const height = document.documentElement.clientHeight;
	return {
		maxHeight: div ? div.clientHeight : 0,
		height: height,
		top: window.pageYOffset,
		bottom: window.pageYOffset + height
	};
}`

// ScrollPosition implements monitor.Probe.
func (p *Page) ScrollPosition(ctx context.Context) (monitor.Position, error) {
	res, err := p.rod.Context(ctx).Eval(scrollScript)
	if err != nil {
		return monitor.Position{}, wrapErr(ctx, err)
	}
	return decodePosition(res.Value), nil
}

func decodePosition(v gson.JSON) monitor.Position {
	return monitor.Position{
		MaxHeight: v.Get("maxHeight").Num(),
		Height:    v.Get("height").Num(),
		Top:       v.Get("top").Num(),
		Bottom:    v.Get("bottom").Num(),
	}
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	html, err := p.rod.Context(ctx).HTML()
	if err != nil {
		return "", wrapErr(ctx, err)
	}
	return html, nil
}

// Location returns the URL of the page.
func (p *Page) Location(ctx context.Context) (string, error) {
	info, err := p.rod.Context(ctx).Info()
	if err != nil {
		return "", wrapErr(ctx, err)
	}
	return info.URL, nil
}

// UserAgent returns the browser's user agent.
func (p *Page) UserAgent(ctx context.Context) (string, error) {
	res, err := p.rod.Context(ctx).Eval(`() => navigator.userAgent`)
	if err != nil {
		return "", wrapErr(ctx, err)
	}
	return res.Value.Str(), nil
}

// OuterHTML returns the outer HTML of the first element matching selector.
func (p *Page) OuterHTML(ctx context.Context, selector string) (string, error) {
	res, err := p.rod.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? el.outerHTML : null;
	}`, selector)
	if err != nil {
		return "", wrapErr(ctx, err)
	}
	if res.Value.Nil() {
		return "", types.NewMissingMarkerError("page", selector)
	}
	return res.Value.Str(), nil
}

// AttachAffordances adds each zoom layer inside the element it targets
// under the first element matching selector. Existing nodes are kept; a
// target that is no longer there is skipped. It returns the number added.
func (p *Page) AttachAffordances(ctx context.Context, selector string, layers []augment.Affordance) (int, error) {
	res, err := p.rod.Context(ctx).Eval(`(sel, layers) => {
		const root = document.querySelector(sel);
		if (!root) return -1;
		let added = 0;
		for (const layer of layers) {
			let el = root;
			for (const i of layer.path) {
				el = el ? el.children[i] : null;
			}
			if (!el) continue;
			el.style.position = "relative";
			el.insertAdjacentHTML("beforeend", layer.markup);
			added++;
		}
		return added;
	}`, selector, layers)
	if err != nil {
		return 0, wrapErr(ctx, err)
	}
	added := res.Value.Int()
	if added < 0 {
		return 0, types.NewMissingMarkerError("page", selector)
	}
	return added, nil
}

// AppendHTML inserts markup at the end of the first element matching selector.
func (p *Page) AppendHTML(ctx context.Context, selector, markup string) error {
	return p.evalOnElement(ctx, selector, markup, `(sel, html) => {
		const el = document.querySelector(sel);
		if (!el) return false;
		el.insertAdjacentHTML("beforeend", html);
		return true;
	}`)
}

func (p *Page) evalOnElement(ctx context.Context, selector, markup, js string) error {
	res, err := p.rod.Context(ctx).Eval(js, selector, markup)
	if err != nil {
		return wrapErr(ctx, err)
	}
	if !res.Value.Bool() {
		return types.NewMissingMarkerError("page", selector)
	}
	return nil
}

// ShowOverlay implements zoom.Renderer.
func (p *Page) ShowOverlay(ctx context.Context, _ string, markup string) error {
	_, err := p.rod.Context(ctx).Eval(`(html) => document.body.insertAdjacentHTML("beforeend", html)`, markup)
	return wrapErr(ctx, err)
}

// RemoveOverlay implements zoom.Renderer.
func (p *Page) RemoveOverlay(ctx context.Context, id string) error {
	_, err := p.rod.Context(ctx).Eval(`(id) => {
		const el = document.getElementById(id);
		if (el) el.remove();
	}`, zoom.ElementID(id))
	return wrapErr(ctx, err)
}

// zoomListenerScript routes clicks on zoom affordances and overlay layers to
// the exposed bindings.
var zoomListenerScript = fmt.Sprintf(`() => {
	if (window.__slmZoomInstalled) return;
	window.__slmZoomInstalled = true;
	document.addEventListener("click", (ev) => {
		const layer = ev.target.closest("[%[1]s]");
		if (layer) {
			ev.preventDefault();
			window.%[2]s(layer.getAttribute("%[1]s"));
			return;
		}
		const affordance = ev.target.closest("[%[3]s]");
		if (affordance) {
			ev.preventDefault();
			ev.stopPropagation();
			window.%[4]s(affordance.getAttribute("%[3]s"));
		}
	}, true);
}`, zoom.IDAttr, bindingClose, augment.ZoomTargetAttr, bindingOpen)

// InstallZoom exposes the zoom bindings to the page and installs the click
// listener that calls them.
func (p *Page) InstallZoom(ctx context.Context, c *zoom.Controller) error {
	stopOpen, err := p.rod.Expose(bindingOpen, func(arg gson.JSON) (interface{}, error) {
		return c.Open(ctx, arg.Str())
	})
	if err != nil {
		return fmt.Errorf("failed to expose %s: %w", bindingOpen, err)
	}
	stopClose, err := p.rod.Expose(bindingClose, func(arg gson.JSON) (interface{}, error) {
		return nil, c.Close(arg.Str())
	})
	if err != nil {
		_ = stopOpen()
		return fmt.Errorf("failed to expose %s: %w", bindingClose, err)
	}

	p.mu.Lock()
	p.stops = append(p.stops, stopOpen, stopClose)
	p.mu.Unlock()

	if _, err := p.rod.Context(ctx).Eval(zoomListenerScript); err != nil {
		return wrapErr(ctx, err)
	}
	log.Debug().Msg("Zoom bindings installed")
	return nil
}

// ScrollTo scrolls the window to the vertical offset y.
func (p *Page) ScrollTo(ctx context.Context, y float64) error {
	_, err := p.rod.Context(ctx).Eval(`(y) => window.scrollTo({top: y, behavior: "instant"})`, y)
	return wrapErr(ctx, err)
}

// Cookies returns the page cookies for use by an HTTP client.
func (p *Page) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := p.rod.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, wrapErr(ctx, err)
	}
	return toHTTPCookies(cookies), nil
}

func toHTTPCookies(cookies []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// Close removes the bindings and closes the page.
func (p *Page) Close() error {
	p.mu.Lock()
	stops := p.stops
	p.stops = nil
	p.mu.Unlock()

	for _, stop := range stops {
		_ = stop()
	}
	return p.rod.Close()
}

// wrapErr maps CDP failures onto the package sentinels.
func wrapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", types.ErrContextCanceled, ctx.Err())
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "Target closed") || strings.Contains(msg, "No target with given id") ||
		strings.Contains(msg, "Session with given id not found") {
		return fmt.Errorf("%w: %v", types.ErrPageClosed, err)
	}
	return err
}
