// Package augment turns a fetched listing fragment into markup for the live
// page: it drops items already shown, adds zoom affordances and regroups
// thumbnail items into rows.
package augment

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Rorqualx/marketplace-scroll/internal/listing"
	"github.com/Rorqualx/marketplace-scroll/internal/selectors"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

const (
	// ColumnsPerRow is the number of items in one thumbnails row.
	ColumnsPerRow = 6

	// ZoomTargetAttr holds the large image URL on a zoom affordance.
	ZoomTargetAttr = "data-link-target"

	// IndicatorClass marks the page indicator element.
	IndicatorClass = "slm-page-indicator"

	// zoomSearchDepth is how many first-element-child steps are taken to find the image.
	zoomSearchDepth = 5
)

const zoomLayerStyle = "position: absolute; right: 0px; bottom: 0px; box-sizing: border-box; cursor: zoom-in;"

const indicatorStyle = "text-align: center; height: 1.5em; width: 100%; display: inline; float: left; " +
	"margin-top: 0em; margin-bottom: 0.8em; padding-top: 0.5em; padding-bottom: 0em; " +
	"background-color: #e8e8e8; border-radius: 5px; border: 1px solid #ccc; " +
	"background-image: -webkit-gradient(linear, 0 0, 0 100%, from(#fefefe), to(#e8e8e8));"

// Augmenter builds listing markup for one layout.
type Augmenter struct {
	sel    *selectors.Selectors
	layout listing.Layout
}

// New creates an Augmenter for the given markers and layout.
func New(sel *selectors.Selectors, layout listing.Layout) *Augmenter {
	return &Augmenter{sel: sel, layout: layout}
}

// Batch is the markup produced from one fetched page.
type Batch struct {
	// Indicator is the page indicator markup, emitted before the items.
	Indicator string
	// Items holds the outer HTML of each node to append, in fetch order.
	// For the thumbnails layout these are rows.
	Items []string
	// IDs are the identifiers of the newly staged items.
	IDs []string
	// Skipped counts items dropped because they were already rendered.
	Skipped int
	// Zoomable counts staged items that received a zoom affordance.
	Zoomable int
}

// HTML returns the page indicator followed by the staged items.
func (b *Batch) HTML() string {
	var sb strings.Builder
	sb.WriteString(b.Indicator)
	for _, item := range b.Items {
		sb.WriteString(item)
	}
	return sb.String()
}

// Commit marks the staged identifiers as rendered.
func (b *Batch) Commit(rendered *listing.RenderedSet) {
	for _, id := range b.IDs {
		rendered.Add(id)
	}
}

// Build parses a listing fragment and stages every item whose identifier is
// not yet in rendered. rendered is not modified; call Commit once the batch
// is on the page.
func (a *Augmenter) Build(fragment string, rendered *listing.RenderedSet) (*Batch, error) {
	root, err := parseListing(fragment)
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	var staged []*goquery.Selection
	seen := make(map[string]struct{})

	listing.Items(root, a.layout).Each(func(_ int, item *goquery.Selection) {
		id, _ := item.Attr("id")
		if _, dup := seen[id]; dup || rendered.Has(id) {
			batch.Skipped++
			return
		}
		seen[id] = struct{}{}
		if a.attachZoom(a.zoomTarget(item)) {
			batch.Zoomable++
		}
		batch.IDs = append(batch.IDs, id)
		staged = append(staged, item)
	})

	if a.layout.Nested() {
		for _, row := range a.rows(staged) {
			batch.Items = append(batch.Items, renderNode(row))
		}
		return batch, nil
	}

	for _, item := range staged {
		batch.Items = append(batch.Items, renderNode(item.Get(0)))
	}
	return batch, nil
}

// PageIndicator renders the "page / max" element linking to the fetched page.
func (a *Augmenter) PageIndicator(pageURL string, page, maxPage int) string {
	return fmt.Sprintf(`<div class="%s" style="%s"><a href="%s">%d / %d</a></div>`,
		IndicatorClass, indicatorStyle, html.EscapeString(pageURL), page, maxPage)
}

// Affordance is a zoom layer to add to one element of a live container.
type Affordance struct {
	// Path holds the element-child indexes leading from the container to
	// the target element.
	Path   []int  `json:"path"`
	Markup string `json:"markup"`
}

// ListingAffordances computes the zoom layers for the items of an existing
// listing element given as outer HTML. The page inserts them in place.
func (a *Augmenter) ListingAffordances(listingHTML string) ([]Affordance, error) {
	root, err := parseListing(listingHTML)
	if err != nil {
		return nil, err
	}

	var out []Affordance
	listing.Items(root, a.layout).Each(func(_ int, item *goquery.Selection) {
		if af, ok := a.affordance(root, a.zoomTarget(item)); ok {
			out = append(out, af)
		}
	})
	return out, nil
}

// RelatedAffordances computes the zoom layers for each div child of a
// product page's related items container given as outer HTML.
func (a *Augmenter) RelatedAffordances(containerHTML string) ([]Affordance, error) {
	root, err := parseListing(containerHTML)
	if err != nil {
		return nil, err
	}

	var out []Affordance
	root.ChildrenFiltered("div").Each(func(_ int, item *goquery.Selection) {
		if af, ok := a.affordance(root, item); ok {
			out = append(out, af)
		}
	})
	return out, nil
}

func (a *Augmenter) affordance(root, target *goquery.Selection) (Affordance, bool) {
	layer, ok := a.zoomLayer(target)
	if !ok {
		return Affordance{}, false
	}
	path, ok := elementPath(root.Get(0), target.Get(0))
	if !ok {
		return Affordance{}, false
	}
	return Affordance{Path: path, Markup: layer}, true
}

// elementPath returns the element-child indexes from root down to n.
func elementPath(root, n *nethtml.Node) ([]int, bool) {
	var path []int
	for ; n != root; n = n.Parent {
		if n == nil {
			return nil, false
		}
		i := 0
		for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == nethtml.ElementNode {
				i++
			}
		}
		path = append(path, i)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, true
}

// zoomTarget returns the node that carries the affordance for an item.
func (a *Augmenter) zoomTarget(item *goquery.Selection) *goquery.Selection {
	if a.layout.Nested() {
		return item
	}
	return item.Children().First()
}

// attachZoom adds a zoom affordance to target when the image found under it
// is a small thumbnail. It reports whether an affordance was added.
func (a *Augmenter) attachZoom(target *goquery.Selection) bool {
	layer, ok := a.zoomLayer(target)
	if !ok {
		return false
	}
	target.SetAttr("style", appendStyle(target.AttrOr("style", ""), "position: relative;"))
	target.AppendHtml(layer)
	return true
}

// zoomLayer returns the affordance markup for target, or false when no
// thumbnail image is found under it.
func (a *Augmenter) zoomLayer(target *goquery.Selection) (string, bool) {
	if !a.layout.Zoomable() || target.Length() == 0 {
		return "", false
	}

	src, ok := findImageSource(target)
	if !ok || !strings.Contains(src, a.sel.ThumbnailSegment) {
		return "", false
	}
	return fmt.Sprintf(`<div style="%s" %s="%s">🔍</div>`,
		zoomLayerStyle, ZoomTargetAttr, html.EscapeString(ZoomURL(src, a.sel))), true
}

// ZoomURL maps a thumbnail image URL to its large image URL.
func ZoomURL(src string, sel *selectors.Selectors) string {
	return strings.Replace(src, sel.ThumbnailSegment, sel.ZoomSegment, 1)
}

// findImageSource follows first element children from node looking for an
// img element and returns its src attribute.
func findImageSource(node *goquery.Selection) (string, bool) {
	for i := 0; i < zoomSearchDepth; i++ {
		if node.Length() == 0 {
			return "", false
		}
		if goquery.NodeName(node) == "img" {
			src, ok := node.Attr("src")
			return src, ok
		}
		node = node.Children().First()
	}
	return "", false
}

// rows regroups staged thumbnail items into rows of ColumnsPerRow items.
// The final item of every row carries the last column class.
func (a *Augmenter) rows(staged []*goquery.Selection) []*nethtml.Node {
	var rows []*nethtml.Node
	for start := 0; start < len(staged); start += ColumnsPerRow {
		end := min(start+ColumnsPerRow, len(staged))
		row := newDiv(a.sel.RowClass)
		for i := start; i < end; i++ {
			class := a.sel.ColumnClass
			if i == end-1 {
				class = a.sel.LastColumnClass
			}
			item := staged[i]
			item.SetAttr("class", class)

			n := item.Get(0)
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			row.AppendChild(n)
		}
		rows = append(rows, row)
	}
	return rows
}

// parseListing parses markup the way a browser parses innerHTML of a div and
// returns its first element.
func parseListing(fragment string) (*goquery.Selection, error) {
	context := newDiv("")
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}

	container := newDiv("")
	for _, n := range nodes {
		container.AppendChild(n)
	}

	root := goquery.NewDocumentFromNode(container).Children().First()
	if root.Length() == 0 {
		return nil, types.ErrFragmentNotFound
	}
	return root, nil
}

func newDiv(class string) *nethtml.Node {
	n := &nethtml.Node{Type: nethtml.ElementNode, Data: "div", DataAtom: atom.Div}
	if class != "" {
		n.Attr = []nethtml.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func renderNode(n *nethtml.Node) string {
	var sb strings.Builder
	if err := nethtml.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

func appendStyle(style, decl string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return decl
	}
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return style + " " + decl
}
