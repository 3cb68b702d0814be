package listing

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/selectors"
	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// Mode is what the augmenter does on a page.
type Mode string

// Page modes.
const (
	// ModeProduct zooms the related items of a product page.
	ModeProduct Mode = "product"
	// ModeZoomOnly zooms the listing but does not load further pages.
	ModeZoomOnly Mode = "zoom"
	// ModeInfinite zooms the listing and loads further pages on scroll.
	ModeInfinite Mode = "infinite"
)

// Plan is the result of inspecting a freshly loaded page.
type Plan struct {
	Mode   Mode
	Layout Layout
	// Container is the CSS selector of the element whose items get zoom affordances.
	Container string
	// State is set only in ModeInfinite.
	State *State
	// Reason explains why a listing page runs in ModeZoomOnly.
	Reason error
}

var countPattern = regexp.MustCompile(`\d[\d,]*`)

// Detect inspects a rendered page and decides how to augment it.
// It returns an error when the page cannot be augmented at all; the page
// must then be left untouched.
func Detect(location, document string, sel *selectors.Selectors) (*Plan, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	if sel.IsProductPage(location) {
		related := "#" + sel.RelatedItemsID
		if doc.Find(related).Length() == 0 {
			return nil, types.NewMissingMarkerError("product", related)
		}
		return &Plan{Mode: ModeProduct, Layout: LayoutList, Container: related}, nil
	}

	var (
		query       Query
		layout      Layout
		page        int
		pageErr     error
		hasPageInfo bool
	)

	current := doc.Find(sel.PaginationCurrent).First()
	if current.Length() > 0 {
		link := doc.Find(sel.PaginationLink).First()
		href, ok := link.Attr("href")
		if !ok {
			return nil, types.NewMissingMarkerError("pagination", sel.PaginationLink)
		}
		hasPageInfo = true
		query = ParseHref(resolveHref(location, href))
		layout = LayoutFromQuery(query.Raw)
		page, pageErr = parseLeadingInt(current.Text())
	} else {
		layout = LayoutFromQuery(decodeComponent(location))
		if !layout.Valid() {
			return nil, types.NewUnknownLayoutError(string(layout))
		}
	}

	container := "." + sel.ListingClass
	listing := doc.Find(container).First()
	if listing.Length() == 0 {
		return nil, types.NewMissingMarkerError("listing", container)
	}

	plan := &Plan{Mode: ModeZoomOnly, Layout: layout, Container: container}

	switch {
	case !hasPageInfo:
		plan.Reason = types.NewMissingMarkerError("pagination", sel.PaginationCurrent)
		return plan, nil
	case pageErr != nil:
		plan.Reason = fmt.Errorf("current page: %w", pageErr)
		return plan, nil
	case !strings.Contains(location, sel.SearchPath):
		plan.Reason = fmt.Errorf("%w: %s is not a search page", types.ErrNotListingPage, location)
		return plan, nil
	case doc.Find("#"+sel.SearchContainerID).Length() == 0:
		plan.Reason = types.NewMissingMarkerError("search", "#"+sel.SearchContainerID)
		return plan, nil
	}

	perPage, err := perPageValue(doc.Find("#" + sel.PerPageID).First())
	if err != nil || perPage <= 0 {
		plan.Reason = types.NewMissingMarkerError("search", "#"+sel.PerPageID)
		return plan, nil
	}

	title := doc.Find(sel.ResultsTitle).First()
	if title.Length() == 0 {
		plan.Reason = types.NewMissingMarkerError("search", sel.ResultsTitle)
		return plan, nil
	}
	count, err := resultCount(title.Text())
	if err != nil {
		plan.Reason = fmt.Errorf("results count: %w", err)
		return plan, nil
	}

	state := NewState(Params{
		Query:       query,
		Layout:      layout,
		Page:        page,
		PerPage:     perPage,
		ResultCount: count,
	})
	for _, id := range ItemIDs(listing, layout) {
		state.Rendered().Add(id)
	}

	log.Debug().
		Str("layout", string(layout)).
		Int("page", page).
		Int("per_page", perPage).
		Int("results", count).
		Int("max_page", state.MaxPage()).
		Int("seeded_items", state.Rendered().Len()).
		Msg("Listing detected")

	plan.Mode = ModeInfinite
	plan.State = state
	return plan, nil
}

// Items returns the item nodes of a listing container in document order.
func Items(listing *goquery.Selection, layout Layout) *goquery.Selection {
	if layout.Nested() {
		return listing.Children().Children()
	}
	return listing.Children()
}

// ItemIDs returns the identifiers of the items in a listing container.
func ItemIDs(listing *goquery.Selection, layout Layout) []string {
	items := Items(listing, layout)
	ids := make([]string, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		ids = append(ids, id)
	})
	return ids
}

// perPageValue reads the page-size control, which is a select or an input.
func perPageValue(s *goquery.Selection) (int, error) {
	if s.Length() == 0 {
		return 0, types.ErrMissingMarker
	}
	if goquery.NodeName(s) == "select" {
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if v, ok := opt.Attr("value"); ok {
			return parseLeadingInt(v)
		}
		return parseLeadingInt(opt.Text())
	}
	v, _ := s.Attr("value")
	return parseLeadingInt(v)
}

// resultCount reads the first number of the results title, ignoring
// thousands separators.
func resultCount(text string) (int, error) {
	m := countPattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no number in %q", strings.TrimSpace(text))
	}
	return strconv.Atoi(strings.ReplaceAll(m, ",", ""))
}

func parseLeadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(s[:end])
}

// resolveHref resolves href against location, as a browser's anchor.href
// does. Unparseable input is returned unchanged.
func resolveHref(location, href string) string {
	base, err := url.Parse(location)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
