// Package extract cuts the result listing out of a fetched search page.
package extract

import (
	"regexp"
	"sync"

	"github.com/Rorqualx/marketplace-scroll/internal/selectors"
)

// Extractor finds the listing fragment between the listing opening marker
// and the pagination footer that follows it.
type Extractor struct {
	open   *regexp.Regexp
	footer *regexp.Regexp
}

// New compiles the markers for the given listing and footer classes.
func New(listingClass, footerClass string) *Extractor {
	return &Extractor{
		open:   markerPattern(listingClass),
		footer: markerPattern(footerClass),
	}
}

// markerPattern matches a div opening tag whose class attribute contains class.
func markerPattern(class string) *regexp.Regexp {
	return regexp.MustCompile(`<div class="[^"]*` + regexp.QuoteMeta(class) + `[^"]*">`)
}

// Fragment returns the document substring that starts at the first listing
// marker and ends right before the first footer marker located after it.
// The listing opening tag is kept so the fragment parses to a single listing
// element. It returns false when either marker is missing.
func (e *Extractor) Fragment(doc string) (string, bool) {
	open := e.open.FindStringIndex(doc)
	if open == nil {
		return "", false
	}
	footer := e.footer.FindStringIndex(doc[open[1]:])
	if footer == nil {
		return "", false
	}
	return doc[open[0] : open[1]+footer[0]], true
}

var (
	cacheMu sync.Mutex
	cache   = map[[2]string]*Extractor{}
)

// Fragment extracts the listing fragment using the markers in sel.
// Compiled extractors are cached per marker pair so reloaded markers take
// effect on the next call.
func Fragment(doc string, sel *selectors.Selectors) (string, bool) {
	key := [2]string{sel.ListingClass, sel.FooterClass}

	cacheMu.Lock()
	e, ok := cache[key]
	if !ok {
		e = New(sel.ListingClass, sel.FooterClass)
		cache[key] = e
	}
	cacheMu.Unlock()

	return e.Fragment(doc)
}
