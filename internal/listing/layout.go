// Package listing tracks the pagination state of a marketplace search listing
// and builds the URLs of its result pages.
package listing

import (
	"net/url"
	"regexp"
)

// Layout is one of the site's listing display modes. It decides how items
// are nested inside the listing container.
type Layout string

// Supported layouts.
const (
	LayoutList       Layout = "list"
	LayoutGallery    Layout = "gallery"
	LayoutThumbnails Layout = "thumbnails"
)

// DefaultLayout is used when the query does not name one.
const DefaultLayout = LayoutGallery

var layoutPattern = regexp.MustCompile(`search\[layout\]=(\w+)`)

// Valid reports whether l is one of the supported layouts.
func (l Layout) Valid() bool {
	switch l {
	case LayoutList, LayoutGallery, LayoutThumbnails:
		return true
	}
	return false
}

// Nested reports whether items sit inside row containers.
func (l Layout) Nested() bool {
	return l == LayoutThumbnails
}

// Zoomable reports whether zoom affordances are attached in this layout.
// Gallery already shows large images.
func (l Layout) Zoomable() bool {
	return l != LayoutGallery
}

// LayoutFromQuery reads search[layout] from a decoded query or URL,
// falling back to DefaultLayout.
func LayoutFromQuery(decoded string) Layout {
	m := layoutPattern.FindStringSubmatch(decoded)
	if m == nil {
		return DefaultLayout
	}
	return Layout(m[1])
}

// decodeComponent mirrors decodeURIComponent; undecodable input is returned as is.
func decodeComponent(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}
