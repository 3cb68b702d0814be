// Package selectors provides loading and management of the listing site's markup markers.
package selectors

import (
	"embed"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsFS embed.FS

// Selectors contains every markup marker the augmenter depends on.
type Selectors struct {
	ListingClass string `yaml:"listing_class"`
	FooterClass  string `yaml:"footer_class"`

	PaginationCurrent string `yaml:"pagination_current"`
	PaginationLink    string `yaml:"pagination_link"`
	PerPageID         string `yaml:"per_page_id"`
	ResultsTitle      string `yaml:"results_title"`
	SearchContainerID string `yaml:"search_container_id"`
	SearchPath        string `yaml:"search_path"`

	ProductPagePattern string `yaml:"product_page_pattern"`
	RelatedItemsID     string `yaml:"related_items_id"`

	ThumbnailSegment string `yaml:"thumbnail_segment"`
	ZoomSegment      string `yaml:"zoom_segment"`

	RowClass        string `yaml:"row_class"`
	ColumnClass     string `yaml:"column_class"`
	LastColumnClass string `yaml:"last_column_class"`
}

var (
	instance *Selectors
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Selectors instance.
// Markers are loaded from the embedded selectors.yaml file.
func Get() *Selectors {
	once.Do(func() {
		instance, loadErr = load()
		if loadErr != nil {
			log.Error().Err(loadErr).Msg("Failed to load selectors, using defaults")
			instance = defaultSelectors()
		}
	})
	return instance
}

// IsProductPage reports whether location is a product detail page.
func (s *Selectors) IsProductPage(location string) bool {
	if s.ProductPagePattern == "" {
		return false
	}
	re, err := regexp.Compile(s.ProductPagePattern)
	if err != nil {
		log.Warn().Err(err).Str("pattern", s.ProductPagePattern).Msg("Invalid product page pattern")
		return false
	}
	return re.MatchString(location)
}

// load reads selectors from the embedded YAML file.
func load() (*Selectors, error) {
	data, err := defaultSelectorsFS.ReadFile("selectors.yaml")
	if err != nil {
		return nil, err
	}

	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	log.Debug().
		Str("listing_class", s.ListingClass).
		Str("footer_class", s.FooterClass).
		Msg("Selectors loaded")

	return &s, nil
}

// defaultSelectors returns hardcoded fallback markers.
func defaultSelectors() *Selectors {
	return &Selectors{
		ListingClass:       "product-listing",
		FooterClass:        "footer-paginate",
		PaginationCurrent:  ".pagination .current",
		PaginationLink:     ".pagination a",
		PerPageID:          "per_page",
		ResultsTitle:       ".results-title",
		SearchContainerID:  "search-results-container",
		SearchPath:         "products/search",
		ProductPagePattern: `^https://marketplace\.secondlife\.com/p/`,
		RelatedItemsID:     "product-related-items",
		ThumbnailSegment:   "/thumbnail/",
		ZoomSegment:        "/lightbox/",
		RowClass:           "column span-6 last result-row",
		ColumnClass:        "column span-1",
		LastColumnClass:    "column span-1 last",
	}
}
