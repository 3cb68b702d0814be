package listing

import (
	"sync"

	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// RenderedSet records the identifiers of items already present on the page.
// It only grows for the lifetime of the page. Safe for concurrent use.
type RenderedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewRenderedSet creates an empty set.
func NewRenderedSet() *RenderedSet {
	return &RenderedSet{ids: make(map[string]struct{})}
}

// Add marks id as rendered. It returns false if id was already present.
func (s *RenderedSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id has been rendered.
func (s *RenderedSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of rendered identifiers.
func (s *RenderedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Params are the values read from the page at initialization.
type Params struct {
	Query       Query
	Layout      Layout
	Page        int // page currently shown
	PerPage     int // items per page as set on the site
	ResultCount int // total number of results
}

// State is the pagination state of one listing page.
//
// The n-th load (counted from zero) requests page NextOffset+n, so pages
// are requested in strictly increasing order and a page whose items are
// already shown is never requested again.
type State struct {
	mu sync.Mutex

	query        Query
	layout       Layout
	page         int
	perPage      int
	fetchPerPage int
	maxPage      int
	nextOffset   int
	loaded       int
	dropped      int
	lastPage     int
	lastURL      string

	rendered *RenderedSet
}

// NewState derives the pagination state from the page parameters.
// PerPage must be positive.
func NewState(p Params) *State {
	// The site remembers the page size in a cookie, so fetched pages use the
	// size currently shown.
	fetchPerPage := p.PerPage

	return &State{
		query:        p.Query,
		layout:       p.Layout,
		page:         p.Page,
		perPage:      p.PerPage,
		fetchPerPage: fetchPerPage,
		nextOffset:   1 + (p.Page*p.PerPage)/fetchPerPage,
		maxPage:      p.ResultCount/fetchPerPage + 1,
		rendered:     NewRenderedSet(),
	}
}

// URLFor returns the URL of the given page. It returns false for pages
// outside [1, MaxPage], which must not be fetched.
func (s *State) URLFor(page int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlForLocked(page)
}

func (s *State) urlForLocked(page int) (string, bool) {
	if page < 1 || page > s.maxPage {
		return "", false
	}
	return s.query.URL(page, s.fetchPerPage), true
}

// Next reserves the next page to load and returns its number and URL.
// The reservation is permanent: a page whose load fails is not retried.
// It returns types.ErrNoMorePages once the listing is exhausted.
func (s *State) Next() (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := s.nextOffset + s.loaded
	url, ok := s.urlForLocked(page)
	if !ok {
		return page, "", types.ErrNoMorePages
	}
	s.loaded++
	s.lastPage = page
	s.lastURL = url
	return page, url, nil
}

// Drop records that a reserved page could not be loaded.
func (s *State) Drop() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Rendered returns the set of rendered item identifiers.
func (s *State) Rendered() *RenderedSet {
	return s.rendered
}

// Layout returns the listing layout.
func (s *State) Layout() Layout {
	return s.layout
}

// MaxPage returns the last page number of the listing.
func (s *State) MaxPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPage
}

// Snapshot is a copy of the state for reporting.
type Snapshot struct {
	Layout        Layout
	Page          int
	PerPage       int
	FetchPerPage  int
	MaxPage       int
	NextOffset    int
	LoadedPages   int
	DroppedPages  int
	RenderedItems int
	LastPage      int
	LastURL       string
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Layout:        s.layout,
		Page:          s.page,
		PerPage:       s.perPage,
		FetchPerPage:  s.fetchPerPage,
		MaxPage:       s.maxPage,
		NextOffset:    s.nextOffset,
		LoadedPages:   s.loaded,
		DroppedPages:  s.dropped,
		RenderedItems: s.rendered.Len(),
		LastPage:      s.lastPage,
		LastURL:       s.lastURL,
	}
}
