package selectors

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Rorqualx/marketplace-scroll/internal/metrics"
)

// ReloadStats contains statistics about selector reloads.
type ReloadStats struct {
	LastReloadTime time.Time `json:"lastReloadTime,omitempty"`
	ReloadCount    int64     `json:"reloadCount"`
	LastError      error     `json:"-"`
	LastErrorStr   string    `json:"lastError,omitempty"`
}

// Manager provides hot-reload capable marker management.
// It maintains embedded default markers and optionally watches an external
// file for runtime updates. Reads are lock-free using atomic.Value, so a
// marker change takes effect on the next page load without a restart.
type Manager struct {
	embedded     *Selectors   // Compiled-in defaults (immutable)
	current      atomic.Value // *Selectors
	externalPath string
	watcher      *fsnotify.Watcher
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex // Protects reload operations
	stats        ReloadStats
	closed       bool
}

// NewManager creates a new Manager.
// If externalPath is empty, only embedded markers are used.
// If hotReload is true and externalPath is set, file changes trigger reloads.
func NewManager(externalPath string, hotReload bool) (*Manager, error) {
	m := &Manager{
		embedded:     Get(),
		externalPath: externalPath,
		stopCh:       make(chan struct{}),
	}
	m.current.Store(m.embedded)

	if externalPath == "" {
		return m, nil
	}

	if err := m.loadExternal(); err != nil {
		log.Warn().
			Err(err).
			Str("path", externalPath).
			Msg("Failed to load external selectors, using embedded defaults")
	} else {
		log.Info().
			Str("path", externalPath).
			Msg("Loaded external selectors file")
	}

	if hotReload {
		if err := m.startWatcher(); err != nil {
			log.Warn().
				Err(err).
				Str("path", externalPath).
				Msg("Failed to start file watcher, hot-reload disabled")
		} else {
			log.Info().
				Str("path", externalPath).
				Msg("Hot-reload enabled for selectors file")
		}
	}

	return m, nil
}

// Get returns the current Selectors instance.
// This is a lock-free O(1) operation safe for concurrent use.
func (m *Manager) Get() *Selectors {
	return m.current.Load().(*Selectors)
}

// Reload manually reloads markers from the external file.
// On failure, the previous markers remain in use.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.externalPath == "" {
		return fmt.Errorf("no external selectors path configured")
	}

	return m.loadExternalLocked()
}

// Stats returns the current reload statistics.
func (m *Manager) Stats() ReloadStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.stats
	if stats.LastError != nil {
		stats.LastErrorStr = stats.LastError.Error()
	}
	return stats
}

// Close stops the file watcher and cleans up resources.
// Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) loadExternal() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadExternalLocked()
}

// loadExternalLocked loads markers from the external file.
// Must be called with m.mu held.
func (m *Manager) loadExternalLocked() error {
	data, err := os.ReadFile(m.externalPath)
	if err != nil {
		m.stats.LastError = err
		metrics.RecordSelectorReload(false)
		return fmt.Errorf("failed to read selectors file: %w", err)
	}

	selectors, err := parseAndValidate(data)
	if err != nil {
		m.stats.LastError = err
		metrics.RecordSelectorReload(false)
		return fmt.Errorf("failed to parse selectors file: %w", err)
	}

	m.current.Store(m.mergeWithEmbedded(selectors))

	m.stats.LastReloadTime = time.Now()
	m.stats.ReloadCount++
	m.stats.LastError = nil
	metrics.RecordSelectorReload(true)

	log.Info().
		Int64("reload_count", m.stats.ReloadCount).
		Msg("Selectors reloaded")

	return nil
}

// parseAndValidate parses YAML data and validates the markers.
func parseAndValidate(data []byte) (*Selectors, error) {
	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks that an override file does not carry unusable values.
// Empty fields are allowed; they fall back to the embedded markers.
func (s *Selectors) Validate() error {
	if s.ProductPagePattern != "" {
		if _, err := regexp.Compile(s.ProductPagePattern); err != nil {
			return fmt.Errorf("product_page_pattern: %w", err)
		}
	}
	if (s.ThumbnailSegment == "") != (s.ZoomSegment == "") {
		return fmt.Errorf("thumbnail_segment and zoom_segment must be overridden together")
	}
	return nil
}

// mergeWithEmbedded creates a new Selectors by merging external with embedded.
// External markers take precedence; embedded fills in missing fields.
func (m *Manager) mergeWithEmbedded(external *Selectors) *Selectors {
	merged := *m.embedded

	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&merged.ListingClass, external.ListingClass)
	pick(&merged.FooterClass, external.FooterClass)
	pick(&merged.PaginationCurrent, external.PaginationCurrent)
	pick(&merged.PaginationLink, external.PaginationLink)
	pick(&merged.PerPageID, external.PerPageID)
	pick(&merged.ResultsTitle, external.ResultsTitle)
	pick(&merged.SearchContainerID, external.SearchContainerID)
	pick(&merged.SearchPath, external.SearchPath)
	pick(&merged.ProductPagePattern, external.ProductPagePattern)
	pick(&merged.RelatedItemsID, external.RelatedItemsID)
	pick(&merged.ThumbnailSegment, external.ThumbnailSegment)
	pick(&merged.ZoomSegment, external.ZoomSegment)
	pick(&merged.RowClass, external.RowClass)
	pick(&merged.ColumnClass, external.ColumnClass)
	pick(&merged.LastColumnClass, external.LastColumnClass)

	return &merged
}

// startWatcher starts the file watcher for hot-reload.
func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(m.externalPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	m.watcher = watcher

	m.wg.Add(1)
	go m.watchFile()

	return nil
}

// watchFile watches for file changes and triggers reloads.
func (m *Manager) watchFile() {
	defer m.wg.Done()

	// Debounce timer to coalesce rapid file changes
	const debounceDelay = 100 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("Selectors file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if err := m.Reload(); err != nil {
					log.Warn().
						Err(err).
						Str("path", m.externalPath).
						Msg("Hot-reload failed, keeping previous selectors")
				}
			})

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("File watcher error")

		case <-m.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// Static returns a Manager that serves only the given markers.
// Used where no file is configured and by tests.
func Static(s *Selectors) *Manager {
	m := &Manager{
		embedded: s,
		stopCh:   make(chan struct{}),
	}
	m.current.Store(s)
	return m
}
