package selectors

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewManager_EmbeddedOnly(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	sel := m.Get()
	if sel == nil {
		t.Fatal("Get() returned nil")
	}
	if sel.ListingClass != "product-listing" {
		t.Errorf("ListingClass = %q, want product-listing", sel.ListingClass)
	}
	if sel.FooterClass != "footer-paginate" {
		t.Errorf("FooterClass = %q, want footer-paginate", sel.FooterClass)
	}
}

func TestNewManager_ExternalFile(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "selectors.yaml")

	content := `
listing_class: "item-grid"
footer_class: "grid-footer"
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	m, err := NewManager(tmpFile, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	sel := m.Get()
	if sel.ListingClass != "item-grid" {
		t.Errorf("ListingClass = %q, want item-grid", sel.ListingClass)
	}
	if sel.FooterClass != "grid-footer" {
		t.Errorf("FooterClass = %q, want grid-footer", sel.FooterClass)
	}

	// Embedded fields should fill in missing ones
	if sel.ThumbnailSegment != "/thumbnail/" {
		t.Errorf("Expected embedded ThumbnailSegment, got %q", sel.ThumbnailSegment)
	}
	if sel.RowClass == "" {
		t.Error("Expected embedded RowClass to be used")
	}
}

func TestManager_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "selectors.yaml")

	if err := os.WriteFile(tmpFile, []byte(`per_page_id: "first"`), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	m, err := NewManager(tmpFile, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if got := m.Get().PerPageID; got != "first" {
		t.Fatalf("PerPageID = %q, want first", got)
	}

	if err := os.WriteFile(tmpFile, []byte(`per_page_id: "second"`), 0644); err != nil {
		t.Fatalf("Failed to update temp file: %v", err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := m.Get().PerPageID; got != "second" {
		t.Errorf("PerPageID after reload = %q, want second", got)
	}

	stats := m.Stats()
	if stats.ReloadCount != 2 {
		t.Errorf("ReloadCount = %d, want 2", stats.ReloadCount)
	}
}

func TestManager_Reload_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "selectors.yaml")

	if err := os.WriteFile(tmpFile, []byte(`listing_class: "kept"`), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	m, err := NewManager(tmpFile, false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if err := os.WriteFile(tmpFile, []byte("listing_class: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to update temp file: %v", err)
	}

	if err := m.Reload(); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}

	// Previous markers stay in use
	if got := m.Get().ListingClass; got != "kept" {
		t.Errorf("ListingClass = %q, want kept", got)
	}
	if m.Stats().LastErrorStr == "" {
		t.Error("Expected LastErrorStr to be set")
	}
}

func TestManager_Reload_NoExternalPath(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if err := m.Reload(); err == nil {
		t.Error("Expected error when reloading without external path")
	}
}

func TestManager_HotReload(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping hot-reload test in short mode")
	}

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "selectors.yaml")

	if err := os.WriteFile(tmpFile, []byte(`results_title: ".count"`), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	m, err := NewManager(tmpFile, true)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	if got := m.Get().ResultsTitle; got != ".count" {
		t.Fatalf("ResultsTitle = %q, want .count", got)
	}

	if err := os.WriteFile(tmpFile, []byte(`results_title: ".total"`), 0644); err != nil {
		t.Fatalf("Failed to update temp file: %v", err)
	}

	// Wait for hot-reload (debounce delay + some buffer)
	time.Sleep(300 * time.Millisecond)

	if got := m.Get().ResultsTitle; got != ".total" {
		t.Errorf("ResultsTitle after hot-reload = %q, want .total", got)
	}
}

func TestSelectors_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sel     *Selectors
		wantErr bool
	}{
		{name: "empty override", sel: &Selectors{}, wantErr: false},
		{name: "valid pattern", sel: &Selectors{ProductPagePattern: `^https://example\.com/p/`}, wantErr: false},
		{name: "invalid pattern", sel: &Selectors{ProductPagePattern: `(`}, wantErr: true},
		{name: "segments together", sel: &Selectors{ThumbnailSegment: "/s/", ZoomSegment: "/l/"}, wantErr: false},
		{name: "thumbnail segment alone", sel: &Selectors{ThumbnailSegment: "/s/"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_Close(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Second close is a no-op
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStatic(t *testing.T) {
	sel := &Selectors{ListingClass: "custom"}
	m := Static(sel)
	if m.Get() != sel {
		t.Error("Static manager should serve the given selectors")
	}
}
