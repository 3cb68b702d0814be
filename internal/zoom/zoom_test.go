package zoom

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeRenderer struct {
	mu      sync.Mutex
	shown   map[string]string
	removed atomic.Int32
	showErr error
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{shown: make(map[string]string)}
}

func (f *fakeRenderer) ShowOverlay(_ context.Context, id, markup string) error {
	if f.showErr != nil {
		return f.showErr
	}
	f.mu.Lock()
	f.shown[id] = markup
	f.mu.Unlock()
	return nil
}

func (f *fakeRenderer) RemoveOverlay(_ context.Context, id string) error {
	f.removed.Add(1)
	f.mu.Lock()
	delete(f.shown, id)
	f.mu.Unlock()
	return nil
}

func TestOverlay_CloseRunsOnce(t *testing.T) {
	var calls int
	o := NewOverlay("1", "/lightbox/a.jpg", func() error {
		calls++
		return nil
	})

	// The backdrop, the cell and the panel all close on click, and a click
	// on the panel reaches all three.
	for i := 0; i < 3; i++ {
		if err := o.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("remove called %d times, want 1", calls)
	}
	if !o.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestOverlay_CloseKeepsFirstError(t *testing.T) {
	wantErr := errors.New("gone")
	o := NewOverlay("1", "", func() error { return wantErr })

	if err := o.Close(); !errors.Is(err, wantErr) {
		t.Errorf("first Close() = %v, want %v", err, wantErr)
	}
	if err := o.Close(); !errors.Is(err, wantErr) {
		t.Errorf("second Close() = %v, want %v", err, wantErr)
	}
}

func TestOverlay_ConcurrentClose(t *testing.T) {
	var calls atomic.Int32
	o := NewOverlay("1", "", func() error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = o.Close()
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("remove called %d times, want 1", calls.Load())
	}
}

func TestMarkup(t *testing.T) {
	m := Markup("7", "https://slm-assets1.secondlife.com/assets/1/lightbox/A.jpg")

	for _, want := range []string{
		`id="slm-zoom-7"`,
		"display: table;",
		"position: fixed;",
		"z-index: 9998;",
		"background-color: rgba(34, 34, 34, 0.6);",
		"display: table-cell;",
		"width: 700px;",
		"border-radius: 5px;",
		"background-color: white;",
		"cursor: zoom-out;",
		`<img src="https://slm-assets1.secondlife.com/assets/1/lightbox/A.jpg">`,
	} {
		if !strings.Contains(m, want) {
			t.Errorf("markup missing %q", want)
		}
	}
	if n := strings.Count(m, IDAttr+`="7"`); n != 3 {
		t.Errorf("layers marked = %d, want 3", n)
	}
}

func TestMarkup_EscapesTarget(t *testing.T) {
	m := Markup("1", `/a.jpg"><script>`)
	if strings.Contains(m, "<script>") {
		t.Error("target must be escaped")
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		target  string
		wantErr bool
	}{
		{"https://slm-assets1.secondlife.com/assets/1/lightbox/A.jpg", false},
		{"/assets/1/lightbox/A.jpg", false},
		{"", true},
		{"javascript:alert(1)", true},
		{"data:image/png;base64,AAAA", true},
		{"lightbox/a.jpg", true},
		{"https:///a.jpg", true},
	}
	for _, tt := range tests {
		err := ValidateTarget(tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
		}
	}
}

func TestController_OpenClose(t *testing.T) {
	r := newFakeRenderer()
	c := NewController(r)
	ctx := context.Background()

	id, err := c.Open(ctx, "/assets/1/lightbox/a.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if !strings.Contains(r.shown[id], "/assets/1/lightbox/a.jpg") {
		t.Error("overlay markup not shown")
	}

	for i := 0; i < 3; i++ {
		if err := c.Close(id); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if r.removed.Load() != 1 {
		t.Errorf("RemoveOverlay called %d times, want 1", r.removed.Load())
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestController_IndependentOverlays(t *testing.T) {
	r := newFakeRenderer()
	c := NewController(r)
	ctx := context.Background()

	first, _ := c.Open(ctx, "/a.jpg")
	second, _ := c.Open(ctx, "/b.jpg")
	if first == second {
		t.Fatal("overlay ids must be unique")
	}

	_ = c.Close(first)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.CloseAll()
	if c.Len() != 0 || r.removed.Load() != 2 {
		t.Errorf("after CloseAll: Len() = %d, removed = %d", c.Len(), r.removed.Load())
	}
}

func TestController_OpenErrors(t *testing.T) {
	r := newFakeRenderer()
	c := NewController(r)

	if _, err := c.Open(context.Background(), "javascript:alert(1)"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Open() error = %v, want ErrInvalidTarget", err)
	}

	r.showErr = errors.New("page closed")
	if _, err := c.Open(context.Background(), "/a.jpg"); err == nil {
		t.Error("Open() should fail when the overlay cannot be shown")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
