package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

type fakeProbe struct {
	mu  sync.Mutex
	pos Position
	err error
}

func (p *fakeProbe) ScrollPosition(context.Context) (Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, p.err
}

func (p *fakeProbe) set(pos Position) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

func nearBottom() Position {
	return Position{MaxHeight: 3000, Height: 800, Top: 1800, Bottom: 2600} // 400 left
}

func farFromBottom() Position {
	return Position{MaxHeight: 3000, Height: 800, Top: 0, Bottom: 800}
}

// blockingLoad records calls and blocks until released.
type blockingLoad struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newBlockingLoad() *blockingLoad {
	return &blockingLoad{release: make(chan struct{})}
}

func (b *blockingLoad) load(ctx context.Context) error {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return b.err
}

func TestPosition_Remaining(t *testing.T) {
	if got := nearBottom().Remaining(); got != 400 {
		t.Errorf("Remaining() = %v, want 400", got)
	}
}

func TestTick_LoadsOnceWhileLoading(t *testing.T) {
	probe := &fakeProbe{pos: nearBottom()}
	load := newBlockingLoad()
	m := New(probe, load.load, Config{})

	started, err := m.Tick(context.Background())
	if err != nil || !started {
		t.Fatalf("Tick() = %v, %v; want load started", started, err)
	}
	if m.State() != StateLoading {
		t.Errorf("State() = %v, want loading", m.State())
	}

	// Threshold still met, but a load is in flight
	for i := 0; i < 5; i++ {
		if started, _ := m.Tick(context.Background()); started {
			t.Fatal("Tick() started a second load while loading")
		}
	}

	close(load.release)
	m.Wait()

	if load.calls.Load() != 1 {
		t.Errorf("load called %d times, want 1", load.calls.Load())
	}
	if m.State() != StateIdle {
		t.Errorf("State() = %v, want idle", m.State())
	}
}

func TestTick_FarFromBottom(t *testing.T) {
	probe := &fakeProbe{pos: farFromBottom()}
	load := newBlockingLoad()
	m := New(probe, load.load, Config{})

	if started, _ := m.Tick(context.Background()); started {
		t.Error("Tick() started a load far from the bottom")
	}
	if m.State() != StateIdle {
		t.Errorf("State() = %v, want idle", m.State())
	}
}

func TestTick_ThresholdIsStrict(t *testing.T) {
	probe := &fakeProbe{pos: Position{MaxHeight: 1500, Bottom: 1000}} // exactly 500 left
	m := New(probe, func(context.Context) error { return nil }, Config{Threshold: 500})

	if started, _ := m.Tick(context.Background()); started {
		t.Error("Tick() should not load at exactly the threshold")
	}
}

func TestTick_ReturnsToIdleAfterFailure(t *testing.T) {
	probe := &fakeProbe{pos: nearBottom()}
	var calls atomic.Int32
	m := New(probe, func(context.Context) error {
		calls.Add(1)
		return types.NewStatusError("https://example.com", 500)
	}, Config{})

	for i := 0; i < 3; i++ {
		if _, err := m.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		m.Wait()
		if m.State() != StateIdle {
			t.Fatalf("State() = %v after failed load, want idle", m.State())
		}
	}
	if calls.Load() != 3 {
		t.Errorf("load called %d times, want 3", calls.Load())
	}
}

func TestTick_StopsWhenExhausted(t *testing.T) {
	probe := &fakeProbe{pos: nearBottom()}
	var calls atomic.Int32
	m := New(probe, func(context.Context) error {
		calls.Add(1)
		return types.ErrNoMorePages
	}, Config{})

	m.Tick(context.Background())
	m.Wait()
	if !m.Exhausted() {
		t.Fatal("Exhausted() = false after ErrNoMorePages")
	}

	if started, _ := m.Tick(context.Background()); started {
		t.Error("Tick() started a load after exhaustion")
	}
	if calls.Load() != 1 {
		t.Errorf("load called %d times, want 1", calls.Load())
	}
}

func TestTick_ProbeError(t *testing.T) {
	probe := &fakeProbe{err: errors.New("eval failed")}
	m := New(probe, func(context.Context) error { return nil }, Config{})

	started, err := m.Tick(context.Background())
	if err == nil || started {
		t.Errorf("Tick() = %v, %v; want error and no load", started, err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	probe := &fakeProbe{pos: farFromBottom()}
	var calls atomic.Int32
	m := New(probe, func(context.Context) error {
		calls.Add(1)
		return nil
	}, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("load called %d times far from bottom", calls.Load())
	}

	probe.set(nearBottom())
	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Error("Run() did not load near the bottom")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestRun_PageClosed(t *testing.T) {
	probe := &fakeProbe{err: types.ErrPageClosed}
	m := New(probe, func(context.Context) error { return nil }, Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Run(ctx); !errors.Is(err, types.ErrPageClosed) {
		t.Errorf("Run() error = %v, want ErrPageClosed", err)
	}
}

func TestState_String(t *testing.T) {
	if StateIdle.String() != "idle" || StateLoading.String() != "loading" {
		t.Error("unexpected state names")
	}
}
