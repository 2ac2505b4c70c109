package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/ascivid/internal/store"
	"github.com/andresmejia3/ascivid/internal/types"
)

func task(i int) types.FrameTask {
	return types.FrameTask{
		Index: i,
		Frame: types.RawFrame{Index: i, FPS: 30, Image: image.NewRGBA(image.Rect(0, 0, 2, 2))},
	}
}

func renderIndex(f types.RawFrame) string { return fmt.Sprintf("frame-%d\n", f.Index) }

// failingStore rejects writes for one index to simulate a disk fault.
type failingStore struct {
	store.FrameStore
	bad int
}

func (f *failingStore) Put(ctx context.Context, index int, frame string) error {
	if index == f.bad {
		return errors.New("no space left on device")
	}
	return f.FrameStore.Put(ctx, index, frame)
}

func runPool(t *testing.T, p *Pool, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.Start(ctx)
	for i := 0; i < n; i++ {
		if err := p.Submit(ctx, task(i)); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case <-p.Done():
	case <-ctx.Done():
		t.Fatal("workers did not exit after shutdown")
	}
}

func TestPoolCompleteness(t *testing.T) {
	const n = 250
	st := store.NewMemory()
	p := NewPool(4, renderIndex, st)
	runPool(t, p, n)

	ctx := context.Background()
	if got, _ := st.Len(ctx); got != n {
		t.Fatalf("store holds %d frames, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		got, err := st.Get(ctx, i)
		if err != nil || got != renderIndex(types.RawFrame{Index: i}) {
			t.Fatalf("frame %d = %q, %v", i, got, err)
		}
	}
	if s := p.Stats(); s.Rendered != n || s.Failed != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	// Every worker consumed exactly one sentinel.
	if left := len(p.queue); left != 0 {
		t.Errorf("%d items left in queue after shutdown", left)
	}
}

func TestPoolSurvivesRenderPanic(t *testing.T) {
	st := store.NewMemory()
	render := func(f types.RawFrame) string {
		if f.Index == 5 {
			panic("corrupt frame")
		}
		return renderIndex(f)
	}
	p := NewPool(2, render, st)
	runPool(t, p, 20)

	if s := p.Stats(); s.Rendered != 19 || s.Failed != 1 {
		t.Errorf("Stats() = %+v, want 19 rendered / 1 failed", s)
	}
	if _, err := st.Get(context.Background(), 5); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("frame 5 should be missing, got %v", err)
	}
	if _, err := st.Get(context.Background(), 6); err != nil {
		t.Errorf("frame after the panic missing: %v", err)
	}
}

func TestPoolSurvivesStoreFailure(t *testing.T) {
	st := &failingStore{FrameStore: store.NewMemory(), bad: 3}
	p := NewPool(3, renderIndex, st)
	runPool(t, p, 10)

	if s := p.Stats(); s.Rendered != 9 || s.Failed != 1 {
		t.Errorf("Stats() = %+v, want 9 rendered / 1 failed", s)
	}
}

func TestSubmitBackpressure(t *testing.T) {
	p := NewPool(1, renderIndex, store.NewMemory())

	// Not started: nothing drains the queue.
	ctx := context.Background()
	for i := 0; i < QueueSize; i++ {
		if err := p.Submit(ctx, task(i)); err != nil {
			t.Fatalf("Submit(%d) on a non-full queue: %v", i, err)
		}
	}

	full, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := p.Submit(full, task(QueueSize)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit on a full queue = %v, want DeadlineExceeded", err)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	var started atomic.Int32
	release := make(chan struct{})
	render := func(f types.RawFrame) string {
		started.Add(1)
		<-release
		return renderIndex(f)
	}

	st := store.NewMemory()
	p := NewPool(2, render, st)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	for i := 0; i < 10; i++ {
		p.Submit(ctx, task(i))
	}

	for started.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	close(release)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("workers still running after cancel")
	}
	if n, _ := st.Len(context.Background()); n >= 10 {
		t.Errorf("cancelled pool rendered everything (%d frames)", n)
	}
}

func TestWaitWithoutStart(t *testing.T) {
	p := NewPool(0, renderIndex, store.NewMemory())
	if p.Size() != 1 {
		t.Errorf("Size() = %d, want 1", p.Size())
	}
	p.Wait() // must not block
}

func TestSubmitAfterCancel(t *testing.T) {
	p := NewPool(1, renderIndex, store.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The queue has room for every one of these; none may be queued.
	for i := 0; i < QueueSize; i++ {
		if err := p.Submit(ctx, task(i)); !errors.Is(err, context.Canceled) {
			t.Fatalf("Submit %d after cancel = %v, want context.Canceled", i, err)
		}
	}
	if err := p.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Shutdown after cancel = %v, want context.Canceled", err)
	}
	if n := len(p.queue); n != 0 {
		t.Errorf("%d tasks queued after cancellation", n)
	}
}
