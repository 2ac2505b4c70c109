package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// sampleFrame returns a blob with escapes and multi-byte glyphs so round-trips are not trivially ASCII.
func sampleFrame(i int) string {
	return fmt.Sprintf("\x1b[38;2;%d;0;0m█\x1b[0m@%%# frame %d\n .:-=+*\n", i%256, i)
}

// testFrameStore is the behavior every backend must share.
func testFrameStore(t *testing.T, st FrameStore) {
	t.Helper()
	ctx := context.Background()
	const n = 40

	// Workers complete out of order; keys are disjoint.
	order := rand.Perm(n)
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, idx := range order {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := st.Put(ctx, idx, sampleFrame(idx)); err != nil {
				errs <- err
			}
		}(idx)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Put failed: %v", err)
	}

	if got, err := st.Len(ctx); err != nil || got != n {
		t.Fatalf("Len() = %d, %v; want %d", got, err, n)
	}
	for i := 0; i < n; i++ {
		got, err := st.Get(ctx, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got != sampleFrame(i) {
			t.Fatalf("Get(%d) = %q, want %q", i, got, sampleFrame(i))
		}
	}

	if _, err := st.Get(ctx, n+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := st.Put(ctx, 3, "overwrite"); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Put error = %v, want ErrExists", err)
	}
	if got, _ := st.Get(ctx, 3); got != sampleFrame(3) {
		t.Error("duplicate Put replaced the original frame")
	}

	// Wait returns as soon as a late writer shows up.
	late := n + 5
	go func() {
		time.Sleep(30 * time.Millisecond)
		st.Put(ctx, late, sampleFrame(late))
	}()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	got, err := st.Wait(waitCtx, late)
	cancel()
	if err != nil || got != sampleFrame(late) {
		t.Fatalf("Wait(%d) = %q, %v", late, got, err)
	}

	// Wait on an index nobody writes gives up with the context.
	shortCtx, cancel := context.WithTimeout(ctx, 40*time.Millisecond)
	defer cancel()
	if _, err := st.Wait(shortCtx, n+50); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait(never) error = %v, want DeadlineExceeded", err)
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := st.Get(ctx, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
	if err := st.Put(ctx, n+60, "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testFrameStore(t, NewMemory())
}

func TestDiskStore(t *testing.T) {
	st, err := NewDisk(t.TempDir(), DiskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	testFrameStore(t, st)
}

func TestMemoryCloseReleasesWaiters(t *testing.T) {
	st := NewMemory()
	done := make(chan error, 1)
	go func() {
		_, err := st.Wait(context.Background(), 7)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	st.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("waiter error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still parked after Close")
	}
}
