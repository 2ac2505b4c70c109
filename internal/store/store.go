// Package store holds rendered frames between the worker pool and the player.
// Every backend is insert-only per index: workers write disjoint keys in any order,
// the player reads them back in increasing index order.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExists is returned by Put when the index already has a frame.
	ErrExists = errors.New("frame already stored")
	// ErrNotFound is returned by Get when the index has no frame yet.
	ErrNotFound = errors.New("frame not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("frame store closed")
)

// FrameStore is an index-addressable sink for rendered frames.
type FrameStore interface {
	// Put stores frame under index. A second Put for the same index fails with ErrExists.
	Put(ctx context.Context, index int, frame string) error
	// Get returns the frame at index or ErrNotFound.
	Get(ctx context.Context, index int) (string, error)
	// Wait blocks until index is present or ctx is done.
	Wait(ctx context.Context, index int) (string, error)
	// Len returns the number of stored frames.
	Len(ctx context.Context) (int, error)
	// Close tears down the backing storage. Safe to call more than once.
	Close() error
}

const defaultPollInterval = 20 * time.Millisecond

// pollWait retries get until it stops returning ErrNotFound, waking on tick or on wake.
func pollWait(ctx context.Context, index int, every time.Duration, wake func() <-chan struct{}, get func(context.Context, int) (string, error)) (string, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		var woken <-chan struct{}
		if wake != nil {
			// Grab the wake channel before looking so an event between the two is not lost.
			woken = wake()
		}
		frame, err := get(ctx, index)
		if !errors.Is(err, ErrNotFound) {
			return frame, err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		case <-woken:
		}
	}
}
