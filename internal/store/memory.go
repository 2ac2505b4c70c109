package store

import (
	"context"
	"sync"
)

// Memory keeps frames in a map. Waiters park on a per-index channel closed by Put.
type Memory struct {
	mu     sync.Mutex
	frames map[int]string
	ready  map[int]chan struct{}
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		frames: make(map[int]string),
		ready:  make(map[int]chan struct{}),
	}
}

func (m *Memory) Put(ctx context.Context, index int, frame string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.frames[index]; ok {
		return ErrExists
	}
	m.frames[index] = frame
	if ch, ok := m.ready[index]; ok {
		close(ch)
		delete(m.ready, index)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}
	frame, ok := m.frames[index]
	if !ok {
		return "", ErrNotFound
	}
	return frame, nil
}

func (m *Memory) Wait(ctx context.Context, index int) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	if frame, ok := m.frames[index]; ok {
		m.mu.Unlock()
		return frame, nil
	}
	ch, ok := m.ready[index]
	if !ok {
		ch = make(chan struct{})
		m.ready[index] = ch
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-ch:
		return m.Get(ctx, index)
	}
}

func (m *Memory) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.frames), nil
}

// Close drops every frame and releases parked waiters, which then see ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.frames = nil
	for idx, ch := range m.ready {
		close(ch)
		delete(m.ready, idx)
	}
	return nil
}
