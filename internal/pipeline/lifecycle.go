package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type cleanup struct {
	name string
	fn   func() error
}

// lifecycle owns everything a run acquires and releases it once, newest first.
type lifecycle struct {
	mu       sync.Mutex
	cleanups []cleanup
	once     sync.Once
	err      error
}

func (l *lifecycle) add(name string, fn func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanups = append(l.cleanups, cleanup{name: name, fn: fn})
}

// close runs every registered cleanup. Later calls return the first result.
func (l *lifecycle) close() error {
	l.once.Do(func() {
		l.mu.Lock()
		cleanups := l.cleanups
		l.mu.Unlock()

		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			c := cleanups[i]
			if err := c.fn(); err != nil {
				slog.Warn("pipeline: cleanup failed", "resource", c.name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
			slog.Debug("pipeline: released", "resource", c.name)
		}
		l.err = errors.Join(errs...)
	})
	return l.err
}
