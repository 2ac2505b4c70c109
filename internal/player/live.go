package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/andresmejia3/ascivid/internal/clock"
	"github.com/andresmejia3/ascivid/internal/decoder"
	"github.com/andresmejia3/ascivid/internal/types"
)

// DefaultIdleWait caps how long the live loop sleeps when it is ahead of the clock.
const DefaultIdleWait = 5 * time.Millisecond

// Live decodes, rasterizes and shows frames on the fly. When it falls behind the
// clock it decodes and discards frames until it is back on schedule, then
// renders the next one immediately.
type Live struct {
	Source   decoder.Source
	Clock    *clock.Clock
	Render   func(types.RawFrame) string
	Screen   *Screen
	IdleWait time.Duration

	state State
}

// Play runs until the source is exhausted or ctx is cancelled.
func (l *Live) Play(ctx context.Context) (Stats, error) {
	idle := l.IdleWait
	if idle <= 0 {
		idle = DefaultIdleWait
	}

	var stats Stats
	finish := func(err error) (Stats, error) {
		switch {
		case err == nil:
			l.state = Finished
			if cerr := l.Screen.Clear(); cerr != nil {
				err = cerr
			}
		case ctx.Err() != nil:
			l.state = Interrupted
			err = ctx.Err()
		}
		stats.State = l.state
		slog.Debug("live: playback ended", "state", l.state, "shown", stats.Shown, "dropped", stats.Dropped)
		return stats, err
	}

	l.Clock.Start()
	current := 0
	for {
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		l.state = Running

		now := l.Clock.Now()
		target := l.Clock.Target(now)
		if current > target {
			wait := min(l.Clock.At(current).Sub(now), idle)
			if err := sleepFor(ctx, wait); err != nil {
				return finish(err)
			}
			continue
		}

		if current < target {
			l.state = CatchingUp
		}
		for current < target {
			if _, err := l.Source.Next(ctx); err != nil {
				return finish(eof(err))
			}
			current++
			stats.Dropped++
		}

		frame, err := l.Source.Next(ctx)
		if err != nil {
			return finish(eof(err))
		}
		l.state = Displaying
		if err := l.Screen.Show(l.Render(frame)); err != nil {
			return finish(fmt.Errorf("failed to write frame %d: %w", frame.Index, err))
		}
		stats.Shown++
		current++
	}
}

// eof maps exhaustion to a clean finish.
func eof(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
