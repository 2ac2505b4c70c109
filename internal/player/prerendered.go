package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andresmejia3/ascivid/internal/clock"
	"github.com/andresmejia3/ascivid/internal/store"
)

// Prerendered plays frames 0..Total-1 from a store in strict order. Frame i goes
// up at start + (i+1)/fps, or as soon as it is available if that time has passed.
// It never drops frames to keep pace.
type Prerendered struct {
	Store  store.FrameStore
	Total  int
	Clock  *clock.Clock
	Screen *Screen
	// WorkersDone, when set, is closed once nothing will be written to Store again.
	// A frame still missing after that is skipped instead of waited for forever.
	WorkersDone <-chan struct{}

	state State
}

// Play shows every frame and clears the screen after the last one.
func (p *Prerendered) Play(ctx context.Context) (Stats, error) {
	var stats Stats
	finish := func(err error) (Stats, error) {
		if err != nil && ctx.Err() != nil {
			p.state = Interrupted
			err = ctx.Err()
		}
		stats.State = p.state
		slog.Debug("player: playback ended", "state", p.state, "shown", stats.Shown, "skipped", stats.Skipped)
		return stats, err
	}

	p.Clock.Start()
	for i := 0; i < p.Total; i++ {
		p.state = Running
		frame, err := p.wait(ctx, i)
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("player: frame was never rendered, skipping", "frame", i)
			stats.Skipped++
			continue
		}
		if err != nil {
			return finish(err)
		}

		if err := sleepFor(ctx, p.Clock.Deadline(i).Sub(p.Clock.Now())); err != nil {
			return finish(err)
		}

		p.state = Displaying
		if err := p.Screen.Show(frame); err != nil {
			return finish(fmt.Errorf("failed to write frame %d: %w", i, err))
		}
		stats.Shown++
	}

	p.state = Finished
	return finish(p.Screen.Clear())
}

// wait blocks for frame i. Once the workers are gone it makes one last lookup.
func (p *Prerendered) wait(ctx context.Context, i int) (string, error) {
	if p.WorkersDone == nil {
		return p.Store.Wait(ctx, i)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.WorkersDone:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	frame, err := p.Store.Wait(waitCtx, i)
	if err == nil || ctx.Err() != nil {
		return frame, err
	}
	select {
	case <-p.WorkersDone:
		return p.Store.Get(ctx, i)
	default:
		return "", err
	}
}
