package player

import (
	"context"
	"time"
)

// State is where a player is in its run.
type State int

const (
	Running State = iota
	CatchingUp
	Displaying
	Finished
	Interrupted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case CatchingUp:
		return "catching-up"
	case Displaying:
		return "displaying"
	case Finished:
		return "finished"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Stats summarizes a playback.
type Stats struct {
	Shown   int
	Dropped int
	// Skipped counts pre-rendered frames that never reached the store.
	Skipped int
	State   State
}

// sleepFor waits d or until ctx is done.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
