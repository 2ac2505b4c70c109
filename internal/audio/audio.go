// Package audio plays the soundtrack through an external player process.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/utils"
)

// ErrPlayerNotFound means the player binary is not on PATH. Callers play silently.
var ErrPlayerNotFound = errors.New("audio player not found")

// Args builds the player's argument list. The window is hidden unless GUI is set.
func Args(cfg config.Config) []string {
	args := []string{"-autoexit", "-loglevel", "warning"}
	if !cfg.GUI {
		args = append(args, "-nodisp")
	}
	return append(args, cfg.VideoPath)
}

// Player is a running audio-player process.
type Player struct {
	cmd    *utils.SafeCommand
	cancel context.CancelFunc
	once   sync.Once
	exited chan struct{}
}

// Start spawns the player and returns without waiting for it.
func Start(ctx context.Context, cfg config.Config) (*Player, error) {
	bin, err := exec.LookPath(cfg.PlayerBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, cfg.PlayerBin)
	}

	return startCommand(ctx, bin, Args(cfg)...)
}

func startCommand(ctx context.Context, bin string, args ...string) (*Player, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := utils.NewSafeCommand(ctx, bin, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", bin, err)
	}
	slog.Debug("audio: player started", "bin", bin, "pid", cmd.Process.Pid)

	p := &Player{cmd: cmd, cancel: cancel, exited: make(chan struct{})}
	go func() {
		defer close(p.exited)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			slog.Warn("audio: player exited with error", "error", err, "stderr", cmd.Stderr.String())
		}
	}()
	return p, nil
}

// Stop kills the player and waits for it to be reaped. Safe on a nil Player and safe to repeat.
func (p *Player) Stop() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.cancel()
		<-p.exited
	})
}
