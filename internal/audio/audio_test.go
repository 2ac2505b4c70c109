package audio

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/andresmejia3/ascivid/internal/config"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		gui  bool
		want []string
	}{
		{"headless", false, []string{"-autoexit", "-loglevel", "warning", "-nodisp", "clip.mp4"}},
		{"gui", true, []string{"-autoexit", "-loglevel", "warning", "clip.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.VideoPath = "clip.mp4"
			cfg.GUI = tt.gui
			if got := Args(cfg); !slices.Equal(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartMissingPlayer(t *testing.T) {
	cfg := config.Default()
	cfg.VideoPath = "clip.mp4"
	cfg.PlayerBin = "ascivid-no-such-player"

	p, err := Start(context.Background(), cfg)
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("err = %v, want ErrPlayerNotFound", err)
	}
	// Stop on the nil player must be a no-op.
	p.Stop()
}

func TestStopKillsPlayer(t *testing.T) {
	// Any long-running process will do; Stop only has to kill and reap it.
	bin, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	p, err := startCommand(context.Background(), bin, "30")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		p.Stop()
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}
