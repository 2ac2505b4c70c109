// Package pipeline wires the decoder, renderers, frame store, audio and
// player together for one run, and tears all of it down on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/andresmejia3/ascivid/internal/audio"
	"github.com/andresmejia3/ascivid/internal/clock"
	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/decoder"
	"github.com/andresmejia3/ascivid/internal/player"
	"github.com/andresmejia3/ascivid/internal/raster"
	"github.com/andresmejia3/ascivid/internal/store"
	"github.com/andresmejia3/ascivid/internal/types"
	"github.com/andresmejia3/ascivid/internal/worker"
)

// DefaultWarmUp gives the audio player time to start before the first frame.
const DefaultWarmUp = 150 * time.Millisecond

// Stopper is a running side process, such as the audio player.
type Stopper interface {
	Stop()
}

// AudioFunc starts the soundtrack for cfg.
type AudioFunc func(ctx context.Context, cfg config.Config) (Stopper, error)

// Options are the collaborators of a run. Zero values select the real ones.
type Options struct {
	// Stderr receives status lines and the progress bar.
	Stderr io.Writer
	// Render overrides the rasterizer.
	Render worker.RenderFunc
	// Store overrides the frame store chosen from the config. Run closes it.
	Store store.FrameStore
	// Audio overrides the audio player. It is only called when cfg.Audio is set.
	Audio AudioFunc
	// WarmUp overrides DefaultWarmUp. Negative disables it.
	WarmUp time.Duration
	// Progress shows a progress bar while frames are fed to the renderers.
	Progress bool
}

// Result describes a finished run.
type Result struct {
	Prerendered bool
	// Frames is how many frames were decoded and handed to the renderers.
	Frames   int
	Workers  worker.Stats
	Playback player.Stats
	// Dir is where frame files went, for disk-backed runs.
	Dir string
}

func (o Options) withDefaults(cfg config.Config) Options {
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Render == nil {
		lut := raster.NewLUT(cfg)
		o.Render = func(f types.RawFrame) string { return raster.Rasterize(f, cfg, lut) }
	}
	if o.Audio == nil {
		o.Audio = startAudio
	}
	if o.WarmUp == 0 {
		o.WarmUp = DefaultWarmUp
	}
	return o
}

func startAudio(ctx context.Context, cfg config.Config) (Stopper, error) {
	p, err := audio.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Run plays src to out, live or pre-rendered depending on cfg. It owns src and
// closes it before returning. On cancellation it returns ctx.Err() after cleanup.
func Run(ctx context.Context, cfg config.Config, src decoder.Source, out io.Writer, opts Options) (Result, error) {
	opts = opts.withDefaults(cfg)
	lc := &lifecycle{}
	defer lc.close()

	var (
		res Result
		err error
	)
	if cfg.Prerender {
		res, err = runPrerender(ctx, cfg, src, out, opts, lc)
	} else {
		res, err = runLive(ctx, cfg, src, out, opts, lc)
	}

	if ctx.Err() != nil {
		fmt.Fprintln(opts.Stderr, "\nInterrupted. Cleaning up...")
		lc.close()
		return res, ctx.Err()
	}
	if cerr := lc.close(); err == nil && cerr != nil {
		err = cerr
	}
	return res, err
}

func runLive(ctx context.Context, cfg config.Config, src decoder.Source, out io.Writer, opts Options, lc *lifecycle) (Result, error) {
	lc.add("decoder", src.Close)

	if stop := spawnAudio(ctx, cfg, opts); stop != nil {
		lc.add("audio", func() error { stop.Stop(); return nil })
		if err := warmUp(ctx, opts.WarmUp); err != nil {
			return Result{}, err
		}
	}

	live := &player.Live{
		Source: src,
		Clock:  clock.New(src.FPS()),
		Render: opts.Render,
		Screen: player.NewScreen(out),
	}
	stats, err := live.Play(ctx)
	return Result{Playback: stats, Frames: stats.Shown + stats.Dropped}, err
}

func runPrerender(ctx context.Context, cfg config.Config, src decoder.Source, out io.Writer, opts Options, lc *lifecycle) (Result, error) {
	var res Result
	releaseDecoder := sync.OnceValue(src.Close)
	lc.add("decoder", releaseDecoder)

	st, dir, err := openStore(ctx, cfg, opts)
	if err != nil {
		return res, err
	}
	res.Prerendered = true
	res.Dir = dir
	lc.add("frame store", st.Close)

	pool := startPool(ctx, cfg, st, opts, lc)
	fmt.Fprintf(opts.Stderr, "🚀 Spawning %d renderers...\n", pool.Size())

	fmt.Fprintln(opts.Stderr, "Decoding frames...")
	n, err := Feed(ctx, src, pool, newBar(opts, src.Frames(), "Decoding"))
	res.Frames = n
	if err != nil {
		return res, err
	}
	if err := pool.Shutdown(ctx); err != nil {
		return res, err
	}
	if err := releaseDecoder(); err != nil {
		return res, fmt.Errorf("failed to release decoder: %w", err)
	}

	fmt.Fprintln(opts.Stderr, "Playback starting...")
	if stop := spawnAudio(ctx, cfg, opts); stop != nil {
		lc.add("audio", func() error { stop.Stop(); return nil })
	}
	if err := warmUp(ctx, opts.WarmUp); err != nil {
		return res, err
	}

	p := &player.Prerendered{
		Store:       st,
		Total:       n,
		Clock:       clock.New(src.FPS()),
		Screen:      player.NewScreen(out),
		WorkersDone: pool.Done(),
	}
	res.Playback, err = p.Play(ctx)
	res.Workers = pool.Stats()
	return res, err
}

// startPool launches the renderers. Cleanup cancels them and joins every goroutine.
func startPool(ctx context.Context, cfg config.Config, st store.FrameStore, opts Options, lc *lifecycle) *worker.Pool {
	workCtx, cancel := context.WithCancel(ctx)
	pool := worker.NewPool(cfg.Workers, opts.Render, st)
	pool.Start(workCtx)
	lc.add("workers", func() error {
		cancel()
		pool.Wait()
		return nil
	})
	return pool
}

// openStore picks the frame store: PostgreSQL, files under TempDir, or memory.
func openStore(ctx context.Context, cfg config.Config, opts Options) (store.FrameStore, string, error) {
	if opts.Store != nil {
		return opts.Store, "", nil
	}
	runID := uuid.New()
	switch {
	case cfg.StoreURL != "":
		st, err := store.NewPostgres(ctx, cfg.StoreURL, runID)
		if err != nil {
			return nil, "", err
		}
		slog.Info("pipeline: frames go to PostgreSQL", "run", st.RunID())
		return st, "", nil
	case cfg.TempDir != "":
		st, err := store.NewDisk(cfg.TempDir, store.DiskOptions{RunID: runID})
		if err != nil {
			return nil, "", err
		}
		if st.CreatedRoot() {
			fmt.Fprintf(opts.Stderr, "Created temporary directory at %s\n", cfg.TempDir)
		}
		return st, st.Dir(), nil
	default:
		return store.NewMemory(), "", nil
	}
}

// Feed hands every frame of src to the pool in index order. It blocks while the
// queue is full and stops at the first error or on cancellation. It does not
// send the stop sentinels.
func Feed(ctx context.Context, src decoder.Source, pool *worker.Pool, bar *progressbar.ProgressBar) (int, error) {
	n := 0
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			if bar != nil {
				_ = bar.Finish()
			}
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to decode frame %d: %w", n, err)
		}
		frame.Index = n
		if err := pool.Submit(ctx, types.FrameTask{Index: n, Frame: frame}); err != nil {
			return n, err
		}
		n++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
}

func newBar(opts Options, total int, desc string) *progressbar.ProgressBar {
	if !opts.Progress {
		return nil
	}
	if total <= 0 {
		total = -1 // spinner
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(opts.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// spawnAudio starts the soundtrack if enabled. A player that cannot start is a
// warning: the video plays silently.
func spawnAudio(ctx context.Context, cfg config.Config, opts Options) Stopper {
	if !cfg.Audio {
		return nil
	}
	stop, err := opts.Audio(ctx, cfg)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "⚠️  Audio disabled: %v\n", err)
		return nil
	}
	return stop
}

func warmUp(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
