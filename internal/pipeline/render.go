package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/decoder"
	"github.com/andresmejia3/ascivid/internal/store"
)

// ErrOutputNotEmpty is returned by Render when the output directory already holds frames.
var ErrOutputNotEmpty = errors.New("output directory already contains rendered frames")

// Render runs only the pre-render stage: every frame of src ends up as a file
// in outDir and stays there. Nothing is played.
func Render(ctx context.Context, cfg config.Config, src decoder.Source, outDir string, opts Options) (Result, error) {
	opts = opts.withDefaults(cfg)
	lc := &lifecycle{}
	defer lc.close()
	lc.add("decoder", src.Close)

	res := Result{Prerendered: true}
	st, err := store.NewDisk(outDir, store.DiskOptions{Keep: true})
	if err != nil {
		return res, err
	}
	res.Dir = st.Dir()
	lc.add("frame store", st.Close)
	existing, err := st.Len(ctx)
	if err != nil {
		return res, err
	}
	if existing > 0 {
		return res, fmt.Errorf("%w: %s holds %d frame files", ErrOutputNotEmpty, outDir, existing)
	}
	if st.CreatedRoot() {
		fmt.Fprintf(opts.Stderr, "Created output directory at %s\n", outDir)
	}

	pool := startPool(ctx, cfg, st, opts, lc)
	fmt.Fprintf(opts.Stderr, "🚀 Spawning %d renderers...\n", pool.Size())

	n, err := Feed(ctx, src, pool, newBar(opts, src.Frames(), "Rendering"))
	res.Frames = n
	if err == nil {
		err = pool.Shutdown(ctx)
	}
	if err == nil {
		pool.Wait()
	}
	res.Workers = pool.Stats()

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
