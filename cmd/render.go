package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/ascivid/internal/decoder"
	"github.com/andresmejia3/ascivid/internal/pipeline"
	"github.com/spf13/cobra"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render <video>",
	Short: "Pre-render every frame to text files without playing",
	Long:  "Renders each frame to <out>/frame_NNNNNN.txt using the parallel renderers and keeps the files. The output directory must not already hold frame files.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd.Context(), args[0], renderOut, rootOpts)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Directory to write frame files into")
	renderCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(renderCmd)
}

func runRender(ctx context.Context, videoPath, outDir string, opts Options) error {
	opts.NoAudio = true
	opts.Prerender = true
	cfg, err := buildConfig(opts, videoPath)
	if err != nil {
		return fail("Configuration Error", err)
	}

	src, err := decoder.Open(ctx, cfg.VideoPath, cfg.Decoder)
	if err != nil {
		return fail("Could not open video file", err)
	}

	res, err := pipeline.Render(ctx, cfg, src, outDir, pipeline.Options{Progress: true})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fail("Render failed", err)
	}

	fmt.Fprintf(os.Stderr, "✅ Rendered %d frames to %s\n", res.Workers.Rendered, res.Dir)
	if res.Workers.Failed > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %d frames failed to render\n", res.Workers.Failed)
	}
	return nil
}
