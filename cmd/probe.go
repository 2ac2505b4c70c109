package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/ascivid/internal/raster"
	"github.com/andresmejia3/ascivid/internal/utils"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <video>",
	Short: "Show video metadata and the character grid it would play at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.Context(), args[0], rootOpts.Width, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(ctx context.Context, path string, width int, out io.Writer) error {
	if err := utils.CheckInputFile(path); err != nil {
		return fail("Could not open video file", err)
	}
	if width < 1 {
		return fail("Configuration Error", fmt.Errorf("width must be greater than 0, got %d", width))
	}

	info, err := utils.ProbeVideo(ctx, path)
	if err != nil {
		return fail("Failed to probe video", err)
	}
	if info.Frames <= 0 {
		// Some containers do not record a frame count; count packets instead.
		fmt.Fprintln(os.Stderr, "🔍 Counting frames...")
		info.Frames = utils.GetTotalFrames(ctx, path)
	}

	writeProbe(out, path, width, info)
	return nil
}

func writeProbe(out io.Writer, path string, width int, info utils.VideoInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "FIELD\tVALUE")
	fmt.Fprintln(w, "-----\t-----")
	fmt.Fprintf(w, "Path\t%s\n", path)
	fmt.Fprintf(w, "Size\t%dx%d\n", info.Width, info.Height)
	fmt.Fprintf(w, "FPS\t%.3f\n", info.FPS)
	if info.Frames > 0 {
		fmt.Fprintf(w, "Frames\t%d\n", info.Frames)
		if info.FPS > 0 {
			d := time.Duration(float64(info.Frames) / info.FPS * float64(time.Second))
			fmt.Fprintf(w, "Duration\t%s\n", d.Round(time.Millisecond))
		}
	} else {
		fmt.Fprintln(w, "Frames\tunknown")
	}
	if info.Width > 0 && info.Height > 0 {
		fmt.Fprintf(w, "Grid\t%dx%d characters\n", width, raster.OutputHeight(width, info.Width, info.Height))
	}
}
