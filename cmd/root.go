package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/decoder"
	"github.com/andresmejia3/ascivid/internal/pipeline"
	"github.com/andresmejia3/ascivid/internal/player"
	"github.com/andresmejia3/ascivid/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds the flags shared by play and render.
type Options struct {
	Width    int
	Inverse  bool
	NoColor  bool
	Blocks   bool
	Workers  int
	Decoder  string
	LogLevel string

	// Playback only.
	GUI       bool
	Prerender bool
	TempDir   string
	StoreURL  string
	PlayerBin string
	NoAudio   bool
}

var rootOpts Options

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "ascivid <video>",
	Short:         "Play a video as ASCII art in the terminal",
	Long:          "Plays a video file as truecolor ASCII art, either rendering on the fly or pre-rendering every frame with parallel workers first.",
	Version:       Version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyEnv(cmd, &rootOpts)

		logger, err := utils.NewLogger(os.Stderr, rootOpts.LogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd.Context(), args[0], rootOpts)
	},
}

// shownError marks an error already reported with utils.ShowError.
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

func fail(context string, err error) error {
	utils.ShowError(context, err, nil)
	return shownError{err}
}

// applyEnv fills options the user did not set on the command line from the environment.
func applyEnv(cmd *cobra.Command, opts *Options) {
	fallback := func(flag, env string, dst *string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	fallback("store-url", "ASCIVID_STORE_URL", &opts.StoreURL)
	fallback("tempdir", "ASCIVID_TEMPDIR", &opts.TempDir)
	fallback("log-level", "ASCIVID_LOG_LEVEL", &opts.LogLevel)
}

// buildConfig turns flags into a validated Config.
func buildConfig(opts Options, videoPath string) (config.Config, error) {
	mode, err := config.ColorModeFromFlags(opts.NoColor, opts.Blocks)
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.Config{
		VideoPath: videoPath,
		Width:     opts.Width,
		Color:     mode,
		Inverse:   opts.Inverse,
		Prerender: opts.Prerender,
		TempDir:   opts.TempDir,
		StoreURL:  opts.StoreURL,
		Workers:   opts.Workers,
		Decoder:   opts.Decoder,
		Audio:     !opts.NoAudio,
		PlayerBin: opts.PlayerBin,
		GUI:       opts.GUI,
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runPlay(ctx context.Context, videoPath string, opts Options) error {
	cfg, err := buildConfig(opts, videoPath)
	if err != nil {
		return fail("Configuration Error", err)
	}

	src, err := decoder.Open(ctx, cfg.VideoPath, cfg.Decoder)
	if err != nil {
		return fail("Could not open video file", err)
	}
	slog.Debug("play: source opened", "path", cfg.VideoPath, "fps", src.FPS(), "width", src.Width(), "height", src.Height(), "frames", src.Frames())

	if msg := player.TerminalWarning(os.Stdout, cfg.Width); msg != "" {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", msg)
	}

	res, err := pipeline.Run(ctx, cfg, src, os.Stdout, pipeline.Options{Progress: true})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fail("Playback failed", err)
	}
	slog.Info("play: done",
		"shown", res.Playback.Shown,
		"dropped", res.Playback.Dropped,
		"skipped", res.Playback.Skipped,
		"failed", res.Workers.Failed)
	return nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Interrupted by the user; cleanup already ran.
	default:
		var shown shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&rootOpts.Width, "width", "w", config.DefaultWidth, "Output width in characters")
	pf.BoolVarP(&rootOpts.Inverse, "inverse", "i", false, "Invert brightness and color")
	pf.BoolVarP(&rootOpts.NoColor, "no-color", "n", false, "Disable color")
	pf.BoolVarP(&rootOpts.Blocks, "blocks", "b", false, "Draw solid colored blocks instead of characters")
	pf.IntVar(&rootOpts.Workers, "workers", runtime.NumCPU(), "Number of parallel renderers in pre-render mode")
	pf.StringVar(&rootOpts.Decoder, "decoder", config.DecoderVidio, "Decoder backend: 'vidio' or 'ffmpeg'")
	pf.StringVar(&rootOpts.LogLevel, "log-level", "warn", "Diagnostics level: debug, info, warn, error (env ASCIVID_LOG_LEVEL)")
	rootCmd.MarkFlagsMutuallyExclusive("no-color", "blocks")

	f := rootCmd.Flags()
	f.BoolVarP(&rootOpts.GUI, "gui", "g", false, "Show the audio player's window")
	f.BoolVarP(&rootOpts.Prerender, "prerender", "p", false, "Render every frame before playback starts")
	f.StringVarP(&rootOpts.TempDir, "tempdir", "t", "", "Keep pre-rendered frames as files under this directory (env ASCIVID_TEMPDIR)")
	f.StringVar(&rootOpts.StoreURL, "store-url", "", "Keep pre-rendered frames in PostgreSQL (env ASCIVID_STORE_URL)")
	f.StringVar(&rootOpts.PlayerBin, "player", config.DefaultPlayer, "Audio player binary")
	f.BoolVar(&rootOpts.NoAudio, "no-audio", false, "Play without sound")
}
