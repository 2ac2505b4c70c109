// Package config holds the immutable run configuration shared by every stage
// of the pipeline. A Config is built once from the command line and passed by value.
package config

import (
	"errors"
	"fmt"
	"runtime"
)

// ColorMode selects how each character cell is colored.
type ColorMode int

const (
	// Truecolor wraps every glyph in a 24-bit foreground escape.
	Truecolor ColorMode = iota
	// NoColor emits glyphs only.
	NoColor
	// Blocks draws the solid block glyph for every cell, colored with truecolor.
	Blocks
)

func (m ColorMode) String() string {
	switch m {
	case Truecolor:
		return "truecolor"
	case NoColor:
		return "none"
	case Blocks:
		return "solid-block"
	default:
		return fmt.Sprintf("ColorMode(%d)", int(m))
	}
}

// Colored reports whether cells carry a color escape.
func (m ColorMode) Colored() bool { return m != NoColor }

// Decoder backends.
const (
	DecoderVidio  = "vidio"
	DecoderFFmpeg = "ffmpeg"
)

const (
	DefaultWidth  = 80
	DefaultPlayer = "ffplay"
)

var (
	ErrConflictingModes = errors.New("no-color and blocks cannot be used together")
	ErrInvalidWidth     = errors.New("width must be greater than 0")
)

// Config is the run configuration. Treat it as read-only after Validate.
type Config struct {
	VideoPath string
	Width     int
	Color     ColorMode
	Inverse   bool
	Prerender bool

	// TempDir, when set, backs the pre-render frame store with files under it.
	TempDir string
	// StoreURL, when set, backs the pre-render frame store with PostgreSQL.
	StoreURL string

	Workers int
	Decoder string

	// Audio player subprocess.
	Audio     bool
	PlayerBin string
	GUI       bool
}

// ColorModeFromFlags maps the two mutually exclusive CLI switches onto a ColorMode.
func ColorModeFromFlags(noColor, blocks bool) (ColorMode, error) {
	switch {
	case noColor && blocks:
		return Truecolor, ErrConflictingModes
	case noColor:
		return NoColor, nil
	case blocks:
		return Blocks, nil
	default:
		return Truecolor, nil
	}
}

// Default returns a Config with the CLI defaults applied.
func Default() Config {
	return Config{
		Width:     DefaultWidth,
		Color:     Truecolor,
		Workers:   runtime.NumCPU(),
		Decoder:   DecoderVidio,
		Audio:     true,
		PlayerBin: DefaultPlayer,
	}
}

// Validate checks the invariants every component relies on.
func (c Config) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidWidth, c.Width)
	}
	switch c.Color {
	case Truecolor, NoColor, Blocks:
	default:
		return fmt.Errorf("unknown color mode %d", int(c.Color))
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.Decoder != DecoderVidio && c.Decoder != DecoderFFmpeg {
		return fmt.Errorf("invalid decoder '%s'. Must be '%s' or '%s'", c.Decoder, DecoderVidio, DecoderFFmpeg)
	}
	if c.TempDir != "" && c.StoreURL != "" {
		return errors.New("tempdir and store-url select different frame stores; pick one")
	}
	if c.Audio && c.PlayerBin == "" {
		return errors.New("audio enabled but no player binary given")
	}
	return nil
}
