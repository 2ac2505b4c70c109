package raster

import (
	"image"
	"image/color"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/types"
)

var escapeRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func solidFrame(w, h int, c color.RGBA) types.RawFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, 255
	}
	return types.RawFrame{Image: img, FPS: 30}
}

func gradientFrame(w, h int) types.RawFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: uint8(y * 7), B: 255 - v, A: 255})
		}
	}
	return types.RawFrame{Image: img, FPS: 30}
}

func testConfig(width int, mode config.ColorMode, inverse bool) config.Config {
	cfg := config.Default()
	cfg.Width = width
	cfg.Color = mode
	cfg.Inverse = inverse
	return cfg
}

func TestOutputHeight(t *testing.T) {
	tests := []struct {
		width, w, h int
		want        int
	}{
		{width: 80, w: 1920, h: 1080, want: 23}, // 22.5 rounds up
		{width: 4, w: 4, h: 8, want: 4},
		{width: 100, w: 640, h: 480, want: 38}, // 37.5 rounds up
		{width: 10, w: 1000, h: 10, want: 1},   // 0.05 clamps to 1
		{width: 3, w: 3, h: 3, want: 2},        // 1.5 rounds up
	}
	for _, tt := range tests {
		if got := OutputHeight(tt.width, tt.w, tt.h); got != tt.want {
			t.Errorf("OutputHeight(%d, %d, %d) = %d, want %d", tt.width, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestLuminance(t *testing.T) {
	if got := Luminance(0, 0, 0); got != 0 {
		t.Errorf("black luminance = %d", got)
	}
	if got := Luminance(255, 255, 255); got != 255 {
		t.Errorf("white luminance = %d", got)
	}
	if got := Luminance(255, 0, 0); got != 76 {
		t.Errorf("red luminance = %d, want 76", got)
	}
}

func TestLUTMonotonic(t *testing.T) {
	pos := func(r rune) int { return strings.IndexRune(Ramp, r) }

	lut := NewLUT(testConfig(80, config.Truecolor, false))
	for i := 1; i < 256; i++ {
		if pos(lut[i]) < pos(lut[i-1]) {
			t.Fatalf("normal LUT decreases at %d: %q -> %q", i, lut[i-1], lut[i])
		}
	}
	if lut[0] != ' ' || lut[255] != '@' {
		t.Errorf("normal LUT endpoints = %q, %q", lut[0], lut[255])
	}

	inv := NewLUT(testConfig(80, config.NoColor, true))
	for i := 1; i < 256; i++ {
		if pos(inv[i]) > pos(inv[i-1]) {
			t.Fatalf("inverse LUT increases at %d: %q -> %q", i, inv[i-1], inv[i])
		}
	}
	if inv[0] != '@' || inv[255] != ' ' {
		t.Errorf("inverse LUT endpoints = %q, %q", inv[0], inv[255])
	}

	blocks := NewLUT(testConfig(80, config.Blocks, false))
	for i, g := range blocks {
		if g != BlockGlyph {
			t.Fatalf("blocks LUT[%d] = %q", i, g)
		}
	}
}

func TestLUTIndexFormula(t *testing.T) {
	lut := NewLUT(testConfig(80, config.NoColor, false))
	ramp := []rune(Ramp)
	for i := 0; i < 256; i++ {
		if want := ramp[i*(len(ramp)-1)/255]; lut[i] != want {
			t.Fatalf("lut[%d] = %q, want %q", i, lut[i], want)
		}
	}
}

func TestRasterizeShape(t *testing.T) {
	frames := map[string]types.RawFrame{
		"landscape": gradientFrame(64, 36),
		"portrait":  gradientFrame(9, 40),
		"tiny":      gradientFrame(2, 2),
	}
	modes := []config.ColorMode{config.Truecolor, config.NoColor, config.Blocks}

	for name, frame := range frames {
		for _, mode := range modes {
			for _, inverse := range []bool{false, true} {
				for _, width := range []int{1, 7, 40} {
					cfg := testConfig(width, mode, inverse)
					out := Rasterize(frame, cfg, NewLUT(cfg))

					if !strings.HasSuffix(out, "\n") {
						t.Fatalf("%s/%v: output not newline-terminated", name, mode)
					}
					lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
					wantRows := OutputHeight(width, frame.Width(), frame.Height())
					if len(lines) != wantRows {
						t.Errorf("%s/%v/w=%d: %d lines, want %d", name, mode, width, len(lines), wantRows)
					}
					for i, line := range lines {
						if n := utf8.RuneCountInString(escapeRe.ReplaceAllString(line, "")); n != width {
							t.Errorf("%s/%v/w=%d: line %d has %d glyphs", name, mode, width, i, n)
						}
					}
				}
			}
		}
	}
}

func TestRasterizeAllBlackScenario(t *testing.T) {
	cfg := testConfig(4, config.NoColor, false)
	lut := NewLUT(cfg)

	for i := 0; i < 10; i++ {
		frame := solidFrame(4, 8, color.RGBA{})
		frame.Index = i
		out := Rasterize(frame, cfg, lut)

		want := strings.Repeat(strings.Repeat(string(Ramp[0]), 4)+"\n", 4)
		if out != want {
			t.Fatalf("frame %d = %q, want %q", i, out, want)
		}
	}
}

func TestRasterizeTruecolorCell(t *testing.T) {
	cfg := testConfig(1, config.Truecolor, false)
	out := Rasterize(solidFrame(1, 2, color.RGBA{R: 255, G: 255, B: 255}), cfg, NewLUT(cfg))
	if want := "\x1b[38;2;255;255;255m@\x1b[0m\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	cfg.Inverse = true
	out = Rasterize(solidFrame(1, 2, color.RGBA{R: 255, G: 255, B: 255}), cfg, NewLUT(cfg))
	if want := "\x1b[38;2;0;0;0m \x1b[0m\n"; out != want {
		t.Errorf("inverse got %q, want %q", out, want)
	}

	cfg = testConfig(1, config.Blocks, false)
	out = Rasterize(solidFrame(1, 2, color.RGBA{R: 10, G: 20, B: 30}), cfg, NewLUT(cfg))
	if want := "\x1b[38;2;10;20;30m█\x1b[0m\n"; out != want {
		t.Errorf("blocks got %q, want %q", out, want)
	}
}

func TestRasterizeIdempotent(t *testing.T) {
	frame := gradientFrame(33, 17)
	cfg := testConfig(20, config.Truecolor, false)
	lut := NewLUT(cfg)
	if a, b := Rasterize(frame, cfg, lut), Rasterize(frame, cfg, lut); a != b {
		t.Error("rasterizing the same frame twice produced different output")
	}
}

func TestRasterizeSubImage(t *testing.T) {
	// A frame whose bounds do not start at the origin still renders.
	full := gradientFrame(20, 20)
	sub := full.Image.SubImage(image.Rect(5, 5, 15, 15)).(*image.RGBA)
	cfg := testConfig(10, config.NoColor, false)
	out := Rasterize(types.RawFrame{Image: sub}, cfg, NewLUT(cfg))
	if lines := strings.Count(out, "\n"); lines != 5 {
		t.Errorf("got %d lines, want 5", lines)
	}
}
