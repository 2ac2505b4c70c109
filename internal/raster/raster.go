// Package raster turns decoded frames into printable character grids.
package raster

import (
	"image"
	"image/draw"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/types"
	"github.com/nfnt/resize"
)

const (
	fgPrefix = "\x1b[38;2;"
	reset    = "\x1b[0m"

	// Terminal cells are roughly twice as tall as they are wide.
	cellAspect = 0.5
)

// OutputHeight returns the number of text rows for a w x h frame rendered at width columns.
// The result is never below 1.
func OutputHeight(width, w, h int) int {
	rows := int(math.Round(float64(width) * float64(h) / float64(w) * cellAspect))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// Luminance returns 0.299R + 0.587G + 0.114B truncated to 8 bits.
func Luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}

// Rasterize renders frame as cfg.Width columns of glyphs, one newline-terminated line per row.
// The frame must have non-zero dimensions.
func Rasterize(frame types.RawFrame, cfg config.Config, lut *GlyphLUT) string {
	width := cfg.Width
	height := OutputHeight(width, frame.Width(), frame.Height())
	img := scale(frame.Image, width, height)

	cell := utf8.RuneLen(lut[0])
	if cfg.Color.Colored() {
		cell += len(fgPrefix) + len("255;255;255m") + len(reset)
	}
	out := make([]byte, 0, height*(width*cell+1))

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			l := Luminance(r, g, b)
			glyph := lut[l]

			if !cfg.Color.Colored() {
				out = utf8.AppendRune(out, glyph)
				continue
			}
			if cfg.Inverse {
				r, g, b = 255-r, 255-g, 255-b
			}
			out = append(out, fgPrefix...)
			out = strconv.AppendUint(out, uint64(r), 10)
			out = append(out, ';')
			out = strconv.AppendUint(out, uint64(g), 10)
			out = append(out, ';')
			out = strconv.AppendUint(out, uint64(b), 10)
			out = append(out, 'm')
			out = utf8.AppendRune(out, glyph)
			out = append(out, reset...)
		}
		out = append(out, '\n')
	}
	return string(out)
}

// scale resamples src to exactly w x h and returns it as a zero-origin RGBA image.
func scale(src *image.RGBA, w, h int) *image.RGBA {
	var m image.Image = src
	if src.Rect.Dx() != w || src.Rect.Dy() != h {
		m = resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	}
	if rgba, ok := m.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Rect, m, m.Bounds().Min, draw.Src)
	return dst
}
