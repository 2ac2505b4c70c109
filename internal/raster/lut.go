package raster

import "github.com/andresmejia3/ascivid/internal/config"

// Glyph ramps, darkest to lightest on a dark terminal background.
const (
	Ramp        = " .:-=+*#%@"
	InverseRamp = "@%#*+=-:. "
)

// BlockGlyph is the only glyph used in solid-block mode.
const BlockGlyph = '█'

// GlyphLUT maps an 8-bit luminance value to a glyph. Built once, read-only afterwards.
type GlyphLUT [256]rune

// NewLUT builds the lookup table for cfg: lut[i] = ramp[i*(len(ramp)-1)/255].
func NewLUT(cfg config.Config) *GlyphLUT {
	ramp := []rune(Ramp)
	switch {
	case cfg.Color == config.Blocks:
		ramp = []rune{BlockGlyph}
	case cfg.Inverse:
		ramp = []rune(InverseRamp)
	}

	var lut GlyphLUT
	last := len(ramp) - 1
	for i := range lut {
		lut[i] = ramp[i*last/255]
	}
	return &lut
}
