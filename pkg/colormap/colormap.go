// Package colormap generates color palettes from named color ramps.
//
// A ramp is a short list of anchors (position, interpolation mode, color).
// Linear ramps blend anchors in sRGB; diverging ramps blend in the Msh
// space, a polar form of CIE Lab, which keeps the transition through the
// neutral midpoint perceptually even.
package colormap

import (
	"image/color"
	"math"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
	AtIndex(i int) color.Color
}

// RGBA implements color.Color; RGB8 is always opaque.
func (c RGB8) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	return r, g, b, 0xffff
}

// Palette is a generated color sequence.
type Palette []RGB8

var _ Colormap = Palette(nil)

// At returns the color at position t (0-1), interpolating between neighbouring entries.
func (p Palette) At(t float64) color.Color {
	if len(p) == 0 {
		return color.Transparent
	}
	if t <= 0 || math.IsNaN(t) {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}

	idx := t * float64(len(p)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(p) {
		upper = len(p) - 1
	}
	return InterpolateLinear(p[lower], p[upper], idx-float64(lower))
}

// AtIndex returns color at index i (wraps around).
func (p Palette) AtIndex(i int) color.Color {
	if len(p) == 0 {
		return color.Transparent
	}
	i %= len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}

// Bytes packs the palette as consecutive R, G, B bytes.
func (p Palette) Bytes() []byte {
	out := make([]byte, 0, 3*len(p))
	for _, c := range p {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// ColorPalette converts p for use with image.Paletted.
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	return out
}

// PaletteFromBytes unpacks consecutive R, G, B triples. A trailing partial triple is ignored.
func PaletteFromBytes(b []byte) Palette {
	p := make(Palette, len(b)/3)
	for i := range p {
		p[i] = RGB8{b[3*i], b[3*i+1], b[3*i+2]}
	}
	return p
}
