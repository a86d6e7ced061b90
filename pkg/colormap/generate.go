package colormap

import (
	"fmt"
	"math"
)

// Generator samples ramps. The zero value uses the D65 white for diverging segments.
// A Generator holds no mutable state and is safe for concurrent use.
type Generator struct {
	White WhitePoint
}

// Generate returns n colors of the built-in ramp id using the D65 white.
func Generate(id RampID, n int) ([]RGB8, error) {
	return Generator{}.Generate(id, n)
}

// GenerateBytes returns the colors of Generate packed as 3*n bytes (R, G, B per sample).
func GenerateBytes(id RampID, n int) ([]byte, error) {
	p, err := Generate(id, n)
	if err != nil {
		return nil, err
	}
	return Palette(p).Bytes(), nil
}

// GenerateMulti splits n into k palettes of the same ramp, see Generator.SampleMulti.
func GenerateMulti(id RampID, n, k int) ([]RGB8, error) {
	r, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	return Generator{}.SampleMulti(r, n, k)
}

// Generate returns n colors of the built-in ramp id.
func (g Generator) Generate(id RampID, n int) ([]RGB8, error) {
	r, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	return g.Sample(r, n)
}

// Sample returns exactly n colors of r.
//
// The n output slots are split at round(n*position) for every interior anchor,
// so segment sizes always add up to n. A leading run of the first color fills
// floor(n*position) slots when the first anchor is past 0, and the last color
// fills whatever is left after the final anchor. Each segment of two or more
// samples includes both of its end colors, so neighbouring segments repeat the
// shared anchor color. When the ramp starts at 0 and ends at 1 the first and
// last segments are kept non-empty, which makes the first and last samples
// equal the end anchors even for small n.
func (g Generator) Sample(r *Ramp, n int) ([]RGB8, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: %d (need at least 2)", ErrInvalidSampleCount, n)
	}
	anchors := r.anchors
	last := len(anchors) - 1
	edges := segmentEdges(anchors, n)

	out := make([]RGB8, 0, n)
	for i := 0; i < edges[0]; i++ {
		out = append(out, anchors[0].Color)
	}
	for k := 0; k < last; k++ {
		var err error
		first := k == 0 && edges[0] == 0
		out, err = g.appendSegment(out, anchors[k], anchors[k+1], edges[k+1]-edges[k], first, k == last-1)
		if err != nil {
			return nil, fmt.Errorf("ramp %s segment %d: %w", r.name, k, err)
		}
	}
	for len(out) < n {
		out = append(out, anchors[last].Color)
	}
	return out, nil
}

// SampleMulti packs k copies of r into one palette of n colors: k-1 copies of
// n/k colors followed by one copy taking the remainder.
func (g Generator) SampleMulti(r *Ramp, n, k int) ([]RGB8, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: multi count %d", ErrInvalidSampleCount, k)
	}
	unit := n / k
	if unit < 2 {
		return nil, fmt.Errorf("%w: %d colors split %d ways", ErrInvalidSampleCount, n, k)
	}
	out := make([]RGB8, 0, n)
	remaining := n
	for i := 0; i < k; i++ {
		size := unit
		if i == k-1 {
			size = remaining
		}
		part, err := g.Sample(r, size)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		remaining -= size
	}
	return out, nil
}

// segmentEdges returns the output index at which each anchor's segment starts.
func segmentEdges(anchors []Anchor, n int) []int {
	last := len(anchors) - 1
	fn := float64(n)
	edges := make([]int, len(anchors))
	edges[0] = int(math.Floor(fn * anchors[0].Position))
	for k := 1; k <= last; k++ {
		edges[k] = int(math.Round(fn * anchors[k].Position))
	}
	if anchors[last].Position == 1 {
		edges[last] = n
	}

	lo, hi := edges[0]+1, edges[last]-1
	if hi >= lo {
		for k := 1; k < last; k++ {
			edges[k] = min(max(edges[k], lo), hi)
		}
		return edges
	}

	// Anchors bunched at one end: only an end pinned at 0 or 1 keeps its slot.
	if anchors[0].Position == 0 {
		for k := 1; k < last; k++ {
			edges[k] = max(edges[k], 1)
		}
		edges[last] = max(edges[last], edges[last-1])
	}
	if anchors[last].Position == 1 {
		for k := 1; k < last; k++ {
			edges[k] = min(edges[k], n-1)
		}
	}
	return edges
}

func (g Generator) appendSegment(out []RGB8, a, b Anchor, count int, first, final bool) ([]RGB8, error) {
	switch {
	case count <= 0:
		return out, nil
	case count == 1:
		if final && !first {
			return append(out, b.Color), nil
		}
		return append(out, a.Color), nil
	}

	step := 1 / float64(count-1)
	for i := 0; i < count; i++ {
		t := float64(i) * step
		if i == count-1 {
			t = 1
		}
		c, err := g.interpolate(a.Mode, a.Color, b.Color, t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (g Generator) interpolate(mode Mode, c1, c2 RGB8, t float64) (RGB8, error) {
	switch mode {
	case Linear:
		return InterpolateLinear(c1, c2, t), nil
	case Diverging:
		return InterpolateDivergingWhite(c1, c2, t, g.White)
	}
	return RGB8{}, fmt.Errorf("%w: unknown mode %d", ErrInvalidRamp, int(mode))
}
