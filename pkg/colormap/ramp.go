package colormap

import (
	"fmt"
	"math"
	"strings"
)

// RampID identifies a built-in color ramp.
type RampID int

const (
	GrayScale RampID = iota + 1
	Jet
	Rainbow
	RainbowWide
	Spectrum
	SpectrumWide
	Thermal
	ThermalWide

	CoolWarm
	PurpleOrange
	GreenPurple
	BlueDarkYellow
	GreenRed
)

var rampNames = map[RampID]string{
	GrayScale:      "grayscale",
	Jet:            "jet",
	Rainbow:        "rainbow",
	RainbowWide:    "rainbow-wide",
	Spectrum:       "spectrum",
	SpectrumWide:   "spectrum-wide",
	Thermal:        "thermal",
	ThermalWide:    "thermal-wide",
	CoolWarm:       "cool-warm",
	PurpleOrange:   "purple-orange",
	GreenPurple:    "green-purple",
	BlueDarkYellow: "blue-dark-yellow",
	GreenRed:       "green-red",
}

// String returns the ramp's catalog name.
func (id RampID) String() string {
	if name, ok := rampNames[id]; ok {
		return name
	}
	return fmt.Sprintf("RampID(%d)", int(id))
}

// ParseRampID resolves a catalog name such as "cool-warm". Underscores and
// case are ignored.
func ParseRampID(name string) (RampID, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for id, n := range rampNames {
		if n == key {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRamp, name)
}

// Mode is the interpolation used for the segment starting at an anchor.
type Mode int

const (
	// Linear interpolates each sRGB channel independently.
	Linear Mode = iota + 1
	// Diverging interpolates in Msh space through a neutral midpoint.
	Diverging
)

// String returns "linear" or "diverging".
func (m Mode) String() string {
	switch m {
	case Linear:
		return "linear"
	case Diverging:
		return "diverging"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "diverging":
		return Diverging, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidRamp, s)
}

// Anchor is a control point of a ramp.
type Anchor struct {
	Position float64
	Mode     Mode
	Color    RGB8
}

// Ramp is an immutable, validated sequence of anchors.
type Ramp struct {
	name    string
	anchors []Anchor
}

// NewRamp validates anchors and returns a ramp that can be sampled by a Generator.
// A ramp needs at least two anchors with positions in [0, 1] in non-decreasing
// order; every segment must carry a known mode and diverging segments must
// not start or end at a zero-magnitude color. The final anchor's mode is
// unused; an unset one takes its predecessor's.
func NewRamp(name string, anchors []Anchor) (*Ramp, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("%w: %q has %d anchors, need at least 2", ErrInvalidRamp, name, len(anchors))
	}
	prev := 0.0
	for i, a := range anchors {
		if math.IsNaN(a.Position) || a.Position < 0 || a.Position > 1 {
			return nil, fmt.Errorf("%w: %q anchor %d position %v outside [0, 1]", ErrInvalidRamp, name, i, a.Position)
		}
		if a.Position < prev {
			return nil, fmt.Errorf("%w: %q anchor %d position %v is before %v", ErrInvalidRamp, name, i, a.Position, prev)
		}
		prev = a.Position
		if i == len(anchors)-1 {
			break
		}
		switch a.Mode {
		case Linear:
		case Diverging:
			for _, c := range []RGB8{a.Color, anchors[i+1].Color} {
				if _, err := RGBToMsh(c, D65); err != nil {
					return nil, fmt.Errorf("%w: %q anchor %d: %v", ErrInvalidRamp, name, i, err)
				}
			}
		default:
			return nil, fmt.Errorf("%w: %q anchor %d has unknown mode %d", ErrInvalidRamp, name, i, int(a.Mode))
		}
	}
	own := append([]Anchor(nil), anchors...)
	if last := &own[len(own)-1]; last.Mode != Linear && last.Mode != Diverging {
		last.Mode = own[len(own)-2].Mode
	}
	return &Ramp{name: name, anchors: own}, nil
}

// Name returns the ramp name.
func (r *Ramp) Name() string { return r.name }

// Anchors returns a copy of the ramp's anchors in ascending position.
func (r *Ramp) Anchors() []Anchor { return append([]Anchor(nil), r.anchors...) }

// Mode reports the family of the ramp, taken from its first anchor.
func (r *Ramp) Mode() Mode { return r.anchors[0].Mode }

type tableEntry struct {
	id       RampID
	position float64
	mode     Mode
	color    RGB8
}

// rampTable is ordered by ramp, then position.
var rampTable = []tableEntry{
	{GrayScale, 0.0, Linear, RGB8{0, 0, 0}},
	{GrayScale, 1.0, Linear, RGB8{255, 255, 255}},

	{Jet, 0.0, Linear, RGB8{0, 0, 127}},
	{Jet, 0.1, Linear, RGB8{0, 0, 255}},
	{Jet, 0.35, Linear, RGB8{0, 255, 255}},
	{Jet, 0.5, Linear, RGB8{0, 255, 0}},
	{Jet, 0.65, Linear, RGB8{255, 255, 0}},
	{Jet, 0.9, Linear, RGB8{255, 0, 0}},
	{Jet, 1.0, Linear, RGB8{127, 0, 0}},

	{Rainbow, 0.0, Linear, RGB8{0, 0, 255}},
	{Rainbow, 0.25, Linear, RGB8{0, 255, 255}},
	{Rainbow, 0.5, Linear, RGB8{0, 255, 0}},
	{Rainbow, 0.75, Linear, RGB8{255, 255, 0}},
	{Rainbow, 1.0, Linear, RGB8{255, 0, 0}},

	{RainbowWide, 0.0, Linear, RGB8{0, 0, 0}},
	{RainbowWide, 0.1, Linear, RGB8{0, 0, 255}},
	{RainbowWide, 0.3, Linear, RGB8{0, 255, 255}},
	{RainbowWide, 0.5, Linear, RGB8{0, 255, 0}},
	{RainbowWide, 0.7, Linear, RGB8{255, 255, 0}},
	{RainbowWide, 0.9, Linear, RGB8{255, 0, 0}},
	{RainbowWide, 1.0, Linear, RGB8{255, 255, 255}},

	{Spectrum, 0.0, Linear, RGB8{255, 0, 255}},
	{Spectrum, 0.1, Linear, RGB8{0, 0, 255}},
	{Spectrum, 0.3, Linear, RGB8{0, 255, 255}},
	{Spectrum, 0.45, Linear, RGB8{0, 255, 0}},
	{Spectrum, 0.6, Linear, RGB8{255, 255, 0}},
	{Spectrum, 1.0, Linear, RGB8{255, 0, 0}},

	{SpectrumWide, 0.0, Linear, RGB8{0, 0, 0}},
	{SpectrumWide, 0.1, Linear, RGB8{150, 0, 150}},
	{SpectrumWide, 0.2, Linear, RGB8{0, 0, 255}},
	{SpectrumWide, 0.35, Linear, RGB8{0, 255, 255}},
	{SpectrumWide, 0.5, Linear, RGB8{0, 255, 0}},
	{SpectrumWide, 0.6, Linear, RGB8{255, 255, 0}},
	{SpectrumWide, 0.9, Linear, RGB8{255, 0, 0}},
	{SpectrumWide, 1.0, Linear, RGB8{255, 255, 255}},

	{Thermal, 0.0, Linear, RGB8{0, 0, 255}},
	{Thermal, 0.5, Linear, RGB8{255, 0, 255}},
	{Thermal, 1.0, Linear, RGB8{255, 255, 0}},

	{ThermalWide, 0.0, Linear, RGB8{0, 0, 0}},
	{ThermalWide, 0.05, Linear, RGB8{0, 0, 255}},
	{ThermalWide, 0.5, Linear, RGB8{255, 0, 255}},
	{ThermalWide, 0.95, Linear, RGB8{255, 255, 0}},
	{ThermalWide, 1.0, Linear, RGB8{255, 255, 255}},

	// Diverging ramps from Moreland, "Diverging Color Maps for Scientific Visualization".
	{CoolWarm, 0.0, Diverging, RGB8{59, 76, 192}},
	{CoolWarm, 1.0, Diverging, RGB8{180, 4, 38}},

	{PurpleOrange, 0.0, Diverging, RGB8{111, 78, 161}},
	{PurpleOrange, 1.0, Diverging, RGB8{193, 85, 11}},

	{GreenPurple, 0.0, Diverging, RGB8{21, 135, 51}},
	{GreenPurple, 1.0, Diverging, RGB8{111, 78, 161}},

	{BlueDarkYellow, 0.0, Diverging, RGB8{55, 133, 232}},
	{BlueDarkYellow, 1.0, Diverging, RGB8{172, 125, 23}},

	{GreenRed, 0.0, Diverging, RGB8{21, 135, 51}},
	{GreenRed, 1.0, Diverging, RGB8{193, 54, 59}},
}

var (
	builtinRamps map[RampID]*Ramp
	builtinOrder []RampID
)

func init() {
	ramps, order, err := buildCatalog(rampTable)
	if err != nil {
		panic(fmt.Sprintf("colormap: built-in ramp table: %v", err))
	}
	builtinRamps, builtinOrder = ramps, order
}

// buildCatalog groups contiguous table rows by ramp and validates each group.
func buildCatalog(table []tableEntry) (map[RampID]*Ramp, []RampID, error) {
	ramps := make(map[RampID]*Ramp)
	var order []RampID
	for start := 0; start < len(table); {
		id := table[start].id
		if _, dup := ramps[id]; dup {
			return nil, nil, fmt.Errorf("%w: %s rows are not contiguous", ErrInvalidRamp, id)
		}
		end := start
		var anchors []Anchor
		for ; end < len(table) && table[end].id == id; end++ {
			e := table[end]
			anchors = append(anchors, Anchor{Position: e.position, Mode: e.mode, Color: e.color})
		}
		r, err := NewRamp(id.String(), anchors)
		if err != nil {
			return nil, nil, err
		}
		ramps[id] = r
		order = append(order, id)
		start = end
	}
	return ramps, order, nil
}

// Lookup returns the built-in ramp for id.
func Lookup(id RampID) (*Ramp, error) {
	r, ok := builtinRamps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRamp, id)
	}
	return r, nil
}

// Ramps returns the built-in ramp identifiers in catalog order.
func Ramps() []RampID {
	return append([]RampID(nil), builtinOrder...)
}
