package colormap

import (
	"errors"
	"reflect"
	"testing"
)

func TestGenerateLengthAndEndpoints(t *testing.T) {
	t.Parallel()

	sizes := []int{2, 3, 4, 5, 7, 10, 16, 33, 100, 255, 256, 257, 1000}
	for _, w := range []WhitePoint{D65, D50} {
		g := Generator{White: w}
		for _, id := range Ramps() {
			r, err := Lookup(id)
			if err != nil {
				t.Fatalf("Lookup(%s): %v", id, err)
			}
			anchors := r.Anchors()
			for _, n := range sizes {
				p, err := g.Generate(id, n)
				if err != nil {
					t.Fatalf("%s/%s n=%d: %v", w, id, n, err)
				}
				if len(p) != n {
					t.Fatalf("%s/%s n=%d: got %d samples", w, id, n, len(p))
				}
				if p[0] != anchors[0].Color {
					t.Errorf("%s/%s n=%d: first sample %v, want %v", w, id, n, p[0], anchors[0].Color)
				}
				if p[n-1] != anchors[len(anchors)-1].Color {
					t.Errorf("%s/%s n=%d: last sample %v, want %v", w, id, n, p[n-1], anchors[len(anchors)-1].Color)
				}
			}
		}
	}
}

func TestGenerateGrayScale(t *testing.T) {
	t.Parallel()

	p, err := Generate(GrayScale, 256)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, c := range p {
		if c.R != c.G || c.G != c.B {
			t.Fatalf("sample %d is not gray: %v", i, c)
		}
		if int(c.R) != i {
			t.Fatalf("sample %d = %v, want level %d", i, c, i)
		}
	}
}

func TestGenerateJetSmall(t *testing.T) {
	t.Parallel()

	p, err := Generate(Jet, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []RGB8{{0, 0, 127}, {0, 0, 255}, {0, 255, 255}, {255, 255, 0}, {127, 0, 0}}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("Jet(5) = %v, want %v", p, want)
	}
}

func TestGenerateJetSegmentsShareBoundary(t *testing.T) {
	t.Parallel()

	p, err := Generate(Jet, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []RGB8{
		{0, 0, 127}, {0, 0, 255}, {0, 128, 255}, {0, 255, 255}, {0, 255, 255},
		{0, 255, 0}, {255, 255, 0}, {255, 255, 0}, {255, 0, 0}, {127, 0, 0},
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("Jet(10) = %v, want %v", p, want)
	}
}

func TestSampleLinearMidpoint(t *testing.T) {
	t.Parallel()

	r, err := NewRamp("bw", []Anchor{
		{Position: 0, Mode: Linear, Color: RGB8{0, 0, 0}},
		{Position: 1, Mode: Linear, Color: RGB8{255, 255, 255}},
	})
	if err != nil {
		t.Fatalf("NewRamp: %v", err)
	}
	p, err := Generator{}.Sample(r, 3)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if p[0] != (RGB8{0, 0, 0}) || p[2] != (RGB8{255, 255, 255}) {
		t.Fatalf("unexpected endpoints: %v", p)
	}
	mid := p[1]
	if mid.R != mid.G || mid.G != mid.B || (mid.R != 127 && mid.R != 128) {
		t.Fatalf("unexpected midpoint: %v", mid)
	}
}

func TestSampleLeadingAndTrailingRuns(t *testing.T) {
	t.Parallel()

	r, err := NewRamp("inset", []Anchor{
		{Position: 0.25, Mode: Linear, Color: RGB8{0, 0, 0}},
		{Position: 0.75, Mode: Linear, Color: RGB8{255, 255, 255}},
	})
	if err != nil {
		t.Fatalf("NewRamp: %v", err)
	}
	p, err := Generator{}.Sample(r, 8)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	levels := make([]uint8, len(p))
	for i, c := range p {
		levels[i] = c.R
	}
	want := []uint8{0, 0, 0, 85, 170, 255, 255, 255}
	if !reflect.DeepEqual(levels, want) {
		t.Fatalf("levels = %v, want %v", levels, want)
	}
}

func TestGenerateDivergingMidpoint(t *testing.T) {
	t.Parallel()

	for _, id := range []RampID{CoolWarm, PurpleOrange, GreenPurple, BlueDarkYellow, GreenRed} {
		p, err := Generate(id, 5)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if p[2] != (RGB8{221, 221, 221}) {
			t.Errorf("%s: midpoint %v, want neutral 221", id, p[2])
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1} {
		if _, err := Generate(GrayScale, n); !errors.Is(err, ErrInvalidSampleCount) {
			t.Errorf("n=%d: expected ErrInvalidSampleCount, got %v", n, err)
		}
	}
	if _, err := Generate(RampID(99), 10); !errors.Is(err, ErrUnknownRamp) {
		t.Errorf("expected ErrUnknownRamp, got %v", err)
	}
	if _, err := GenerateBytes(RampID(0), 10); !errors.Is(err, ErrUnknownRamp) {
		t.Errorf("expected ErrUnknownRamp, got %v", err)
	}
}

func TestGenerateBytes(t *testing.T) {
	t.Parallel()

	b, err := GenerateBytes(Jet, 64)
	if err != nil {
		t.Fatalf("GenerateBytes: %v", err)
	}
	if len(b) != 3*64 {
		t.Fatalf("len = %d", len(b))
	}
	if b[0] != 0 || b[1] != 0 || b[2] != 127 {
		t.Fatalf("first triple = %v", b[:3])
	}
}

func TestGenerateMulti(t *testing.T) {
	t.Parallel()

	got, err := GenerateMulti(Jet, 256, 3)
	if err != nil {
		t.Fatalf("GenerateMulti: %v", err)
	}
	if len(got) != 256 {
		t.Fatalf("len = %d", len(got))
	}
	if len(Palette(got).Bytes()) != 3*256 {
		t.Fatal("byte length mismatch")
	}

	var want []RGB8
	for _, n := range []int{85, 85, 86} {
		part, err := Generate(Jet, n)
		if err != nil {
			t.Fatalf("Generate(%d): %v", n, err)
		}
		want = append(want, part...)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatal("multi map differs from concatenated maps")
	}

	single, err := GenerateMulti(Thermal, 100, 1)
	if err != nil {
		t.Fatalf("GenerateMulti k=1: %v", err)
	}
	plain, _ := Generate(Thermal, 100)
	if !reflect.DeepEqual(single, plain) {
		t.Fatal("k=1 should equal Generate")
	}
}

func TestGenerateMultiErrors(t *testing.T) {
	t.Parallel()

	if _, err := GenerateMulti(Jet, 10, 0); !errors.Is(err, ErrInvalidSampleCount) {
		t.Errorf("k=0: got %v", err)
	}
	if _, err := GenerateMulti(Jet, 5, 3); !errors.Is(err, ErrInvalidSampleCount) {
		t.Errorf("n=5 k=3: got %v", err)
	}
	if _, err := GenerateMulti(RampID(42), 10, 2); !errors.Is(err, ErrUnknownRamp) {
		t.Errorf("unknown ramp: got %v", err)
	}
}

func TestSegmentEdgesSumToN(t *testing.T) {
	t.Parallel()

	for _, id := range Ramps() {
		r, _ := Lookup(id)
		for n := 2; n < 300; n++ {
			edges := segmentEdges(r.anchors, n)
			for k := 1; k < len(edges); k++ {
				if edges[k] < edges[k-1] {
					t.Fatalf("%s n=%d: edges not monotonic: %v", id, n, edges)
				}
			}
			if edges[len(edges)-1] != n {
				t.Fatalf("%s n=%d: last edge %d", id, n, edges[len(edges)-1])
			}
		}
	}
}

func TestSampleBunchedAnchorsKeepPinnedEnds(t *testing.T) {
	t.Parallel()

	red, green, blue := RGB8{255, 0, 0}, RGB8{0, 255, 0}, RGB8{0, 0, 255}
	tests := []struct {
		name    string
		anchors []Anchor
		want    map[int][]RGB8
	}{
		{
			name: "tail bunched",
			anchors: []Anchor{
				{Position: 0.6, Mode: Linear, Color: red},
				{Position: 0.8, Mode: Linear, Color: green},
				{Position: 1.0, Mode: Linear, Color: blue},
			},
			want: map[int][]RGB8{
				2: {red, blue},
				3: {red, red, blue},
			},
		},
		{
			name: "head bunched",
			anchors: []Anchor{
				{Position: 0.0, Mode: Linear, Color: red},
				{Position: 0.1, Mode: Linear, Color: green},
				{Position: 0.4, Mode: Linear, Color: blue},
			},
			want: map[int][]RGB8{
				2: {red, blue},
				3: {red, blue, blue},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRamp(tt.name, tt.anchors)
			if err != nil {
				t.Fatalf("NewRamp: %v", err)
			}
			for n, want := range tt.want {
				edges := segmentEdges(r.anchors, n)
				for k := 1; k < len(edges); k++ {
					if edges[k] < edges[k-1] {
						t.Fatalf("n=%d: edges not monotonic: %v", n, edges)
					}
				}
				p, err := Generator{}.Sample(r, n)
				if err != nil {
					t.Fatalf("Sample(%d): %v", n, err)
				}
				if !reflect.DeepEqual(p, want) {
					t.Errorf("n=%d: got %v, want %v (edges %v)", n, p, want, edges)
				}
			}
		})
	}
}
