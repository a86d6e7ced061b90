package service

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/colorramp/server/internal/cache"
	"github.com/colorramp/server/internal/rampstore"
	"github.com/colorramp/server/internal/render"
	"github.com/colorramp/server/pkg/colormap"
	"github.com/klauspost/compress/zstd"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newTestService(t *testing.T, store *rampstore.Store, configRamps ...*colormap.Ramp) (*PaletteService, *cache.Manager) {
	t.Helper()

	cm, err := cache.NewManager(cache.Config{
		PaletteEntries: 64,
		SwatchSizeMB:   8,
		SwatchTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("cache.NewManager: %v", err)
	}
	t.Cleanup(func() { cm.Close() })

	svc, err := NewPaletteService(PaletteServiceConfig{
		Cache:          cm,
		Renderer:       render.NewSwatchRenderer(render.Config{Width: 64, Height: 8}),
		Store:          store,
		ConfigRamps:    configRamps,
		DefaultSamples: 256,
	})
	if err != nil {
		t.Fatalf("NewPaletteService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc, cm
}

func twoColorAnchors(end colormap.RGB8) []colormap.Anchor {
	return []colormap.Anchor{
		{Position: 0, Mode: colormap.Linear, Color: colormap.RGB8{}},
		{Position: 1, Mode: colormap.Linear, Color: end},
	}
}

func samePalette(a, b []colormap.RGB8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPaletteBuiltin(t *testing.T) {
	svc, cm := newTestService(t, nil)

	want, err := colormap.Generate(colormap.Jet, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := svc.Palette(PaletteRequest{Ramp: "jet", N: 10})
		if err != nil {
			t.Fatalf("Palette: %v", err)
		}
		if !samePalette(got, want) {
			t.Fatalf("call %d: got %v, want %v", i, got, want)
		}
	}
	if n := cm.Stats()["palette_cache_len"]; n != 1 {
		t.Fatalf("expected one cached palette, got %v", n)
	}

	gray, err := svc.Palette(PaletteRequest{Ramp: "GrayScale"})
	if err != nil {
		t.Fatalf("Palette(default n): %v", err)
	}
	if len(gray) != 256 || gray[128] != (colormap.RGB8{R: 128, G: 128, B: 128}) {
		t.Fatalf("unexpected default grayscale palette: len %d", len(gray))
	}
}

func TestPaletteMultiAndWhite(t *testing.T) {
	svc, _ := newTestService(t, nil)

	want, err := colormap.GenerateMulti(colormap.Thermal, 30, 3)
	if err != nil {
		t.Fatalf("GenerateMulti: %v", err)
	}
	got, err := svc.Palette(PaletteRequest{Ramp: "thermal", N: 30, Multi: 3})
	if err != nil {
		t.Fatalf("Palette: %v", err)
	}
	if !samePalette(got, want) {
		t.Fatalf("multi palette mismatch")
	}

	d50, err := colormap.Generator{White: colormap.D50}.Generate(colormap.CoolWarm, 9)
	if err != nil {
		t.Fatalf("Generate D50: %v", err)
	}
	got, err = svc.Palette(PaletteRequest{Ramp: "cool-warm", N: 9, White: colormap.D50})
	if err != nil {
		t.Fatalf("Palette D50: %v", err)
	}
	if !samePalette(got, d50) {
		t.Fatalf("D50 palette mismatch: got %v, want %v", got, d50)
	}
}

func TestPaletteErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if _, err := svc.Palette(PaletteRequest{Ramp: "nope", N: 8}); !errors.Is(err, colormap.ErrUnknownRamp) {
		t.Errorf("expected ErrUnknownRamp, got %v", err)
	}
	if _, err := svc.Palette(PaletteRequest{Ramp: "jet", N: 1}); !errors.Is(err, colormap.ErrInvalidSampleCount) {
		t.Errorf("expected ErrInvalidSampleCount, got %v", err)
	}
	if _, err := svc.Palette(PaletteRequest{Ramp: "jet", N: 5, Multi: 3}); !errors.Is(err, colormap.ErrInvalidSampleCount) {
		t.Errorf("expected ErrInvalidSampleCount for tiny multi parts, got %v", err)
	}
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, nil)
	req := PaletteRequest{Ramp: "rainbow", N: 64}

	raw, err := svc.Export(req, "")
	if err != nil {
		t.Fatalf("Export raw: %v", err)
	}
	if len(raw) != 3*64 {
		t.Fatalf("expected %d bytes, got %d", 3*64, len(raw))
	}
	want, _ := colormap.GenerateBytes(colormap.Rainbow, 64)
	if !bytes.Equal(raw, want) {
		t.Fatal("raw export differs from GenerateBytes")
	}

	compressed, err := svc.Export(req, "ZSTD")
	if err != nil {
		t.Fatalf("Export zstd: %v", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if !bytes.Equal(plain, raw) {
		t.Fatal("zstd export does not decode to the raw palette")
	}

	if _, err := svc.Export(req, "gzip"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}

func TestSwatchAndPreview(t *testing.T) {
	svc, cm := newTestService(t, nil)

	first, err := svc.Swatch(PaletteRequest{Ramp: "spectrum", N: 16}, 0, 0)
	if err != nil {
		t.Fatalf("Swatch: %v", err)
	}
	if !bytes.HasPrefix(first, pngMagic) {
		t.Fatal("swatch is not a PNG")
	}
	second, err := svc.Swatch(PaletteRequest{Ramp: "spectrum", N: 16}, 64, 8)
	if err != nil {
		t.Fatalf("Swatch: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected the default size to share the cached swatch")
	}
	if n := cm.Stats()["swatch_cache_len"]; n != 1 {
		t.Fatalf("expected one cached swatch, got %v", n)
	}

	preview, err := svc.Preview(PaletteRequest{Ramp: "green-red"}, 32, 4)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !bytes.HasPrefix(preview, pngMagic) {
		t.Fatal("preview is not a PNG")
	}
	if _, err := svc.Preview(PaletteRequest{Ramp: "jet", N: 300}, 0, 0); !errors.Is(err, render.ErrPaletteTooLarge) {
		t.Fatalf("expected ErrPaletteTooLarge, got %v", err)
	}
	if _, err := svc.Swatch(PaletteRequest{Ramp: "nope"}, 0, 0); !errors.Is(err, colormap.ErrUnknownRamp) {
		t.Fatalf("expected ErrUnknownRamp, got %v", err)
	}
}

func TestCustomRamps(t *testing.T) {
	svc, _ := newTestService(t, nil)

	info, created, err := svc.SaveCustom("fade", twoColorAnchors(colormap.RGB8{R: 255}))
	if err != nil {
		t.Fatalf("SaveCustom: %v", err)
	}
	if !created || info.Builtin || info.Source != SourceCustom || info.Mode != "linear" {
		t.Fatalf("unexpected info %+v created=%v", info, created)
	}

	p, err := svc.Palette(PaletteRequest{Ramp: "fade", N: 3})
	if err != nil {
		t.Fatalf("Palette: %v", err)
	}
	if p[2] != (colormap.RGB8{R: 255}) {
		t.Fatalf("unexpected last color %v", p[2])
	}

	// Redefining the ramp must not serve the old cached palette.
	if _, created, err = svc.SaveCustom("fade", twoColorAnchors(colormap.RGB8{B: 255})); err != nil || created {
		t.Fatalf("SaveCustom replace: created=%v err=%v", created, err)
	}
	p, err = svc.Palette(PaletteRequest{Ramp: "fade", N: 3})
	if err != nil {
		t.Fatalf("Palette: %v", err)
	}
	if p[2] != (colormap.RGB8{B: 255}) {
		t.Fatalf("expected redefined ramp, got %v", p[2])
	}

	ramps := svc.Ramps()
	if len(ramps) != len(colormap.Ramps())+1 || ramps[len(ramps)-1].Name != "fade" {
		t.Fatalf("unexpected listing of %d ramps", len(ramps))
	}

	if err := svc.DeleteCustom("fade"); err != nil {
		t.Fatalf("DeleteCustom: %v", err)
	}
	if _, err := svc.Resolve("fade"); !errors.Is(err, colormap.ErrUnknownRamp) {
		t.Fatalf("expected deleted ramp to be unknown, got %v", err)
	}
	if err := svc.DeleteCustom("fade"); !errors.Is(err, colormap.ErrUnknownRamp) {
		t.Fatalf("expected ErrUnknownRamp, got %v", err)
	}
}

func TestCustomRampRejections(t *testing.T) {
	cfgRamp, err := colormap.NewRamp("house", twoColorAnchors(colormap.RGB8{G: 200}))
	if err != nil {
		t.Fatalf("NewRamp: %v", err)
	}
	svc, _ := newTestService(t, nil, cfgRamp)

	tests := []struct {
		name    string
		anchors []colormap.Anchor
		want    error
	}{
		{"jet", twoColorAnchors(colormap.RGB8{R: 1}), ErrReadOnlyRamp},
		{"Cool_Warm", twoColorAnchors(colormap.RGB8{R: 1}), ErrReadOnlyRamp},
		{"house", twoColorAnchors(colormap.RGB8{R: 1}), ErrReadOnlyRamp},
		{"bad name", twoColorAnchors(colormap.RGB8{R: 1}), colormap.ErrInvalidRamp},
		{"", twoColorAnchors(colormap.RGB8{R: 1}), colormap.ErrInvalidRamp},
		{"single", twoColorAnchors(colormap.RGB8{R: 1})[:1], colormap.ErrInvalidRamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.SaveCustom(tt.name, tt.anchors); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := svc.DeleteCustom("house"); !errors.Is(err, ErrReadOnlyRamp) {
		t.Fatalf("expected configured ramp to be read-only, got %v", err)
	}
	if err := svc.DeleteCustom("jet"); !errors.Is(err, ErrReadOnlyRamp) {
		t.Fatalf("expected built-in ramp to be read-only, got %v", err)
	}
	info, err := svc.Info("house")
	if err != nil || info.Source != SourceConfig || info.CreatedAt != nil {
		t.Fatalf("Info(house) = %+v, %v", info, err)
	}
}

func TestCustomRampsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramps.sqlite")

	store, err := rampstore.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc, _ := newTestService(t, store)
	if _, _, err := svc.SaveCustom("kept", twoColorAnchors(colormap.RGB8{R: 10, G: 20, B: 30})); err != nil {
		t.Fatalf("SaveCustom: %v", err)
	}
	if _, _, err := svc.SaveCustom("dropped", twoColorAnchors(colormap.RGB8{R: 1})); err != nil {
		t.Fatalf("SaveCustom: %v", err)
	}
	if err := svc.DeleteCustom("dropped"); err != nil {
		t.Fatalf("DeleteCustom: %v", err)
	}
	svc.Close()

	store, err = rampstore.NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	reopened, _ := newTestService(t, store)
	info, err := reopened.Info("kept")
	if err != nil {
		t.Fatalf("Info after restart: %v", err)
	}
	if info.Anchors[1].Color != (colormap.RGB8{R: 10, G: 20, B: 30}) {
		t.Fatalf("unexpected anchors %+v", info.Anchors)
	}
	if info.CreatedAt == nil || info.UpdatedAt == nil || info.CreatedAt.IsZero() {
		t.Fatalf("expected stored timestamps, got %+v", info)
	}
	if info.UpdatedAt.Before(*info.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", info.UpdatedAt, info.CreatedAt)
	}
	if _, err := reopened.Resolve("dropped"); !errors.Is(err, colormap.ErrUnknownRamp) {
		t.Fatalf("expected deleted ramp to stay deleted, got %v", err)
	}
}
