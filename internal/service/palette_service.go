// Package service provides business logic for the palette server.
package service

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/colorramp/server/internal/cache"
	"github.com/colorramp/server/internal/rampstore"
	"github.com/colorramp/server/internal/render"
	"github.com/colorramp/server/pkg/colormap"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrUnsupportedEncoding is returned for export encodings other than raw and zstd.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrReadOnlyRamp is returned when deleting or replacing a built-in or configured ramp.
	ErrReadOnlyRamp = errors.New("ramp is read-only")
)

// Ramp sources reported by RampInfo.
const (
	SourceBuiltin = "builtin"
	SourceConfig  = "config"
	SourceCustom  = "custom"
)

const maxRampNameLen = 64

// PaletteServiceConfig contains palette service configuration.
type PaletteServiceConfig struct {
	Cache          *cache.Manager
	Renderer       *render.SwatchRenderer
	Store          *rampstore.Store // nil keeps custom ramps in memory only
	ConfigRamps    []*colormap.Ramp
	White          colormap.WhitePoint
	DefaultSamples int
}

// PaletteRequest selects a generated palette.
type PaletteRequest struct {
	Ramp  string
	N     int // 0 selects the default sample count
	Multi int // 0 or 1 selects a single ramp
	White colormap.WhitePoint
}

// RampInfo describes a ramp for listings.
type RampInfo struct {
	Name    string            `json:"name"`
	Mode    string            `json:"mode"`
	Anchors []colormap.Anchor `json:"anchors"`
	Builtin bool              `json:"builtin"`
	Source  string            `json:"source"`

	// Set for custom ramps backed by the ramp store.
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type namedRamp struct {
	ramp   *colormap.Ramp
	source string
}

// PaletteService generates, caches, renders and exports palettes.
type PaletteService struct {
	cache          *cache.Manager
	renderer       *render.SwatchRenderer
	store          *rampstore.Store
	white          colormap.WhitePoint
	defaultSamples int
	encoder        *zstd.Encoder

	mu     sync.RWMutex
	custom map[string]namedRamp
}

// NewPaletteService creates a new palette service and loads stored custom ramps.
func NewPaletteService(cfg PaletteServiceConfig) (*PaletteService, error) {
	if cfg.DefaultSamples <= 0 {
		cfg.DefaultSamples = 256
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	s := &PaletteService{
		cache:          cfg.Cache,
		renderer:       cfg.Renderer,
		store:          cfg.Store,
		white:          cfg.White,
		defaultSamples: cfg.DefaultSamples,
		encoder:        encoder,
		custom:         make(map[string]namedRamp),
	}

	for _, r := range cfg.ConfigRamps {
		if err := checkCustomName(r.Name()); err != nil {
			encoder.Close()
			return nil, err
		}
		s.custom[r.Name()] = namedRamp{ramp: r, source: SourceConfig}
	}

	if s.store != nil {
		records, err := s.store.List()
		if err != nil {
			encoder.Close()
			return nil, fmt.Errorf("failed to load custom ramps: %w", err)
		}
		for _, rec := range records {
			name := rec.Ramp.Name()
			if prev, ok := s.custom[name]; ok && prev.source == SourceConfig {
				log.Printf("[PaletteService] stored ramp %q is shadowed by the configured one", name)
				continue
			}
			s.custom[name] = namedRamp{ramp: rec.Ramp, source: SourceCustom}
		}
		log.Printf("[PaletteService] loaded %d custom ramps", len(records))
	}

	return s, nil
}

// White returns the default reference white.
func (s *PaletteService) White() colormap.WhitePoint {
	return s.white
}

// DefaultSamples returns the sample count used when a request leaves N unset.
func (s *PaletteService) DefaultSamples() int {
	return s.defaultSamples
}

// Resolve finds a built-in or custom ramp by name.
func (s *PaletteService) Resolve(name string) (*colormap.Ramp, error) {
	r, _, err := s.resolve(name)
	return r, err
}

func (s *PaletteService) resolve(name string) (*colormap.Ramp, string, error) {
	if id, err := colormap.ParseRampID(name); err == nil {
		r, err := colormap.Lookup(id)
		return r, SourceBuiltin, err
	}

	s.mu.RLock()
	nr, ok := s.custom[name]
	s.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", colormap.ErrUnknownRamp, name)
	}
	return nr.ramp, nr.source, nil
}

// Ramps lists built-in ramps in catalog order followed by custom ramps by name.
func (s *PaletteService) Ramps() []RampInfo {
	ids := colormap.Ramps()
	infos := make([]RampInfo, 0, len(ids))
	for _, id := range ids {
		r, err := colormap.Lookup(id)
		if err != nil {
			continue
		}
		infos = append(infos, rampInfo(r, SourceBuiltin))
	}

	s.mu.RLock()
	custom := make([]RampInfo, 0, len(s.custom))
	for _, nr := range s.custom {
		custom = append(custom, rampInfo(nr.ramp, nr.source))
	}
	s.mu.RUnlock()

	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
	return append(infos, custom...)
}

// Info describes a single ramp. Stored custom ramps also report their timestamps.
func (s *PaletteService) Info(name string) (RampInfo, error) {
	r, source, err := s.resolve(name)
	if err != nil {
		return RampInfo{}, err
	}
	info := rampInfo(r, source)
	if source != SourceCustom || s.store == nil {
		return info, nil
	}

	rec, err := s.store.Get(r.Name())
	if err != nil {
		return RampInfo{}, fmt.Errorf("failed to load ramp %q: %w", name, err)
	}
	if rec != nil {
		info.CreatedAt = &rec.CreatedAt
		info.UpdatedAt = &rec.UpdatedAt
	}
	return info, nil
}

func rampInfo(r *colormap.Ramp, source string) RampInfo {
	return RampInfo{
		Name:    r.Name(),
		Mode:    r.Mode().String(),
		Anchors: r.Anchors(),
		Builtin: source == SourceBuiltin,
		Source:  source,
	}
}

// Normalize fills request defaults.
func (s *PaletteService) Normalize(req PaletteRequest) PaletteRequest {
	if req.N == 0 {
		req.N = s.defaultSamples
	}
	if req.Multi <= 0 {
		req.Multi = 1
	}
	return req
}

// Palette returns the colors for req, generating them on a cache miss.
func (s *PaletteService) Palette(req PaletteRequest) (colormap.Palette, error) {
	req = s.Normalize(req)
	r, err := s.Resolve(req.Ramp)
	if err != nil {
		return nil, err
	}

	key := cache.PaletteKey(cache.RampKey(r), req.N, req.Multi, req.White)
	if data, ok := s.cache.GetPalette(key); ok {
		return colormap.PaletteFromBytes(data), nil
	}

	g := colormap.Generator{White: req.White}
	var colors []colormap.RGB8
	if req.Multi == 1 {
		colors, err = g.Sample(r, req.N)
	} else {
		colors, err = g.SampleMulti(r, req.N, req.Multi)
	}
	if err != nil {
		return nil, fmt.Errorf("ramp %s: %w", r.Name(), err)
	}

	p := colormap.Palette(colors)
	s.cache.SetPalette(key, p.Bytes())
	return p, nil
}

// Export returns the palette packed as 3*n bytes, zstd-compressed when encoding is "zstd".
// An empty encoding or "raw" returns the bytes as they are.
func (s *PaletteService) Export(req PaletteRequest, encoding string) ([]byte, error) {
	encoding = strings.ToLower(encoding)
	if encoding != "" && encoding != "raw" && encoding != "zstd" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}

	p, err := s.Palette(req)
	if err != nil {
		return nil, err
	}
	data := p.Bytes()
	if encoding == "zstd" {
		return s.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
	}
	return data, nil
}

// Swatch renders the palette for req as a PNG strip.
func (s *PaletteService) Swatch(req PaletteRequest, width, height int) ([]byte, error) {
	return s.renderCached("swatch", req, width, height, s.renderer.RenderSwatch)
}

// Preview renders a value gradient as an indexed PNG whose color table is the palette.
func (s *PaletteService) Preview(req PaletteRequest, width, height int) ([]byte, error) {
	if req.N == 0 {
		req.N = min(s.defaultSamples, render.MaxPreviewColors)
	}
	if req.N > render.MaxPreviewColors {
		return nil, fmt.Errorf("%w: %d colors", render.ErrPaletteTooLarge, req.N)
	}
	return s.renderCached("preview", req, width, height, s.renderer.RenderPreview)
}

func (s *PaletteService) renderCached(kind string, req PaletteRequest, width, height int,
	draw func(colormap.Palette, int, int) ([]byte, error)) ([]byte, error) {
	req = s.Normalize(req)
	r, err := s.Resolve(req.Ramp)
	if err != nil {
		return nil, err
	}

	if width <= 0 || height <= 0 {
		dw, dh := s.renderer.Size()
		if width <= 0 {
			width = dw
		}
		if height <= 0 {
			height = dh
		}
	}

	key := cache.SwatchKey(kind, cache.RampKey(r), req.N, width, height, req.White)
	if req.Multi > 1 {
		key = fmt.Sprintf("%s:m%d", key, req.Multi)
	}
	if data, ok := s.cache.GetSwatch(key); ok {
		return data, nil
	}

	p, err := s.Palette(req)
	if err != nil {
		return nil, err
	}
	data, err := draw(p, width, height)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSwatch(key, data); err != nil {
		log.Printf("[PaletteService] failed to cache %s %s: %v", kind, key, err)
	}
	return data, nil
}

// SaveCustom validates and stores a user-defined ramp, replacing an earlier custom ramp
// of the same name. It reports whether the ramp is new.
func (s *PaletteService) SaveCustom(name string, anchors []colormap.Anchor) (RampInfo, bool, error) {
	if err := checkCustomName(name); err != nil {
		return RampInfo{}, false, err
	}
	r, err := colormap.NewRamp(name, anchors)
	if err != nil {
		return RampInfo{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.custom[name]
	if exists && prev.source != SourceCustom {
		return RampInfo{}, false, fmt.Errorf("%w: %q", ErrReadOnlyRamp, name)
	}
	if s.store != nil {
		if _, err := s.store.Save(r); err != nil {
			return RampInfo{}, false, fmt.Errorf("failed to store ramp %q: %w", name, err)
		}
	}
	s.custom[name] = namedRamp{ramp: r, source: SourceCustom}

	log.Printf("[PaletteService] saved custom ramp %q (%d anchors)", name, len(anchors))
	return rampInfo(r, SourceCustom), !exists, nil
}

// DeleteCustom removes a user-defined ramp.
func (s *PaletteService) DeleteCustom(name string) error {
	if _, err := colormap.ParseRampID(name); err == nil {
		return fmt.Errorf("%w: %q", ErrReadOnlyRamp, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nr, ok := s.custom[name]
	if !ok {
		return fmt.Errorf("%w: %q", colormap.ErrUnknownRamp, name)
	}
	if nr.source != SourceCustom {
		return fmt.Errorf("%w: %q", ErrReadOnlyRamp, name)
	}
	if s.store != nil {
		if _, err := s.store.Delete(name); err != nil {
			return fmt.Errorf("failed to delete ramp %q: %w", name, err)
		}
	}
	delete(s.custom, name)

	log.Printf("[PaletteService] deleted custom ramp %q", name)
	return nil
}

// Close releases the encoder and the ramp store.
func (s *PaletteService) Close() error {
	s.encoder.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// checkCustomName rejects names that collide with built-in ramps or do not fit in a URL path segment.
func checkCustomName(name string) error {
	if name == "" || len(name) > maxRampNameLen {
		return fmt.Errorf("%w: name must be 1-%d characters", colormap.ErrInvalidRamp, maxRampNameLen)
	}
	for _, c := range name {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.'
		if !ok {
			return fmt.Errorf("%w: name %q may only contain letters, digits, '-', '_' and '.'", colormap.ErrInvalidRamp, name)
		}
	}
	if _, err := colormap.ParseRampID(name); err == nil {
		return fmt.Errorf("%w: %q", ErrReadOnlyRamp, name)
	}
	return nil
}
