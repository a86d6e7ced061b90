// Package cache provides caching for generated palettes and rendered swatches.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/colorramp/server/pkg/colormap"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	PaletteEntries int
	SwatchSizeMB   int
	SwatchTTL      time.Duration
}

// Manager manages palette and swatch caches.
type Manager struct {
	swatchCache  *bigcache.BigCache
	paletteCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Configure swatch cache
	swatchCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.SwatchTTL,
		CleanWindow:        cfg.SwatchTTL / 2,
		MaxEntriesInWindow: 4096,
		MaxEntrySize:       64 * 1024, // 64KB per swatch
		HardMaxCacheSize:   cfg.SwatchSizeMB,
		Verbose:            false,
	}

	swatchCache, err := bigcache.New(context.Background(), swatchCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create swatch cache: %w", err)
	}

	// Create palette cache
	paletteCache, err := lru.New[string, []byte](cfg.PaletteEntries)
	if err != nil {
		swatchCache.Close()
		return nil, fmt.Errorf("failed to create palette cache: %w", err)
	}

	return &Manager{
		swatchCache:  swatchCache,
		paletteCache: paletteCache,
	}, nil
}

// GetSwatch retrieves a rendered swatch from cache.
func (m *Manager) GetSwatch(key string) ([]byte, bool) {
	data, err := m.swatchCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetSwatch stores a rendered swatch in cache.
func (m *Manager) SetSwatch(key string, data []byte) error {
	return m.swatchCache.Set(key, data)
}

// GetPalette retrieves packed RGB bytes from cache.
func (m *Manager) GetPalette(key string) ([]byte, bool) {
	return m.paletteCache.Get(key)
}

// SetPalette stores packed RGB bytes in cache.
func (m *Manager) SetPalette(key string, data []byte) {
	m.paletteCache.Add(key, data)
}

// RampKey identifies a ramp by name and anchor content, so a custom ramp
// redefined under the same name never hits entries of its predecessor.
func RampKey(r *colormap.Ramp) string {
	h := sha256.New()
	var buf [8]byte
	for _, a := range r.Anchors() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(a.Position))
		h.Write(buf[:])
		h.Write([]byte{byte(a.Mode), a.Color.R, a.Color.G, a.Color.B})
	}
	return r.Name() + "@" + hex.EncodeToString(h.Sum(nil))[:16]
}

// PaletteKey generates a cache key for a generated palette.
func PaletteKey(rampKey string, n, multi int, white colormap.WhitePoint) string {
	return fmt.Sprintf("pal:%s:%d:%d:%s", rampKey, n, multi, white)
}

// SwatchKey generates a cache key for a rendered image.
func SwatchKey(kind, rampKey string, n, width, height int, white colormap.WhitePoint) string {
	return fmt.Sprintf("%s:%s:%d:%dx%d:%s", kind, rampKey, n, width, height, white)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	stats := m.swatchCache.Stats()
	return map[string]interface{}{
		"swatch_cache_len":    m.swatchCache.Len(),
		"swatch_cache_cap":    m.swatchCache.Capacity(),
		"swatch_cache_hits":   stats.Hits,
		"swatch_cache_misses": stats.Misses,
		"palette_cache_len":   m.paletteCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.swatchCache.Close()
}
