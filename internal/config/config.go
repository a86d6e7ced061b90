// Package config handles configuration loading for the palette server.
package config

import (
	"fmt"
	"os"

	"github.com/colorramp/server/pkg/colormap"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
	Store  StoreConfig  `yaml:"store"`
	Warm   WarmConfig   `yaml:"warm"`
	Ramps  []RampConfig `yaml:"ramps"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PaletteEntries   int `yaml:"palette_entries"`
	SwatchSizeMB     int `yaml:"swatch_size_mb"`
	SwatchTTLMinutes int `yaml:"swatch_ttl_minutes"`
}

// RenderConfig contains palette and swatch defaults.
type RenderConfig struct {
	SwatchWidth    int    `yaml:"swatch_width"`
	SwatchHeight   int    `yaml:"swatch_height"`
	DefaultRamp    string `yaml:"default_ramp"`
	DefaultSamples int    `yaml:"default_samples"`
	WhitePoint     string `yaml:"white_point"`
}

// StoreConfig contains custom ramp persistence settings.
// An empty SQLitePath keeps custom ramps in memory only.
type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// WarmConfig lists palettes generated at startup.
type WarmConfig struct {
	Workers int      `yaml:"workers"`
	Samples []int    `yaml:"samples"`
	Ramps   []string `yaml:"ramps"`
}

// RampConfig declares a custom ramp inline.
type RampConfig struct {
	Name    string         `yaml:"name"`
	Anchors []AnchorConfig `yaml:"anchors"`
}

// AnchorConfig is one control point of a RampConfig.
type AnchorConfig struct {
	Position float64  `yaml:"position"`
	Mode     string   `yaml:"mode"`
	Color    [3]uint8 `yaml:"color"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "Color Ramps",
		},
		Cache: CacheConfig{
			PaletteEntries:   1024,
			SwatchSizeMB:     64,
			SwatchTTLMinutes: 10,
		},
		Render: RenderConfig{
			SwatchWidth:    256,
			SwatchHeight:   32,
			DefaultRamp:    colormap.GrayScale.String(),
			DefaultSamples: 256,
			WhitePoint:     colormap.D65.String(),
		},
		Store: StoreConfig{
			SQLitePath: "./data/ramps.sqlite",
		},
		Warm: WarmConfig{
			Workers: 2,
			Samples: []int{256},
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Cache.PaletteEntries == 0 {
		cfg.Cache.PaletteEntries = defaults.Cache.PaletteEntries
	}
	if cfg.Cache.SwatchSizeMB == 0 {
		cfg.Cache.SwatchSizeMB = defaults.Cache.SwatchSizeMB
	}
	if cfg.Cache.SwatchTTLMinutes == 0 {
		cfg.Cache.SwatchTTLMinutes = defaults.Cache.SwatchTTLMinutes
	}
	if cfg.Render.SwatchWidth == 0 {
		cfg.Render.SwatchWidth = defaults.Render.SwatchWidth
	}
	if cfg.Render.SwatchHeight == 0 {
		cfg.Render.SwatchHeight = defaults.Render.SwatchHeight
	}
	if cfg.Render.DefaultRamp == "" {
		cfg.Render.DefaultRamp = defaults.Render.DefaultRamp
	}
	if cfg.Render.DefaultSamples == 0 {
		cfg.Render.DefaultSamples = defaults.Render.DefaultSamples
	}
	if cfg.Render.WhitePoint == "" {
		cfg.Render.WhitePoint = defaults.Render.WhitePoint
	}
	if cfg.Warm.Workers == 0 {
		cfg.Warm.Workers = defaults.Warm.Workers
	}
	if len(cfg.Warm.Samples) == 0 {
		cfg.Warm.Samples = defaults.Warm.Samples
	}
}

func (cfg *Config) validate() error {
	if _, err := colormap.ParseWhitePoint(cfg.Render.WhitePoint); err != nil {
		return fmt.Errorf("render.white_point: %w", err)
	}
	if cfg.Render.DefaultSamples < 2 {
		return fmt.Errorf("render.default_samples: %w: %d", colormap.ErrInvalidSampleCount, cfg.Render.DefaultSamples)
	}
	for _, n := range cfg.Warm.Samples {
		if n < 2 {
			return fmt.Errorf("warm.samples: %w: %d", colormap.ErrInvalidSampleCount, n)
		}
	}
	if _, err := cfg.CustomRamps(); err != nil {
		return err
	}
	return nil
}

// CustomRamps converts and validates the inline ramp declarations.
func (cfg *Config) CustomRamps() ([]*colormap.Ramp, error) {
	ramps := make([]*colormap.Ramp, 0, len(cfg.Ramps))
	seen := make(map[string]bool, len(cfg.Ramps))
	for i, rc := range cfg.Ramps {
		if rc.Name == "" {
			return nil, fmt.Errorf("ramps[%d]: %w: missing name", i, colormap.ErrInvalidRamp)
		}
		if seen[rc.Name] {
			return nil, fmt.Errorf("ramps[%d]: %w: duplicate name %q", i, colormap.ErrInvalidRamp, rc.Name)
		}
		seen[rc.Name] = true

		anchors := make([]colormap.Anchor, len(rc.Anchors))
		for j, ac := range rc.Anchors {
			mode := colormap.Linear
			if ac.Mode != "" {
				m, err := colormap.ParseMode(ac.Mode)
				if err != nil {
					return nil, fmt.Errorf("ramps[%d] anchor %d: %w", i, j, err)
				}
				mode = m
			}
			anchors[j] = colormap.Anchor{
				Position: ac.Position,
				Mode:     mode,
				Color:    colormap.RGB8{R: ac.Color[0], G: ac.Color[1], B: ac.Color[2]},
			}
		}
		r, err := colormap.NewRamp(rc.Name, anchors)
		if err != nil {
			return nil, fmt.Errorf("ramps[%d]: %w", i, err)
		}
		ramps = append(ramps, r)
	}
	return ramps, nil
}
