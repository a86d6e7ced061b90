package api

import (
	"github.com/colorramp/server/internal/service"
)

// RampRegistry exposes the palette service together with listing defaults.
type RampRegistry struct {
	palettes    *service.PaletteService
	defaultRamp string
	title       string
}

// NewRampRegistry creates a new ramp registry.
func NewRampRegistry(palettes *service.PaletteService, defaultRamp, title string) *RampRegistry {
	return &RampRegistry{
		palettes:    palettes,
		defaultRamp: defaultRamp,
		title:       title,
	}
}

// Service returns the palette service.
func (r *RampRegistry) Service() *service.PaletteService {
	return r.palettes
}

// DefaultRamp returns the ramp name clients should preselect.
func (r *RampRegistry) DefaultRamp() string {
	return r.defaultRamp
}

// Title returns the configured site title.
func (r *RampRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "Color Ramps"
}

// Ramps returns info for all built-in and custom ramps.
func (r *RampRegistry) Ramps() []service.RampInfo {
	return r.palettes.Ramps()
}
