// Package render provides palette swatch rendering using fogleman/gg.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/colorramp/server/pkg/colormap"
	"github.com/fogleman/gg"
)

// MaxPreviewColors is the largest palette an indexed PNG can carry.
const MaxPreviewColors = 256

// ErrPaletteTooLarge is returned when a preview needs more than MaxPreviewColors entries.
var ErrPaletteTooLarge = errors.New("palette too large for indexed image")

// Config contains renderer configuration.
type Config struct {
	Width  int
	Height int
}

// SwatchRenderer renders palettes to PNG.
type SwatchRenderer struct {
	config      Config
	contextPool sync.Pool
	bufferPool  sync.Pool
}

// NewSwatchRenderer creates a new swatch renderer.
func NewSwatchRenderer(cfg Config) *SwatchRenderer {
	if cfg.Width <= 0 {
		cfg.Width = 256
	}
	if cfg.Height <= 0 {
		cfg.Height = 32
	}
	return &SwatchRenderer{
		config: cfg,
		contextPool: sync.Pool{
			New: func() interface{} {
				return gg.NewContext(cfg.Width, cfg.Height)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 16*1024))
			},
		},
	}
}

// Size returns the default swatch dimensions.
func (r *SwatchRenderer) Size() (width, height int) {
	return r.config.Width, r.config.Height
}

// RenderSwatch draws the palette as equal-width vertical bands, first color on the left.
// Zero width or height selects the configured size.
func (r *SwatchRenderer) RenderSwatch(p colormap.Palette, width, height int) ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New("empty palette")
	}
	width, height = r.resolve(width, height)

	// Only contexts of the default size are pooled.
	var dc *gg.Context
	if width == r.config.Width && height == r.config.Height {
		dc = r.contextPool.Get().(*gg.Context)
		defer r.contextPool.Put(dc)
	} else {
		dc = gg.NewContext(width, height)
	}

	dc.SetColor(color.White)
	dc.Clear()

	n := len(p)
	h := float64(height)
	for i, c := range p {
		x0 := i * width / n
		x1 := (i + 1) * width / n
		if x1 == x0 {
			continue
		}
		dc.SetColor(c)
		dc.DrawRectangle(float64(x0), 0, float64(x1-x0), h)
		dc.Fill()
	}

	return r.encode(dc.Image())
}

// RenderPreview renders a left-to-right value ramp as an indexed image whose
// color table is the palette itself.
func (r *SwatchRenderer) RenderPreview(p colormap.Palette, width, height int) ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New("empty palette")
	}
	if len(p) > MaxPreviewColors {
		return nil, fmt.Errorf("%w: %d colors", ErrPaletteTooLarge, len(p))
	}
	width, height = r.resolve(width, height)

	img := image.NewPaletted(image.Rect(0, 0, width, height), p.ColorPalette())
	last := len(p) - 1
	row := img.Pix[:width]
	for x := range row {
		idx := 0
		if width > 1 {
			idx = (x*last + (width-1)/2) / (width - 1)
		}
		row[x] = uint8(idx)
	}
	for y := 1; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width], row)
	}

	return r.encode(img)
}

func (r *SwatchRenderer) resolve(width, height int) (int, int) {
	if width <= 0 {
		width = r.config.Width
	}
	if height <= 0 {
		height = r.config.Height
	}
	return width, height
}

func (r *SwatchRenderer) encode(img image.Image) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
