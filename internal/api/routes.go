// Package api provides HTTP handlers for the palette server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/colorramp/server/internal/cache"
	"github.com/colorramp/server/internal/render"
	"github.com/colorramp/server/internal/service"
	"github.com/colorramp/server/pkg/colormap"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	maxSamples       = 65536
	maxImageSide     = 4096
	maxCustomBodyLen = 1 << 20
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *RampRegistry
	Cache       *cache.Manager
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/ramps", rampsHandler(cfg.Registry))
	r.Get("/api/cache/stats", cacheStatsHandler(cfg.Cache))

	// Ramp-scoped routes: /api/ramps/{ramp}/...
	r.Route("/api/ramps/{ramp}", func(r chi.Router) {
		r.Use(rampMiddleware(cfg.Registry))

		r.Get("/", rampInfoHandler(cfg.Registry))
		r.Get("/colors", colorsHandler(cfg.Registry))
		r.Get("/palette.bin", paletteExportHandler(cfg.Registry))
		r.Get("/swatch.png", swatchHandler(cfg.Registry))
		r.Get("/preview.png", previewHandler(cfg.Registry))
	})

	// User-defined ramps
	r.Route("/api/custom", func(r chi.Router) {
		r.Post("/", customSaveHandler(cfg.Registry))
		r.Delete("/{ramp}", customDeleteHandler(cfg.Registry))
	})

	return r
}

// Context key for the resolved ramp name
type ctxKey string

const rampNameKey ctxKey = "rampName"

// rampMiddleware resolves the ramp from the URL and injects its canonical name into context.
func rampMiddleware(registry *RampRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "ramp")
			ramp, err := registry.Service().Resolve(name)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), rampNameKey, ramp.Name())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getRampName(r *http.Request) string {
	if name, ok := r.Context().Value(rampNameKey).(string); ok {
		return name
	}
	return chi.URLParam(r, "ramp")
}

// writeError maps service and colormap errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, colormap.ErrUnknownRamp):
		status = http.StatusNotFound
	case errors.Is(err, colormap.ErrInvalidSampleCount),
		errors.Is(err, colormap.ErrInvalidRamp),
		errors.Is(err, render.ErrPaletteTooLarge),
		errors.Is(err, service.ErrUnsupportedEncoding):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrReadOnlyRamp):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// rampsHandler returns the list of available ramps.
func rampsHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"default": registry.DefaultRamp(),
			"ramps":   registry.Ramps(),
			"title":   registry.Title(),
		})
	}
}

func rampInfoHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := registry.Service().Info(getRampName(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func colorsHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Service()
		req, err := parsePaletteRequest(r.URL.Query(), getRampName(r), svc.White())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := svc.Palette(req)
		if err != nil {
			writeError(w, err)
			return
		}

		req = svc.Normalize(req)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ramp":   req.Ramp,
			"n":      req.N,
			"multi":  req.Multi,
			"white":  req.White.String(),
			"colors": p,
		})
	}
}

func paletteExportHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Service()
		query := r.URL.Query()
		req, err := parsePaletteRequest(query, getRampName(r), svc.White())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		encoding := strings.ToLower(strings.TrimSpace(query.Get("encoding")))

		data, err := svc.Export(req, encoding)
		if err != nil {
			writeError(w, err)
			return
		}

		req = svc.Normalize(req)
		filename := fmt.Sprintf("%s-%d.bin", req.Ramp, req.N)
		contentType := "application/octet-stream"
		if encoding == "zstd" {
			filename += ".zst"
			contentType = "application/zstd"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

func swatchHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Service()
		query := r.URL.Query()
		req, err := parsePaletteRequest(query, getRampName(r), svc.White())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		width, height, err := parseImageSize(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.Swatch(req, width, height)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

func previewHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Service()
		query := r.URL.Query()
		req, err := parsePaletteRequest(query, getRampName(r), svc.White())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		width, height, err := parseImageSize(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.Preview(req, width, height)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

type customRampRequest struct {
	Name    string            `json:"name"`
	Anchors []colormap.Anchor `json:"anchors"`
}

func customSaveHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req customRampRequest
		body := http.MaxBytesReader(w, r.Body, maxCustomBodyLen)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)

		info, created, err := registry.Service().SaveCustom(req.Name, req.Anchors)
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, info)
	}
}

func customDeleteHandler(registry *RampRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Service().DeleteCustom(chi.URLParam(r, "ramp")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func cacheStatsHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cm == nil {
			http.Error(w, "cache not configured", http.StatusNotImplemented)
			return
		}
		writeJSON(w, http.StatusOK, cm.Stats())
	}
}

// parsePaletteRequest reads n, multi and white from the query string.
// Absent values are left zero so the service applies its defaults.
func parsePaletteRequest(query url.Values, ramp string, white colormap.WhitePoint) (service.PaletteRequest, error) {
	req := service.PaletteRequest{Ramp: ramp, White: white}

	n, err := parseOptionalInt(query, "n", 2, maxSamples)
	if err != nil {
		return req, err
	}
	req.N = n

	multi, err := parseOptionalInt(query, "multi", 1, maxSamples/2)
	if err != nil {
		return req, err
	}
	req.Multi = multi

	if s := strings.TrimSpace(query.Get("white")); s != "" {
		wp, err := colormap.ParseWhitePoint(s)
		if err != nil {
			return req, err
		}
		req.White = wp
	}
	return req, nil
}

func parseImageSize(query url.Values) (int, int, error) {
	width, err := parseOptionalInt(query, "width", 1, maxImageSide)
	if err != nil {
		return 0, 0, err
	}
	height, err := parseOptionalInt(query, "height", 1, maxImageSide)
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// parseOptionalInt returns 0 when the parameter is absent.
func parseOptionalInt(query url.Values, name string, lo, hi int) (int, error) {
	s := strings.TrimSpace(query.Get(name))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: %d (must be between %d and %d)", name, v, lo, hi)
	}
	return v, nil
}
