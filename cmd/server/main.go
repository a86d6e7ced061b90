// Package main is the entry point for the palette server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colorramp/server/internal/api"
	"github.com/colorramp/server/internal/cache"
	"github.com/colorramp/server/internal/config"
	"github.com/colorramp/server/internal/rampstore"
	"github.com/colorramp/server/internal/render"
	"github.com/colorramp/server/internal/service"
	"github.com/colorramp/server/pkg/colormap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting palette server on port %d", cfg.Server.Port)

	ctx := context.Background()

	white, err := colormap.ParseWhitePoint(cfg.Render.WhitePoint)
	if err != nil {
		log.Fatalf("Invalid white point: %v", err)
	}
	configRamps, err := cfg.CustomRamps()
	if err != nil {
		log.Fatalf("Invalid custom ramps: %v", err)
	}

	// Initialize cache manager
	cacheManager, err := cache.NewManager(cache.Config{
		PaletteEntries: cfg.Cache.PaletteEntries,
		SwatchSizeMB:   cfg.Cache.SwatchSizeMB,
		SwatchTTL:      time.Duration(cfg.Cache.SwatchTTLMinutes) * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Initialize swatch renderer
	swatchRenderer := render.NewSwatchRenderer(render.Config{
		Width:  cfg.Render.SwatchWidth,
		Height: cfg.Render.SwatchHeight,
	})

	// Open custom ramp store (SQLite persistence)
	var store *rampstore.Store
	if cfg.Store.SQLitePath != "" {
		store, err = rampstore.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open ramp store: %v", err)
		}
		log.Printf("[RampStore] sqlite=%s", cfg.Store.SQLitePath)
	} else {
		log.Printf("[RampStore] disabled, custom ramps are kept in memory")
	}

	paletteService, err := service.NewPaletteService(service.PaletteServiceConfig{
		Cache:          cacheManager,
		Renderer:       swatchRenderer,
		Store:          store,
		ConfigRamps:    configRamps,
		White:          white,
		DefaultSamples: cfg.Render.DefaultSamples,
	})
	if err != nil {
		log.Fatalf("Failed to initialize palette service: %v", err)
	}
	defer paletteService.Close()

	if _, err := paletteService.Resolve(cfg.Render.DefaultRamp); err != nil {
		log.Fatalf("Invalid default ramp: %v", err)
	}

	log.Printf("Serving %d ramps (%d configured), default: %s, white: %s",
		len(paletteService.Ramps()), len(configRamps), cfg.Render.DefaultRamp, white)

	// Pre-generate configured palettes in the background
	warmer := service.NewWarmer(service.WarmerConfig{
		Workers: cfg.Warm.Workers,
		Ramps:   cfg.Warm.Ramps,
		Samples: cfg.Warm.Samples,
		White:   white,
	}, paletteService)
	warmer.Start()
	defer warmer.Stop()

	registry := api.NewRampRegistry(paletteService, cfg.Render.DefaultRamp, cfg.Server.Title)

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		Cache:       cacheManager,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
