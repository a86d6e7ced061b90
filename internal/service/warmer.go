package service

import (
	"log"
	"sync"
	"time"

	"github.com/colorramp/server/pkg/colormap"
)

// PaletteSource is anything that can produce (and thereby cache) a palette.
type PaletteSource interface {
	Palette(req PaletteRequest) (colormap.Palette, error)
}

// WarmerConfig contains configuration for the cache warmer.
type WarmerConfig struct {
	Workers int      // Concurrent generators (default 1)
	Ramps   []string // Ramp names; empty means every built-in ramp
	Samples []int    // Sample counts generated per ramp
	White   colormap.WhitePoint
}

// WarmResult summarizes a finished warm-up.
type WarmResult struct {
	Warmed  int
	Failed  int
	Elapsed time.Duration
}

// Warmer pre-generates configured palettes with a pool of workers.
type Warmer struct {
	cfg    WarmerConfig
	source PaletteSource
	queue  chan PaletteRequest
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      sync.Mutex
	result  WarmResult
	started time.Time
}

// NewWarmer creates a warmer feeding source.
func NewWarmer(cfg WarmerConfig, source PaletteSource) *Warmer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if len(cfg.Ramps) == 0 {
		for _, id := range colormap.Ramps() {
			cfg.Ramps = append(cfg.Ramps, id.String())
		}
	}

	return &Warmer{
		cfg:    cfg,
		source: source,
		queue:  make(chan PaletteRequest, len(cfg.Ramps)*len(cfg.Samples)),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start enqueues every (ramp, samples) pair and starts the workers. It does not block.
func (w *Warmer) Start() {
	w.startOnce.Do(func() {
		w.mu.Lock()
		w.started = time.Now()
		w.mu.Unlock()
		for _, name := range w.cfg.Ramps {
			for _, n := range w.cfg.Samples {
				w.queue <- PaletteRequest{Ramp: name, N: n, White: w.cfg.White}
			}
		}
		close(w.queue)

		for i := 0; i < w.cfg.Workers; i++ {
			w.wg.Add(1)
			go w.worker()
		}

		go func() {
			w.wg.Wait()
			w.mu.Lock()
			w.result.Elapsed = time.Since(w.started)
			res := w.result
			w.mu.Unlock()
			log.Printf("[Warmer] warmed %d palettes (%d failed) in %v", res.Warmed, res.Failed, res.Elapsed)
			close(w.doneCh)
		}()
	})
}

// Wait blocks until all workers have finished and returns the summary.
// It returns an empty result at once when the warmer was never started.
func (w *Warmer) Wait() WarmResult {
	w.mu.Lock()
	idle := w.started.IsZero()
	w.mu.Unlock()
	if idle {
		select {
		case <-w.doneCh:
		default:
			return WarmResult{}
		}
	}

	<-w.doneCh
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Stop makes workers skip the remaining queue and waits for them to exit.
func (w *Warmer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	w.startOnce.Do(func() {
		close(w.queue)
		close(w.doneCh)
	})
	<-w.doneCh
}

func (w *Warmer) worker() {
	defer w.wg.Done()
	for req := range w.queue {
		select {
		case <-w.stopCh:
			return
		default:
		}

		_, err := w.source.Palette(req)

		w.mu.Lock()
		if err != nil {
			w.result.Failed++
		} else {
			w.result.Warmed++
		}
		w.mu.Unlock()

		if err != nil {
			log.Printf("[Warmer] %s n=%d: %v", req.Ramp, req.N, err)
		}
	}
}
