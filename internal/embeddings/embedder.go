package embeddings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gss-opera-matcher/internal/debug"
)

// ErrModelUnavailable is returned when no embedding model could be loaded.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Loader constructs an Embedder. It is called at most once per Handle.
type Loader func(ctx context.Context) (Embedder, error)

// Handle lazily loads a shared embedding model. Concurrent first callers
// share a single load; the outcome, success or failure, is kept for the
// life of the handle.
type Handle struct {
	load  Loader
	group singleflight.Group

	mu     sync.RWMutex
	done   bool
	model  Embedder
	err    error
	loaded int
}

// NewHandle returns a handle that will call load on first use.
func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

// Embedder returns the loaded model, loading it if needed.
func (h *Handle) Embedder(ctx context.Context) (Embedder, error) {
	if h == nil || h.load == nil {
		return nil, ErrModelUnavailable
	}

	h.mu.RLock()
	if h.done {
		model, err := h.model, h.err
		h.mu.RUnlock()
		return model, err
	}
	h.mu.RUnlock()

	v, err, _ := h.group.Do("model", func() (any, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.done {
			return h.model, h.err
		}

		model, err := h.load(ctx)
		if err == nil && model == nil {
			err = ErrModelUnavailable
		}
		if err != nil {
			debug.Logger().Warn("semantic model failed to load, falling back to string similarity", zap.Error(err))
			err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		h.model, h.err, h.done = model, err, true
		h.loaded++
		return model, err
	})
	if err != nil {
		return nil, err
	}
	return v.(Embedder), nil
}

// Loads reports how many times the loader ran.
func (h *Handle) Loads() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}

// Close releases the model if it holds resources.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Cosine returns the cosine similarity of two vectors, or NaN when either
// is empty, zero or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.NaN()
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
