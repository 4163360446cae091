package embeddings

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gss-opera-matcher/internal/config"
)

func TestHandleLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func(context.Context) (Embedder, error) {
		calls.Add(1)
		return NewSimpleEmbedder(32), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Embedder(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, h.Loads())
}

func TestHandleCachesFailure(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func(context.Context) (Embedder, error) {
		calls.Add(1)
		return nil, errors.New("no model on disk")
	})

	for i := 0; i < 3; i++ {
		_, err := h.Embedder(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestNilHandle(t *testing.T) {
	var h *Handle
	_, err := h.Embedder(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.NoError(t, h.Close())
}

func TestDefaultLoaderDisabled(t *testing.T) {
	h := NewHandle(DefaultLoader(config.Capabilities{Semantic: false}))
	_, err := h.Embedder(context.Background())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestDefaultLoaderFallsBackToSimple(t *testing.T) {
	h := NewHandle(DefaultLoader(config.Capabilities{Semantic: true}))
	model, err := h.Embedder(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &SimpleEmbedder{}, model)
}

func TestSimpleEmbedderSimilarity(t *testing.T) {
	ctx := context.Background()
	se := NewSimpleEmbedder(DefaultDimensions)

	a, err := se.Embed(ctx, "catherine")
	require.NoError(t, err)
	b, err := se.Embed(ctx, "katherine")
	require.NoError(t, err)
	c, err := se.Embed(ctx, "zbigniew")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-6)
	assert.Greater(t, Cosine(a, b), Cosine(a, c))
}

func TestSimpleEmbedderEmptyText(t *testing.T) {
	v, err := NewSimpleEmbedder(8).Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
	assert.True(t, math.IsNaN(Cosine(v, v)))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-9)
	assert.True(t, math.IsNaN(Cosine([]float32{1}, []float32{1, 2})))
	assert.True(t, math.IsNaN(Cosine(nil, nil)))
}
