package embeddings

import (
	"context"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/debug"
)

// DefaultLoader picks the model for the configured capabilities. An ONNX
// model is used when the binary was built with it and paths are set;
// otherwise the built-in n-gram embedder is used. When semantic matching
// is disabled the loader always fails.
func DefaultLoader(caps config.Capabilities) Loader {
	if !caps.Semantic {
		return func(context.Context) (Embedder, error) {
			return nil, ErrModelUnavailable
		}
	}
	if load, ok := ortLoader(caps); ok {
		return load
	}
	return func(context.Context) (Embedder, error) {
		debug.Logger().Info("using built-in n-gram embedder")
		return NewSimpleEmbedder(DefaultDimensions), nil
	}
}
