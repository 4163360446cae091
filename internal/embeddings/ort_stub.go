//go:build !onnx

package embeddings

import "github.com/gss-opera-matcher/internal/config"

func ortLoader(config.Capabilities) (Loader, bool) {
	return nil, false
}
