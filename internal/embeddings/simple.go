package embeddings

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
	"strings"
)

// DefaultDimensions is the vector width of the built-in embedder.
const DefaultDimensions = 256

// SimpleEmbedder creates embeddings from hashed character n-grams. It needs
// no model files, so it is the fallback when no ONNX model is configured.
type SimpleEmbedder struct {
	dimensions int
	minGram    int
	maxGram    int
}

// NewSimpleEmbedder creates a simple embedder
func NewSimpleEmbedder(dimensions int) *SimpleEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &SimpleEmbedder{dimensions: dimensions, minGram: 2, maxGram: 3}
}

// Embed creates a unit-length vector for text. Each padded n-gram is hashed
// to a bucket and a sign, so texts sharing many n-grams point the same way.
func (se *SimpleEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, se.dimensions)

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return vector, nil
	}

	for _, token := range strings.Fields(text) {
		padded := []rune(" " + token + " ")
		for n := se.minGram; n <= se.maxGram; n++ {
			for i := 0; i+n <= len(padded); i++ {
				se.add(vector, string(padded[i:i+n]))
			}
		}
	}

	// Normalize vector to unit length
	var norm float64
	for _, val := range vector {
		norm += float64(val) * float64(val)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector, nil
}

func (se *SimpleEmbedder) add(vector []float32, gram string) {
	hash := md5.Sum([]byte(gram))
	bucket := binary.BigEndian.Uint32(hash[:4]) % uint32(se.dimensions)
	if hash[4]&1 == 1 {
		vector[bucket]--
		return
	}
	vector[bucket]++
}
