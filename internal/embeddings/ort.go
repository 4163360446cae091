//go:build onnx

package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/debug"
)

const maxSeqLen = 128

// ORTEmbedder runs a sentence-embedding ONNX model and mean-pools the last
// hidden state over the attention mask.
type ORTEmbedder struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizer.Tokenizer
}

func ortLoader(caps config.Capabilities) (Loader, bool) {
	if caps.ModelPath == "" || caps.TokenizerPath == "" {
		return nil, false
	}
	return func(context.Context) (Embedder, error) {
		return NewORTEmbedder(caps.OrtLibrary, caps.ModelPath, caps.TokenizerPath)
	}, true
}

// NewORTEmbedder initializes the ONNX runtime and loads the model and
// tokenizer from disk.
func NewORTEmbedder(library, modelPath, tokenizerPath string) (*ORTEmbedder, error) {
	if library != "" {
		ort.SetSharedLibraryPath(library)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnx runtime: %w", err)
		}
	}

	tk, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", tokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", modelPath, err)
	}

	debug.Logger().Sugar().Infof("loaded onnx embedding model %s", modelPath)
	return &ORTEmbedder{session: session, tokenizer: tk}, nil
}

// Embed encodes text and returns its pooled embedding.
func (e *ORTEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := e.tokenizer.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize: %w", err)
	}
	ids := enc.GetIds()
	mask := enc.GetAttentionMask()
	types := enc.GetTypeIds()
	if len(ids) > maxSeqLen {
		ids, mask, types = ids[:maxSeqLen], mask[:maxSeqLen], types[:maxSeqLen]
	}
	if len(ids) == 0 {
		return nil, errors.New("tokenizer produced no tokens")
	}

	shape := ort.NewShape(1, int64(len(ids)))
	inputs := make([]ort.Value, 0, 3)
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, data := range [][]int{ids, mask, types} {
		t, err := ort.NewTensor(shape, toInt64(data))
		if err != nil {
			return nil, fmt.Errorf("failed to build input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err = e.session.Run(inputs, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to run model: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected model output type")
	}
	dims := hidden.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	return meanPool(hidden.GetData(), mask, int(dims[1]), int(dims[2])), nil
}

// Close releases the session.
func (e *ORTEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

func meanPool(data []float32, mask []int, seq, width int) []float32 {
	out := make([]float32, width)
	var count float32
	for i := 0; i < seq && i < len(mask); i++ {
		if mask[i] == 0 {
			continue
		}
		count++
		row := data[i*width : (i+1)*width]
		for j, v := range row {
			out[j] += v
		}
	}
	if count > 0 {
		for j := range out {
			out[j] /= count
		}
	}
	return out
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
