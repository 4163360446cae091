package similarity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/normalize"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	panics  bool
}

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.panics {
		panic("model exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func stubHandle(e embeddings.Embedder) *embeddings.Handle {
	return embeddings.NewHandle(func(context.Context) (embeddings.Embedder, error) {
		return e, nil
	})
}

func testCaps() config.Capabilities {
	return config.Capabilities{DoubleMetaphone: true, Semantic: true}
}

func TestRatioFamily(t *testing.T) {
	assert.InDelta(t, 96.55, Ratio("this is a test", "this is a test!"), 0.01)
	assert.InDelta(t, 61.54, Ratio("kitten", "sitting"), 0.01)
	assert.Equal(t, 100.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", ""))

	assert.Equal(t, 100.0, PartialRatio("this is a test", "this is a test!"))
	assert.Equal(t, 100.0, PartialRatio("brien", "obrien"))
	assert.Equal(t, 0.0, PartialRatio("", "abc"))

	assert.Equal(t, 100.0, TokenSortRatio("fuzzy wuzzy was a bear", "wuzzy fuzzy was a bear"))
	assert.Equal(t, 100.0, TokenSetRatio("fuzzy was a bear", "fuzzy fuzzy was a bear"))
	assert.Equal(t, 0.0, TokenSetRatio("", "bear"))

	assert.InDelta(t, 96.1, JaroWinkler("martha", "marhta"), 0.5)
}

func TestWeightedRatioPrefersTokenMeasures(t *testing.T) {
	plain := Ratio("de la cruz maria", "maria de la cruz")
	weighted := WeightedRatio("de la cruz maria", "maria de la cruz")
	assert.Greater(t, weighted, plain)
	assert.InDelta(t, 95.0, weighted, 0.01)
}

func TestScoreProperties(t *testing.T) {
	pairs := [][2]string{
		{"obrien", "o brien"},
		{"catherine", "kathryn"},
		{"smith", "jones"},
		{"de la cruz", "cruz"},
		{"mohamed", "muhammad"},
		{"x", "a much longer surname entirely"},
	}

	for _, alg := range Algorithms() {
		s := NewScorer(alg,
			WithDoubleMetaphone(true),
			WithSemantic(embeddings.NewHandle(embeddings.DefaultLoader(testCaps()))))

		t.Run(alg.String(), func(t *testing.T) {
			assert.Equal(t, 100, s.Score("", ""))
			for _, p := range pairs {
				assert.Equal(t, 100, s.Score(p[0], p[0]), "score(a,a) for %q", p[0])
				assert.Equal(t, 0, s.Score(p[0], ""))
				assert.Equal(t, 0, s.Score("", p[0]))

				got := s.Score(p[0], p[1])
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		})
	}
}

func TestEnhancedFuzzyOverride(t *testing.T) {
	a, b := "catherine", "kathryn"

	jw := NewScorer(JaroWinklerAlgorithm, WithEnhancedFuzzy(true))
	assert.Equal(t, int(EnhancedFuzzy(a, b)), jw.Score(a, b))

	ensemble := NewScorer(Ensemble, WithEnhancedFuzzy(true))
	assert.Equal(t, int(EnsembleScore(a, b)), ensemble.Score(a, b))
}

func TestEnsembleWeights(t *testing.T) {
	a, b := "obrien", "o brien"
	want := math.Round(0.35*math.Round(JaroWinkler(a, b)) + 0.30*WeightedRatio(a, b) +
		0.20*TokenSortRatio(a, b) + 0.15*PartialRatio(a, b))
	assert.Equal(t, int(want), NewScorer(Ensemble).Score(a, b))
}

func TestPhoneticScoring(t *testing.T) {
	rich := NewScorer(DoubleMetaphone, WithDoubleMetaphone(true))
	assert.Equal(t, 100, rich.Score("smith", "smyth"))
	assert.Equal(t, int(math.Round(JaroWinkler("smith", "jones"))), rich.Score("smith", "jones"))

	soundex := NewScorer(DoubleMetaphone, WithDoubleMetaphone(false))
	assert.Equal(t, 100, soundex.Score("robert", "rupert"))
	assert.Equal(t, 0, soundex.Score("smith", "jones"))

	// Strings without letters have no Soundex code and never agree
	assert.Equal(t, "", normalize.Soundex("-"))
	assert.Equal(t, 0, soundex.Score("-", "."))
	assert.Equal(t, 0, NewScorer(DoubleMetaphone).Score("-", "."))
}

func TestEnsembleRoundsJaroWinklerFirst(t *testing.T) {
	pairs := [][2]string{{"obrien", "o brien"}, {"smith", "smyth"}, {"catherine", "kathryn"}, {"li", "lee"}}
	for _, p := range pairs {
		jw := math.Round(JaroWinkler(p[0], p[1]))
		want := math.Round(0.35*jw + 0.30*WeightedRatio(p[0], p[1]) +
			0.20*TokenSortRatio(p[0], p[1]) + 0.15*PartialRatio(p[0], p[1]))
		assert.Equal(t, want, EnsembleScore(p[0], p[1]), "%s/%s", p[0], p[1])
	}
}

func TestSemanticScoring(t *testing.T) {
	fallback := int(math.Round(JaroWinkler("catherine", "kathryn")))

	model := stubEmbedder{vectors: map[string][]float32{
		"catherine": {1, 0},
		"kathryn":   {1, 1},
	}}
	s := NewScorer(Semantic, WithSemantic(stubHandle(model)))
	assert.Equal(t, 71, s.Score("catherine", "kathryn"))

	tests := []struct {
		name   string
		handle *embeddings.Handle
	}{
		{"no handle", nil},
		{"load failure", embeddings.NewHandle(func(context.Context) (embeddings.Embedder, error) {
			return nil, errors.New("missing model")
		})},
		{"embed failure", stubHandle(stubEmbedder{err: errors.New("inference failed")})},
		{"panicking model", stubHandle(stubEmbedder{panics: true})},
		{"unknown vectors", stubHandle(stubEmbedder{vectors: map[string][]float32{}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(Semantic, WithSemantic(tt.handle))
			assert.Equal(t, fallback, s.Score("catherine", "kathryn"))
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input string
		want  Algorithm
	}{
		{"", Ensemble},
		{"Ensemble", Ensemble},
		{"Weighted Ratio", WeightedRatioAlgorithm},
		{"partial-ratio", PartialRatioAlgorithm},
		{"jaro_winkler", JaroWinklerAlgorithm},
		{"Semantic Matching", Semantic},
		{"double metaphone", DoubleMetaphone},
		{"Record Linkage", RecordLinkage},
		{"linkage", RecordLinkage},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAlgorithm("levenshtein-plus")
	assert.Error(t, err)
}

func TestAlgorithmTextRoundTrip(t *testing.T) {
	for _, alg := range Algorithms() {
		text, err := alg.MarshalText()
		require.NoError(t, err)

		var back Algorithm
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, alg, back)
	}

	_, err := Algorithm(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Algorithm(42)", Algorithm(42).String())
}
