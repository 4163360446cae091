package similarity

import (
	"context"
	"math"

	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/normalize"
)

// Ensemble weights.
const (
	ensembleJaroWinkler = 0.35
	ensembleWeighted    = 0.30
	ensembleTokenSort   = 0.20
	ensemblePartial     = 0.15
)

// Enhanced fuzzy weights.
const (
	enhancedTokenSort = 0.6
	enhancedPartial   = 0.4
)

// Double Metaphone scores.
const (
	metaphonePrimary   = 100
	metaphoneSecondary = 90
	metaphoneCross     = 85
)

// Scorer compares two normalized names with one algorithm. It is built once
// per run and is safe for concurrent use.
type Scorer struct {
	algorithm Algorithm
	enhanced  bool
	metaphone bool
	semantic  *embeddings.Handle
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithEnhancedFuzzy replaces every algorithm except Ensemble with the
// token-sort/partial blend.
func WithEnhancedFuzzy(on bool) Option {
	return func(s *Scorer) { s.enhanced = on }
}

// WithDoubleMetaphone enables the Double Metaphone codec for the phonetic
// algorithm. Without it phonetic scoring is plain Soundex equality.
func WithDoubleMetaphone(on bool) Option {
	return func(s *Scorer) { s.metaphone = on }
}

// WithSemantic sets the model handle used by the semantic algorithm.
func WithSemantic(h *embeddings.Handle) Option {
	return func(s *Scorer) { s.semantic = h }
}

// NewScorer builds a scorer for algorithm.
func NewScorer(algorithm Algorithm, opts ...Option) *Scorer {
	s := &Scorer{algorithm: algorithm}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Algorithm returns the configured algorithm.
func (s *Scorer) Algorithm() Algorithm {
	return s.algorithm
}

// Score returns the similarity of a and b in [0,100]. Identical strings
// score 100 and a single empty side scores 0.
func (s *Scorer) Score(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if s.enhanced && s.algorithm != Ensemble {
		return clamp(EnhancedFuzzy(a, b))
	}

	switch s.algorithm {
	case Ensemble:
		return clamp(EnsembleScore(a, b))
	case PartialRatioAlgorithm:
		return clamp(math.Round(PartialRatio(a, b)))
	case JaroWinklerAlgorithm, RecordLinkage:
		return clamp(math.Round(JaroWinkler(a, b)))
	case DoubleMetaphone:
		return s.phonetic(a, b)
	case Semantic:
		return s.semanticScore(a, b)
	default:
		return clamp(math.Round(WeightedRatio(a, b)))
	}
}

// EnhancedFuzzy blends token-sort and partial ratios.
func EnhancedFuzzy(a, b string) float64 {
	return math.Round(enhancedTokenSort*TokenSortRatio(a, b) + enhancedPartial*PartialRatio(a, b))
}

// EnsembleScore is a fixed weighted average of four measures. The
// Jaro-Winkler term is rounded to a whole point before weighting.
func EnsembleScore(a, b string) float64 {
	return math.Round(ensembleJaroWinkler*math.Round(JaroWinkler(a, b)) +
		ensembleWeighted*WeightedRatio(a, b) +
		ensembleTokenSort*TokenSortRatio(a, b) +
		ensemblePartial*PartialRatio(a, b))
}

func (s *Scorer) phonetic(a, b string) int {
	if !s.metaphone {
		if code := normalize.Soundex(a); code != "" && code == normalize.Soundex(b) {
			return 100
		}
		return 0
	}

	p1, s1 := normalize.DoubleMetaphone(a)
	p2, s2 := normalize.DoubleMetaphone(b)
	switch {
	case p1 != "" && p1 == p2:
		return metaphonePrimary
	case s1 != "" && s1 == s2:
		return metaphoneSecondary
	case (p1 != "" && p1 == s2) || (s1 != "" && s1 == p2):
		return metaphoneCross
	}
	return clamp(math.Round(JaroWinkler(a, b)))
}

func (s *Scorer) semanticScore(a, b string) (score int) {
	fallback := clamp(math.Round(JaroWinkler(a, b)))
	defer func() {
		if r := recover(); r != nil {
			score = fallback
		}
	}()

	ctx := context.Background()
	model, err := s.semantic.Embedder(ctx)
	if err != nil {
		return fallback
	}
	va, err := model.Embed(ctx, a)
	if err != nil {
		return fallback
	}
	vb, err := model.Embed(ctx, b)
	if err != nil {
		return fallback
	}
	cos := embeddings.Cosine(va, vb)
	if math.IsNaN(cos) {
		return fallback
	}
	return clamp(math.Round(cos * 100))
}

func clamp(v float64) int {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 100:
		return 100
	}
	return int(v)
}
