package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gss-opera-matcher/internal/similarity"
)

func testScorer(cfg Config) *Scorer {
	return NewScorer(cfg, DefaultTuning(), similarity.NewScorer(cfg.Algorithm))
}

func TestClassifyMultiPass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DateToleranceDays = 2
	s := testScorer(cfg)

	tests := []struct {
		name     string
		combined int
		dateDiff int
		want     Confidence
		keep     bool
	}{
		{"exact date above threshold", 90, 0, High, true},
		{"exact date at threshold", 85, 0, High, true},
		{"exact date just below", 84, 0, Medium, true},
		{"close date medium", 80, 1, Medium, true},
		{"close date at medium floor", 75, 2, Medium, true},
		{"close date lenient", 72, 1, Low, true},
		{"close date at lenient floor", 70, 1, Low, true},
		{"below every pass", 69, 1, "", false},
		{"outside tolerance", 99, 3, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := s.Classify(tt.combined, tt.dateDiff)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyFixedBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiPass = false
	cfg.DateToleranceDays = 2
	s := testScorer(cfg)

	tests := []struct {
		name     string
		combined int
		dateDiff int
		want     Confidence
		keep     bool
	}{
		{"high band", 92, 0, High, true},
		{"medium band at threshold", 85, 0, Medium, true},
		{"exact date below threshold", 80, 0, "", false},
		{"close date relaxed threshold", 78, 1, Low, true},
		{"close date at relaxed threshold", 77, 2, Low, true},
		{"close date below relaxed threshold", 76, 2, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := s.Classify(tt.combined, tt.dateDiff)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyVeryLowBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiPass = false
	cfg.Threshold = 50
	s := testScorer(cfg)

	got, keep := s.Classify(60, 0)
	assert.True(t, keep)
	assert.Equal(t, VeryLow, got)
}

func TestAdaptiveWeights(t *testing.T) {
	s := testScorer(DefaultConfig())

	balanced := normalizedName{lastLen: 5, firstLen: 5}
	lw, fw := s.weights(balanced, balanced)
	assert.Equal(t, 0.5, lw)
	assert.Equal(t, 0.5, fw)

	longLast := normalizedName{lastLen: 8, firstLen: 2}
	lw, fw = s.weights(longLast, longLast)
	assert.InDelta(t, 0.7, lw, 1e-9)
	assert.InDelta(t, 0.3, fw, 1e-9)

	slightlyLongFirst := normalizedName{lastLen: 3, firstLen: 6}
	lw, fw = s.weights(slightlyLongFirst, slightlyLongFirst)
	assert.InDelta(t, 1.0/3, lw, 1e-9)
	assert.InDelta(t, 2.0/3, fw, 1e-9)

	lw, fw = s.weights(normalizedName{}, normalizedName{})
	assert.Equal(t, 0.5, lw)
	assert.Equal(t, 0.5, fw)
}

func TestScorePairBoosts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DateToleranceDays = 3
	cfg.Algorithm = similarity.JaroWinklerAlgorithm
	cfg.EnhancedFuzzy = false
	cfg.NicknameVariants = false
	s := testScorer(cfg)

	a := prepareName("Smith", "John", cfg)
	b := prepareName("Smith", "John", cfg)

	last, first, combined := s.ScorePair(false, a, b, 0)
	assert.Equal(t, 100, last)
	assert.Equal(t, 100, first)
	assert.Equal(t, 100, combined)

	c := prepareName("Smith", "Jon", cfg)
	_, firstExact, _ := s.ScorePair(false, a, c, 0)
	_, firstClose, _ := s.ScorePair(false, a, c, 2)
	assert.Equal(t, 2, firstExact-firstClose)
}

func TestScorePairSafeMissingUsesLastName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SafeMissing = true
	cfg.DateBonus = false
	s := testScorer(cfg)

	a := prepareName("Taylor", "", cfg)
	b := prepareName("Taylor", "Anne", cfg)
	last, _, combined := s.ScorePair(false, a, b, 0)
	assert.Equal(t, 100, last)
	assert.Equal(t, last, combined)
}

func TestScorePairPhoneticRescue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = similarity.JaroWinklerAlgorithm
	cfg.EnhancedFuzzy = false
	cfg.DateBonus = false
	cfg.Threshold = 100
	s := testScorer(cfg)

	a := prepareName("Robert", "Ann", cfg)
	b := prepareName("Rupert", "Ann", cfg)
	_, _, rescued := s.ScorePair(false, a, b, 0)

	cfg.Phonetic = false
	plain := testScorer(cfg)
	a = prepareName("Robert", "Ann", cfg)
	b = prepareName("Rupert", "Ann", cfg)
	_, _, base := plain.ScorePair(false, a, b, 0)

	assert.Equal(t, min(100, base+15), rescued)
}

func TestQuickFilter(t *testing.T) {
	cfg := DefaultConfig()
	tuning := DefaultTuning()

	tests := []struct {
		name       string
		a, b       [2]string
		phonetic   bool
		safeMiss   bool
		wantAccept bool
	}{
		{"same names", [2]string{"Smith", "John"}, [2]string{"Smith", "Jon"}, false, false, true},
		{"no names on one side", [2]string{"", ""}, [2]string{"Smith", "John"}, false, false, false},
		{"safe missing rejects blank last", [2]string{"", "John"}, [2]string{"Smith", "John"}, false, true, false},
		{"blank last allowed without safe missing", [2]string{"", "John"}, [2]string{"Smith", "John"}, false, false, true},
		{"last length too different", [2]string{"Li", "Wei"}, [2]string{"Lindqvist", "Wei"}, false, false, false},
		{"first length too different", [2]string{"Smith", "Al"}, [2]string{"Smith", "Alexandra"}, false, false, false},
		{"initial mismatch", [2]string{"Catherine", "A"}, [2]string{"Kathryn", "A"}, false, false, false},
		{"initial mismatch with phonetic on", [2]string{"Philips", "A"}, [2]string{"Filips", "A"}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Phonetic = tt.phonetic
			c.SafeMissing = tt.safeMiss
			a := prepareName(tt.a[0], tt.a[1], c)
			b := prepareName(tt.b[0], tt.b[1], c)
			assert.Equal(t, tt.wantAccept, quickFilter(a, b, c, tuning))
		})
	}
}

func TestQuickFilterPhoneticEqualCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phonetic = true
	tuning := DefaultTuning()

	// Soundex keeps the initial, so these codes are built by hand.
	a := normalizedName{last: "kole", lastLen: 4, lastInitial: 'k', lastCode: "K400"}
	b := normalizedName{last: "cole", lastLen: 4, lastInitial: 'c', lastCode: "K400"}
	assert.True(t, quickFilter(a, b, cfg, tuning))

	cfg.Phonetic = false
	assert.False(t, quickFilter(a, b, cfg, tuning))
}
