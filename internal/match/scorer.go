package match

import (
	"math"

	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/similarity"
)

// Scorer implements detailed pair scoring and confidence classification
type Scorer struct {
	cfg    Config
	tuning *Tuning
	names  *similarity.Scorer
}

// NewScorer creates a scorer for one run
func NewScorer(cfg Config, tuning *Tuning, names *similarity.Scorer) *Scorer {
	if tuning == nil {
		tuning = DefaultTuning()
	}
	return &Scorer{cfg: cfg, tuning: tuning, names: names}
}

// ScorePair computes last-name, first-name and combined scores for a pair
// that passed the quick filter.
func (s *Scorer) ScorePair(localDebug bool, a, b normalizedName, dateDiff int) (last, first, combined int) {
	last = s.names.Score(a.last, b.last)
	if a.first != "" || b.first != "" {
		first = s.names.Score(a.first, b.first)
	}
	debug.DebugOutput(localDebug, "Raw scores %q/%q: last=%d first=%d", a.last, b.last, last, first)

	switch {
	case dateDiff == 0:
		last = capScore(last + s.tuning.ExactDateNameBoost)
		first = capScore(first + s.tuning.ExactDateNameBoost)
	case dateDiff <= s.cfg.DateToleranceDays:
		last = capScore(last + s.tuning.CloseDateNameBoost)
		first = capScore(first + s.tuning.CloseDateNameBoost)
	}

	if s.cfg.SafeMissing && (a.first == "" || b.first == "") {
		combined = last
	} else {
		lastWeight, firstWeight := s.weights(a, b)
		combined = int(math.Round(float64(last)*lastWeight + float64(first)*firstWeight))
		debug.DebugOutput(localDebug, "Weights: last=%.2f first=%.2f", lastWeight, firstWeight)
	}

	if s.cfg.DateBonus {
		switch {
		case dateDiff == 0:
			combined = capScore(combined + s.tuning.ExactDateCombinedBonus)
		case dateDiff <= s.cfg.DateToleranceDays:
			combined = capScore(combined + s.tuning.CloseDateCombinedBonus)
		}
	}

	// Phonetic rescue sees the score after the date bonus.
	if s.cfg.Phonetic && combined < s.cfg.Threshold && a.lastCode != "" && a.lastCode == b.lastCode {
		combined = capScore(combined + s.tuning.PhoneticBoost)
		debug.DebugOutput(localDebug, "Phonetic boost applied (%s)", a.lastCode)
	}

	debug.DebugOutput(localDebug, "Final scores: last=%d first=%d combined=%d (date diff %d)",
		last, first, combined, dateDiff)
	return last, first, combined
}

// weights splits the combined score between last and first name by their
// share of the pair's total name length. The longer field gains weight once
// its share passes the trigger, up to the cap.
func (s *Scorer) weights(a, b normalizedName) (lastWeight, firstWeight float64) {
	lastLen := a.lastLen + b.lastLen
	firstLen := a.firstLen + b.firstLen
	total := lastLen + firstLen
	if total == 0 {
		return 0.5, 0.5
	}

	lastPortion := float64(lastLen) / float64(total)
	firstPortion := float64(firstLen) / float64(total)
	switch {
	case lastPortion > s.tuning.WeightTrigger:
		lastWeight = math.Min(s.tuning.WeightCap, lastPortion)
		return lastWeight, 1 - lastWeight
	case firstPortion > s.tuning.WeightTrigger:
		firstWeight = math.Min(s.tuning.WeightCap, firstPortion)
		return 1 - firstWeight, firstWeight
	}
	return 0.5, 0.5
}

// Classify assigns a confidence tier. The second result is false when the
// pair falls below every retained tier and must be discarded.
func (s *Scorer) Classify(combined, dateDiff int) (Confidence, bool) {
	threshold := s.cfg.Threshold
	withinTolerance := dateDiff <= s.cfg.DateToleranceDays

	if s.cfg.MultiPass {
		switch {
		case dateDiff == 0 && combined >= threshold:
			return High, true
		case withinTolerance && combined >= max(0, threshold-s.tuning.MediumPassReduction):
			return Medium, true
		case withinTolerance && combined >= max(0, threshold-s.tuning.LenientPassReduction):
			return Low, true
		}
		return "", false
	}

	effective := threshold
	if dateDiff != 0 && withinTolerance {
		effective = max(0, threshold-s.tuning.ToleranceReduction)
	}
	if combined < effective {
		return "", false
	}
	return s.tuning.Band(combined), true
}

func capScore(v int) int {
	return min(100, v)
}
