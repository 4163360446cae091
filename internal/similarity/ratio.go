package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
	"github.com/xrash/smetrics"
)

// indel is an edit distance where a substitution costs a delete plus an
// insert, which makes Ratio a normalized longest-common-subsequence measure.
var indel = &metrics.Levenshtein{
	CaseSensitive: true,
	InsertCost:    1,
	DeleteCost:    1,
	ReplaceCost:   2,
}

const (
	wratioUnbaseScale    = 0.95
	wratioPartialScale   = 0.90
	wratioLongScale      = 0.60
	wratioPartialTrigger = 1.5
	wratioLongTrigger    = 8.0
)

// Ratio returns the normalized indel similarity of a and b in [0,100].
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	d := indel.Distance(a, b)
	return 100 * (1 - float64(d)/float64(total))
}

// PartialRatio returns the best Ratio between the shorter string and any
// equally long window of the longer one, including windows that overhang
// either end.
func PartialRatio(a, b string) float64 {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}
	if len(s1) == 0 {
		if len(s2) == 0 {
			return 100
		}
		return 0
	}

	short := string(s1)
	best := 0.0
	for start := 1 - len(s1); start < len(s2); start++ {
		lo := max(0, start)
		hi := min(len(s2), start+len(s1))
		if r := Ratio(short, string(s2[lo:hi])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func TokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, Ratio)
}

// WeightedRatio picks the best of the ratio family, scaling down the
// partial and token measures according to how different the lengths are.
func WeightedRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		if la == lb {
			return 100
		}
		return 0
	}

	lenRatio := float64(max(la, lb)) / float64(min(la, lb))
	base := Ratio(a, b)

	if lenRatio < wratioPartialTrigger {
		tokens := math.Max(TokenSortRatio(a, b), TokenSetRatio(a, b)) * wratioUnbaseScale
		return math.Max(base, tokens)
	}

	scale := wratioPartialScale
	if lenRatio >= wratioLongTrigger {
		scale = wratioLongScale
	}
	best := math.Max(base, PartialRatio(a, b)*scale)

	partialTokens := math.Max(
		PartialRatio(sortedTokens(a), sortedTokens(b)),
		tokenSet(a, b, PartialRatio),
	)
	return math.Max(best, partialTokens*wratioUnbaseScale*scale)
}

// JaroWinkler returns the Jaro-Winkler similarity scaled to [0,100].
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return 100 * smetrics.JaroWinkler(a, b, 0.7, 4)
}

func sortedTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func tokenSet(a, b string, ratio func(string, string) float64) float64 {
	setA, setB := tokenCounts(a), tokenCounts(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := ratio(combinedA, combinedB)
	if sect != "" {
		best = math.Max(best, math.Max(ratio(sect, combinedA), ratio(sect, combinedB)))
	}
	return best
}

func tokenCounts(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
