package similarity

import (
	"fmt"
	"strings"
)

// Algorithm selects how two names are compared.
type Algorithm int

const (
	Ensemble Algorithm = iota
	WeightedRatioAlgorithm
	PartialRatioAlgorithm
	JaroWinklerAlgorithm
	Semantic
	DoubleMetaphone
	// RecordLinkage routes a run to the probabilistic linkage strategy.
	// As a plain scorer it behaves like Jaro-Winkler.
	RecordLinkage
)

var algorithmNames = []string{
	Ensemble:               "Ensemble",
	WeightedRatioAlgorithm: "Weighted Ratio",
	PartialRatioAlgorithm:  "Partial Ratio",
	JaroWinklerAlgorithm:   "Jaro-Winkler",
	Semantic:               "Semantic Matching",
	DoubleMetaphone:        "Double Metaphone",
	RecordLinkage:          "Record Linkage",
}

// Algorithms lists every algorithm in display order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithmNames))
	for i := range algorithmNames {
		out[i] = Algorithm(i)
	}
	return out
}

// String returns the display name.
func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(algorithmNames) {
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a >= 0 && int(a) < len(algorithmNames)
}

// ParseAlgorithm accepts a display name ("Jaro-Winkler") or a slug
// ("jaro-winkler", "jaro_winkler", "jarowinkler"), case-insensitively.
// An empty name selects Ensemble.
func ParseAlgorithm(name string) (Algorithm, error) {
	key := slug(name)
	if key == "" {
		return Ensemble, nil
	}
	for i, n := range algorithmNames {
		if slug(n) == key {
			return Algorithm(i), nil
		}
	}
	switch key {
	case "semantic":
		return Semantic, nil
	case "wratio":
		return WeightedRatioAlgorithm, nil
	case "linkage":
		return RecordLinkage, nil
	case "metaphone", "phonetic":
		return DoubleMetaphone, nil
	}
	return Ensemble, fmt.Errorf("unknown algorithm %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown algorithm %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
