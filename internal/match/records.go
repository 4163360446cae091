package match

import (
	"strings"
	"unicode/utf8"

	"github.com/gss-opera-matcher/internal/dates"
	"github.com/gss-opera-matcher/internal/normalize"
)

// normalizedName holds the pre-computed name fields of one row.
type normalizedName struct {
	last, first       string
	lastLen, firstLen int
	lastInitial       rune
	lastCode          string
}

func (n normalizedName) empty() bool {
	return n.last == "" && n.first == ""
}

// prepareName normalizes one last/first pair according to the run's
// toggles.
func prepareName(last, first string, cfg Config) normalizedName {
	var n normalizedName
	if cfg.PreNormalize {
		n.last = normalize.Name(last, cfg.CompoundSurnames)
		n.first = normalize.Name(first, false)
	} else {
		n.last = strings.ToLower(strings.TrimSpace(last))
		n.first = strings.ToLower(strings.TrimSpace(first))
	}
	if cfg.NicknameVariants {
		n.first = normalize.CanonicalFirstName(n.first)
	}

	n.lastLen = utf8.RuneCountInString(n.last)
	n.firstLen = utf8.RuneCountInString(n.first)
	if n.last != "" {
		n.lastInitial, _ = utf8.DecodeRuneInString(n.last)
	}
	if cfg.Phonetic {
		n.lastCode = normalize.Soundex(n.last)
	}
	return n
}

// preparedTable is a table with its names normalized and dates parsed once
// per run.
type preparedTable struct {
	names  []normalizedName
	dates  []dates.Date
	hasDay []bool
}

func prepareTable(t *Table, lastCol, firstCol, dateCol string, cfg Config) preparedTable {
	p := preparedTable{
		names:  make([]normalizedName, len(t.Rows)),
		dates:  make([]dates.Date, len(t.Rows)),
		hasDay: make([]bool, len(t.Rows)),
	}
	for i, row := range t.Rows {
		p.names[i] = prepareName(cellText(row[lastCol]), cellText(row[firstCol]), cfg)
		p.dates[i], p.hasDay[i] = dates.Parse(row[dateCol])
	}
	return p
}

// cellText renders a cell as a name string. Missing and NaN cells are
// empty.
func cellText(v any) string {
	return FormatValue(v)
}

// quickFilter rejects pairs that cannot score well without running any
// fuzzy comparison.
func quickFilter(a, b normalizedName, cfg Config, t *Tuning) bool {
	if a.empty() || b.empty() {
		return false
	}
	if cfg.SafeMissing && (a.last == "" || b.last == "") {
		return false
	}

	if a.last != "" && b.last != "" && lengthDiffRatio(a.lastLen, b.lastLen) > t.MaxLengthDiffRatio {
		return false
	}
	if a.first != "" && b.first != "" && lengthDiffRatio(a.firstLen, b.firstLen) > t.MaxLengthDiffRatio {
		return false
	}

	if a.last != "" && b.last != "" && a.lastInitial != b.lastInitial {
		if !cfg.Phonetic || a.lastCode == "" || a.lastCode != b.lastCode {
			return false
		}
	}
	return true
}

func lengthDiffRatio(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(max(a, b, 1))
}
