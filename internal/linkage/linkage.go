// Package linkage implements a probabilistic record linkage strategy: rows
// are blocked on exact date and each pair is classified from a small vector
// of agreement features.
package linkage

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/dates"
	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/normalize"
	"github.com/gss-opera-matcher/internal/similarity"
)

// DefaultAgreement is the Jaro-Winkler similarity at which two names agree.
const DefaultAgreement = 0.7

const (
	featureCount     = 3
	progressEveryRow = 10
)

// Features is the agreement vector of one pair.
type Features struct {
	LastName  bool
	FirstName bool
	ExactDate bool
}

// Score returns the fraction of features that agree. A pair links when
// this fraction, not the raw agreement count, reaches Threshold/100.
func (f Features) Score() float64 {
	n := 0
	for _, agree := range []bool{f.LastName, f.FirstName, f.ExactDate} {
		if agree {
			n++
		}
	}
	return float64(n) / featureCount
}

// Linker matches two tables by blocking on date and comparing features.
type Linker struct {
	cfg       match.Config
	tuning    *match.Tuning
	agreement float64
	logger    *zap.Logger
}

// NewLinker validates cfg and creates a linker.
func NewLinker(cfg match.Config) (*Linker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Linker{
		cfg:       cfg,
		tuning:    cfg.EffectiveTuning(),
		agreement: DefaultAgreement,
		logger:    debug.Logger().Named("linkage"),
	}, nil
}

type row struct {
	index int
	date  dates.Date
	last  string
	first string
}

// Run links primary rows to secondary rows. Columns are checked first and
// a cancelled context returns its error. Any other failure inside the run
// is logged and yields an empty result set.
func (l *Linker) Run(ctx context.Context, primary, secondary *match.Table, progress match.ProgressFunc) (rs *match.ResultSet, err error) {
	if err := l.cfg.CheckColumns(primary, secondary); err != nil {
		return nil, err
	}

	startTime := time.Now()
	empty := match.NewResultSet(primary, secondary)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("record linkage failed", zap.Any("panic", r))
			rs, err = empty, nil
		}
	}()

	rs, err = l.run(ctx, primary, secondary, progress)
	if err != nil {
		return nil, err
	}
	rs.Elapsed = time.Since(startTime)
	return rs, nil
}

func (l *Linker) run(ctx context.Context, primary, secondary *match.Table, progress match.ProgressFunc) (*match.ResultSet, error) {
	localDebug := l.cfg.Debug
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	rs := match.NewResultSet(primary, secondary)
	left := l.dated(primary, l.cfg.PrimaryLast, l.cfg.PrimaryFirst, l.cfg.PrimaryDate)
	right := l.dated(secondary, l.cfg.SecondaryLast, l.cfg.SecondaryFirst, l.cfg.SecondaryDate)
	debug.DebugOutput(localDebug, "Dated rows: primary=%d secondary=%d", len(left), len(right))
	if len(left) == 0 || len(right) == 0 {
		report(progress, 100)
		return rs, nil
	}

	blocks := make(map[dates.Date][]row)
	for _, r := range right {
		blocks[r.date] = append(blocks[r.date], r)
	}

	type pair struct {
		a, b     row
		features Features
	}
	var matches []pair
	threshold := float64(l.cfg.Threshold) / 100
	for _, a := range left {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, b := range blocks[a.date] {
			f := l.compare(a, b)
			if f.Score() >= threshold {
				matches = append(matches, pair{a, b, f})
			}
		}
	}
	debug.DebugOutput(localDebug, "Linked %d pairs at threshold %.2f", len(matches), threshold)

	itrCol := l.itrColumn(primary)
	matched := make(map[int]struct{})
	for i, m := range matches {
		combined := int(math.Round(m.features.Score() * 100))
		rs.Rows = append(rs.Rows, match.ResultRow{
			PrimaryIndex:   m.a.index,
			SecondaryIndex: m.b.index,
			Primary:        primary.Rows[m.a.index],
			Secondary:      secondary.Rows[m.b.index],
			LastScore:      agreementScore(m.features.LastName),
			FirstScore:     agreementScore(m.features.FirstName),
			CombinedScore:  combined,
			Confidence:     l.tuning.Band(combined),
			ITRBucket:      match.ITRBucket(primary.Rows[m.a.index], itrCol),
		})
		matched[m.a.index] = struct{}{}

		if done := i + 1; done%progressEveryRow == 0 {
			report(progress, min(99, done*100/len(matches)))
		}
	}

	if l.cfg.ShowAllMatches {
		for _, a := range left {
			if _, ok := matched[a.index]; !ok {
				rs.Rows = append(rs.Rows, match.NoMatchRow(a.index, primary.Rows[a.index]))
			}
		}
	}

	report(progress, 100)
	return rs, nil
}

// dated returns the rows of t that carry a parseable date. Rows without
// one take no part in linkage.
func (l *Linker) dated(t *match.Table, lastCol, firstCol, dateCol string) []row {
	out := make([]row, 0, len(t.Rows))
	for i, r := range t.Rows {
		d, ok := dates.Parse(r[dateCol])
		if !ok {
			continue
		}
		out = append(out, row{
			index: i,
			date:  d,
			last:  normalize.Name(match.FormatValue(r[lastCol]), false),
			first: normalize.Name(match.FormatValue(r[firstCol]), false),
		})
	}
	return out
}

func (l *Linker) compare(a, b row) Features {
	return Features{
		LastName:  l.agrees(a.last, b.last),
		FirstName: l.agrees(a.first, b.first),
		ExactDate: a.date == b.date,
	}
}

// agrees treats a missing name on either side as disagreement.
func (l *Linker) agrees(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return similarity.JaroWinkler(a, b)/100 >= l.agreement
}

// itrColumn returns the configured intent column or the first primary
// column whose name mentions intent or itr.
func (l *Linker) itrColumn(primary *match.Table) string {
	if l.cfg.PrimaryITR != "" {
		return l.cfg.PrimaryITR
	}
	for _, c := range primary.Columns {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "intent") || strings.Contains(lower, "itr") {
			return c
		}
	}
	return ""
}

func agreementScore(agree bool) int {
	if agree {
		return 100
	}
	return 0
}

func report(progress match.ProgressFunc, pct int) {
	if progress != nil {
		progress(pct)
	}
}
