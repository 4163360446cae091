package match

import (
	"context"
	"sort"
	"time"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/itr"
	"github.com/gss-opera-matcher/internal/similarity"
)

// Engine pairs primary rows with secondary rows on date proximity and
// fuzzy name similarity
type Engine struct {
	cfg    Config
	tuning *Tuning
	scorer *Scorer
}

// EngineConfig holds configuration for the matching engine
type EngineConfig struct {
	Match        Config
	Capabilities config.Capabilities
	// Semantic is the shared embedding model; nil disables semantic scoring.
	Semantic *embeddings.Handle
}

// NewEngine validates the configuration and creates an engine
func NewEngine(ec EngineConfig) (*Engine, error) {
	if err := ec.Match.Validate(); err != nil {
		return nil, err
	}

	tuning := ec.Match.EffectiveTuning()
	names := similarity.NewScorer(ec.Match.Algorithm,
		similarity.WithEnhancedFuzzy(ec.Match.EnhancedFuzzy),
		similarity.WithDoubleMetaphone(ec.Capabilities.DoubleMetaphone),
		similarity.WithSemantic(ec.Semantic),
	)

	return &Engine{
		cfg:    ec.Match,
		tuning: tuning,
		scorer: NewScorer(ec.Match, tuning, names),
	}, nil
}

type pairKey struct {
	primary, secondary int
}

// Run matches every primary row against the secondary table. Columns are
// checked before any row is processed. The context is checked between
// primary rows; a cancelled run returns the context error.
func (e *Engine) Run(ctx context.Context, primary, secondary *Table, progress ProgressFunc) (*ResultSet, error) {
	localDebug := e.cfg.Debug
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)
	defer debug.DebugTiming(localDebug, "match run")()

	if err := e.cfg.CheckColumns(primary, secondary); err != nil {
		return nil, err
	}

	startTime := time.Now()
	rs := NewResultSet(primary, secondary)
	total := primary.Len()
	if total == 0 {
		report(progress, 100)
		return rs, nil
	}

	left := prepareTable(primary, e.cfg.PrimaryLast, e.cfg.PrimaryFirst, e.cfg.PrimaryDate, e.cfg)
	right := prepareTable(secondary, e.cfg.SecondaryLast, e.cfg.SecondaryFirst, e.cfg.SecondaryDate, e.cfg)
	index := NewBlockingIndex(right.dates, right.hasDay)
	debug.DebugOutput(localDebug, "Indexed %d secondary rows over %d dates", secondary.Len(), index.Len())

	var globalSeen map[pairKey]struct{}
	if e.cfg.ShowAllMatches {
		globalSeen = make(map[pairKey]struct{})
	}

	step := max(1, total/(100/e.tuning.ProgressIntervalPct))
	for i := range primary.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, row := range e.matchRow(localDebug, i, primary, secondary, left, right, index) {
			if globalSeen != nil && !row.IsNoMatch() {
				key := pairKey{row.PrimaryIndex, row.SecondaryIndex}
				if _, dup := globalSeen[key]; dup {
					continue
				}
				globalSeen[key] = struct{}{}
			}
			rs.Rows = append(rs.Rows, row)
		}

		if done := i + 1; done < total && done%step == 0 {
			report(progress, done*100/total)
		}
	}
	report(progress, 100)

	rs.Elapsed = time.Since(startTime)
	debug.DebugOutput(localDebug, "Emitted %d rows for %d primary rows", len(rs.Rows), total)
	return rs, nil
}

// matchRow scores one primary row against its date block and applies the
// selection policy.
func (e *Engine) matchRow(localDebug bool, i int, primary, secondary *Table, left, right preparedTable, index *BlockingIndex) []ResultRow {
	if !left.hasDay[i] {
		debug.DebugOutput(localDebug, "Row %d: no usable date", i)
		return e.noMatch(i, primary)
	}

	candidates := index.Candidates(left.dates[i], e.cfg.DateToleranceDays)
	if len(candidates) == 0 {
		debug.DebugOutput(localDebug, "Row %d: no candidates on %s", i, left.dates[i])
		return e.noMatch(i, primary)
	}

	a := left.names[i]
	var found []ResultRow
	for _, c := range candidates {
		b := right.names[c.Index]
		if !quickFilter(a, b, e.cfg, e.tuning) {
			continue
		}

		last, first, combined := e.scorer.ScorePair(localDebug, a, b, c.DateDiff)
		confidence, keep := e.scorer.Classify(combined, c.DateDiff)
		if !keep {
			continue
		}

		found = append(found, ResultRow{
			PrimaryIndex:   i,
			SecondaryIndex: c.Index,
			Primary:        primary.Rows[i],
			Secondary:      secondary.Rows[c.Index],
			LastScore:      last,
			FirstScore:     first,
			CombinedScore:  combined,
			DateDiff:       c.DateDiff,
			Confidence:     confidence,
			ITRBucket:      e.itrBucket(primary.Rows[i]),
		})
	}
	debug.DebugOutput(localDebug, "Row %d: %d candidates, %d retained", i, len(candidates), len(found))

	if e.cfg.ShowAllMatches {
		if len(found) == 0 {
			return e.noMatch(i, primary)
		}
		return bestPerPair(found)
	}

	if len(found) == 0 {
		return nil
	}
	sort.SliceStable(found, func(x, y int) bool {
		if found[x].DateDiff != found[y].DateDiff {
			return found[x].DateDiff < found[y].DateDiff
		}
		return found[x].CombinedScore > found[y].CombinedScore
	})
	return found[:1]
}

// bestPerPair keeps one row per secondary index, preferring an exact date
// and then the higher combined score. First-seen order is kept.
func bestPerPair(rows []ResultRow) []ResultRow {
	pos := make(map[int]int, len(rows))
	out := make([]ResultRow, 0, len(rows))
	for _, r := range rows {
		at, seen := pos[r.SecondaryIndex]
		if !seen {
			pos[r.SecondaryIndex] = len(out)
			out = append(out, r)
			continue
		}
		existing := out[at]
		switch {
		case r.DateDiff == 0 && existing.DateDiff != 0:
			out[at] = r
		case existing.DateDiff == 0 && r.DateDiff != 0:
		case r.CombinedScore > existing.CombinedScore:
			out[at] = r
		}
	}
	return out
}

// noMatch returns the placeholder row for an unmatched primary row when
// show-all is enabled.
func (e *Engine) noMatch(i int, primary *Table) []ResultRow {
	if !e.cfg.ShowAllMatches {
		return nil
	}
	return []ResultRow{NoMatchRow(i, primary.Rows[i])}
}

func (e *Engine) itrBucket(row Record) *int {
	return ITRBucket(row, e.cfg.PrimaryITR)
}

// NoMatchRow builds the placeholder for primary row i.
func NoMatchRow(i int, row Record) ResultRow {
	return ResultRow{
		PrimaryIndex:   i,
		SecondaryIndex: -1,
		Primary:        row,
		Confidence:     NoMatch,
	}
}

// ITRBucket buckets the intent score in column col, if any.
func ITRBucket(row Record, col string) *int {
	if col == "" {
		return nil
	}
	b, ok := itr.Bucket(row[col])
	if !ok {
		return nil
	}
	return &b
}

func report(progress ProgressFunc, pct int) {
	if progress != nil {
		progress(pct)
	}
}
