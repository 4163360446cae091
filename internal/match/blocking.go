package match

import (
	"github.com/gss-opera-matcher/internal/dates"
)

// BlockingIndex groups secondary row indexes by canonical date so that a
// primary row is only compared with rows close to its own date.
type BlockingIndex struct {
	byDate map[dates.Date][]int
}

// NewBlockingIndex indexes the given dates. Rows whose date is missing
// (ok == false) are left out and can never be candidates.
func NewBlockingIndex(rowDates []dates.Date, ok []bool) *BlockingIndex {
	idx := &BlockingIndex{byDate: make(map[dates.Date][]int)}
	for i, d := range rowDates {
		if !ok[i] {
			continue
		}
		idx.byDate[d] = append(idx.byDate[d], i)
	}
	return idx
}

// Len returns the number of distinct dates in the index.
func (b *BlockingIndex) Len() int {
	return len(b.byDate)
}

// Candidate is a secondary row index and its distance in days from the
// probe date.
type Candidate struct {
	Index    int
	DateDiff int
}

// Candidates returns every indexed row within tolerance days of d. Rows on
// d come first, then d-1, d+1, d-2, d+2 and so on; within a date rows keep
// insertion order. Each row appears at most once.
func (b *BlockingIndex) Candidates(d dates.Date, tolerance int) []Candidate {
	var out []Candidate
	seen := make(map[int]struct{})

	collect := func(day dates.Date, diff int) {
		for _, i := range b.byDate[day] {
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			out = append(out, Candidate{Index: i, DateDiff: diff})
		}
	}

	collect(d, 0)
	for offset := 1; offset <= tolerance; offset++ {
		collect(d.AddDays(-offset), offset)
		collect(d.AddDays(offset), offset)
	}
	return out
}
