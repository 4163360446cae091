package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/gss-opera-matcher/internal/match"
)

// renderSummary prints the per-tier counts of a run.
func renderSummary(w io.Writer, s match.Summary, primaryRows int) error {
	fmt.Fprintf(w, "\nMatched %d of %d GSS rows in %s\n\n",
		s.MatchedPrimary, primaryRows, s.Elapsed.Round(time.Millisecond))

	rows := make([][]string, 0, len(match.Confidences())+1)
	for _, c := range match.Confidences() {
		rows = append(rows, []string{string(c), strconv.Itoa(s.ByConfidence[c])})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(s.Rows)})

	return renderTable(w, []string{"Confidence", "Rows"}, rows)
}

// renderTable writes rows under header as a text table.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w)

	h := make([]any, len(header))
	for i, col := range header {
		h[i] = col
	}
	table.Header(h...)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}
	return table.Render()
}
