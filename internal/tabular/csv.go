// Package tabular reads input tables and writes result sets.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gss-opera-matcher/internal/match"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no reader.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoRows is returned when an input yields no usable rows.
	ErrNoRows = errors.New("no rows found")
)

const utf8BOM = "\ufeff"

// ReadCSV reads a table whose first record is the header. Empty cells are
// stored as nil. Repeated header names get a numeric suffix so that every
// column stays addressable.
func ReadCSV(r io.Reader) (*match.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("failed to read header: %w", ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	table := match.NewTable(uniqueColumns(header)...)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		row := make(match.Record, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				row[col] = record[i]
			} else {
				row[col] = nil
			}
		}
		table.Append(row)
	}
	return table, nil
}

// WriteCSV writes a table with its header.
func WriteCSV(w io.Writer, t *match.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	values := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			values[i] = match.FormatValue(row[col])
		}
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteResults writes a result set in its output column order.
func WriteResults(w io.Writer, rs *match.ResultSet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(rs.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rs.Rows {
		if err := writer.Write(rs.Values(i)); err != nil {
			return fmt.Errorf("failed to write result %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func uniqueColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
