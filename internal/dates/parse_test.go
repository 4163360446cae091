package dates

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	jan15 := Date{Year: 2024, Month: time.January, Day: 15}

	tests := []struct {
		name  string
		input any
		want  Date
	}{
		{"iso", "2024-01-15", jan15},
		{"iso with time", "2024-01-15 13:45:00", jan15},
		{"day first slash", "15/01/2024", jan15},
		{"month first slash", "01/15/2024", jan15},
		{"day first dots", "15.01.2024", jan15},
		{"year first slash", "2024/01/15", jan15},
		{"long month", "15 January 2024", jan15},
		{"long month us", "January 15, 2024", jan15},
		{"short month", "15 Jan 2024", jan15},
		{"typed time", time.Date(2024, 1, 15, 22, 10, 0, 0, time.UTC), jan15},
		{"typed date", jan15, jan15},
		{"spreadsheet serial int", 45306, jan15},
		{"spreadsheet serial float", 45306.75, jan15},
		{"compact digits", int64(20240115), jan15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.True(t, ok, "Parse(%v) returned no date", tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmbiguousPrefersMonthFirst(t *testing.T) {
	got, ok := Parse("03/04/2024")
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 4}, got)
}

func TestParseTwoDigitYearPivot(t *testing.T) {
	tests := []struct {
		input string
		want  Date
	}{
		{"15/01/24", Date{Year: 2024, Month: time.January, Day: 15}},
		{"15/01/30", Date{Year: 2030, Month: time.January, Day: 15}},
		{"15/01/31", Date{Year: 1931, Month: time.January, Day: 15}},
		{"15/01/99", Date{Year: 1999, Month: time.January, Day: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNoValue(t *testing.T) {
	inputs := []any{nil, "", "   ", "nan", "NaN", "None", "NULL", "N/A", "not a date", math.NaN(), time.Time{}}

	for _, in := range inputs {
		_, ok := Parse(in)
		assert.False(t, ok, "Parse(%#v) should yield no date", in)
	}
}

func TestParseIdempotentOnCanonicalRendering(t *testing.T) {
	inputs := []any{"15/01/2024", "January 2, 2006", "2023-12-31", 45000, "07.08.1999", "29/02/2024"}

	for _, in := range inputs {
		first, ok := Parse(in)
		require.True(t, ok, "Parse(%v)", in)

		again, ok := Parse(first.String())
		require.True(t, ok, "re-parse of %s", first)
		assert.Equal(t, first, again)
	}
}

func TestLabelledNumericOrdering(t *testing.T) {
	tests := []struct {
		input string
		want  Date
		ok    bool
	}{
		// Valid both ways: day first wins.
		{"date: 03/04/2024", Date{Year: 2024, Month: time.April, Day: 3}, true},
		// Only valid month first.
		{"on 04/25/2024", Date{Year: 2024, Month: time.April, Day: 25}, true},
		{"at 25-12-99", Date{Year: 1999, Month: time.December, Day: 25}, true},
		{"date: 31/02/2024", Date{}, false},
		{"date: 2024-01-15", Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLabelledNumeric(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLenientStripsDecorations(t *testing.T) {
	got, ok := parseLenient("Monday 15th January 2024 at 10:30am")
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 15}, got)
}

func TestParseEmbeddedISO(t *testing.T) {
	got, ok := parseEmbeddedISO("logged 2024-01-15T08:00:00Z by system")
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 15}, got)

	_, ok = parseEmbeddedISO("logged 2024-13-45 by system")
	assert.False(t, ok)
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}

	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d.AddDays(1))
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d.AddDays(2))
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 26}, d.AddDays(-2))
	assert.Equal(t, 2, d.DaysBetween(d.AddDays(2)))
	assert.Equal(t, 2, d.AddDays(2).DaysBetween(d))
	assert.Equal(t, "2024-02-28", d.String())
}
