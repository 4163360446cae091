package dates

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minSerial = 1
	maxSerial = 100000
)

// explicitLayouts are tried in order after both locale parses fail.
// Non-padded verbs accept one or two digits.
var explicitLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
	"2006/1/2",
	"2.1.2006",
	"1.2.2006",
	"2 1 2006",
	"1 2 2006",
	"2006 1 2",
	"2/1/06",
	"1/2/06",
	"2-1-06",
	"1-2-06",
	"2.1.06",
	"1.2.06",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

var (
	nullSentinels = map[string]struct{}{"": {}, "nan": {}, "none": {}, "null": {}}

	twoDigitYearRe   = regexp.MustCompile(`^\d{1,2}[/\-. ]\d{1,2}[/\-. ]\d{2}$`)
	labelPrefixRe    = regexp.MustCompile(`(?i)^(date|on|at|from|to):?\s*`)
	numericFullRe    = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	numericShortRe   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2})$`)
	isoRe            = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	embeddedISORe    = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	weekdayRe        = regexp.MustCompile(`(?i)\b(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(day|sday|nesday|rsday|urday)?\b,?`)
	ordinalRe        = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	timeSuffixRe     = regexp.MustCompile(`(?i)(\s+at)?\s+\d{1,2}:\d{2}(:\d{2})?(\s*[ap]m)?.*$`)
	collapseSpacesRe = regexp.MustCompile(`\s+`)
)

// Parse normalizes value to a calendar date. It accepts time values,
// spreadsheet serial numbers and text. Unparseable or null-like input
// yields false; it never fails.
func Parse(value any) (Date, bool) {
	switch v := value.(type) {
	case nil:
		return Date{}, false
	case Date:
		return v, !v.IsZero()
	case *Date:
		if v == nil {
			return Date{}, false
		}
		return *v, !v.IsZero()
	case time.Time:
		if v.IsZero() {
			return Date{}, false
		}
		return FromTime(v), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return Date{}, false
		}
		return FromTime(*v), true
	case int:
		return parseNumber(float64(v))
	case int32:
		return parseNumber(float64(v))
	case int64:
		return parseNumber(float64(v))
	case uint:
		return parseNumber(float64(v))
	case uint32:
		return parseNumber(float64(v))
	case uint64:
		return parseNumber(float64(v))
	case float32:
		return parseNumber(float64(v))
	case float64:
		return parseNumber(v)
	case string:
		return ParseString(v)
	default:
		return ParseString(fmt.Sprint(v))
	}
}

// parseNumber treats plausible day counts as spreadsheet serials and
// anything else as text.
func parseNumber(f float64) (Date, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Date{}, false
	}
	if f >= minSerial && f <= maxSerial {
		return FromTime(serialEpoch.AddDate(0, 0, int(f))), true
	}
	return ParseString(strconv.FormatFloat(f, 'f', -1, 64))
}

// ParseString parses free-form date text.
func ParseString(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if _, null := nullSentinels[strings.ToLower(s)]; null {
		return Date{}, false
	}

	steps := []func(string) (Date, bool){
		parseMonthFirst,
		parseDayFirst,
		parseExplicit,
		parseLenient,
		parseLabelledNumeric,
		parseISO,
		parseEmbeddedISO,
	}
	for _, step := range steps {
		if d, ok := step(s); ok {
			return repivot(s, d), true
		}
	}
	return Date{}, false
}

// repivot applies the two-digit year pivot to numeric d/m/yy input,
// whatever step produced the date.
func repivot(s string, d Date) Date {
	if !twoDigitYearRe.MatchString(s) {
		return d
	}
	year := pivotYear(d.Year % 100)
	if !valid(year, int(d.Month), d.Day) {
		return d
	}
	d.Year = year
	return d
}

func parseMonthFirst(s string) (Date, bool) {
	return safeDateparse(s)
}

func parseDayFirst(s string) (Date, bool) {
	return safeDateparse(s, dateparse.PreferMonthFirst(false))
}

// safeDateparse shields callers from panics inside the parser on odd input.
func safeDateparse(s string, opts ...dateparse.ParserOption) (d Date, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d, ok = Date{}, false
		}
	}()

	t, err := dateparse.ParseIn(s, time.UTC, opts...)
	if err != nil {
		return Date{}, false
	}
	return FromTime(t), true
}

func parseExplicit(s string) (Date, bool) {
	for _, layout := range explicitLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), true
		}
	}
	return Date{}, false
}

// parseLenient drops weekday names, ordinal suffixes and a trailing time of
// day, then retries the structured parsers.
func parseLenient(s string) (Date, bool) {
	cleaned := weekdayRe.ReplaceAllString(s, " ")
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = timeSuffixRe.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(collapseSpacesRe.ReplaceAllString(cleaned, " "), " ,")
	if cleaned == "" || cleaned == s {
		return Date{}, false
	}
	if d, ok := safeDateparse(cleaned); ok {
		return d, true
	}
	if d, ok := safeDateparse(cleaned, dateparse.PreferMonthFirst(false)); ok {
		return d, true
	}
	return parseExplicit(cleaned)
}

// parseLabelledNumeric strips label words such as "date:" or "from" and
// resolves ambiguous numeric dates. The first number is tried as the day
// and the second as the month; if that is not a real calendar date the
// orders are swapped.
func parseLabelledNumeric(s string) (Date, bool) {
	s = strings.TrimSpace(labelPrefixRe.ReplaceAllString(s, ""))

	if m := numericFullRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[3])
		return resolveAmbiguous(atoi(m[1]), atoi(m[2]), year)
	}
	if m := numericShortRe.FindStringSubmatch(s); m != nil {
		return resolveAmbiguous(atoi(m[1]), atoi(m[2]), pivotYear(atoi(m[3])))
	}
	return Date{}, false
}

func resolveAmbiguous(first, second, year int) (Date, bool) {
	orders := [][2]int{{first, second}, {second, first}}
	for _, o := range orders {
		day, month := o[0], o[1]
		if valid(year, month, day) {
			return Date{Year: year, Month: time.Month(month), Day: day}, true
		}
	}
	return Date{}, false
}

func parseISO(s string) (Date, bool) {
	s = strings.TrimSpace(labelPrefixRe.ReplaceAllString(s, ""))
	m := isoRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	return ymd(m)
}

func parseEmbeddedISO(s string) (Date, bool) {
	m := embeddedISORe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	return ymd(m)
}

func ymd(m []string) (Date, bool) {
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if !valid(year, month, day) {
		return Date{}, false
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
