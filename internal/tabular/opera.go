package tabular

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gss-opera-matcher/internal/match"
)

// Columns produced by ReadOpera.
const (
	OperaUser      = "USERID"
	OperaTime      = "Time"
	OperaDate      = "Date"
	OperaAction    = "Action"
	OperaLastName  = "LastName"
	OperaFirstName = "FirstName"
	OperaRawText   = "RawText"
)

const (
	operaMinFields = 6
	maxLineBytes   = 1 << 20
)

// OperaColumns returns the column order of an Opera log table.
func OperaColumns() []string {
	return []string{OperaUser, OperaTime, OperaDate, OperaAction, OperaLastName, OperaFirstName, OperaRawText}
}

// ReadOpera parses an Opera activity log. Each line holds at least six
// comma-separated fields: user, time, date, an unused field, action and a
// free-text tail. The guest name is taken from the tail text before " has ",
// written "Last, First". Short lines are skipped and invalid UTF-8 is
// dropped.
func ReadOpera(r io.Reader) (*match.Table, error) {
	table := match.NewTable(OperaColumns()...)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ToValidUTF8(scanner.Text(), ""))
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < operaMinFields {
			continue
		}

		tail := strings.TrimSpace(strings.Join(parts[5:], ","))
		last, first := OperaGuestName(tail)
		table.Append(match.Record{
			OperaUser:      strings.TrimSpace(parts[0]),
			OperaTime:      strings.TrimSpace(parts[1]),
			OperaDate:      strings.TrimSpace(parts[2]),
			OperaAction:    strings.TrimSpace(parts[4]),
			OperaLastName:  last,
			OperaFirstName: first,
			OperaRawText:   tail,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Opera log: %w", err)
	}
	if table.Len() == 0 {
		return nil, ErrNoRows
	}
	return table, nil
}

// guestNameEnd matches on the original text so offsets stay valid for
// runes whose case forms differ in byte length.
var guestNameEnd = regexp.MustCompile(`(?i) has `)

// OperaGuestName extracts "Last, First" from the text before " has ". A
// name without a comma is treated as a last name only.
func OperaGuestName(tail string) (last, first string) {
	loc := guestNameEnd.FindStringIndex(tail)
	if loc == nil {
		return "", ""
	}

	name := strings.TrimSpace(tail[:loc[0]])
	if l, f, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(l), strings.TrimSpace(f)
	}
	return name, ""
}
