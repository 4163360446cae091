package normalize

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// soundexDigits maps letters to their Soundex digit. Letters not listed
// (vowels, h, w, y) carry no digit.
var soundexDigits = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Soundex returns a four character phonetic code: the first letter
// uppercased followed by digits for the remaining letters. Adjacent equal
// digits collapse, letters without a digit are dropped (but still break a
// run), and the code is zero padded or truncated to four characters.
// Empty input yields an empty code.
func Soundex(text string) string {
	name := Clean(StripAccents(text))
	if name == "" {
		return ""
	}

	letters := []rune(name)
	code := make([]rune, 0, 4)
	code = append(code, unicode.ToUpper(letters[0]))

	var prev byte
	for _, r := range letters[1:] {
		if !unicode.IsLetter(r) {
			continue
		}
		d, ok := soundexDigits[r]
		if ok && d != prev {
			code = append(code, rune(d))
		}
		prev = d
		if len(code) == 4 {
			break
		}
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// DoubleMetaphone returns the primary and secondary Double Metaphone codes
// of a cleaned name.
func DoubleMetaphone(text string) (primary, secondary string) {
	name := Clean(StripAccents(text))
	if name == "" {
		return "", ""
	}
	primary, secondary = matchr.DoubleMetaphone(strings.ReplaceAll(name, " ", ""))
	return primary, secondary
}
