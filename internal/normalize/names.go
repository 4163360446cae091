package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// compoundPrefixes are surname particles merged with the following token.
var compoundPrefixes = map[string]bool{
	"van": true, "der": true, "de": true, "la": true, "del": true, "di": true,
	"da": true, "dos": true, "el": true, "al": true, "abu": true,
}

// firstNameVariants maps common nicknames and spellings to one canonical
// first name.
var firstNameVariants = map[string]string{
	"mo":       "mohamed",
	"mohammed": "mohamed",
	"muhammad": "mohamed",
	"muhammed": "mohamed",
	"mohammad": "mohamed",
	"alex":     "alexander",
	"tony":     "anthony",
	"mike":     "michael",
	"mikey":    "michael",
	"tom":      "thomas",
	"tommy":    "thomas",
	"johnny":   "john",
	"jon":      "john",
	"bob":      "robert",
	"rob":      "robert",
	"bill":     "william",
	"will":     "william",
	"jim":      "james",
	"jimmy":    "james",
	"dave":     "david",
	"dan":      "daniel",
	"danny":    "daniel",
	"chris":    "christopher",
	"matt":     "matthew",
	"nick":     "nicholas",
	"steve":    "stephen",
	"liz":      "elizabeth",
	"beth":     "elizabeth",
	"sue":      "susan",
	"jenny":    "jennifer",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents decomposes text and drops combining marks ("José" -> "Jose").
func StripAccents(text string) string {
	result, _, err := transform.String(stripMarks, text)
	if err != nil {
		return text
	}
	return result
}

// SqueezeRepeats shortens runs of three or more identical characters to two.
func SqueezeRepeats(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Clean lowercases text, turns punctuation into single spaces and collapses
// whitespace.
func Clean(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// NameTokens normalizes a name and splits it into tokens. When
// joinCompound is set, a surname particle that is not the last token is
// merged with the token after it; the merged pair is not re-scanned.
func NameTokens(text string, joinCompound bool) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cleaned := Clean(SqueezeRepeats(StripAccents(strings.TrimSpace(text))))
	parts := strings.Fields(cleaned)
	if !joinCompound || len(parts) < 2 {
		return parts
	}

	tokens := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if compoundPrefixes[p] && i+1 < len(parts) {
			tokens = append(tokens, p+" "+parts[i+1])
			i++
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// Name returns the normalized form of a name component.
func Name(text string, joinCompound bool) string {
	return strings.Join(NameTokens(text, joinCompound), " ")
}

// FirstName cleans a first name and maps known nicknames to their
// canonical form. Unknown names pass through cleaned.
func FirstName(text string) string {
	f := Name(text, false)
	if f == "" {
		return ""
	}
	return CanonicalFirstName(f)
}

// CanonicalFirstName looks up an already-cleaned first name in the
// nickname table.
func CanonicalFirstName(cleaned string) string {
	if canonical, ok := firstNameVariants[cleaned]; ok {
		return canonical
	}
	return cleaned
}
