package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		joinCompound bool
		want         string
	}{
		{"accents stripped", "José García", false, "jose garcia"},
		{"punctuation to spaces", "Smith-Jones", false, "smith jones"},
		{"apostrophe", "O'Brien", false, "o brien"},
		{"whitespace collapsed", "  Mary   Ann  ", false, "mary ann"},
		{"repeats squeezed", "Liiiisa", false, "liisa"},
		{"two repeats kept", "Aaron", false, "aaron"},
		{"empty", "   ", false, ""},
		{"compound keeps rendering", "de la Cruz", true, "de la cruz"},
		{"mixed marks and punctuation", "Zoë.Müller", false, "zoe muller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input, tt.joinCompound))
		})
	}
}

func TestNameTokensCompound(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"de la Cruz", []string{"de la", "cruz"}},
		{"Van der Berg", []string{"van der", "berg"}},
		{"Abu Bakr", []string{"abu bakr"}},
		{"Maria de", []string{"maria", "de"}},
		{"Smith", []string{"smith"}},
		{"el", []string{"el"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NameTokens(tt.input, true))
		})
	}

	assert.Equal(t, []string{"de", "la", "cruz"}, NameTokens("de la Cruz", false))
}

func TestFirstName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tony", "anthony"},
		{"MIKE", "michael"},
		{" mikey ", "michael"},
		{"Muhammad", "mohamed"},
		{"Catherine", "catherine"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstName(tt.input))
		})
	}
}

func TestSoundex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Robert", "R163"},
		{"Rupert", "R163"},
		{"Tymczak", "T522"},
		{"O'Brien", "O165"},
		{"Obrien", "O165"},
		{"Lee", "L000"},
		{"A", "A000"},
		{"Washington", "W252"},
		{"", ""},
		{" -- ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Soundex(tt.input))
		})
	}
}

func TestSoundexAlwaysFourCharacters(t *testing.T) {
	inputs := []string{"x", "Ng", "Schwarzenegger", "Øyvind", "李", "de la Cruz", "o", "Ab", "Zzzzzz", "Åsa"}

	for _, in := range inputs {
		code := Soundex(in)
		assert.Equal(t, 4, utf8.RuneCountInString(code), "Soundex(%q) = %q", in, code)
	}
}

func TestDoubleMetaphone(t *testing.T) {
	p1, _ := DoubleMetaphone("Smith")
	p2, _ := DoubleMetaphone("Smyth")
	assert.NotEmpty(t, p1)
	assert.Equal(t, p1, p2)

	p, s := DoubleMetaphone("")
	assert.Empty(t, p)
	assert.Empty(t, s)
}
