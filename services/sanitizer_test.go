package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLaTeXSpecialCharacters(t *testing.T) {
	got := EscapeLaTeX("50% & $5 {test} ~tilde")

	assert.Contains(t, got, `50\%`)
	assert.Contains(t, got, `\&`)
	assert.Contains(t, got, `\$5`)
	assert.Contains(t, got, `\{test\}`)
	assert.Contains(t, got, `\textasciitilde{}tilde`)
}

func TestEscapeLaTeXTable(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "plain text stays plain", "plain text stays plain"},
		{"percent", "100% done", `100\% done`},
		{"ampersand", "Smith & Jones", `Smith \& Jones`},
		{"dollar", "$100", `\$100`},
		{"hash", "issue #4", `issue \#4`},
		{"caret", "x^2", `x\textasciicircum{}2`},
		{"underscore", "file_name", `file\_name`},
		{"braces", "{x}", `\{x\}`},
		{"tilde", "~/dir", `\textasciitilde{}/dir`},
		{"smart quotes", "“quoted” and ‘single’", `"quoted" and 'single'`},
		{"escaped apostrophe", `O\'Brien`, `O'Brien`},
		{"bare backslash", `a \ b`, `a \textbackslash{} b`},
		{"trailing backslash", `end\`, `end\textbackslash{}`},
		{"control word kept", `\emph{x}`, `\emph\{x\}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EscapeLaTeX(tc.in))
		})
	}
}

func TestEscapeLaTeXIdempotent(t *testing.T) {
	inputs := []string{
		"50% & $5 {test} ~tilde",
		"x^2 and file_name and #4",
		`a \ b`,
		`already \% escaped \& text`,
		`\textasciitilde{} and \textbackslash{}`,
		"“smart” quotes stay straight",
	}
	for _, in := range inputs {
		once := EscapeLaTeX(in)
		twice := EscapeLaTeX(once)
		assert.Equal(t, once, twice, "double escaping changed %q", in)

		thrice := EscapeLaTeX(twice)
		assert.Equal(t, once, thrice)
	}
}

func TestEscapeLaTeXPercentBeforeOthers(t *testing.T) {
	// A percent sign adjacent to other specials must not end up inside a
	// half-escaped sequence.
	got := EscapeLaTeX("%&")
	assert.Equal(t, `\%\&`, got)
	assert.Equal(t, got, EscapeLaTeX(got))
}

func TestEscapeLaTeXNoCommentIntroducer(t *testing.T) {
	got := EscapeLaTeX("a % mid-line comment would eat this")
	assert.NotContains(t, strings.ReplaceAll(got, `\%`, ""), "%")
}
