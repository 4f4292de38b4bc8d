package services

import (
	"strings"
)

// knownEscapes are the escape sequences EscapeLaTeX itself produces. Any
// occurrence of one of these is copied through untouched on every pass, which
// makes repeated escaping a no-op. Longest sequences first so prefix matching
// never splits a token.
var knownEscapes = []string{
	`\textasciicircum{}`,
	`\textasciitilde{}`,
	`\textbackslash{}`,
	`\%`,
	`\&`,
	`\$`,
	`\#`,
	`\_`,
	`\{`,
	`\}`,
}

// specialChars are the LaTeX text-mode special characters and their escape
// sequences, in substitution order. The percent sign is handled first and
// separately; a stray comment introducer would truncate the rest of the line.
// The apostrophe is not special in text mode and is deliberately left alone.
var specialChars = []struct {
	ch   byte
	repl string
}{
	{'&', `\&`},
	{'$', `\$`},
	{'#', `\#`},
	{'^', `\textasciicircum{}`},
	{'_', `\_`},
	{'{', `\{`},
	{'}', `\}`},
	{'~', `\textasciitilde{}`},
}

// smartQuotes maps curly quotes to their straight equivalents.
var smartQuotes = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// EscapeLaTeX converts arbitrary text into a form safe to substitute into
// the biosketch template. It is safe to call on text that is already
// partially or fully escaped: sequences it would have produced itself are
// never escaped twice.
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	// Undo escapes of characters that are not special in text mode;
	// previously stored data occasionally carries them.
	s := strings.ReplaceAll(text, `\'`, `'`)
	s = strings.ReplaceAll(s, "\\`", "`")

	s = smartQuotes.Replace(s)

	s = escapeChar(s, '%', `\%`)
	for _, sc := range specialChars {
		s = escapeChar(s, sc.ch, sc.repl)
	}

	// Last, so it cannot re-mangle sequences introduced above.
	return escapeBackslashes(s)
}

// escapeTokenAt returns the length of the known escape sequence starting at
// s[i], or 0 when s[i:] does not start one.
func escapeTokenAt(s string, i int) int {
	for _, esc := range knownEscapes {
		if strings.HasPrefix(s[i:], esc) {
			return len(esc)
		}
	}
	return 0
}

// escapeChar replaces every unescaped occurrence of ch with repl, leaving
// recognized escape sequences intact.
func escapeChar(s string, ch byte, repl string) string {
	if strings.IndexByte(s, ch) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			if n := escapeTokenAt(s, i); n > 0 {
				b.WriteString(s[i : i+n])
				i += n
				continue
			}
			b.WriteByte(s[i])
			i++
			continue
		}
		if s[i] == ch {
			b.WriteString(repl)
			i++
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// escapeBackslashes rewrites bare backslashes to their literal rendering. A
// backslash is bare when it neither starts a recognized escape sequence nor
// is immediately followed by a letter or brace (a control word or group).
func escapeBackslashes(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		if n := escapeTokenAt(s, i); n > 0 {
			b.WriteString(s[i : i+n])
			i += n
			continue
		}
		if i+1 < len(s) && (isASCIILetter(s[i+1]) || s[i+1] == '{' || s[i+1] == '}') {
			b.WriteByte('\\')
			i++
			continue
		}
		b.WriteString(`\textbackslash{}`)
		i++
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
