package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Preprocess normalises a raw engine sentence for storage and
// publication: leading whitespace and a leading ellipsis are stripped,
// the first letter is uppercased, and terminal punctuation is ensured.
// Returns "" when nothing meaningful survives; callers skip those.
func Preprocess(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "...")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(r)) + text[size:]

	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") &&
		!strings.HasSuffix(text, "?") && !strings.HasSuffix(text, "…") {
		text += "."
	}
	return text
}
