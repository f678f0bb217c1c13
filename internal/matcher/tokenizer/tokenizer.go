// Package tokenizer turns free text into the lowercase alphanumeric form the
// matcher works on. Normalize keeps only [a-z0-9] and whitespace, replacing
// every other character with a space. Tokenize splits the normalized text on
// whitespace runs.
package tokenizer

import (
	"strings"
	"unicode"
)

// Normalize lowercases text and replaces every rune outside [a-z0-9] and
// whitespace with a single space. Whitespace runes are kept as they are.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case isSpace(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Tokenize normalizes text and returns its whitespace-separated tokens in
// source order. Duplicates are retained.
func Tokenize(text string) []string {
	tokens := strings.FieldsFunc(Normalize(text), isSpace)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// isSpace reports whether r belongs to the whitespace class used for
// splitting. U+0085 is not whitespace here while U+FEFF is.
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r)
}
