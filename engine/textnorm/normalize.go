// Package textnorm prepares dataset questions and user messages for matching.
// Both sides of a comparison must go through Normalize so that informal
// spellings and punctuation do not affect the score.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Substitution rewrites one informal token to its formal form.
type Substitution struct {
	From string
	To   string
}

// Informal is the fixed informal->formal table, applied in order.
// Identity entries are kept so the table mirrors the vocabulary the
// dataset is written against.
var Informal = []Substitution{
	{"gimana", "bagaimana"},
	{"gmn", "bagaimana"},
	{"apaan", "apa"},
	{"knp", "kenapa"},
	{"gk", "tidak"},
	{"ga", "tidak"},
	{"kalo", "kalau"},
	{"klo", "kalau"},
	{"info", "informasi"},
	{"univ", "universitas"},
	{"siakad", "siakad"},
	{"elearning", "elearning"},
	{"password", "password"},
	{"pw", "password"},
}

// Normalize lower-cases text, expands informal tokens, replaces punctuation
// with spaces and collapses whitespace. It never fails; blank or
// punctuation-only input yields "".
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = strings.ToLower(text)
	for _, s := range Informal {
		text = replaceWord(text, s.From, s.To)
	}

	text = collapseTerminators(text)
	text = strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// Tokens splits normalized text into its distinct tokens.
func Tokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// isWordRune reports whether r belongs to a token. It is the same class that
// survives punctuation stripping, which keeps Normalize idempotent.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// replaceWord replaces every whole-word occurrence of word, scanning left to
// right without overlap.
func replaceWord(text, word, repl string) string {
	if !strings.Contains(text, word) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for {
		j := strings.Index(text[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			b.WriteString(text[i:start])
			b.WriteString(repl)
		} else {
			b.WriteString(text[i:end])
		}
		i = end
	}
	b.WriteString(text[i:])
	return b.String()
}

func boundaryBefore(text string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:at])
	return !isWordRune(r)
}

func boundaryAfter(text string, at int) bool {
	if at >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[at:])
	return !isWordRune(r)
}

// collapseTerminators turns each run of '?', '!' or '.' into one space.
func collapseTerminators(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inRun := false
	for _, r := range text {
		if r == '?' || r == '!' || r == '.' {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}
