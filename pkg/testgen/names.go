package testgen

import (
	"strings"
	"unicode"
)

// splitWords breaks an identifier into lowercase words on separators and
// case changes: "parseHTTPRequest_v2" -> parse, http, request, v2.
func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func joinWords(parts []string) []string {
	var words []string
	for _, p := range parts {
		words = append(words, splitWords(p)...)
	}
	return words
}

func snake(parts ...string) string {
	return strings.Join(joinWords(parts), "_")
}

func pascal(parts ...string) string {
	var b strings.Builder
	for _, w := range joinWords(parts) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func camel(parts ...string) string {
	words := joinWords(parts)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func sentence(parts ...string) string {
	return strings.Join(joinWords(parts), " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
