package index

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase tokens on whitespace and punctuation.
// No stemming, stopword removal, or language-specific normalization is
// applied; a per-field analyzer is where a caller could add that.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
