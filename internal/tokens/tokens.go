// Package tokens provides deterministic whitespace tokenisation with
// stable byte offsets. The chunker and the memory assembler both count
// with it, so budgets and chunk spans agree across runs.
package tokens

import "unicode"

// Token is a single token with its half-open byte span in the source text.
type Token struct {
	// Start and End are byte offsets into the source text.
	Start int
	End   int
}

// Split returns the tokens of text in order. A token is a maximal run of
// non-space runes.
func Split(text string) []Token {
	var toks []Token
	start := -1

	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, Token{Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, Token{Start: start, End: len(text)})
	}

	return toks
}

// Count returns the number of tokens in text without allocating spans.
func Count(text string) int {
	n := 0
	inTok := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inTok = false
			continue
		}
		if !inTok {
			n++
			inTok = true
		}
	}
	return n
}
