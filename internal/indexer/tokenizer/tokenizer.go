// Package tokenizer turns free text into index terms. Text is split on
// whitespace and lower-cased; a Policy can additionally drop any token that
// contains a rune other than a letter or number.
package tokenizer

import (
	"strings"
	"unicode"
)

// Policy controls which tokens survive normalisation. The same Policy must be
// used to build an index and to tokenize queries against it.
type Policy struct {
	AlnumOnly bool `json:"alnum_only" yaml:"alnumOnly"`
}

// Token represents a single normalised term and its position among the
// emitted tokens.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lower-cased Tokens in their original order.
// Empty input yields an empty slice.
func Tokenize(text string, policy Policy) []Token {
	words := strings.Fields(text)
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		term := strings.ToLower(word)
		if policy.AlnumOnly && !isAlnum(term) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: len(tokens),
		})
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string, policy Policy) []string {
	tokens := Tokenize(text, policy)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

func isAlnum(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
