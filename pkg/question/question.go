// Package question normalizes free-text questions before they are encoded
// for the answer model.
package question

import (
	"strings"
	"unicode"
)

// Suffix is appended to every normalized question, even one that already
// ended in a question mark (its punctuation is stripped first).
const Suffix = " ?"

// keepWordRune drops every rune that is not a letter, number, underscore or
// Unicode whitespace. NBSP and vertical tab survive so they still separate
// words.
func keepWordRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
		return r
	}
	return -1
}

// Speller corrects the spelling of a single word.
type Speller interface {
	Correct(word string) string
}

// SpellerFunc adapts a function to the Speller interface.
type SpellerFunc func(word string) string

// Correct calls f(word).
func (f SpellerFunc) Correct(word string) string { return f(word) }

// identity leaves words untouched.
var identity = SpellerFunc(func(w string) string { return w })

// Normalizer strips punctuation, lower-cases and spell-corrects questions.
type Normalizer struct {
	speller Speller
}

// NewNormalizer returns a Normalizer using s for per-word correction.
// A nil s disables correction.
func NewNormalizer(s Speller) *Normalizer {
	if s == nil {
		s = identity
	}
	return &Normalizer{speller: s}
}

// Normalize returns the cleaned question followed by " ?".
// An empty or punctuation-only question yields just " ?".
func (n *Normalizer) Normalize(q string) string {
	q = strings.Map(keepWordRune, q)
	words := strings.Fields(strings.ToLower(q))
	for i, w := range words {
		words[i] = n.speller.Correct(w)
	}
	return strings.Join(words, " ") + Suffix
}
