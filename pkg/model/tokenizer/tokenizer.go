// Package tokenizer implements the BERT uncased WordPiece tokenizer used to
// encode (question, context) pairs for the answer model.
package tokenizer

import (
	"errors"
	"strings"
)

// Special tokens of a BERT vocabulary.
const (
	ClassToken     = "[CLS]"
	SeparatorToken = "[SEP]"
	UnknownToken   = "[UNK]"
	PaddingToken   = "[PAD]"

	// ContinuationPrefix marks a word piece that attaches to the previous
	// piece without a space.
	ContinuationPrefix = "##"
)

// ErrSequenceTooLong is returned when the first segment alone does not fit
// the configured maximum length.
var ErrSequenceTooLong = errors.New("sequence exceeds maximum length")

// Tokenizer encodes text pairs into token ids and maps ids back to pieces.
type Tokenizer interface {
	// Encode returns [CLS] a [SEP] b [SEP] as vocabulary ids.
	Encode(a, b string) ([]int, error)

	// Tokens maps ids to their pieces.
	Tokens(ids []int) []Token

	// SepID is the id of the separator token.
	SepID() int
}

// Token is one entry of an encoded sequence.
type Token struct {
	ID           int
	Text         string // piece as it appears in the vocabulary, marker included
	Continuation bool   // attaches to the previous piece without a space
}

// Surface returns the piece text without its continuation marker.
func (t Token) Surface() string {
	if t.Continuation {
		return strings.TrimPrefix(t.Text, ContinuationPrefix)
	}
	return t.Text
}

// NewToken classifies a vocabulary piece.
func NewToken(id int, piece string) Token {
	return Token{
		ID:           id,
		Text:         piece,
		Continuation: len(piece) > len(ContinuationPrefix) && strings.HasPrefix(piece, ContinuationPrefix),
	}
}
