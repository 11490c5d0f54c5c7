package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxRunesPerWord is the longest word WordPiece attempts to split; longer
// words become [UNK].
const maxRunesPerWord = 100

// WordPiece is a BERT tokenizer. It is read-only after construction and
// safe for concurrent use.
type WordPiece struct {
	vocab     *Vocab
	lowerCase bool
	maxLength int

	clsID, sepID, unkID int
}

// Option configures a WordPiece tokenizer.
type Option func(*WordPiece)

// WithLowerCase toggles lower-casing and accent stripping (default on).
func WithLowerCase(enabled bool) Option {
	return func(w *WordPiece) { w.lowerCase = enabled }
}

// WithMaxLength caps encoded sequences, truncating the second segment.
// Zero disables the cap.
func WithMaxLength(n int) Option {
	return func(w *WordPiece) { w.maxLength = n }
}

// NewWordPiece creates a tokenizer over vocab. The vocabulary must contain
// [CLS], [SEP] and [UNK].
func NewWordPiece(vocab *Vocab, opts ...Option) (*WordPiece, error) {
	w := &WordPiece{vocab: vocab, lowerCase: true}
	for _, opt := range opts {
		opt(w)
	}

	var ok bool
	if w.clsID, ok = vocab.ID(ClassToken); !ok {
		return nil, fmt.Errorf("vocab has no %s token", ClassToken)
	}
	if w.sepID, ok = vocab.ID(SeparatorToken); !ok {
		return nil, fmt.Errorf("vocab has no %s token", SeparatorToken)
	}
	if w.unkID, ok = vocab.ID(UnknownToken); !ok {
		return nil, fmt.Errorf("vocab has no %s token", UnknownToken)
	}
	if w.maxLength < 0 {
		return nil, fmt.Errorf("max length must not be negative, got %d", w.maxLength)
	}
	return w, nil
}

// Load reads vocab.txt at path and builds a tokenizer.
func Load(path string, opts ...Option) (*WordPiece, error) {
	vocab, err := LoadVocab(path)
	if err != nil {
		return nil, err
	}
	return NewWordPiece(vocab, opts...)
}

// SepID returns the [SEP] id.
func (w *WordPiece) SepID() int { return w.sepID }

// Encode returns [CLS] a [SEP] b [SEP]. With a max length set, pieces are
// dropped from the end of b until the sequence fits.
func (w *WordPiece) Encode(a, b string) ([]int, error) {
	idsA := w.ids(a)
	idsB := w.ids(b)

	if w.maxLength > 0 {
		room := w.maxLength - len(idsA) - 3
		if room < 0 {
			return nil, fmt.Errorf("%w: first segment has %d pieces, max length %d",
				ErrSequenceTooLong, len(idsA), w.maxLength)
		}
		if len(idsB) > room {
			idsB = idsB[:room]
		}
	}

	out := make([]int, 0, len(idsA)+len(idsB)+3)
	out = append(out, w.clsID)
	out = append(out, idsA...)
	out = append(out, w.sepID)
	out = append(out, idsB...)
	out = append(out, w.sepID)
	return out, nil
}

// Tokens maps ids back to classified pieces.
func (w *WordPiece) Tokens(ids []int) []Token {
	out := make([]Token, len(ids))
	for i, id := range ids {
		out[i] = NewToken(id, w.vocab.Piece(id))
	}
	return out
}

// Tokenize returns the word pieces of text, without special tokens.
func (w *WordPiece) Tokenize(text string) []string {
	var pieces []string
	for _, word := range w.basic(text) {
		pieces = append(pieces, w.split(word)...)
	}
	return pieces
}

func (w *WordPiece) ids(text string) []int {
	pieces := w.Tokenize(text)
	out := make([]int, len(pieces))
	for i, p := range pieces {
		id, ok := w.vocab.ID(p)
		if !ok {
			id = w.unkID
		}
		out[i] = id
	}
	return out
}

// basic cleans text and splits it into words and punctuation marks.
func (w *WordPiece) basic(text string) []string {
	text = clean(text)

	var words []string
	for _, word := range strings.Fields(text) {
		if w.lowerCase {
			word = stripAccents(strings.ToLower(word))
		}
		words = append(words, splitPunctuation(word)...)
	}
	return words
}

// split applies greedy longest-match-first WordPiece to one word.
func (w *WordPiece) split(word string) []string {
	chars := []rune(word)
	if len(chars) > maxRunesPerWord {
		return []string{UnknownToken}
	}

	var pieces []string
	for start := 0; start < len(chars); {
		end := len(chars)
		match := ""
		for start < end {
			sub := string(chars[start:end])
			if start > 0 {
				sub = ContinuationPrefix + sub
			}
			if _, ok := w.vocab.ID(sub); ok {
				match = sub
				break
			}
			end--
		}
		if match == "" {
			return []string{UnknownToken}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// clean drops invalid and control characters, maps whitespace to spaces
// and isolates CJK ideographs as single words.
func clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			continue
		case isWhitespace(r):
			b.WriteRune(' ')
		case isCJK(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripAccents(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, norm.NFD.String(s))
}

// splitPunctuation makes every punctuation rune its own word.
func splitPunctuation(word string) []string {
	var (
		out []string
		cur []rune
	)
	for _, r := range word {
		if isPunctuation(r) {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			out = append(out, string(r))
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, in
// addition to the Unicode P categories.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
