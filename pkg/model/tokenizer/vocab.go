package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Vocab is a bidirectional piece ↔ id table. Ids are line numbers of the
// vocab.txt file, starting at zero.
type Vocab struct {
	ids    map[string]int
	pieces []string
}

// NewVocab builds a vocabulary from pieces in id order.
func NewVocab(pieces []string) *Vocab {
	v := &Vocab{
		ids:    make(map[string]int, len(pieces)),
		pieces: append([]string(nil), pieces...),
	}
	for i, p := range v.pieces {
		if _, dup := v.ids[p]; !dup {
			v.ids[p] = i
		}
	}
	return v
}

// ReadVocab reads one piece per line.
func ReadVocab(r io.Reader) (*Vocab, error) {
	var pieces []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		pieces = append(pieces, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewVocab(pieces), nil
}

// LoadVocab reads a vocab.txt file.
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return ReadVocab(f)
}

// ID returns the id of piece.
func (v *Vocab) ID(piece string) (int, bool) {
	id, ok := v.ids[piece]
	return id, ok
}

// Piece returns the piece with the given id, or [UNK] when out of range.
func (v *Vocab) Piece(id int) string {
	if id < 0 || id >= len(v.pieces) {
		return UnknownToken
	}
	return v.pieces[id]
}

// Len returns the vocabulary size.
func (v *Vocab) Len() int { return len(v.pieces) }
