// Package spell corrects individual words against a frequency dictionary.
//
// A word already in the dictionary is returned unchanged. Otherwise the
// dictionary words within edit distance 1 are considered, then those within
// distance 2, and the most frequent candidate wins. Deletes, inserts,
// substitutions and swaps of two adjacent letters each count as one edit.
// Words with no candidate come back as they were.
package spell

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/hbollon/go-edlib"
)

//go:embed words.txt
var defaultWords string

// MaxDistance is the largest edit distance considered for a correction.
const MaxDistance = 2

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
)

// Dictionary maps lower-case words to their relative frequency.
// It is read-only after construction and safe for concurrent use.
type Dictionary struct {
	freq  map[string]int
	byLen map[int][]string
	// bound caps the plain Levenshtein distance at twice MaxDistance: an
	// adjacent swap costs two there, so anything above the cap is out of
	// reach.
	bound *levenshtein.Params
}

// Default returns the dictionary embedded in the binary.
func Default() *Dictionary {
	defaultOnce.Do(func() {
		d, err := Load(strings.NewReader(defaultWords))
		if err != nil {
			panic(fmt.Sprintf("spell: embedded dictionary: %v", err))
		}
		defaultDict = d
	})
	return defaultDict
}

// LoadFile reads a dictionary file (see Load for the format).
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads one entry per line: a word, optionally followed by whitespace
// and an integer count (default 1). Blank lines and lines starting with
// '#' are skipped. Repeated words accumulate their counts.
func Load(r io.Reader) (*Dictionary, error) {
	freq := make(map[string]int)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		count := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("dictionary line %d: invalid count %q", line, fields[1])
			}
			count = n
		}
		freq[strings.ToLower(fields[0])] += count
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return New(freq), nil
}

// New builds a dictionary from a word → frequency map.
func New(freq map[string]int) *Dictionary {
	d := &Dictionary{
		freq:  make(map[string]int, len(freq)),
		byLen: make(map[int][]string),
		bound: levenshtein.NewParams().MaxCost(2 * MaxDistance),
	}
	for w, n := range freq {
		w = strings.ToLower(w)
		if _, ok := d.freq[w]; !ok {
			size := utf8.RuneCountInString(w)
			d.byLen[size] = append(d.byLen[size], w)
		}
		d.freq[w] += n
	}
	for _, words := range d.byLen {
		sort.Strings(words)
	}
	return d
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int { return len(d.freq) }

// Known reports whether word is in the dictionary.
func (d *Dictionary) Known(word string) bool {
	_, ok := d.freq[strings.ToLower(word)]
	return ok
}

// Correct returns the most likely spelling of word.
func (d *Dictionary) Correct(word string) string {
	if word == "" || d.Known(word) || strings.IndexFunc(word, unicode.IsDigit) >= 0 {
		return word
	}

	lower := strings.ToLower(word)
	size := utf8.RuneCountInString(lower)

	best, bestDist, bestFreq := "", MaxDistance+1, 0
	for n := size - MaxDistance; n <= size+MaxDistance; n++ {
		for _, cand := range d.byLen[n] {
			dist := d.distance(lower, cand)
			if dist > MaxDistance {
				continue
			}
			f := d.freq[cand]
			// Ties: higher frequency, then lexical order.
			if dist < bestDist || (dist == bestDist && (f > bestFreq || (f == bestFreq && cand < best))) {
				best, bestDist, bestFreq = cand, dist, f
			}
		}
	}

	if best == "" {
		return word
	}
	return best
}

// distance is the optimal string alignment distance between a and b.
func (d *Dictionary) distance(a, b string) int {
	if levenshtein.Distance(a, b, d.bound) > 2*MaxDistance {
		return MaxDistance + 1
	}
	return edlib.OSADamerauLevenshteinDistance(a, b)
}
