package product

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/shopqa/internal/logger"
)

// fragmentSep splits multi-value blocks. The page markup separates list
// entries with newlines, runs of spaces, or U+200E marks in spec tables.
var fragmentSep = regexp.MustCompile(`[\n\x{200e}]|\s{2,}`)

// MatchFunc is called once per field with the index of the winning
// candidate.
type MatchFunc func(field string, candidate int)

// Extractor pulls a Record out of a product page.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	selectors Selectors
	onMatch   MatchFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors replaces the default selector table.
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) { e.selectors = s }
}

// WithMatchFunc registers a callback reporting the winning candidate per field.
func WithMatchFunc(fn MatchFunc) Option {
	return func(e *Extractor) { e.onMatch = fn }
}

// NewExtractor creates an Extractor using DefaultSelectors unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{selectors: DefaultSelectors()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractHTML parses r as HTML and extracts a Record from it.
func (e *Extractor) ExtractHTML(r io.Reader) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(doc)
}

// Extract reads every field from doc. Either all fields are found or an
// *ExtractionError names the first one that was not.
func (e *Extractor) Extract(doc *goquery.Document) (*Record, error) {
	var (
		rec Record
		err error
	)

	if rec.Name, err = e.text(doc, e.selectors.Name); err != nil {
		return nil, err
	}
	if rec.DiscountPrice, err = e.text(doc, e.selectors.DiscountPrice); err != nil {
		return nil, err
	}
	rec.DiscountPrice = DiscountPricePrefix + rec.DiscountPrice
	if rec.ActualPrice, err = e.text(doc, e.selectors.ActualPrice); err != nil {
		return nil, err
	}
	rec.ActualPrice = ActualPricePrefix + rec.ActualPrice
	if rec.Rating, err = e.text(doc, e.selectors.Rating); err != nil {
		return nil, err
	}

	if rec.Features, err = e.fragments(doc, e.selectors.Features); err != nil {
		return nil, err
	}

	specFragments, err := e.fragments(doc, e.selectors.Specs)
	if err != nil {
		return nil, err
	}
	if rec.Specs, err = PairSpecs(specFragments); err != nil {
		return nil, err
	}

	if rec.Details, err = e.fragments(doc, e.selectors.Details); err != nil {
		return nil, err
	}

	rec.Context = BuildContext(rec)

	logger.Debug("product extracted",
		"name", rec.Name,
		"features", len(rec.Features),
		"specs", len(rec.Specs),
		"details", len(rec.Details),
		"context_size", len(rec.Context))

	return &rec, nil
}

// text returns the trimmed text of the first element matched by fs.
func (e *Extractor) text(doc *goquery.Document, fs FieldSelector) (string, error) {
	sel, idx, ok := fs.Find(doc)
	if !ok {
		logger.Debug("no selector candidate matched", "field", fs.Field, "candidates", len(fs.Candidates))
		return "", &ExtractionError{Field: fs.Field, Reason: ReasonNotFound}
	}
	logger.Debug("selector candidate matched", "field", fs.Field, "candidate", fs.Candidates[idx].CSS(), "index", idx)
	if e.onMatch != nil {
		e.onMatch(fs.Field, idx)
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (e *Extractor) fragments(doc *goquery.Document, fs FieldSelector) ([]string, error) {
	raw, err := e.text(doc, fs)
	if err != nil {
		return nil, err
	}
	return SplitFragments(raw), nil
}

// SplitFragments splits a multi-value block into trimmed, non-empty entries.
func SplitFragments(raw string) []string {
	parts := fragmentSep.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PairSpecs pairs fragment 2i (key) with fragment 2i+1 (value).
func PairSpecs(fragments []string) ([]Spec, error) {
	if len(fragments)%2 != 0 {
		return nil, &ExtractionError{Field: FieldSpecs, Reason: ReasonOddFragmentCount}
	}
	specs := make([]Spec, 0, len(fragments)/2)
	for i := 0; i < len(fragments); i += 2 {
		specs = append(specs, Spec{Key: fragments[i], Value: fragments[i+1]})
	}
	return specs, nil
}
