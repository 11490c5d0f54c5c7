package product

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MatchMode controls how a candidate compares the attribute value.
type MatchMode int

const (
	// MatchExact requires the attribute to equal the value.
	MatchExact MatchMode = iota
	// MatchToken requires the value to be one of the whitespace-separated
	// tokens of the attribute, which is how class lists behave.
	MatchToken
)

// Candidate is one (tag, attribute, value) query for a semantic field.
type Candidate struct {
	Tag   string
	Attr  string
	Value string
	Match MatchMode
}

// CSS renders the candidate as a goquery/cascadia selector.
func (c Candidate) CSS() string {
	op := "="
	if c.Match == MatchToken {
		op = "~="
	}
	return fmt.Sprintf("%s[%s%s%q]", c.Tag, c.Attr, op, c.Value)
}

func (c Candidate) String() string { return c.CSS() }

// ByID builds an exact id candidate.
func ByID(tag, id string) Candidate {
	return Candidate{Tag: tag, Attr: "id", Value: id, Match: MatchExact}
}

// ByClass builds a class-token candidate.
func ByClass(tag, class string) Candidate {
	return Candidate{Tag: tag, Attr: "class", Value: class, Match: MatchToken}
}

// FieldSelector is an ordered list of candidates for one field.
// The first candidate yielding at least one element wins.
type FieldSelector struct {
	Field      string
	Candidates []Candidate
}

// Find returns the first element matched by the highest-priority candidate
// that matches anything, along with that candidate's index.
func (fs FieldSelector) Find(doc *goquery.Document) (*goquery.Selection, int, bool) {
	for i, c := range fs.Candidates {
		sel := doc.Find(c.CSS())
		if sel.Length() > 0 {
			return sel.First(), i, true
		}
	}
	return nil, -1, false
}

func (fs FieldSelector) String() string {
	parts := make([]string, len(fs.Candidates))
	for i, c := range fs.Candidates {
		parts[i] = c.CSS()
	}
	return fs.Field + ": " + strings.Join(parts, ", ")
}

// Selectors is the table of field selectors used by an Extractor.
type Selectors struct {
	Name          FieldSelector
	DiscountPrice FieldSelector
	ActualPrice   FieldSelector
	Rating        FieldSelector
	Features      FieldSelector
	Specs         FieldSelector
	Details       FieldSelector
}

// DefaultSelectors returns the selector table for Amazon product pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Name: FieldSelector{Field: FieldName, Candidates: []Candidate{
			ByID("span", "productTitle"),
		}},
		DiscountPrice: FieldSelector{Field: FieldDiscountPrice, Candidates: []Candidate{
			ByID("span", "priceblock_dealprice"),
			ByID("span", "priceblock_ourprice"),
			ByID("span", "tp_price_block_total_price_ww"),
			ByID("span", "apexPriceToPay"),
		}},
		ActualPrice: FieldSelector{Field: FieldActualPrice, Candidates: []Candidate{
			ByClass("span", "priceBlockStrikePriceString"),
			ByClass("span", "a-text-price"),
		}},
		Rating: FieldSelector{Field: FieldRating, Candidates: []Candidate{
			ByClass("span", "a-icon-alt"),
		}},
		Features: FieldSelector{Field: FieldFeatures, Candidates: []Candidate{
			ByID("div", "feature-bullets"),
		}},
		Specs: FieldSelector{Field: FieldSpecs, Candidates: []Candidate{
			ByID("table", "productDetails_techSpec_section_1"),
		}},
		Details: FieldSelector{Field: FieldDetails, Candidates: []Candidate{
			ByID("div", "productDetails_db_sections"),
		}},
	}
}
