// Package product extracts a normalized product record from a product-page
// HTML tree and assembles the prose context used for question answering.
package product

import "fmt"

// Field names, as reported in ExtractionError and used as selector keys.
const (
	FieldName          = "name"
	FieldDiscountPrice = "discountPrice"
	FieldActualPrice   = "actualPrice"
	FieldRating        = "rating"
	FieldFeatures      = "features"
	FieldSpecs         = "specs"
	FieldDetails       = "details"
)

// Failure reasons.
const (
	ReasonNotFound         = "not found"
	ReasonOddFragmentCount = "odd fragment count"
)

// Record holds every extracted field of a product page.
// DiscountPrice and ActualPrice carry DiscountPricePrefix and
// ActualPricePrefix ahead of the page text.
// Context is derived from the other fields by BuildContext and is never set
// independently.
type Record struct {
	Name          string   `json:"productNames" yaml:"name"`
	DiscountPrice string   `json:"productDiscountPrice" yaml:"discount_price"`
	ActualPrice   string   `json:"productActualPrice" yaml:"actual_price"`
	Rating        string   `json:"productRating" yaml:"rating"`
	Features      []string `json:"productFeatures" yaml:"features"`
	Specs         []Spec   `json:"productSpecs" yaml:"specs"`
	Details       []string `json:"productDetails" yaml:"details"`
	Context       string   `json:"context" yaml:"context"`
}

// Spec is one key/value row of the technical specification table.
type Spec struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ExtractionError reports a field that could not be extracted.
// Use errors.As to inspect it.
type ExtractionError struct {
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}
