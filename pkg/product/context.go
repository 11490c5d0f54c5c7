package product

import "strings"

// Prefixes Extract stores on the two price fields. BuildContext writes the
// fields as they are.
const (
	DiscountPricePrefix = "Product Price after Discount "
	ActualPricePrefix   = "Product Actual Price "
)

// BuildContext assembles the prose paragraph fed to the answerer. It reads
// every field except Context, so calling it again on its own output yields
// the same bytes.
//
// Features and spec rows are each followed by ", "; the final two
// characters are then dropped once and ".\n" appended. With no features
// and no specs this removes the ".\n" after the rating, which the closing
// ".\n" puts back.
func BuildContext(r Record) string {
	var b strings.Builder

	b.WriteString(r.Name)
	b.WriteString("\n")
	b.WriteString(r.DiscountPrice)
	b.WriteString(". ")
	b.WriteString(r.ActualPrice)
	b.WriteString(".\n")
	b.WriteString(r.Rating)
	b.WriteString(".\n")

	for _, f := range r.Features {
		b.WriteString(f)
		b.WriteString(", ")
	}
	for _, s := range r.Specs {
		b.WriteString(s.Key)
		b.WriteString(" ")
		b.WriteString(s.Value)
		b.WriteString(", ")
	}

	out := b.String()
	return out[:len(out)-2] + ".\n"
}
