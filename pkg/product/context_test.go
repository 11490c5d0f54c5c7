package product

import "testing"

func sampleRecord() Record {
	return Record{
		Name:          "Acme Kettle",
		DiscountPrice: DiscountPricePrefix + "$20",
		ActualPrice:   ActualPricePrefix + "$30",
		Rating:        "4.1 out of 5 stars",
		Features:      []string{"1.7 litre", "Auto shut-off"},
		Specs:         []Spec{{Key: "Wattage", Value: "2200 W"}},
		Details:       []string{"ASIN", "B0KETTLE"},
	}
}

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name string
		mod  func(r *Record)
		want string
	}{
		{
			name: "features and specs",
			mod:  func(*Record) {},
			want: "Acme Kettle\nProduct Price after Discount $20. Product Actual Price $30.\n4.1 out of 5 stars.\n1.7 litre, Auto shut-off, Wattage 2200 W.\n",
		},
		{
			name: "features only",
			mod:  func(r *Record) { r.Specs = nil },
			want: "Acme Kettle\nProduct Price after Discount $20. Product Actual Price $30.\n4.1 out of 5 stars.\n1.7 litre, Auto shut-off.\n",
		},
		{
			name: "specs only",
			mod:  func(r *Record) { r.Features = nil },
			want: "Acme Kettle\nProduct Price after Discount $20. Product Actual Price $30.\n4.1 out of 5 stars.\nWattage 2200 W.\n",
		},
		{
			name: "no multi-value fields",
			mod: func(r *Record) {
				r.Features = nil
				r.Specs = nil
			},
			want: "Acme Kettle\nProduct Price after Discount $20. Product Actual Price $30.\n4.1 out of 5 stars.\n",
		},
		{
			name: "details are not part of the context",
			mod:  func(r *Record) { r.Details = []string{"ignored"} },
			want: "Acme Kettle\nProduct Price after Discount $20. Product Actual Price $30.\n4.1 out of 5 stars.\n1.7 litre, Auto shut-off, Wattage 2200 W.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			tt.mod(&r)
			if got := BuildContext(r); got != tt.want {
				t.Errorf("BuildContext() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestBuildContext_Idempotent(t *testing.T) {
	r := sampleRecord()
	r.Context = BuildContext(r)

	again := r
	again.Context = "stale"
	if got := BuildContext(again); got != r.Context {
		t.Errorf("regenerated context differs:\n%q\n%q", got, r.Context)
	}
}
