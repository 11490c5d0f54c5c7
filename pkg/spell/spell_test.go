package spell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDict() *Dictionary {
	return New(map[string]int{
		"price":   500,
		"prime":   20,
		"what":    900,
		"battery": 300,
		"the":     1000,
		"colour":  50,
		"color":   80,
		"weight":  200,
		"eight":   150,
	})
}

func TestCorrect(t *testing.T) {
	d := testDict()

	tests := []struct {
		in   string
		want string
	}{
		{in: "price", want: "price"},
		{in: "prise", want: "price"},      // distance 1 to price and prime; price is more frequent
		{in: "batery", want: "battery"},   // one deletion
		{in: "batttery", want: "battery"}, // one insertion
		{in: "bttry", want: "battery"},    // two deletions
		{in: "wht", want: "what"},         // distance 1 beats the more frequent "the" at distance 2
		{in: "colr", want: "color"},       // color (1) over colour (2)
		{in: "weigt", want: "weight"},     // weight (1) over eight (2)
		{in: "xyzzyq", want: "xyzzyq"},    // nothing close
		{in: "64gb", want: "64gb"},        // digits are left alone
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := d.Correct(tt.in); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrect_TieBreaksLexically(t *testing.T) {
	d := New(map[string]int{"cat": 5, "bat": 5})
	if got := d.Correct("dat"); got != "bat" {
		t.Errorf("Correct(dat) = %q, want bat", got)
	}
}

func TestCorrect_TranspositionIsOneEdit(t *testing.T) {
	tests := []struct {
		name string
		freq map[string]int
		in   string
		want string
	}{
		{
			// "ten" is one substitution away; the swap must not cost two.
			name: "swap beats rarer substitution",
			freq: map[string]int{"the": 1000000, "ten": 5},
			in:   "teh",
			want: "the",
		},
		{
			name: "swap plus deletion is two edits",
			freq: map[string]int{"the": 10},
			in:   "tehx",
			want: "the",
		},
		{
			name: "swap at the start",
			freq: map[string]int{"price": 10},
			in:   "rpice",
			want: "price",
		},
		{
			name: "three edits is too far",
			freq: map[string]int{"battery": 10},
			in:   "abtetyr",
			want: "abtetyr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.freq).Correct(tt.in); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKnown_CaseInsensitive(t *testing.T) {
	d := testDict()
	if !d.Known("Price") {
		t.Error("Known should ignore case")
	}
	if d.Known("pricey") {
		t.Error("pricey should not be known")
	}
}

// --- Load ---

func TestLoad(t *testing.T) {
	input := `# comment
price 10
Price 5

battery
  weight   7
`
	d, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d, want 3", d.Len())
	}
	if d.freq["price"] != 15 {
		t.Errorf("price count = %d, want 15", d.freq["price"])
	}
	if d.freq["battery"] != 1 {
		t.Errorf("battery count = %d, want default 1", d.freq["battery"])
	}
}

func TestLoad_InvalidCount(t *testing.T) {
	_, err := Load(strings.NewReader("price lots\n"))
	if err == nil {
		t.Fatal("expected error for non-numeric count")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error should name the line, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("kettle 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := d.Correct("kettel"); got != "kettle" {
		t.Errorf("Correct(kettel) = %q", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d.Len() < 100 {
		t.Fatalf("embedded dictionary too small: %d", d.Len())
	}
	if Default() != d {
		t.Error("Default() should return the same instance")
	}
	for _, w := range []string{"what", "is", "the", "price", "battery", "weight"} {
		if !d.Known(w) {
			t.Errorf("embedded dictionary should know %q", w)
		}
	}
	if got := d.Correct("batery"); got != "battery" {
		t.Errorf("Correct(batery) = %q, want battery", got)
	}
}
