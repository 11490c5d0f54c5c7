package answer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jmylchreest/shopqa/pkg/model/inference"
	"github.com/jmylchreest/shopqa/pkg/model/tokenizer"
	"github.com/jmylchreest/shopqa/pkg/question"
	"github.com/jmylchreest/shopqa/pkg/spell"
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"what", "colour", "is", "it", "?",
	"app", "##le", "red", ".",
}

func newTestTokenizer(t *testing.T) *tokenizer.WordPiece {
	t.Helper()
	tok, err := tokenizer.NewWordPiece(tokenizer.NewVocab(testVocab))
	if err != nil {
		t.Fatalf("NewWordPiece() error = %v", err)
	}
	return tok
}

func pieces(texts ...string) []tokenizer.Token {
	out := make([]tokenizer.Token, len(texts))
	for i, s := range texts {
		out[i] = tokenizer.NewToken(i, s)
	}
	return out
}

// --- Reconstruct ---

func TestReconstruct(t *testing.T) {
	tokens := pieces("App", "##le", "is", "red")

	tests := []struct {
		name string
		span Span
		want string
	}{
		{name: "continuation merge", span: Span{Start: 0, End: 1}, want: "Apple"},
		{name: "word pieces", span: Span{Start: 2, End: 3}, want: "is red"},
		{name: "whole sequence", span: Span{Start: 0, End: 3}, want: "Apple is red"},
		{name: "single token", span: Span{Start: 3, End: 3}, want: "red"},
		{name: "start after end", span: Span{Start: 3, End: 1}, want: "red"},
		{name: "continuation first", span: Span{Start: 1, End: 2}, want: "##le is"},
		{name: "end past tokens", span: Span{Start: 2, End: 9}, want: "is red"},
		{name: "start out of range", span: Span{Start: 4, End: 4}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconstruct(tokens, tt.span); got != tt.want {
				t.Errorf("Reconstruct(%+v) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}
}

// --- Span selection ---

func TestSelectSpan(t *testing.T) {
	tests := []struct {
		name   string
		logits *inference.Logits
		want   Span
	}{
		{
			name:   "independent maxima",
			logits: &inference.Logits{Start: []float32{0, 5, 1}, End: []float32{0, 1, 7}},
			want:   Span{Start: 1, End: 2},
		},
		{
			name:   "end before start is kept",
			logits: &inference.Logits{Start: []float32{0, 0, 9}, End: []float32{3, 0, 1}},
			want:   Span{Start: 2, End: 0},
		},
		{
			name:   "ties take the first index",
			logits: &inference.Logits{Start: []float32{2, 2, 1}, End: []float32{-1, 4, 4}},
			want:   Span{Start: 0, End: 1},
		},
		{
			name:   "negative scores",
			logits: &inference.Logits{Start: []float32{-3, -1, -2}, End: []float32{-5, -6, -4}},
			want:   Span{Start: 1, End: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectSpan(tt.logits); got != tt.want {
				t.Errorf("SelectSpan() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- Segment mask ---

func TestSegmentMask(t *testing.T) {
	got, err := SegmentMask([]int{2, 4, 5, 3, 9, 10, 3}, 3)
	if err != nil {
		t.Fatalf("SegmentMask() error = %v", err)
	}
	want := []int{0, 0, 0, 0, 1, 1, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SegmentMask() = %v, want %v", got, want)
	}
}

func TestSegmentMask_NoSeparator(t *testing.T) {
	_, err := SegmentMask([]int{2, 4, 5}, 3)
	var ae *AnswerError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AnswerError, got %v", err)
	}
	if ae.Reason != ReasonNoSeparator {
		t.Errorf("Reason = %q", ae.Reason)
	}
}

// --- Answer ---

func TestAnswer(t *testing.T) {
	tok := newTestTokenizer(t)

	// [CLS] what colour is it ? [SEP] app ##le is red . [SEP]
	tests := []struct {
		name  string
		model inference.Static
		want  string
	}{
		{name: "single word", model: inference.Static{Start: 10, End: 10}, want: "red"},
		{name: "merged word", model: inference.Static{Start: 7, End: 8}, want: "apple"},
		{name: "phrase", model: inference.Static{Start: 7, End: 11}, want: "apple is red ."},
		{name: "degenerate", model: inference.Static{Start: 10, End: 2}, want: "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tok, tt.model)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			res, err := a.Answer(context.Background(), "what colour is it ?", "Apple is red.")
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if res.Answer != tt.want {
				t.Errorf("Answer = %q, want %q", res.Answer, tt.want)
			}
			if res.Context != "Apple is red." || res.Question != "what colour is it ?" {
				t.Errorf("unexpected echo: %+v", res)
			}
		})
	}
}

func TestAnswer_PassesSegmentMask(t *testing.T) {
	tok := newTestTokenizer(t)

	var gotSegments []int
	model := inference.Func(func(_ context.Context, ids, segments []int) (*inference.Logits, error) {
		gotSegments = segments
		return inference.Static{}.Logits(context.Background(), ids, segments)
	})

	a, _ := New(tok, model)
	if _, err := a.Answer(context.Background(), "what ?", "red"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	// [CLS] what ? [SEP] red [SEP]
	want := []int{0, 0, 0, 0, 1, 1}
	if !reflect.DeepEqual(gotSegments, want) {
		t.Errorf("segments = %v, want %v", gotSegments, want)
	}
}

func TestAnswer_LogitsMismatch(t *testing.T) {
	tok := newTestTokenizer(t)
	model := inference.Func(func(_ context.Context, _, _ []int) (*inference.Logits, error) {
		return &inference.Logits{Start: []float32{1}, End: []float32{1}}, nil
	})

	a, _ := New(tok, model)
	_, err := a.Answer(context.Background(), "what ?", "red")
	var ae *AnswerError
	if !errors.As(err, &ae) || ae.Reason != ReasonLogitsMissize {
		t.Fatalf("expected logits AnswerError, got %v", err)
	}
	if !errors.Is(err, inference.ErrShape) {
		t.Error("AnswerError should unwrap to ErrShape")
	}
}

func TestAnswer_ModelError(t *testing.T) {
	tok := newTestTokenizer(t)
	boom := errors.New("boom")
	model := inference.Func(func(_ context.Context, _, _ []int) (*inference.Logits, error) {
		return nil, boom
	})

	a, _ := New(tok, model)
	_, err := a.Answer(context.Background(), "what ?", "red")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
	var ae *AnswerError
	if errors.As(err, &ae) {
		t.Error("transport failures are not AnswerErrors")
	}
}

// fixedTokenizer returns canned ids, used to break the separator contract.
type fixedTokenizer struct{ ids []int }

func (f fixedTokenizer) Encode(_, _ string) ([]int, error) { return f.ids, nil }
func (f fixedTokenizer) Tokens(ids []int) []tokenizer.Token {
	return make([]tokenizer.Token, len(ids))
}
func (f fixedTokenizer) SepID() int { return 3 }

func TestAnswer_MissingSeparator(t *testing.T) {
	a, _ := New(fixedTokenizer{ids: []int{2, 4, 5}}, inference.Static{})
	_, err := a.Answer(context.Background(), "what ?", "red")
	var ae *AnswerError
	if !errors.As(err, &ae) || ae.Reason != ReasonNoSeparator {
		t.Fatalf("expected separator AnswerError, got %v", err)
	}
}

func TestAsk_Normalizes(t *testing.T) {
	tok := newTestTokenizer(t)
	dict := spell.New(map[string]int{"what": 10, "colour": 5, "is": 10, "it": 10})

	a, err := New(tok, inference.Static{Start: 10, End: 10}, WithNormalizer(question.NewNormalizer(dict)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := a.Ask(context.Background(), Request{Context: "Apple is red.", Question: "What colur is it?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if res.Question != "what colour is it ?" {
		t.Errorf("Question = %q", res.Question)
	}
	if res.Answer != "red" {
		t.Errorf("Answer = %q, want red", res.Answer)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(nil, inference.Static{}); err == nil {
		t.Error("expected error for nil tokenizer")
	}
	if _, err := New(newTestTokenizer(t), nil); err == nil {
		t.Error("expected error for nil model")
	}
}
