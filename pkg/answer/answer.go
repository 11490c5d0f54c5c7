// Package answer selects an answer span from model logits and turns the
// span back into readable text.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/pkg/model/inference"
	"github.com/jmylchreest/shopqa/pkg/model/tokenizer"
	"github.com/jmylchreest/shopqa/pkg/question"
)

// Reasons carried by AnswerError.
const (
	ReasonNoSeparator   = "separator token not found"
	ReasonLogitsMissize = "logits do not match the token sequence"
)

// AnswerError reports a broken contract between the answerer and its
// tokenizer or model. It is not worth retrying.
type AnswerError struct {
	Reason string
	Err    error
}

func (e *AnswerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("answer: %s: %v", e.Reason, e.Err)
	}
	return "answer: " + e.Reason
}

func (e *AnswerError) Unwrap() error { return e.Err }

// Request is a question about a product context.
type Request struct {
	Context  string `json:"context" yaml:"context"`
	Question string `json:"question" yaml:"question"`
}

// Span indexes the first and last answer tokens, both inclusive.
// Start may exceed End; the answer is then the single token at Start.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Result is an answered question. Question holds the normalized form.
type Result struct {
	Context  string `json:"context" yaml:"context"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Span     Span   `json:"-" yaml:"-"`
}

// Answerer runs extractive question answering. It holds only read-only
// collaborators and is safe for concurrent use.
type Answerer struct {
	tok        tokenizer.Tokenizer
	model      inference.Model
	normalizer *question.Normalizer
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithNormalizer sets the normalizer used by Ask (default: no spelling
// correction).
func WithNormalizer(n *question.Normalizer) Option {
	return func(a *Answerer) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// New creates an Answerer.
func New(tok tokenizer.Tokenizer, model inference.Model, opts ...Option) (*Answerer, error) {
	if tok == nil {
		return nil, errors.New("tokenizer is required")
	}
	if model == nil {
		return nil, errors.New("model is required")
	}
	a := &Answerer{
		tok:        tok,
		model:      model,
		normalizer: question.NewNormalizer(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ask normalizes req.Question and answers it.
func (a *Answerer) Ask(ctx context.Context, req Request) (*Result, error) {
	return a.Answer(ctx, a.normalizer.Normalize(req.Question), req.Context)
}

// Answer finds the answer to an already normalized question in text.
func (a *Answerer) Answer(ctx context.Context, q, text string) (*Result, error) {
	ids, err := a.tok.Encode(q, text)
	if err != nil {
		return nil, fmt.Errorf("encode question: %w", err)
	}

	segments, err := SegmentMask(ids, a.tok.SepID())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logits, err := a.model.Logits(ctx, ids, segments)
	if err != nil {
		if errors.Is(err, inference.ErrShape) {
			return nil, &AnswerError{Reason: ReasonLogitsMissize, Err: err}
		}
		return nil, fmt.Errorf("run model %s: %w", a.model.Name(), err)
	}
	if err := logits.Validate(len(ids)); err != nil {
		return nil, &AnswerError{Reason: ReasonLogitsMissize, Err: err}
	}

	span := SelectSpan(logits)
	ans := Reconstruct(a.tok.Tokens(ids), span)

	logger.DebugContext(ctx, "answered question",
		"model", a.model.Name(),
		"tokens", len(ids),
		"start", span.Start,
		"end", span.End,
		"duration", time.Since(start))

	return &Result{Context: text, Question: q, Answer: ans, Span: span}, nil
}

// SegmentMask labels every position up to and including the first sepID
// with 0 and the rest with 1.
func SegmentMask(ids []int, sepID int) ([]int, error) {
	sep := -1
	for i, id := range ids {
		if id == sepID {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, &AnswerError{Reason: ReasonNoSeparator}
	}

	mask := make([]int, len(ids))
	for i := sep + 1; i < len(mask); i++ {
		mask[i] = 1
	}
	return mask, nil
}

// SelectSpan takes the argmax of the start and end scores independently.
// No ordering or length constraint is applied.
func SelectSpan(l *inference.Logits) Span {
	return Span{Start: argmax(l.Start), End: argmax(l.End)}
}

// argmax returns the first index of the largest value, or 0 when empty.
func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Reconstruct joins the tokens of span into text. Continuation pieces are
// glued to the previous piece without their marker; other pieces are
// separated by a single space. The first token is used as is.
func Reconstruct(tokens []tokenizer.Token, span Span) string {
	if span.Start < 0 || span.Start >= len(tokens) {
		return ""
	}

	var b strings.Builder
	b.WriteString(tokens[span.Start].Text)
	for i := span.Start + 1; i <= span.End && i < len(tokens); i++ {
		if tokens[i].Continuation {
			b.WriteString(tokens[i].Surface())
			continue
		}
		b.WriteByte(' ')
		b.WriteString(tokens[i].Text)
	}
	return b.String()
}
