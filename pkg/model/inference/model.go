// Package inference provides the extractive question-answering model
// collaborator: given token ids and a segment mask it returns start and
// end logits over the same positions.
package inference

import (
	"context"
	"errors"
	"fmt"
)

// ErrShape indicates a model returned logits that do not line up with the
// input sequence.
var ErrShape = errors.New("logits shape mismatch")

// Model runs span-prediction inference.
// Implementations must be safe for concurrent use.
type Model interface {
	// Logits scores every position of ids as a possible answer start and end.
	// ids and segments have the same length.
	Logits(ctx context.Context, ids, segments []int) (*Logits, error)

	// Name returns the model identifier.
	Name() string

	// Close releases any resources held by the model.
	Close() error
}

// Logits holds one start and one end score per input position.
type Logits struct {
	Start []float32
	End   []float32
}

// Validate checks that both vectors have n entries.
func (l *Logits) Validate(n int) error {
	if l == nil {
		return fmt.Errorf("%w: no logits", ErrShape)
	}
	if len(l.Start) != n || len(l.End) != n {
		return fmt.Errorf("%w: got start=%d end=%d for %d tokens", ErrShape, len(l.Start), len(l.End), n)
	}
	return nil
}

// Func adapts a function to the Model interface. Useful for tests and for
// wrapping in-process runtimes.
type Func func(ctx context.Context, ids, segments []int) (*Logits, error)

// Logits calls f.
func (f Func) Logits(ctx context.Context, ids, segments []int) (*Logits, error) {
	return f(ctx, ids, segments)
}

// Name returns "func".
func (f Func) Name() string { return "func" }

// Close is a no-op.
func (f Func) Close() error { return nil }

// Static returns the same start and end positions for every input. The
// highest score sits at Start/End; every other position scores zero.
// It stands in for a real model when running offline.
type Static struct {
	Start int
	End   int
}

// Logits builds one-hot vectors of len(ids), clamping positions to the
// last index.
func (s Static) Logits(_ context.Context, ids, segments []int) (*Logits, error) {
	if len(ids) != len(segments) {
		return nil, fmt.Errorf("%w: %d ids but %d segment labels", ErrShape, len(ids), len(segments))
	}
	n := len(ids)
	l := &Logits{Start: make([]float32, n), End: make([]float32, n)}
	if n == 0 {
		return l, nil
	}
	l.Start[clamp(s.Start, n)] = 1
	l.End[clamp(s.End, n)] = 1
	return l, nil
}

// Name returns "static".
func (Static) Name() string { return "static" }

// Close is a no-op.
func (Static) Close() error { return nil }

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
