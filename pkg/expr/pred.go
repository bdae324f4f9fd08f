package expr

import (
	"fmt"

	"github.com/famarks/tsdbcore/pkg/batch"
)

// Pred is a node in the immutable predicate tree. It is a closed sum of
// GreaterThanFloat, LessThanInt, and And — the Go analog of the original
// Rust Pred enum.
type Pred interface {
	// Eval produces a boolean mask, one entry per row of b.
	Eval(b *batch.RecordBatch) []bool
	fmt.Stringer
}

// GreaterThanFloat compares a column, widened to float64, against a
// threshold with IEEE-754 '>'.
type GreaterThanFloat struct {
	Col       Col
	Threshold float64
}

func (p GreaterThanFloat) Eval(b *batch.RecordBatch) []bool {
	n := b.Len()
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		mask[i] = colAsFloat(p.Col, b, i) > p.Threshold
	}
	return mask
}

func (p GreaterThanFloat) String() string {
	return fmt.Sprintf("%s > %v", p.Col, p.Threshold)
}

// LessThanInt compares a column, widened/truncated to int64, against a
// threshold.
type LessThanInt struct {
	Col       Col
	Threshold int64
}

func (p LessThanInt) Eval(b *batch.RecordBatch) []bool {
	n := b.Len()
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		mask[i] = colAsInt(p.Col, b, i) < p.Threshold
	}
	return mask
}

func (p LessThanInt) String() string {
	return fmt.Sprintf("%s < %d", p.Col, p.Threshold)
}

// And evaluates both sides over the full batch, then elementwise
// logical-ands the masks. Neither side short-circuits.
type And struct {
	Left, Right Pred
}

func (p And) Eval(b *batch.RecordBatch) []bool {
	left := p.Left.Eval(b)
	right := p.Right.Eval(b)
	mask := make([]bool, len(left))
	for i := range left {
		mask[i] = left[i] && right[i]
	}
	return mask
}

func (p And) String() string {
	return fmt.Sprintf("(%s) AND (%s)", p.Left, p.Right)
}

func colAsFloat(c Col, b *batch.RecordBatch, i int) float64 {
	switch c {
	case ColTs:
		return float64(b.Ts[i])
	case ColSeriesID:
		return float64(b.SeriesID[i])
	default:
		return b.Value[i]
	}
}

func colAsInt(c Col, b *batch.RecordBatch, i int) int64 {
	switch c {
	case ColTs:
		return b.Ts[i]
	case ColSeriesID:
		return int64(b.SeriesID[i])
	default:
		return int64(b.Value[i])
	}
}
