package exec

import (
	"fmt"

	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/expr"
)

// FilterOp evaluates a predicate over each batch pulled from its child and
// emits only the rows that satisfy it. It tolerates column-sparse batches:
// a dropped column (e.g. after an upstream ProjectOp) is simply absent from
// the output rather than causing an error, so long as the predicate itself
// doesn't reference that column.
type FilterOp struct {
	child Operator
	pred  expr.Pred
	stats *OpStats
}

// NewFilterOp wraps child, keeping only rows for which pred evaluates true.
func NewFilterOp(child Operator, pred expr.Pred) *FilterOp {
	return &FilterOp{child: child, pred: pred, stats: &OpStats{}}
}

func (f *FilterOp) StatsHandle() *OpStats { return f.stats }

func (f *FilterOp) NextBatch() (*batch.RecordBatch, error) {
	for {
		in, err := f.child.NextBatch()
		if err != nil {
			return nil, err
		}
		if in == nil {
			return nil, nil
		}

		batchLen := in.Len()
		f.stats.InputRows += batchLen

		mask := f.pred.Eval(in)

		// A column is present iff its length equals the batch's effective
		// row count — this, not a nil check, is what lets a column-sparse
		// batch from an upstream ProjectOp (e.g. ts dropped, value kept)
		// still be filtered correctly.
		hasTs := len(in.Ts) == batchLen
		hasSeries := len(in.SeriesID) == batchLen
		hasValue := len(in.Value) == batchLen

		out := &batch.RecordBatch{}
		if hasTs {
			out.Ts = make([]int64, 0, len(mask))
		}
		if hasSeries {
			out.SeriesID = make([]uint32, 0, len(mask))
		}
		if hasValue {
			out.Value = make([]float64, 0, len(mask))
		}

		for i, keep := range mask {
			if !keep {
				continue
			}
			if hasTs {
				out.Ts = append(out.Ts, in.Ts[i])
			}
			if hasSeries {
				out.SeriesID = append(out.SeriesID, in.SeriesID[i])
			}
			if hasValue {
				out.Value = append(out.Value, in.Value[i])
			}
		}

		f.stats.OutputRows += out.Len()
		f.stats.NumBatches++

		if out.Len() == 0 {
			// keep pulling: an empty result batch is not end-of-stream
			continue
		}
		return out, nil
	}
}

func (f *FilterOp) Explain(indent int) string {
	pad := pad(indent)
	s := fmt.Sprintf("%sFilter(pred=%s)\n", pad, f.pred.String())
	s += f.child.Explain(indent + 2)
	return s
}

func (f *FilterOp) Close() error {
	return f.child.Close()
}
