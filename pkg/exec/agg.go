package exec

import (
	"fmt"
	"math"

	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// AggRow is one downsampled output bucket.
type AggRow struct {
	WindowStart int64
	Count       uint32
	Sum         float64
	Min         float64
	Max         float64
}

// AggResult is the complete output of an AggDownsampleOp run.
type AggResult struct {
	Rows []AggRow
}

// AggDownsampleOp buckets rows from its child into fixed-width, truncating
// time windows and computes count/sum/min/max per window. Window
// assignment truncates toward zero (row.ts / window, integer division),
// matching negative-timestamp semantics rather than floor division.
//
// Unlike the other operators, AggDownsampleOp has no streaming NextBatch
// lifecycle: downstream windows can only close once a row outside them is
// seen, so the whole child must be drained before any row can be emitted.
// ExecuteAll is the only way to run it.
type AggDownsampleOp struct {
	child  Operator
	window int64
	stats  *OpStats

	haveCurrent bool
	curWindow   int64
	curCount    uint32
	curSum      float64
	curMin      float64
	curMax      float64
}

// NewAggDownsampleOp wraps child, bucketing rows into windows of the given
// width. window must be > 0.
func NewAggDownsampleOp(child Operator, window int64) (*AggDownsampleOp, error) {
	if window <= 0 {
		return nil, tsdberrors.Unsupported("window must be > 0, got %d", window)
	}
	return &AggDownsampleOp{child: child, window: window, stats: &OpStats{}}, nil
}

func (a *AggDownsampleOp) StatsHandle() *OpStats { return a.stats }

// ExecuteAll drains the child entirely and returns the aggregated rows in
// ascending window-start order (the order windows were first encountered,
// which is ascending as long as the child yields non-decreasing ts).
func (a *AggDownsampleOp) ExecuteAll() (*AggResult, error) {
	var rows []AggRow

	for {
		in, err := a.child.NextBatch()
		if err != nil {
			return nil, err
		}
		if in == nil {
			break
		}
		a.stats.InputRows += in.Len()
		a.stats.NumBatches++
		rows, err = a.consumeBatch(in, rows)
		if err != nil {
			return nil, err
		}
	}

	if a.haveCurrent {
		rows = append(rows, a.flushCurrent())
	}

	a.stats.OutputRows += len(rows)
	return &AggResult{Rows: rows}, nil
}

func (a *AggDownsampleOp) consumeBatch(in *batch.RecordBatch, rows []AggRow) ([]AggRow, error) {
	if len(in.Ts) != len(in.Value) {
		return rows, tsdberrors.Corrupt("ts/value length mismatch: ts=%d value=%d", len(in.Ts), len(in.Value))
	}

	for i := 0; i < len(in.Ts); i++ {
		ts := in.Ts[i]
		v := in.Value[i]
		w := windowStart(ts, a.window)

		if !a.haveCurrent {
			a.resetState(w, v)
			continue
		}
		if w == a.curWindow {
			if err := a.addValue(v); err != nil {
				return rows, err
			}
			continue
		}

		rows = append(rows, a.flushCurrent())
		a.resetState(w, v)
	}
	return rows, nil
}

// addValue folds v into the current bucket, rejecting a count that would
// overflow u32 rather than silently wrapping it.
func (a *AggDownsampleOp) addValue(v float64) error {
	if a.curCount == math.MaxUint32 {
		return tsdberrors.Unsupported("count overflow")
	}
	a.curCount++
	a.curSum += v
	if v < a.curMin {
		a.curMin = v
	}
	if v > a.curMax {
		a.curMax = v
	}
	return nil
}

func (a *AggDownsampleOp) resetState(window int64, v float64) {
	a.haveCurrent = true
	a.curWindow = window
	a.curCount = 1
	a.curSum = v
	a.curMin = v
	a.curMax = v
}

func (a *AggDownsampleOp) flushCurrent() AggRow {
	row := AggRow{
		WindowStart: a.curWindow,
		Count:       a.curCount,
		Sum:         a.curSum,
		Min:         a.curMin,
		Max:         a.curMax,
	}
	a.haveCurrent = false
	return row
}

// windowStart truncates ts toward zero to the start of its window, the
// same rule the underlying integer division applies to negative values.
func windowStart(ts, window int64) int64 {
	return (ts / window) * window
}

func (a *AggDownsampleOp) Explain(indent int) string {
	pad := pad(indent)
	s := fmt.Sprintf("%sAggDownsampleOp(window=%d)\n", pad, a.window)
	s += a.child.Explain(indent + 2)
	return s
}

func (a *AggDownsampleOp) Close() error {
	return a.child.Close()
}
