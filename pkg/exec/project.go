package exec

import (
	"fmt"

	"github.com/famarks/tsdbcore/pkg/batch"
)

// ProjectOp drops columns from each batch pulled from its child; it never
// filters rows. OutputRows is the length of the first column it keeps, in
// the order ts, series_id, value — not simply the input's row count —
// since a kept column the child already left column-sparse reports its
// own (possibly shorter) length, and dropping every column reports 0.
type ProjectOp struct {
	child                         Operator
	keepTs, keepSeries, keepValue bool
	stats                         *OpStats
}

// NewProjectOp wraps child, retaining only the named columns in its output.
func NewProjectOp(child Operator, keepTs, keepSeries, keepValue bool) *ProjectOp {
	return &ProjectOp{
		child:      child,
		keepTs:     keepTs,
		keepSeries: keepSeries,
		keepValue:  keepValue,
		stats:      &OpStats{},
	}
}

func (p *ProjectOp) StatsHandle() *OpStats { return p.stats }

func (p *ProjectOp) NextBatch() (*batch.RecordBatch, error) {
	in, err := p.child.NextBatch()
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, nil
	}

	out := &batch.RecordBatch{}
	if p.keepTs {
		out.Ts = in.Ts
	}
	if p.keepSeries {
		out.SeriesID = in.SeriesID
	}
	if p.keepValue {
		out.Value = in.Value
	}

	p.stats.InputRows += in.Len()
	p.stats.OutputRows += firstKeptLen(p.keepTs, p.keepSeries, p.keepValue, in)
	p.stats.NumBatches++

	return out, nil
}

// firstKeptLen returns the length of the first column kept, in order
// ts, series_id, value; 0 if none are kept.
func firstKeptLen(keepTs, keepSeries, keepValue bool, in *batch.RecordBatch) int {
	if keepTs {
		return len(in.Ts)
	}
	if keepSeries {
		return len(in.SeriesID)
	}
	if keepValue {
		return len(in.Value)
	}
	return 0
}

func (p *ProjectOp) Explain(indent int) string {
	pad := pad(indent)
	s := fmt.Sprintf("%sProject(cols=%s)\n", pad, p.describeCols())
	s += p.child.Explain(indent + 2)
	return s
}

func (p *ProjectOp) describeCols() string {
	c := Cols{Ts: p.keepTs, SeriesID: p.keepSeries, Value: p.keepValue}
	return c.describe()
}

func (p *ProjectOp) Close() error {
	return p.child.Close()
}
