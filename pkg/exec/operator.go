// Package exec implements the pull-based vectorized operator pipeline:
// SeqScan, FilterOp, ProjectOp, and AggDownsampleOp, composed over the
// Operator interface.
package exec

import "github.com/famarks/tsdbcore/pkg/batch"

// Operator is the pull interface every non-terminal node in the pipeline
// implements. NextBatch returns (nil, nil) at end-of-stream; once it has
// returned end-of-stream, subsequent calls must keep returning end-of-stream.
type Operator interface {
	NextBatch() (*batch.RecordBatch, error)
	Explain(indent int) string
	// Close releases resources owned by this operator and its children.
	// It is the Go realization of the spec's "released on drop" lifecycle.
	Close() error
}

// OpStats holds an operator's running counters. It is shared by pointer —
// an external observer can read it via StatsHandle while the owning
// operator mutates it. In this single-threaded pull model it is
// deliberately unsynchronized; a multi-threaded rewrite would need atomic
// counters instead.
type OpStats struct {
	InputRows  int
	OutputRows int
	NumBatches int
	BytesRead  uint64
}
