// Package batch defines RecordBatch, the in-memory columnar unit that flows
// between storage and the operator pipeline.
package batch

// RecordBatch is three parallel, equal-length (when well-formed) columns:
// Ts, SeriesID, and Value. Project may produce a column-sparse batch where
// one or more of these is empty; consumers must tolerate that.
type RecordBatch struct {
	Ts       []int64
	SeriesID []uint32
	Value    []float64
}

// Len returns the batch's effective row count: the length of Ts for a
// well-formed batch, or the length of whichever column is retained for a
// column-sparse one (Project may empty any subset of the three). Present
// columns always agree on length, so the longest of the three is the
// answer whether or not Ts itself was the one dropped.
func (b *RecordBatch) Len() int {
	n := len(b.Ts)
	if len(b.SeriesID) > n {
		n = len(b.SeriesID)
	}
	if len(b.Value) > n {
		n = len(b.Value)
	}
	return n
}

// IsEmpty reports whether the batch has no rows at all.
func (b *RecordBatch) IsEmpty() bool {
	return b.Len() == 0
}

// IsWellFormed reports whether all three columns share the same length.
func (b *RecordBatch) IsWellFormed() bool {
	n := len(b.Ts)
	return len(b.SeriesID) == n && len(b.Value) == n
}
