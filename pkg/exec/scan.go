package exec

import (
	"fmt"

	"github.com/go-kit/kit/log/level"

	"github.com/famarks/tsdbcore/internal/logging"
	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/expr"
	"github.com/famarks/tsdbcore/pkg/storage"
	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// Cols masks which of the three standard columns a SeqScan should read.
type Cols struct {
	Ts       bool
	SeriesID bool
	Value    bool
}

// AllCols selects all three columns.
func AllCols() Cols {
	return Cols{Ts: true, SeriesID: true, Value: true}
}

// TsValueCols selects only ts and value, dropping series_id.
func TsValueCols() Cols {
	return Cols{Ts: true, Value: true}
}

func (c Cols) describe() string {
	parts := make([]string, 0, 3)
	if c.Ts {
		parts = append(parts, "ts")
	}
	if c.SeriesID {
		parts = append(parts, "series_id")
	}
	if c.Value {
		parts = append(parts, "value")
	}
	if len(parts) == 0 {
		return "none"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}

// SeqScan is the leaf operator: it binds storage to the pipeline, pruning
// by time range and binary-searching the row slice to read.
type SeqScan struct {
	file      *storage.ChunkFile
	t0, t1    int64
	lo, hi    uint64
	cur       uint64
	batchRows uint64
	skipped   bool
	bytesRead uint64
	pred      expr.Pred // hint only, not evaluated here
	cols      Cols
	stats     *OpStats
}

// Open opens the chunk at path and prepares a scan over [t0, t1) in
// batches of batchRows rows, reading the columns named by cols.
//
// The scan is skipped when t1 <= meta.TsMin or t0 > meta.TsMax: the first
// comparison is non-strict and the second strict, against the chunk's
// closed [TsMin, TsMax] interval. Otherwise the row slice is found by
// binary search, which requires the chunk's timestamps to be
// non-decreasing; Open does not check this.
func Open(path string, t0, t1 int64, batchRows uint64, cols Cols) (*SeqScan, error) {
	if batchRows == 0 {
		return nil, tsdberrors.Unsupported("batch_rows must be > 0")
	}

	meta, err := storage.OpenMeta(path)
	if err != nil {
		return nil, err
	}
	file, err := storage.OpenChunk(path)
	if err != nil {
		return nil, err
	}

	var lo, hi uint64
	skipped := false
	if t1 <= meta.TsMin || t0 > meta.TsMax {
		skipped = true
	} else {
		lo, err = lowerBoundInFile(file, t0)
		if err != nil {
			file.Close()
			return nil, err
		}
		hi, err = lowerBoundInFile(file, t1)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	if skipped {
		level.Debug(logging.Logger()).Log("msg", "scan skipped by range pruning", "path", path, "t0", t0, "t1", t1)
	}

	return &SeqScan{
		file:      file,
		t0:        t0,
		t1:        t1,
		lo:        lo,
		hi:        hi,
		cur:       lo,
		batchRows: batchRows,
		skipped:   skipped,
		cols:      cols,
		stats:     &OpStats{},
	}, nil
}

// WithPredicate attaches a predicate hint for explain/stats parity. SeqScan
// does not evaluate it; filtering is done by FilterOp.
func (s *SeqScan) WithPredicate(p expr.Pred) *SeqScan {
	s.pred = p
	return s
}

func (s *SeqScan) Skipped() bool { return s.skipped }

func (s *SeqScan) BytesRead() uint64 { return s.bytesRead }

func (s *SeqScan) Range() (uint64, uint64) { return s.lo, s.hi }

func (s *SeqScan) TimeRange() (int64, int64) { return s.t0, s.t1 }

func (s *SeqScan) StatsHandle() *OpStats { return s.stats }

func (s *SeqScan) NextBatch() (*batch.RecordBatch, error) {
	if s.skipped || s.cur >= s.hi {
		return nil, nil
	}

	end := s.cur + s.batchRows
	if end > s.hi {
		end = s.hi
	}

	var bytes uint64
	var ts []int64
	var seriesID []uint32
	var value []float64
	var err error

	if s.cols.Ts {
		bytes += (end - s.cur) * 8
		ts, err = s.file.ReadRangeI64(storage.ColIDTs, s.cur, end)
		if err != nil {
			return nil, err
		}
	}
	if s.cols.SeriesID {
		bytes += (end - s.cur) * 4
		seriesID, err = s.file.ReadRangeU32(storage.ColIDSeriesID, s.cur, end)
		if err != nil {
			return nil, err
		}
	}
	if s.cols.Value {
		bytes += (end - s.cur) * 8
		value, err = s.file.ReadRangeF64(storage.ColIDValue, s.cur, end)
		if err != nil {
			return nil, err
		}
	}

	s.bytesRead += bytes
	s.cur = end

	b := &batch.RecordBatch{Ts: ts, SeriesID: seriesID, Value: value}
	s.stats.OutputRows += b.Len()
	s.stats.NumBatches++
	s.stats.BytesRead += bytes

	return b, nil
}

func (s *SeqScan) Explain(indent int) string {
	pad := pad(indent)
	return fmt.Sprintf(
		"%sSeqScan(range=[%d, %d), slice_range=[%d, %d), cols=%s, batch_rows=%d)",
		pad, s.t0, s.t1, s.lo, s.hi, s.cols.describe(), s.batchRows,
	)
}

func (s *SeqScan) Close() error {
	return s.file.Close()
}

func pad(indent int) string {
	b := make([]byte, indent)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// lowerBoundInFile finds the first row index whose ts is >= target, via
// binary search reading one timestamp per probe. Assumes non-decreasing ts.
func lowerBoundInFile(f *storage.ChunkFile, target int64) (uint64, error) {
	left := uint64(0)
	right := uint64(f.Meta.RowCount)
	for left < right {
		mid := left + (right-left)/2
		tsMid, err := f.ReadTsAt(mid)
		if err != nil {
			return 0, err
		}
		if tsMid < target {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left, nil
}
