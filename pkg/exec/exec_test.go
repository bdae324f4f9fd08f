package exec_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/exec"
	"github.com/famarks/tsdbcore/pkg/expr"
	"github.com/famarks/tsdbcore/pkg/storage"
)

// genBatch mirrors spec.md's canonical generator b_n.
func genBatch(n int) *batch.RecordBatch {
	ts := make([]int64, n)
	seriesID := make([]uint32, n)
	value := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = int64(i)
		seriesID[i] = uint32(i % 1000)
		value[i] = math.Sin(float64(i))
	}
	return &batch.RecordBatch{Ts: ts, SeriesID: seriesID, Value: value}
}

func writeChunk(t *testing.T, b *batch.RecordBatch) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.tsdb")
	require.NoError(t, storage.WriteChunk(path, b))
	return path
}

func drain(t *testing.T, op exec.Operator) *batch.RecordBatch {
	t.Helper()
	out := &batch.RecordBatch{}
	for {
		b, err := op.NextBatch()
		require.NoError(t, err)
		if b == nil {
			return out
		}
		out.Ts = append(out.Ts, b.Ts...)
		out.SeriesID = append(out.SeriesID, b.SeriesID...)
		out.Value = append(out.Value, b.Value...)
	}
}

// S3 Streaming scan.
func TestSeqScanStreaming(t *testing.T) {
	path := writeChunk(t, genBatch(16384))

	scan, err := exec.Open(path, 1000, 2000, 128, exec.AllCols())
	require.NoError(t, err)
	defer scan.Close()

	out := drain(t, scan)
	require.Len(t, out.Ts, 1000)
	assert.Equal(t, int64(1000), out.Ts[0])
	assert.Equal(t, int64(1999), out.Ts[len(out.Ts)-1])
}

// S6 Pruning.
func TestSeqScanPruning(t *testing.T) {
	path := writeChunk(t, genBatch(16384))

	scan, err := exec.Open(path, 1_000_000, 1_000_100, 1024, exec.AllCols())
	require.NoError(t, err)
	defer scan.Close()

	assert.True(t, scan.Skipped())

	b, err := scan.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, uint64(0), scan.BytesRead())
}

// S4 Pipeline: Scan -> Filter(value > 0.5) -> Project(ts, value).
func TestPipelineFilterProject(t *testing.T) {
	path := writeChunk(t, genBatch(16384))

	scan, err := exec.Open(path, 0, 16384, 1024, exec.TsValueCols())
	require.NoError(t, err)

	pred := expr.GreaterThanFloat{Col: expr.ColValue, Threshold: 0.5}
	filter := exec.NewFilterOp(scan, pred)
	project := exec.NewProjectOp(filter, true, false, true)
	defer project.Close()

	out := drain(t, project)

	wantCount := 0
	for i := 0; i < 16384; i++ {
		if math.Sin(float64(i)) > 0.5 {
			wantCount++
		}
	}

	assert.Equal(t, wantCount, len(out.Ts))
	assert.Equal(t, wantCount, len(out.Value))
	for _, v := range out.Value {
		assert.Greater(t, v, 0.5)
	}

	assert.Equal(t, 16384, scan.StatsHandle().OutputRows)
	assert.Equal(t, 16384, filter.StatsHandle().InputRows)
	assert.Equal(t, wantCount, filter.StatsHandle().OutputRows)
	assert.Equal(t, wantCount, project.StatsHandle().OutputRows)
}

// S5 Downsample.
func TestAggDownsample(t *testing.T) {
	path := writeChunk(t, genBatch(16384))

	scan, err := exec.Open(path, 0, 16384, 1024, exec.TsValueCols())
	require.NoError(t, err)

	agg, err := exec.NewAggDownsampleOp(scan, 100)
	require.NoError(t, err)
	defer agg.Close()

	result, err := agg.ExecuteAll()
	require.NoError(t, err)

	require.Len(t, result.Rows, 164)

	total := uint32(0)
	prevWindow := int64(-1)
	for _, row := range result.Rows {
		assert.Equal(t, int64(0), row.WindowStart%100)
		assert.Greater(t, row.WindowStart, prevWindow)
		prevWindow = row.WindowStart
		total += row.Count
	}
	assert.Equal(t, uint32(16384), total)
}

// fixedBatchOperator is a minimal Operator stub that yields one fixed
// batch then end-of-stream, for exercising AggDownsampleOp error paths
// that would otherwise require crafting a malformed on-disk chunk.
type fixedBatchOperator struct {
	batch *batch.RecordBatch
	done  bool
}

func (f *fixedBatchOperator) NextBatch() (*batch.RecordBatch, error) {
	if f.done {
		return nil, nil
	}
	f.done = true
	return f.batch, nil
}

func (f *fixedBatchOperator) Explain(indent int) string { return "" }
func (f *fixedBatchOperator) Close() error              { return nil }

func TestAggDownsampleRejectsTsValueLengthMismatch(t *testing.T) {
	src := &fixedBatchOperator{batch: &batch.RecordBatch{
		Ts:    []int64{0, 1, 2},
		Value: []float64{1.0, 2.0},
	}}
	agg, err := exec.NewAggDownsampleOp(src, 100)
	require.NoError(t, err)
	defer agg.Close()

	_, err = agg.ExecuteAll()
	require.Error(t, err)
}

func TestAggDownsampleRejectsNonPositiveWindow(t *testing.T) {
	path := writeChunk(t, genBatch(10))
	scan, err := exec.Open(path, 0, 10, 10, exec.TsValueCols())
	require.NoError(t, err)
	defer scan.Close()

	_, err = exec.NewAggDownsampleOp(scan, 0)
	require.Error(t, err)
}

// FilterOp must tolerate a batch from an upstream ProjectOp that already
// dropped ts: the predicate references value, and the mask must be sized
// off the effective (value-driven) row count, not a nil/zero ts column.
func TestFilterToleratesTsDroppedUpstream(t *testing.T) {
	path := writeChunk(t, genBatch(1000))

	scan, err := exec.Open(path, 0, 1000, 128, exec.AllCols())
	require.NoError(t, err)

	dropTs := exec.NewProjectOp(scan, false, true, true)
	pred := expr.GreaterThanFloat{Col: expr.ColValue, Threshold: 0.5}
	filter := exec.NewFilterOp(dropTs, pred)
	defer filter.Close()

	out := drain(t, filter)

	wantCount := 0
	for i := 0; i < 1000; i++ {
		if math.Sin(float64(i)) > 0.5 {
			wantCount++
		}
	}

	require.Empty(t, out.Ts)
	assert.Len(t, out.Value, wantCount)
	assert.Len(t, out.SeriesID, wantCount)
	for _, v := range out.Value {
		assert.Greater(t, v, 0.5)
	}
}

func TestFilterOpExplainFormat(t *testing.T) {
	path := writeChunk(t, genBatch(10))
	scan, err := exec.Open(path, 0, 10, 10, exec.AllCols())
	require.NoError(t, err)
	defer scan.Close()

	pred := expr.LessThanInt{Col: expr.ColTs, Threshold: 5}
	filter := exec.NewFilterOp(scan, pred)

	explain := filter.Explain(0)
	assert.Contains(t, explain, "Filter(pred=ts < 5)")
	assert.Contains(t, explain, "SeqScan(range=[0, 10)")
}
