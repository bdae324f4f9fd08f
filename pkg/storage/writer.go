package storage

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// WriteChunk writes b to a new file at path in a single pass: a placeholder
// header is written first, then the three column bodies, then the header
// is patched in place once the column offsets (and therefore the meta
// bytes and their CRC) are known. The file is created fresh; this engine
// claims no crash-atomicity.
func WriteChunk(path string, b *batch.RecordBatch) error {
	if !b.IsWellFormed() {
		return tsdberrors.Corrupt("column length mismatch: ts=%d series_id=%d value=%d", len(b.Ts), len(b.SeriesID), len(b.Value))
	}
	rowCount := b.Len()
	if rowCount > math.MaxUint32 {
		return tsdberrors.Unsupported("row_count %d exceeds u32", rowCount)
	}

	tsMin, tsMax := tsBounds(b.Ts)

	f, err := os.Create(path)
	if err != nil {
		return tsdberrors.IO(err)
	}
	defer f.Close()

	metaLen := metaLenForColCount(3)

	if err := writeHeader(f, header{MetaLen: 0, MetaCRC32: 0}); err != nil {
		return err
	}
	if metaLen > 0 {
		if _, err := f.Write(make([]byte, metaLen)); err != nil {
			return tsdberrors.IO(err)
		}
	}

	tsOffset, err := currentOffset(f)
	if err != nil {
		return err
	}
	if err := writeI64Col(f, b.Ts); err != nil {
		return err
	}

	seriesOffset, err := currentOffset(f)
	if err != nil {
		return err
	}
	if err := writeU32Col(f, b.SeriesID); err != nil {
		return err
	}

	valueOffset, err := currentOffset(f)
	if err != nil {
		return err
	}
	if err := writeF64Col(f, b.Value); err != nil {
		return err
	}

	meta := &ChunkMeta{
		RowCount: uint32(rowCount),
		TsMin:    tsMin,
		TsMax:    tsMax,
		Cols: []ColumnMeta{
			{ColID: ColIDTs, Encoding: EncodingPlain, Offset: tsOffset, Len: uint64(rowCount) * 8},
			{ColID: ColIDSeriesID, Encoding: EncodingPlain, Offset: seriesOffset, Len: uint64(rowCount) * 4},
			{ColID: ColIDValue, Encoding: EncodingPlain, Offset: valueOffset, Len: uint64(rowCount) * 8},
		},
	}

	metaBytes := encodeMeta(meta)
	if len(metaBytes) != metaLen {
		return tsdberrors.Corrupt("internal: encoded meta length %d != reserved %d", len(metaBytes), metaLen)
	}

	crc := newCRC32()
	crc.Write(metaBytes)
	metaCRC32 := crc.Sum32()

	if len(metaBytes) > math.MaxUint32 {
		return tsdberrors.Unsupported("meta too large: %d bytes", len(metaBytes))
	}

	if _, err := f.Seek(0, 0); err != nil {
		return tsdberrors.IO(err)
	}
	if err := writeHeader(f, header{MetaLen: uint32(len(metaBytes)), MetaCRC32: metaCRC32}); err != nil {
		return err
	}
	if _, err := f.Write(metaBytes); err != nil {
		return tsdberrors.IO(err)
	}

	return nil
}

func tsBounds(ts []int64) (int64, int64) {
	if len(ts) == 0 {
		return 0, 0
	}
	min, max := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return min, max
}

func currentOffset(f *os.File) (uint64, error) {
	off, err := f.Seek(0, 1)
	if err != nil {
		return 0, tsdberrors.IO(err)
	}
	return uint64(off), nil
}

func writeI64Col(f *os.File, vals []int64) error {
	buf := make([]byte, 8)
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf, uint64(v))
		if _, err := f.Write(buf); err != nil {
			return tsdberrors.IO(err)
		}
	}
	return nil
}

func writeU32Col(f *os.File, vals []uint32) error {
	buf := make([]byte, 4)
	for _, v := range vals {
		binary.LittleEndian.PutUint32(buf, v)
		if _, err := f.Write(buf); err != nil {
			return tsdberrors.IO(err)
		}
	}
	return nil
}

func writeF64Col(f *os.File, vals []float64) error {
	buf := make([]byte, 8)
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := f.Write(buf); err != nil {
			return tsdberrors.IO(err)
		}
	}
	return nil
}
