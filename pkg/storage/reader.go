package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log/level"
	"github.com/grafana/dskit/runutil"

	"github.com/famarks/tsdbcore/internal/logging"
	"github.com/famarks/tsdbcore/pkg/batch"
	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// ChunkFile is an opened chunk: an OS file handle plus its decoded meta.
// It is exclusive to whichever SeqScan (or other reader) opened it —
// multiple readers over the same path must each call OpenChunk themselves.
type ChunkFile struct {
	Meta *ChunkMeta
	file *os.File
}

// Close releases the underlying OS file handle.
func (c *ChunkFile) Close() error {
	if err := c.file.Close(); err != nil {
		return tsdberrors.IO(err)
	}
	return nil
}

// OpenMeta decodes and returns just the ChunkMeta for path, without
// retaining a file handle for later reads.
func OpenMeta(path string) (*ChunkMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tsdberrors.IO(err)
	}
	defer runutil.CloseWithLogOnErr(logging.Logger(), f, "close chunk file after meta read: %s", path)

	meta, err := readMeta(f)
	if err != nil {
		return nil, err
	}

	level.Debug(logging.Logger()).Log(
		"msg", "opened chunk meta",
		"path", path,
		"row_count", meta.RowCount,
		"meta_fingerprint", metaFingerprint(meta),
	)

	return meta, nil
}

// OpenChunk opens path and returns a ChunkFile retaining the file handle
// for subsequent positional reads.
func OpenChunk(path string) (*ChunkFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tsdberrors.IO(err)
	}

	meta, err := readMeta(f)
	if err != nil {
		runutil.CloseWithLogOnErr(logging.Logger(), f, "close chunk file after failed meta read: %s", path)
		return nil, err
	}

	level.Debug(logging.Logger()).Log(
		"msg", "opened chunk",
		"path", path,
		"row_count", meta.RowCount,
		"meta_fingerprint", metaFingerprint(meta),
	)

	return &ChunkFile{Meta: meta, file: f}, nil
}

func readMeta(f *os.File) (*ChunkMeta, error) {
	h, err := readHeader(f)
	if err != nil {
		return nil, err
	}
	if h.MetaLen == 0 {
		return nil, tsdberrors.Corrupt("meta_len is zero")
	}

	metaBuf := make([]byte, h.MetaLen)
	if _, err := io.ReadFull(f, metaBuf); err != nil {
		return nil, tsdberrors.IO(err)
	}

	crc := newCRC32()
	crc.Write(metaBuf)
	if crc.Sum32() != h.MetaCRC32 {
		return nil, tsdberrors.Corrupt("meta crc mismatch: got %x want %x", crc.Sum32(), h.MetaCRC32)
	}

	return decodeMeta(metaBuf)
}

func metaFingerprint(m *ChunkMeta) string {
	return fmt.Sprintf("%x", xxhash.Sum64(encodeMeta(m)))
}

// ReadRangeI64 returns rows [start, end) of the named i64 column.
func (c *ChunkFile) ReadRangeI64(colID uint16, start, end uint64) ([]int64, error) {
	buf, err := c.readRangeBytes(colID, start, end, 8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(buf)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(buf[i*8 : i*8+8]))
	}
	return out, nil
}

// ReadRangeU32 returns rows [start, end) of the named u32 column.
func (c *ChunkFile) ReadRangeU32(colID uint16, start, end uint64) ([]uint32, error) {
	buf, err := c.readRangeBytes(colID, start, end, 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(buf)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return out, nil
}

// ReadRangeF64 returns rows [start, end) of the named f64 column.
func (c *ChunkFile) ReadRangeF64(colID uint16, start, end uint64) ([]float64, error) {
	buf, err := c.readRangeBytes(colID, start, end, 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8 : i*8+8]))
	}
	return out, nil
}

// ReadTsAt is the single-row special case used by binary search.
func (c *ChunkFile) ReadTsAt(idx uint64) (int64, error) {
	vals, err := c.ReadRangeI64(ColIDTs, idx, idx+1)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// readRangeBytes validates bounds and reads the raw bytes of [start, end)
// for colID, with width bytes per element.
func (c *ChunkFile) readRangeBytes(colID uint16, start, end uint64, width uint64) ([]byte, error) {
	if start > end {
		return nil, tsdberrors.Corrupt("range start %d > end %d", start, end)
	}
	if end > uint64(c.Meta.RowCount) {
		return nil, tsdberrors.Corrupt("range end %d > row_count %d", end, c.Meta.RowCount)
	}

	col, ok := c.Meta.columnByID(colID)
	if !ok {
		return nil, tsdberrors.Corrupt("column id %d missing", colID)
	}
	if col.Encoding != EncodingPlain {
		return nil, tsdberrors.Unsupported("unsupported encoding %d for column %d", col.Encoding, colID)
	}

	endByte, overflow := mulOverflowsUint64(end, width)
	if overflow || endByte > col.Len {
		return nil, tsdberrors.Corrupt("range [%d, %d) exceeds column byte length %d", start, end, col.Len)
	}

	startByte, overflow := mulOverflowsUint64(start, width)
	if overflow {
		return nil, tsdberrors.Corrupt("range start %d overflows byte offset", start)
	}

	readOffset, overflow := addOverflowsUint64(col.Offset, startByte)
	if overflow {
		return nil, tsdberrors.Corrupt("column offset %d + start byte %d overflows", col.Offset, startByte)
	}

	n := endByte - startByte
	buf := make([]byte, n)
	if n > 0 {
		if _, err := c.file.Seek(int64(readOffset), 0); err != nil {
			return nil, tsdberrors.IO(err)
		}
		if _, err := io.ReadFull(c.file, buf); err != nil {
			return nil, tsdberrors.IO(err)
		}
	}

	level.Debug(logging.Logger()).Log(
		"msg", "read column range",
		"col_id", colID,
		"bytes", humanize.Bytes(uint64(len(buf))),
	)

	return buf, nil
}

// ReadBatch reads all three standard columns in full and assembles a
// well-formed RecordBatch. It refuses any column whose offset lies within
// the reserved header+meta region.
func ReadBatch(c *ChunkFile) (*batch.RecordBatch, error) {
	rowCount := uint64(c.Meta.RowCount)
	minDataOffset := uint64(HeaderLen) + uint64(metaTotalLen(c.Meta))

	var ts []int64
	var seriesID []uint32
	var value []float64
	haveTs, haveSeries, haveValue := false, false, false

	for _, col := range c.Meta.Cols {
		if col.Offset < minDataOffset {
			return nil, tsdberrors.Corrupt("column offset %d before data section start %d", col.Offset, minDataOffset)
		}
		if col.Encoding != EncodingPlain {
			return nil, tsdberrors.Unsupported("unsupported encoding %d", col.Encoding)
		}
		switch col.ColID {
		case ColIDTs:
			v, err := c.ReadRangeI64(ColIDTs, 0, rowCount)
			if err != nil {
				return nil, err
			}
			ts, haveTs = v, true
		case ColIDSeriesID:
			v, err := c.ReadRangeU32(ColIDSeriesID, 0, rowCount)
			if err != nil {
				return nil, err
			}
			seriesID, haveSeries = v, true
		case ColIDValue:
			v, err := c.ReadRangeF64(ColIDValue, 0, rowCount)
			if err != nil {
				return nil, err
			}
			value, haveValue = v, true
		}
	}

	if !haveTs {
		return nil, tsdberrors.Corrupt("missing ts column")
	}
	if !haveSeries {
		return nil, tsdberrors.Corrupt("missing series_id column")
	}
	if !haveValue {
		return nil, tsdberrors.Corrupt("missing value column")
	}

	return &batch.RecordBatch{Ts: ts, SeriesID: seriesID, Value: value}, nil
}

func mulOverflowsUint64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	result := a * b
	if result/a != b {
		return 0, true
	}
	return result, false
}

func addOverflowsUint64(a, b uint64) (uint64, bool) {
	result := a + b
	return result, result < a
}
