package storage

import (
	"encoding/binary"

	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// Column ids for the three standard columns.
const (
	ColIDTs       uint16 = 0
	ColIDSeriesID uint16 = 1
	ColIDValue    uint16 = 2

	// EncodingPlain is the only supported column encoding.
	EncodingPlain uint16 = 0
)

const (
	metaBaseLen = 4 + 8 + 8 + 4 // row_count, ts_min, ts_max, col_count
	colMetaLen  = 2 + 2 + 8 + 8 // col_id, encoding, offset, len
)

// ColumnMeta describes one column body within the chunk file.
type ColumnMeta struct {
	ColID    uint16
	Encoding uint16
	Offset   uint64
	Len      uint64
}

// ChunkMeta describes a chunk file: its row count, timestamp bounds, and
// the ordered list of column descriptors.
type ChunkMeta struct {
	RowCount uint32
	TsMin    int64
	TsMax    int64
	Cols     []ColumnMeta
}

// metaLenForColCount returns the deterministic encoded length of a meta
// section with the given number of columns.
func metaLenForColCount(colCount int) int {
	return metaBaseLen + colCount*colMetaLen
}

func encodeMeta(m *ChunkMeta) []byte {
	buf := make([]byte, 0, metaLenForColCount(len(m.Cols)))
	var tmp [8]byte

	binary.LittleEndian.PutUint32(tmp[:4], m.RowCount)
	buf = append(buf, tmp[:4]...)

	binary.LittleEndian.PutUint64(tmp[:8], uint64(m.TsMin))
	buf = append(buf, tmp[:8]...)

	binary.LittleEndian.PutUint64(tmp[:8], uint64(m.TsMax))
	buf = append(buf, tmp[:8]...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(m.Cols)))
	buf = append(buf, tmp[:4]...)

	for _, c := range m.Cols {
		var c2 [2]byte
		binary.LittleEndian.PutUint16(c2[:], c.ColID)
		buf = append(buf, c2[:]...)
		binary.LittleEndian.PutUint16(c2[:], c.Encoding)
		buf = append(buf, c2[:]...)
		binary.LittleEndian.PutUint64(tmp[:8], c.Offset)
		buf = append(buf, tmp[:8]...)
		binary.LittleEndian.PutUint64(tmp[:8], c.Len)
		buf = append(buf, tmp[:8]...)
	}

	return buf
}

func decodeMeta(buf []byte) (*ChunkMeta, error) {
	if len(buf) < metaBaseLen {
		return nil, tsdberrors.Corrupt("meta too short: %d bytes", len(buf))
	}

	off := 0
	rowCount := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	tsMin := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	tsMax := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	colCount := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4

	colsLen, overflow := mulOverflowsInt(int(colCount), colMetaLen)
	if overflow {
		return nil, tsdberrors.Corrupt("col_count too large: %d", colCount)
	}
	expectedLen := metaBaseLen + colsLen
	if len(buf) != expectedLen {
		return nil, tsdberrors.Corrupt("meta length mismatch: got %d want %d", len(buf), expectedLen)
	}

	cols := make([]ColumnMeta, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		colID := binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
		encoding := binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
		colOffset := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		colLen := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		cols = append(cols, ColumnMeta{ColID: colID, Encoding: encoding, Offset: colOffset, Len: colLen})
	}

	return &ChunkMeta{RowCount: rowCount, TsMin: tsMin, TsMax: tsMax, Cols: cols}, nil
}

// mulOverflowsInt reports a*b and whether the multiplication overflowed an
// int on this platform.
func mulOverflowsInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	result := a * b
	if result/a != b {
		return 0, true
	}
	return result, false
}

// columnByID returns the column descriptor for id, or false if absent.
func (m *ChunkMeta) columnByID(id uint16) (ColumnMeta, bool) {
	for _, c := range m.Cols {
		if c.ColID == id {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// metaTotalLen returns the encoded byte length of m.
func metaTotalLen(m *ChunkMeta) int {
	return metaLenForColCount(len(m.Cols))
}
