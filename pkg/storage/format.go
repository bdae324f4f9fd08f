// Package storage implements the on-disk chunk file format: a one-shot
// writer, a reader that memoizes chunk metadata and serves positional
// column reads, and the CRC-32/IEEE verification primitives that guard the
// meta section.
package storage

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/famarks/tsdbcore/pkg/tsdberrors"
)

// Magic, Version, and HeaderLen are the compatibility contract: files
// written by this engine must round-trip through this reader unchanged.
const (
	Magic     = "TSDB"
	Version   = uint16(1)
	HeaderLen = 16

	headerMagicLen = 4
)

// header is the fixed 16-byte prefix of a chunk file.
type header struct {
	MetaLen   uint32
	MetaCRC32 uint32
}

// newCRC32 builds the hasher used for the meta section, preconfigured with
// the IEEE polynomial spec.md and the file format pin as the compatibility
// contract (the teacher's own newCRC32 factory uses Castagnoli for log
// block checksums; this format is bit-exact to an external contract, so the
// polynomial here is fixed to IEEE rather than chosen for speed).
func newCRC32() hash.Hash32 {
	return crc32.NewIEEE()
}

func writeHeader(w io.Writer, h header) error {
	buf := make([]byte, HeaderLen)
	copy(buf[0:headerMagicLen], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(HeaderLen))
	binary.LittleEndian.PutUint32(buf[8:12], h.MetaLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.MetaCRC32)
	_, err := w.Write(buf)
	if err != nil {
		return tsdberrors.IO(err)
	}
	return nil
}

func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, tsdberrors.IO(err)
	}

	if string(buf[0:headerMagicLen]) != Magic {
		return header{}, tsdberrors.Corrupt("bad magic")
	}

	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != Version {
		return header{}, tsdberrors.Unsupported("unsupported version: %d", version)
	}

	headerLen := binary.LittleEndian.Uint16(buf[6:8])
	if headerLen != HeaderLen {
		return header{}, tsdberrors.Corrupt("header length mismatch: got %d want %d", headerLen, HeaderLen)
	}

	metaLen := binary.LittleEndian.Uint32(buf[8:12])
	metaCRC32 := binary.LittleEndian.Uint32(buf[12:16])

	return header{MetaLen: metaLen, MetaCRC32: metaCRC32}, nil
}
