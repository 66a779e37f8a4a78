package arraystore

import (
	"encoding/binary"
	"fmt"

	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/h5err"
	"github.com/bootphon/h5features-sub000/internal/hash"
)

// Chunk blob layout:
//
//	Magic       (4 bytes) "H5FC"
//	Version     (1 byte)
//	Compression (1 byte)
//	Kind        (1 byte)
//	Reserved    (1 byte)
//	Rows        (4 bytes)
//	RawSize     (4 bytes) decoded payload size
//	PayloadSize (4 bytes) stored payload size
//	PayloadCRC  (4 bytes) CRC32C of the stored payload
//	HeaderCRC   (4 bytes) CRC32C of bytes [0, 24)
//	Reserved    (4 bytes)
//	Payload
const (
	chunkMagic      = 0x43463548 // "H5FC"
	chunkVersion    = 1
	chunkHeaderSize = 32
)

type chunkHeader struct {
	Compression compress.Algorithm
	Kind        ColumnKind
	Rows        uint32
	RawSize     uint32
	PayloadSize uint32
	PayloadCRC  uint32
}

// encodeChunk compresses raw rows into a chunk blob.
func encodeChunk(kind ColumnKind, algo compress.Algorithm, rows int, raw []byte) ([]byte, error) {
	used, payload, err := compress.EncodeBlock(algo, raw)
	if err != nil {
		return nil, err
	}
	out := make([]byte, chunkHeaderSize, chunkHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], chunkMagic)
	out[4] = chunkVersion
	out[5] = byte(used)
	out[6] = byte(kind)
	binary.LittleEndian.PutUint32(out[8:12], uint32(rows))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[20:24], hash.CRC32C(payload))
	binary.LittleEndian.PutUint32(out[24:28], hash.CRC32C(out[:24]))
	return append(out, payload...), nil
}

func parseChunkHeader(name string, b []byte) (chunkHeader, error) {
	const op = "arraystore.parseChunkHeader"
	if len(b) < chunkHeaderSize {
		return chunkHeader{}, h5err.New(h5err.KindCorrupt, op, "%s: truncated header", name)
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != chunkMagic {
		return chunkHeader{}, h5err.New(h5err.KindCorrupt, op, "%s: invalid magic %#x", name, magic)
	}
	if !hash.Match(binary.LittleEndian.Uint32(b[24:28]), b[:24]) {
		return chunkHeader{}, h5err.New(h5err.KindCorrupt, op, "%s: header checksum mismatch", name)
	}
	if b[4] != chunkVersion {
		return chunkHeader{}, h5err.New(h5err.KindCorrupt, op, "%s: unsupported chunk version %d", name, b[4])
	}
	h := chunkHeader{
		Compression: compress.Algorithm(b[5]),
		Kind:        ColumnKind(b[6]),
		Rows:        binary.LittleEndian.Uint32(b[8:12]),
		RawSize:     binary.LittleEndian.Uint32(b[12:16]),
		PayloadSize: binary.LittleEndian.Uint32(b[16:20]),
		PayloadCRC:  binary.LittleEndian.Uint32(b[20:24]),
	}
	if !h.Compression.Valid() {
		return chunkHeader{}, h5err.New(h5err.KindCorrupt, op, "%s: unknown compression %d", name, b[5])
	}
	return h, nil
}

// decodeChunk verifies and decompresses a chunk blob against its reference.
func decodeChunk(name string, ref ChunkRef, spec ColumnSpec, b []byte) ([]byte, error) {
	const op = "arraystore.decodeChunk"
	h, err := parseChunkHeader(name, b)
	if err != nil {
		return nil, err
	}
	payload := b[chunkHeaderSize:]
	switch {
	case uint32(len(payload)) != h.PayloadSize:
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: payload is %d bytes, header says %d", name, len(payload), h.PayloadSize)
	case h.Rows != ref.Rows:
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: %d rows, manifest says %d", name, h.Rows, ref.Rows)
	case h.Kind != spec.Kind:
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: %s chunk in %s column", name, h.Kind, spec.Kind)
	case spec.Kind == Fixed && int(h.RawSize) != int(h.Rows)*spec.RowSize:
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: %d bytes for %d rows of %d", name, h.RawSize, h.Rows, spec.RowSize)
	}
	if !hash.Match(h.PayloadCRC, payload) {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: payload checksum mismatch", name)
	}
	raw, err := compress.Decode(h.Compression, payload, int(h.RawSize))
	if err != nil {
		return nil, h5err.Wrap(err, h5err.KindCorrupt, op, "%s", name)
	}
	if spec.Kind == Strings {
		if _, err := stringOffset(raw, int(h.Rows)); err != nil {
			return nil, h5err.Wrap(err, h5err.KindCorrupt, op, "%s", name)
		}
	}
	return raw, nil
}

// appendString encodes one string row.
func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// stringOffset returns the byte offset of row n in a strings buffer.
func stringOffset(buf []byte, n int) (int, error) {
	off := 0
	for i := 0; i < n; i++ {
		l, k := binary.Uvarint(buf[off:])
		if k <= 0 || uint64(len(buf)-off-k) < l {
			return 0, fmt.Errorf("malformed string row %d", i)
		}
		off += k + int(l)
	}
	return off, nil
}

func decodeStrings(buf []byte, n int) ([]string, error) {
	out := make([]string, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, k := binary.Uvarint(buf[off:])
		if k <= 0 || uint64(len(buf)-off-k) < l {
			return nil, fmt.Errorf("malformed string row %d", i)
		}
		off += k
		out = append(out, string(buf[off:off+int(l)]))
		off += int(l)
	}
	return out, nil
}

// rowOffset returns the byte offset of row n in raw rows of a column.
func rowOffset(spec ColumnSpec, buf []byte, n int) (int, error) {
	if spec.Kind == Fixed {
		off := n * spec.RowSize
		if off > len(buf) {
			return 0, fmt.Errorf("row %d beyond %d bytes", n, len(buf))
		}
		return off, nil
	}
	return stringOffset(buf, n)
}
