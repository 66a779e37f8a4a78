package arraystore

import (
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/h5err"
	"github.com/bootphon/h5features-sub000/internal/hash"
)

const (
	manifestMagic   = 0x46463548 // "H5FF"
	manifestVersion = 1
	manifestHeader  = 16
)

// ColumnKind is the physical row representation of a column.
type ColumnKind uint8

const (
	// Fixed columns hold rows of RowSize bytes.
	Fixed ColumnKind = iota + 1
	// Strings columns hold one variable-length string per row.
	Strings
)

func (k ColumnKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Strings:
		return "strings"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ColumnSpec describes a column at creation.
type ColumnSpec struct {
	Kind ColumnKind
	// RowSize is the width of a row in bytes. Ignored for Strings.
	RowSize int
	// ChunkRows is the number of rows per chunk.
	ChunkRows int
	// Compression applies to every chunk of the column.
	Compression compress.Algorithm
}

func (s ColumnSpec) validate(name string) error {
	switch s.Kind {
	case Fixed:
		if s.RowSize <= 0 {
			return fmt.Errorf("arraystore: column %q: row size %d", name, s.RowSize)
		}
	case Strings:
	default:
		return fmt.Errorf("arraystore: column %q: unknown kind %d", name, s.Kind)
	}
	if s.ChunkRows <= 0 {
		return fmt.Errorf("arraystore: column %q: chunk rows %d", name, s.ChunkRows)
	}
	if !s.Compression.Valid() {
		return fmt.Errorf("arraystore: column %q: unknown compression %d", name, s.Compression)
	}
	return nil
}

// ChunkRef locates one immutable chunk blob.
type ChunkRef struct {
	ID   uint32
	Rows uint32
	Size uint32 // stored bytes, header included
}

// BlobAttr references an opaque attribute stored in its own blob.
type BlobAttr struct {
	Blob string
	Size uint64
	CRC  uint32
}

type columnInfo struct {
	Name   string
	Spec   ColumnSpec
	Chunks []ChunkRef
}

func (c *columnInfo) rows() int64 {
	var n int64
	for _, ch := range c.Chunks {
		n += int64(ch.Rows)
	}
	return n
}

// manifest is the committed state of a group.
type manifest struct {
	ID          uint64
	CreatedAt   time.Time
	Group       string
	NextChunkID uint32
	Attrs       map[string]string
	BlobAttrs   map[string]BlobAttr
	Columns     []columnInfo
}

func newManifest(group string) *manifest {
	return &manifest{
		Group:       group,
		NextChunkID: 1,
		Attrs:       map[string]string{},
		BlobAttrs:   map[string]BlobAttr{},
	}
}

func (m *manifest) clone() *manifest {
	c := *m
	c.Attrs = maps.Clone(m.Attrs)
	c.BlobAttrs = maps.Clone(m.BlobAttrs)
	c.Columns = make([]columnInfo, len(m.Columns))
	for i, col := range m.Columns {
		col.Chunks = slices.Clone(col.Chunks)
		c.Columns[i] = col
	}
	return &c
}

func (m *manifest) column(name string) *columnInfo {
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return &m.Columns[i]
		}
	}
	return nil
}

// encode serializes m. Map entries are written in key order so equal
// manifests produce equal bytes.
//
// Header (16 bytes): magic, format version, CRC32C of payload, payload length.
func (m *manifest) encode() ([]byte, error) {
	pb := newPayloadBuffer(make([]byte, 0, 256))
	pb.writeUint64(m.ID)
	pb.writeUint64(uint64(m.CreatedAt.UnixNano()))
	pb.writeString(m.Group)
	pb.writeUint32(m.NextChunkID)

	pb.writeUint32(uint32(len(m.Attrs)))
	for _, k := range slices.Sorted(maps.Keys(m.Attrs)) {
		pb.writeString(k)
		pb.writeString(m.Attrs[k])
	}

	pb.writeUint32(uint32(len(m.BlobAttrs)))
	for _, k := range slices.Sorted(maps.Keys(m.BlobAttrs)) {
		a := m.BlobAttrs[k]
		pb.writeString(k)
		pb.writeString(a.Blob)
		pb.writeUint64(a.Size)
		pb.writeUint32(a.CRC)
	}

	pb.writeUint32(uint32(len(m.Columns)))
	for _, c := range m.Columns {
		pb.writeString(c.Name)
		pb.writeUint32(uint32(c.Spec.Kind))
		pb.writeUint32(uint32(c.Spec.RowSize))
		pb.writeUint32(uint32(c.Spec.ChunkRows))
		pb.writeUint32(uint32(c.Spec.Compression))
		pb.writeUint32(uint32(len(c.Chunks)))
		for _, ch := range c.Chunks {
			pb.writeUint32(ch.ID)
			pb.writeUint32(ch.Rows)
			pb.writeUint32(ch.Size)
		}
	}
	if pb.err != nil {
		return nil, pb.err
	}

	out := make([]byte, manifestHeader, manifestHeader+len(pb.buf))
	binary.LittleEndian.PutUint32(out[0:4], manifestMagic)
	binary.LittleEndian.PutUint32(out[4:8], manifestVersion)
	binary.LittleEndian.PutUint32(out[8:12], hash.CRC32C(pb.buf))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(pb.buf)))
	return append(out, pb.buf...), nil
}

func decodeManifest(name string, b []byte) (*manifest, error) {
	const op = "arraystore.decodeManifest"
	if len(b) < manifestHeader {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: truncated header", name)
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != manifestMagic {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: invalid magic %#x", name, magic)
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != manifestVersion {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: unsupported manifest version %d", name, v)
	}
	sum := binary.LittleEndian.Uint32(b[8:12])
	length := binary.LittleEndian.Uint32(b[12:16])
	payload := b[manifestHeader:]
	if uint64(len(payload)) != uint64(length) {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: payload is %d bytes, header says %d", name, len(payload), length)
	}
	if !hash.Match(sum, payload) {
		return nil, h5err.New(h5err.KindCorrupt, op, "%s: checksum mismatch", name)
	}

	pb := newPayloadBuffer(payload)
	m := &manifest{}
	m.ID = pb.readUint64()
	m.CreatedAt = time.Unix(0, int64(pb.readUint64()))
	m.Group = pb.readString()
	m.NextChunkID = pb.readUint32()

	n := pb.readUint32()
	m.Attrs = make(map[string]string, pb.bounded(n, 4))
	for i := uint32(0); i < n && pb.err == nil; i++ {
		k := pb.readString()
		m.Attrs[k] = pb.readString()
	}

	n = pb.readUint32()
	m.BlobAttrs = make(map[string]BlobAttr, pb.bounded(n, 16))
	for i := uint32(0); i < n && pb.err == nil; i++ {
		k := pb.readString()
		var a BlobAttr
		a.Blob = pb.readString()
		a.Size = pb.readUint64()
		a.CRC = pb.readUint32()
		m.BlobAttrs[k] = a
	}

	n = pb.readUint32()
	m.Columns = make([]columnInfo, 0, pb.bounded(n, 22))
	for i := uint32(0); i < n && pb.err == nil; i++ {
		var c columnInfo
		c.Name = pb.readString()
		c.Spec.Kind = ColumnKind(pb.readUint32())
		c.Spec.RowSize = int(pb.readUint32())
		c.Spec.ChunkRows = int(pb.readUint32())
		c.Spec.Compression = compress.Algorithm(pb.readUint32())
		nc := pb.readUint32()
		c.Chunks = make([]ChunkRef, 0, pb.bounded(nc, 12))
		for j := uint32(0); j < nc && pb.err == nil; j++ {
			c.Chunks = append(c.Chunks, ChunkRef{ID: pb.readUint32(), Rows: pb.readUint32(), Size: pb.readUint32()})
		}
		m.Columns = append(m.Columns, c)
	}
	if pb.err == nil && pb.pos != len(pb.buf) {
		pb.err = fmt.Errorf("%d trailing bytes", len(pb.buf)-pb.pos)
	}
	if pb.err != nil {
		return nil, h5err.Wrap(pb.err, h5err.KindCorrupt, op, "%s", name)
	}
	for _, c := range m.Columns {
		if err := c.Spec.validate(c.Name); err != nil {
			return nil, h5err.Wrap(err, h5err.KindCorrupt, op, "%s", name)
		}
	}
	return m, nil
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

// bounded caps a decoded element count by the bytes left, so a corrupt count
// cannot trigger a huge allocation.
func (p *payloadBuffer) bounded(n uint32, minSize int) int {
	left := (len(p.buf) - p.pos) / minSize
	return min(int(n), left)
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > 65535 {
		p.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) readUint64() uint64 {
	if p.err != nil {
		return 0
	}
	if p.pos+8 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if p.err != nil {
		return 0
	}
	if p.pos+4 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readString() string {
	if p.err != nil {
		return ""
	}
	if p.pos+2 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	l := int(binary.LittleEndian.Uint16(p.buf[p.pos:]))
	p.pos += 2
	if p.pos+l > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(p.buf[p.pos : p.pos+l])
	p.pos += l
	return s
}
