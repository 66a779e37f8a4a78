package engine

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/codec"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Group attribute keys.
const (
	attrVersion     = "version"
	attrFormat      = "format"
	attrDim         = "dim"
	attrDtype       = "dtype"
	attrTimeFormat  = "time_format"
	attrProperties  = "properties"
	attrCompression = "compression"
	attrCodec       = "codec"

	propertiesBlob = "properties"
	denseFormat    = "dense"
)

const (
	// DefaultChunkBytes sizes feature and time chunks when no row count is
	// given.
	DefaultChunkBytes = 1 << 20
	// IndexChunkRows is the chunk size of the item and boundary columns.
	IndexChunkRows = 4096
)

// Schema is the set of invariants fixed when a group is initialized.
type Schema struct {
	Version     format.Version
	Desc        data.Descriptor
	Compression compress.Algorithm
	Codec       codec.Codec
	// ChunkRows overrides the feature chunk size. Zero derives it from
	// DefaultChunkBytes.
	ChunkRows int
}

func (s Schema) attrs() map[string]string {
	return map[string]string{
		attrVersion:     s.Version.String(),
		attrFormat:      denseFormat,
		attrDim:         strconv.Itoa(s.Desc.Dim),
		attrDtype:       s.Desc.Dtype.String(),
		attrTimeFormat:  s.Desc.TimeFormat.String(),
		attrProperties:  strconv.FormatBool(s.Desc.HasProperties),
		attrCompression: s.Compression.String(),
		attrCodec:       s.Codec.Name(),
	}
}

// schemaFromGroup parses the attributes of a stored group.
func schemaFromGroup(g *arraystore.Group) (Schema, error) {
	const op = "engine.loadSchema"
	var s Schema
	tag, _ := g.Attr(attrVersion)
	v, err := format.Parse(tag)
	if err != nil {
		return s, err
	}
	if tag == "" {
		return s, h5err.New(h5err.KindCorrupt, op, "group %q has no version attribute", g.Name())
	}
	s.Version = v

	if f, _ := g.Attr(attrFormat); f != denseFormat {
		return s, h5err.New(h5err.KindUnimplemented, op, "group %q uses %q features", g.Name(), f)
	}
	dim, err := strconv.Atoi(attrOr(g, attrDim, ""))
	if err != nil || dim <= 0 {
		return s, h5err.New(h5err.KindCorrupt, op, "group %q: invalid dimension attribute", g.Name())
	}
	s.Desc.Dim = dim
	if s.Desc.Dtype, err = data.ParseDtype(attrOr(g, attrDtype, "")); err != nil {
		return s, h5err.Wrap(err, h5err.KindCorrupt, op, "group %q", g.Name())
	}
	switch attrOr(g, attrTimeFormat, "") {
	case data.TimeCenter.String():
		s.Desc.TimeFormat = data.TimeCenter
	case data.TimeInterval.String():
		s.Desc.TimeFormat = data.TimeInterval
	default:
		return s, h5err.New(h5err.KindCorrupt, op, "group %q: invalid time format attribute", g.Name())
	}
	s.Desc.HasProperties = attrOr(g, attrProperties, "false") == "true"
	if s.Compression, err = compress.Parse(attrOr(g, attrCompression, "")); err != nil {
		return s, h5err.Wrap(err, h5err.KindCorrupt, op, "group %q", g.Name())
	}
	name := attrOr(g, attrCodec, codec.Default.Name())
	c, ok := codec.ByName(name)
	if !ok {
		return s, h5err.New(h5err.KindCorrupt, op, "group %q: unknown codec %q", g.Name(), name)
	}
	s.Codec = c
	return s, nil
}

func attrOr(g *arraystore.Group, key, def string) string {
	if v, ok := g.Attr(key); ok {
		return v
	}
	return def
}

// checkLayout rejects batches the version can not represent.
func checkLayout(v format.Version, d data.Descriptor) error {
	l := v.Layout()
	if d.TimeFormat == data.TimeInterval && !l.IntervalTimes {
		return h5err.Invalid("engine.Append", "version %s stores center times only", v)
	}
	if d.HasProperties && !l.Properties {
		return h5err.Invalid("engine.Append", "version %s does not store properties", v)
	}
	return nil
}

// columnSpecs returns the columns of a group in creation order.
func (s Schema) columnSpecs() []struct {
	name string
	spec arraystore.ColumnSpec
} {
	l := s.Version.Layout()
	rowSize := s.Desc.Dim * s.Desc.Dtype.Size()
	timeRow := 8 * int(s.Desc.TimeFormat)

	featRows := s.ChunkRows
	if featRows <= 0 {
		featRows = max(1, DefaultChunkBytes/rowSize)
	}
	timeRows := featRows
	if !l.SharedChunking {
		timeRows = max(1, DefaultChunkBytes/timeRow)
		if s.ChunkRows > 0 {
			timeRows = s.ChunkRows
		}
	}
	return []struct {
		name string
		spec arraystore.ColumnSpec
	}{
		{format.ItemsColumn, arraystore.ColumnSpec{Kind: arraystore.Strings, ChunkRows: IndexChunkRows, Compression: s.Compression}},
		{format.TimesColumn, arraystore.ColumnSpec{Kind: arraystore.Fixed, RowSize: timeRow, ChunkRows: timeRows, Compression: s.Compression}},
		{format.FeaturesColumn, arraystore.ColumnSpec{Kind: arraystore.Fixed, RowSize: rowSize, ChunkRows: featRows, Compression: s.Compression}},
		{l.IndexColumn, arraystore.ColumnSpec{Kind: arraystore.Fixed, RowSize: 8, ChunkRows: IndexChunkRows, Compression: s.Compression}},
	}
}

func encodeFloat64s(dst []byte, vals []float64) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

func decodeFloat64s(b []byte) []float64 {
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}

func encodeInt64s(dst []byte, vals []int64) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
	}
	return dst
}

func decodeInt64s(b []byte) []int64 {
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}
