package data

import (
	"bytes"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Features is a dense row-major matrix of feature vectors.
//
// Values are held as little-endian bytes so that a stored matrix reads back bit
// for bit, whatever its dtype.
type Features struct {
	dtype Dtype
	dim   int
	data  []byte
}

// NewFeatures builds a matrix from rows. All rows must have the same non-zero
// length.
func NewFeatures[T Scalar](rows [][]T) (Features, error) {
	dtype := DtypeOf[T]()
	if len(rows) == 0 {
		return Features{dtype: dtype}, nil
	}
	dim := len(rows[0])
	if dim == 0 {
		return Features{}, h5err.Invalid("data.NewFeatures", "feature dimension must be positive")
	}
	size := dtype.Size()
	buf := make([]byte, len(rows)*dim*size)
	off := 0
	for i, row := range rows {
		if len(row) != dim {
			return Features{}, h5err.Invalid("data.NewFeatures",
				"row %d has %d values, expected %d", i, len(row), dim)
		}
		for _, v := range row {
			putScalar(buf[off:], v)
			off += size
		}
	}
	return Features{dtype: dtype, dim: dim, data: buf}, nil
}

// NewFeaturesFlat builds a matrix of dim columns from row-major values.
func NewFeaturesFlat[T Scalar](dim int, values []T) (Features, error) {
	if dim <= 0 {
		return Features{}, h5err.Invalid("data.NewFeaturesFlat", "feature dimension must be positive, got %d", dim)
	}
	if len(values)%dim != 0 {
		return Features{}, h5err.Invalid("data.NewFeaturesFlat",
			"%d values do not divide into rows of %d", len(values), dim)
	}
	dtype := DtypeOf[T]()
	size := dtype.Size()
	buf := make([]byte, len(values)*size)
	for i, v := range values {
		putScalar(buf[i*size:], v)
	}
	return Features{dtype: dtype, dim: dim, data: buf}, nil
}

// FeaturesFromBytes wraps raw little-endian row-major values without copying.
func FeaturesFromBytes(dtype Dtype, dim int, raw []byte) (Features, error) {
	if !dtype.Valid() {
		return Features{}, h5err.Invalid("data.FeaturesFromBytes", "invalid dtype %d", dtype)
	}
	if dim <= 0 {
		return Features{}, h5err.Invalid("data.FeaturesFromBytes", "feature dimension must be positive, got %d", dim)
	}
	if len(raw)%(dim*dtype.Size()) != 0 {
		return Features{}, h5err.Invalid("data.FeaturesFromBytes",
			"%d bytes do not divide into %s rows of dimension %d", len(raw), dtype, dim)
	}
	return Features{dtype: dtype, dim: dim, data: raw}, nil
}

// NewSparseFeatures is the entry point for sparse encodings. Sparse storage is
// not supported and this always fails.
func NewSparseFeatures(dim int, rowIdx, colIdx []int, values []float64) (Features, error) {
	return Features{}, h5err.New(h5err.KindUnimplemented, "data.NewSparseFeatures",
		"sparse features are not supported (dim %d, %d values)", dim, len(values))
}

// FeatureRows decodes f into rows of T. T must match the stored dtype.
func FeatureRows[T Scalar](f Features) ([][]T, error) {
	if want := DtypeOf[T](); want != f.dtype {
		return nil, h5err.Invalid("data.FeatureRows", "features are %s, requested %s", f.dtype, want)
	}
	n := f.Rows()
	size := f.dtype.Size()
	out := make([][]T, n)
	flat := make([]T, n*f.dim)
	for i := range flat {
		flat[i] = getScalar[T](f.data[i*size:])
	}
	for i := range out {
		out[i] = flat[i*f.dim : (i+1)*f.dim : (i+1)*f.dim]
	}
	return out, nil
}

// Float64Rows converts f to rows of float64 whatever its dtype. 64-bit
// integers beyond 2^53 lose precision.
func (f Features) Float64Rows() [][]float64 {
	switch f.dtype {
	case Float32:
		return widen[float32](f)
	case Float64:
		return widen[float64](f)
	case Int8:
		return widen[int8](f)
	case Int16:
		return widen[int16](f)
	case Int32:
		return widen[int32](f)
	case Int64:
		return widen[int64](f)
	case Uint8:
		return widen[uint8](f)
	case Uint16:
		return widen[uint16](f)
	case Uint32:
		return widen[uint32](f)
	case Uint64:
		return widen[uint64](f)
	default:
		return nil
	}
}

func widen[T Scalar](f Features) [][]float64 {
	rows, _ := FeatureRows[T](f)
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			out[i][j] = float64(v)
		}
	}
	return out
}

// Dtype returns the scalar type.
func (f Features) Dtype() Dtype { return f.dtype }

// Dim returns the number of values per row.
func (f Features) Dim() int { return f.dim }

// Rows returns the number of rows.
func (f Features) Rows() int {
	if f.dim == 0 || !f.dtype.Valid() {
		return 0
	}
	return len(f.data) / (f.dim * f.dtype.Size())
}

// RowSize returns the width of one row in bytes.
func (f Features) RowSize() int { return f.dim * f.dtype.Size() }

// Bytes returns the raw row-major values. The slice aliases f.
func (f Features) Bytes() []byte { return f.data }

// Slice returns rows [start, end) sharing storage with f.
func (f Features) Slice(start, end int) Features {
	rs := f.RowSize()
	return Features{dtype: f.dtype, dim: f.dim, data: f.data[start*rs : end*rs]}
}

// Equal reports bit-exact equality.
func (f Features) Equal(o Features) bool {
	return f.dtype == o.dtype && f.dim == o.dim && bytes.Equal(f.data, o.data)
}

func (f Features) validate(op, item string) error {
	if !f.dtype.Valid() {
		return h5err.Invalid(op, "item %q: invalid feature dtype", item)
	}
	if f.dim <= 0 {
		return h5err.Invalid(op, "item %q: feature dimension must be positive", item)
	}
	if len(f.data)%f.RowSize() != 0 {
		return h5err.Invalid(op, "item %q: feature buffer is not a whole number of rows", item)
	}
	if f.Rows() == 0 {
		return h5err.Invalid(op, "item %q: features are empty", item)
	}
	return nil
}
