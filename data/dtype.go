package data

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Dtype is the scalar type of feature values.
type Dtype uint8

const (
	Float32 Dtype = iota + 1
	Float64
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
)

var dtypeNames = map[Dtype]string{
	Float32: "float32",
	Float64: "float64",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
}

// Valid reports whether d is a known dtype.
func (d Dtype) Valid() bool {
	_, ok := dtypeNames[d]
	return ok
}

// Size returns the width of one value in bytes.
func (d Dtype) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

func (d Dtype) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "invalid"
}

// ParseDtype parses a dtype name such as "float32".
func ParseDtype(s string) (Dtype, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return 0, h5err.Invalid("data.ParseDtype", "unknown dtype %q", s)
}

// Scalar is the set of Go types usable as feature values.
type Scalar interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// DtypeOf returns the dtype of T.
func DtypeOf[T Scalar]() Dtype {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	default:
		return Uint64
	}
}

func putScalar[T Scalar](b []byte, v T) {
	switch x := any(v).(type) {
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	case int8:
		b[0] = byte(x)
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case uint8:
		b[0] = x
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	}
}

func getScalar[T Scalar](b []byte) T {
	var zero T
	var v any
	switch any(zero).(type) {
	case float32:
		v = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case float64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(b))
	case int8:
		v = int8(b[0])
	case int16:
		v = int16(binary.LittleEndian.Uint16(b))
	case int32:
		v = int32(binary.LittleEndian.Uint32(b))
	case int64:
		v = int64(binary.LittleEndian.Uint64(b))
	case uint8:
		v = b[0]
	case uint16:
		v = binary.LittleEndian.Uint16(b)
	case uint32:
		v = binary.LittleEndian.Uint32(b)
	case uint64:
		v = binary.LittleEndian.Uint64(b)
	}
	return v.(T)
}
