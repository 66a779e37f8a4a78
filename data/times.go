package data

import (
	"math"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// TimeFormat is the number of columns of a time label.
type TimeFormat uint8

const (
	// TimeCenter labels each row with a single center time.
	TimeCenter TimeFormat = 1
	// TimeInterval labels each row with a (start, end) pair.
	TimeInterval TimeFormat = 2
)

// Valid reports whether tf is a known format.
func (tf TimeFormat) Valid() bool { return tf == TimeCenter || tf == TimeInterval }

func (tf TimeFormat) String() string {
	switch tf {
	case TimeCenter:
		return "center"
	case TimeInterval:
		return "interval"
	default:
		return "invalid"
	}
}

// Times holds the time labels of one item.
type Times struct {
	format TimeFormat
	values []float64
}

// CenterTimes labels rows with center times.
func CenterTimes(t []float64) Times {
	return Times{format: TimeCenter, values: t}
}

// IntervalTimes labels rows with (start, end) intervals.
func IntervalTimes(t [][2]float64) Times {
	values := make([]float64, 0, 2*len(t))
	for _, iv := range t {
		values = append(values, iv[0], iv[1])
	}
	return Times{format: TimeInterval, values: values}
}

// TimesFromValues wraps row-major values of the given format without copying.
func TimesFromValues(format TimeFormat, values []float64) (Times, error) {
	if !format.Valid() {
		return Times{}, h5err.Invalid("data.TimesFromValues", "time labels must have 1 or 2 columns, got %d", format)
	}
	if len(values)%int(format) != 0 {
		return Times{}, h5err.Invalid("data.TimesFromValues",
			"%d values do not divide into rows of %d columns", len(values), format)
	}
	return Times{format: format, values: values}, nil
}

// Format returns the time format.
func (t Times) Format() TimeFormat { return t.format }

// Rows returns the number of labelled rows.
func (t Times) Rows() int {
	if !t.format.Valid() {
		return 0
	}
	return len(t.values) / int(t.format)
}

// Values returns the row-major label values. The slice aliases t.
func (t Times) Values() []float64 { return t.values }

// Start returns the lower key of row i: the center or the interval start.
func (t Times) Start(i int) float64 { return t.values[i*int(t.format)] }

// End returns the upper key of row i: the center or the interval end.
func (t Times) End(i int) float64 { return t.values[i*int(t.format)+int(t.format)-1] }

// Slice returns rows [start, end) sharing storage with t.
func (t Times) Slice(start, end int) Times {
	w := int(t.format)
	return Times{format: t.format, values: t.values[start*w : end*w]}
}

// Equal reports bit-exact equality.
func (t Times) Equal(o Times) bool {
	if t.format != o.format || len(t.values) != len(o.values) {
		return false
	}
	for i := range t.values {
		if math.Float64bits(t.values[i]) != math.Float64bits(o.values[i]) {
			return false
		}
	}
	return true
}

func (t Times) validate(op, item string, level CheckLevel) error {
	if !t.format.Valid() {
		return h5err.Invalid(op, "item %q: time labels must have 1 or 2 columns", item)
	}
	if len(t.values)%int(t.format) != 0 {
		return h5err.Invalid(op, "item %q: time buffer is not a whole number of rows", item)
	}
	if t.Rows() == 0 {
		return h5err.Invalid(op, "item %q: times are empty", item)
	}
	if level < CheckFull {
		return nil
	}
	for i := 0; i < t.Rows(); i++ {
		s, e := t.Start(i), t.End(i)
		if math.IsNaN(s) || math.IsNaN(e) {
			return h5err.Invalid(op, "item %q: time label %d is NaN", item, i)
		}
		if s > e {
			return h5err.Invalid(op, "item %q: interval %d starts after it ends (%g > %g)", item, i, s, e)
		}
		if i > 0 && (s < t.Start(i-1) || e < t.End(i-1)) {
			return h5err.Invalid(op, "item %q: time labels decrease at row %d", item, i)
		}
	}
	return nil
}

// Follows reports whether t can be appended after prev without breaking
// monotonicity.
func (t Times) Follows(prev Times) bool {
	if prev.Rows() == 0 || t.Rows() == 0 {
		return true
	}
	last := prev.Rows() - 1
	return t.Start(0) >= prev.Start(last) && t.End(0) >= prev.End(last)
}
