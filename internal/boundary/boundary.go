// Package boundary maps item ordinals to row ranges.
//
// A group stores one boundary per item: the inclusive index of the item's last
// row in the concatenated feature and time columns. Item i spans rows
// [b[i-1]+1, b[i]] with b[-1] = -1.
package boundary

import (
	"fmt"
	"sort"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Index is the boundary column of a group.
type Index struct {
	last []int64
}

// New wraps stored boundaries. Use Validate before trusting persisted data.
func New(last []int64) *Index {
	return &Index{last: last}
}

// Len returns the number of items.
func (x *Index) Len() int { return len(x.last) }

// Rows returns the total number of rows covered.
func (x *Index) Rows() int64 {
	if len(x.last) == 0 {
		return 0
	}
	return x.last[len(x.last)-1] + 1
}

// Last returns the stored boundaries. The slice aliases x.
func (x *Index) Last() []int64 { return x.last }

// RowRange returns the half-open row range [start, end) of item i.
func (x *Index) RowRange(i int) (start, end int64) {
	if i > 0 {
		start = x.last[i-1] + 1
	}
	return start, x.last[i] + 1
}

// Count returns the number of rows of item i.
func (x *Index) Count(i int) int64 {
	s, e := x.RowRange(i)
	return e - s
}

// Append adds items with the given row counts after the current rows and
// returns the boundaries written.
func (x *Index) Append(counts []int) ([]int64, error) {
	next := x.Rows()
	added := make([]int64, len(counts))
	for i, n := range counts {
		if n <= 0 {
			return nil, h5err.Invalid("boundary.Append", "item %d has %d rows", i, n)
		}
		next += int64(n)
		added[i] = next - 1
	}
	x.last = append(x.last, added...)
	return added, nil
}

// Extend grows the last item by n rows.
func (x *Index) Extend(n int) error {
	if len(x.last) == 0 {
		return h5err.Invalid("boundary.Extend", "no item to extend")
	}
	if n <= 0 {
		return h5err.Invalid("boundary.Extend", "cannot extend by %d rows", n)
	}
	x.last[len(x.last)-1] += int64(n)
	return nil
}

// Slice returns the boundaries of items [from, to) rebased to start at row 0.
func (x *Index) Slice(from, to int) []int64 {
	out := make([]int64, to-from)
	var base int64
	if from > 0 {
		base = x.last[from-1] + 1
	}
	for i := range out {
		out[i] = x.last[from+i] - base
	}
	return out
}

// Locate returns the item owning row r.
func (x *Index) Locate(r int64) (int, bool) {
	i := sort.Search(len(x.last), func(i int) bool { return x.last[i] >= r })
	if r < 0 || i == len(x.last) {
		return 0, false
	}
	return i, true
}

// Validate checks that boundaries are strictly increasing and start at a
// non-negative row, and optionally that they cover exactly rows rows.
func (x *Index) Validate(rows int64) error {
	prev := int64(-1)
	for i, b := range x.last {
		if b <= prev {
			return h5err.New(h5err.KindCorrupt, "boundary.Validate",
				"boundary %d (%d) does not follow %d", i, b, prev)
		}
		prev = b
	}
	if rows >= 0 && x.Rows() != rows {
		return h5err.New(h5err.KindCorrupt, "boundary.Validate",
			"boundaries cover %d rows, columns hold %d", x.Rows(), rows)
	}
	return nil
}

func (x *Index) String() string {
	return fmt.Sprintf("boundary.Index{items: %d, rows: %d}", x.Len(), x.Rows())
}
