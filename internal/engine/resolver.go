package engine

import (
	"context"
	"sort"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Span is a contiguous run of rows of one item, both bounds inclusive and
// absolute within the group.
type Span struct {
	Ordinal int
	Item    string
	Start   int64
	End     int64
}

// Rows returns the number of rows covered.
func (s Span) Rows() int64 { return s.End - s.Start + 1 }

// Resolver maps item names and time bounds to row spans and loads them.
type Resolver struct {
	g  *arraystore.Group
	st *State
}

// NewResolver loads the state of g.
func NewResolver(ctx context.Context, g *arraystore.Group) (*Resolver, error) {
	st, err := loadState(ctx, g)
	if err != nil {
		return nil, err
	}
	return &Resolver{g: g, st: st}, nil
}

// State returns the loaded group state.
func (r *Resolver) State() *State { return r.st }

// Resolve returns the spans of items fromItem..toItem restricted to
// [from, to]. Empty item names select the whole group; an empty toItem
// selects fromItem alone. The lower bound is the first row of fromItem whose
// time is >= from, the upper bound the last row of toItem whose time is <= to.
// For interval times the lower bound tests start times and the upper bound
// end times.
func (r *Resolver) Resolve(ctx context.Context, fromItem, toItem string, from, to *float64) ([]Span, error) {
	const op = "engine.Resolve"
	st := r.st
	if fromItem == "" && toItem != "" {
		return nil, h5err.Invalid(op, "to_item %q given without from_item", toItem)
	}
	var first, last int
	switch {
	case fromItem == "":
		if st.Index.Len() == 0 {
			return nil, h5err.NotFound(op, "group %q holds no items", r.g.Name())
		}
		first, last = 0, st.Index.Len()-1
	default:
		if toItem == "" {
			toItem = fromItem
		}
		var ok bool
		if first, ok = st.Ordinal(fromItem); !ok {
			return nil, h5err.NotFound(op, "item %q is not in group %q", fromItem, r.g.Name())
		}
		if last, ok = st.Ordinal(toItem); !ok {
			return nil, h5err.NotFound(op, "item %q is not in group %q", toItem, r.g.Name())
		}
	}
	if first > last {
		return nil, h5err.OutOfRange(op, "item %q is stored after item %q", fromItem, toItem)
	}

	lower, _ := st.Index.RowRange(first)
	_, end := st.Index.RowRange(last)
	upper := end - 1

	if from != nil {
		s, e := st.Index.RowRange(first)
		times, err := r.times(ctx, s, e-1)
		if err != nil {
			return nil, err
		}
		i := sort.Search(times.Rows(), func(i int) bool { return times.Start(i) >= *from })
		if i == times.Rows() {
			return nil, h5err.OutOfRange(op, "from_time %g exceeds the range of item %q", *from, st.Items[first])
		}
		lower = s + int64(i)
	}
	if to != nil {
		s, e := st.Index.RowRange(last)
		times, err := r.times(ctx, s, e-1)
		if err != nil {
			return nil, err
		}
		// first row ending after to, minus one
		i := sort.Search(times.Rows(), func(i int) bool { return times.End(i) > *to }) - 1
		if i < 0 {
			return nil, h5err.OutOfRange(op, "to_time %g precedes the range of item %q", *to, st.Items[last])
		}
		upper = s + int64(i)
	}
	if lower > upper {
		return nil, h5err.OutOfRange(op, "no row of item %q lies within the time bounds", st.Items[first])
	}

	base, _ := st.Index.RowRange(first)
	spans := make([]Span, 0, last-first+1)
	prev := int64(-1)
	for i, b := range st.Index.Slice(first, last+1) {
		k := first + i
		sp := Span{Ordinal: k, Item: st.Items[k], Start: base + prev + 1, End: base + b}
		prev = b
		if k == first {
			sp.Start = lower
		}
		if k == last {
			sp.End = upper
		}
		spans = append(spans, sp)
	}
	return spans, nil
}

func (r *Resolver) times(ctx context.Context, start, end int64) (data.Times, error) {
	col, err := r.g.Column(format.TimesColumn)
	if err != nil {
		return data.Times{}, err
	}
	raw, err := col.ReadRows(ctx, start, end)
	if err != nil {
		return data.Times{}, err
	}
	return data.TimesFromValues(r.st.Schema.Desc.TimeFormat, decodeFloat64s(raw))
}

// Load reads the rows of spans. Spans must be contiguous and ordered, as
// returned by Resolve.
func (r *Resolver) Load(ctx context.Context, spans []Span, ignoreProperties bool) ([]data.Item, error) {
	if len(spans) == 0 {
		return nil, nil
	}
	start, end := spans[0].Start, spans[len(spans)-1].End
	desc := r.st.Schema.Desc

	fcol, err := r.g.Column(format.FeaturesColumn)
	if err != nil {
		return nil, err
	}
	feats, err := fcol.ReadRows(ctx, start, end)
	if err != nil {
		return nil, err
	}
	times, err := r.times(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var props []data.Properties
	if desc.HasProperties && !ignoreProperties {
		if props, err = r.st.properties(ctx, r.g); err != nil {
			return nil, err
		}
	}

	rowSize := int64(desc.Dim * desc.Dtype.Size())
	items := make([]data.Item, len(spans))
	for i, sp := range spans {
		lo, hi := sp.Start-start, sp.End-start+1
		f, err := data.FeaturesFromBytes(desc.Dtype, desc.Dim, feats[lo*rowSize:hi*rowSize])
		if err != nil {
			return nil, h5err.Wrap(err, h5err.KindCorrupt, "engine.Load", "item %q", sp.Item)
		}
		items[i] = data.Item{Name: sp.Item, Features: f, Times: times.Slice(int(lo), int(hi))}
		if props != nil {
			// copy, so callers can not alter the cached list
			if items[i].Properties, err = data.NormalizeProperties(props[sp.Ordinal]); err != nil {
				return nil, h5err.Wrap(err, h5err.KindCorrupt, "engine.Load", "item %q", sp.Item)
			}
		}
	}
	return items, nil
}

// Item reads one whole item.
func (r *Resolver) Item(ctx context.Context, name string) (data.Item, error) {
	spans, err := r.Resolve(ctx, name, "", nil, nil)
	if err != nil {
		return data.Item{}, err
	}
	items, err := r.Load(ctx, spans, false)
	if err != nil {
		return data.Item{}, err
	}
	return items[0], nil
}
