package engine

import (
	"context"
	"maps"
	"slices"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/boundary"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// State is the in-memory view of a populated or initialized group: its
// schema, item names and boundary index. Feature and time rows stay in the
// store.
type State struct {
	Schema Schema
	Items  []string
	Index  *boundary.Index

	ordinals map[string]int
	props    []data.Properties
	propsOK  bool
}

// newState returns the state of a group without items.
func newState(s Schema) *State {
	return &State{Schema: s, Index: boundary.New(nil), ordinals: map[string]int{}, propsOK: true}
}

// loadState reads the schema, item names and boundary index of g and checks
// that they agree with the stored columns.
func loadState(ctx context.Context, g *arraystore.Group) (*State, error) {
	const op = "engine.loadState"
	s, err := schemaFromGroup(g)
	if err != nil {
		return nil, err
	}
	st := newState(s)
	st.propsOK = false
	l := s.Version.Layout()
	if !g.HasColumn(format.ItemsColumn) {
		// initialized by a commit that never added columns
		return st, nil
	}

	cols := map[string]*arraystore.Column{}
	for _, name := range l.Columns() {
		c, err := g.Column(name)
		if err != nil {
			return nil, h5err.Wrap(err, h5err.KindCorrupt, op, "group %q", g.Name())
		}
		cols[name] = c
	}
	if n := cols[format.ItemsColumn].Rows(); n > 0 {
		if st.Items, err = cols[format.ItemsColumn].ReadStrings(ctx, 0, n-1); err != nil {
			return nil, err
		}
	}
	var last []int64
	if n := cols[l.IndexColumn].Rows(); n > 0 {
		raw, err := cols[l.IndexColumn].ReadRows(ctx, 0, n-1)
		if err != nil {
			return nil, err
		}
		last = decodeInt64s(raw)
	}
	st.Index = boundary.New(last)

	rows := cols[format.FeaturesColumn].Rows()
	if err := st.Index.Validate(rows); err != nil {
		return nil, err
	}
	if t := cols[format.TimesColumn].Rows(); t != rows {
		return nil, h5err.New(h5err.KindCorrupt, op, "group %q: %d time rows for %d feature rows", g.Name(), t, rows)
	}
	if len(st.Items) != st.Index.Len() {
		return nil, h5err.New(h5err.KindCorrupt, op, "group %q: %d item names for %d boundaries", g.Name(), len(st.Items), st.Index.Len())
	}
	for i, name := range st.Items {
		if _, dup := st.ordinals[name]; dup {
			return nil, h5err.New(h5err.KindCorrupt, op, "group %q: item %q stored twice", g.Name(), name)
		}
		st.ordinals[name] = i
	}
	return st, nil
}

// Ordinal returns the position of an item.
func (st *State) Ordinal(name string) (int, bool) {
	i, ok := st.ordinals[name]
	return i, ok
}

// Rows returns the number of rows of the group.
func (st *State) Rows() int64 { return st.Index.Rows() }

// properties returns the stored properties list, loading it once.
func (st *State) properties(ctx context.Context, g *arraystore.Group) ([]data.Properties, error) {
	if st.propsOK || !st.Schema.Desc.HasProperties {
		return st.props, nil
	}
	blob, ok, err := g.GetAttr(ctx, propertiesBlob)
	if err != nil {
		return nil, err
	}
	var list []data.Properties
	if ok {
		if list, err = data.DecodeProperties(st.Schema.Codec, blob); err != nil {
			return nil, err
		}
	}
	if len(list) != len(st.Items) {
		return nil, h5err.New(h5err.KindCorrupt, "engine.properties",
			"group %q: %d property entries for %d items", g.Name(), len(list), len(st.Items))
	}
	st.props, st.propsOK = list, true
	return list, nil
}

func (st *State) clone() *State {
	c := *st
	c.Items = slices.Clone(st.Items)
	c.Index = boundary.New(slices.Clone(st.Index.Last()))
	c.ordinals = maps.Clone(st.ordinals)
	c.props = slices.Clone(st.props)
	return &c
}
