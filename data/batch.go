package data

import (
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Item is one named run of labelled feature rows.
type Item struct {
	Name       string
	Features   Features
	Times      Times
	Properties Properties
}

// NewItem builds and validates a single item.
func NewItem(name string, features Features, times Times, props Properties) (Item, error) {
	it := Item{Name: name, Features: features, Times: times, Properties: props}
	if _, err := BatchOf(it).Validate(CheckFull); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Rows returns the number of rows of the item.
func (it Item) Rows() int { return it.Features.Rows() }

// Equal reports equality of name, rows, labels and properties.
func (it Item) Equal(o Item) bool {
	return it.Name == o.Name && it.Features.Equal(o.Features) && it.Times.Equal(o.Times) &&
		it.Properties.Equal(o.Properties)
}

// Batch is the column view of several items.
//
// Properties is either nil (untracked) or holds one entry per item.
type Batch struct {
	Items      []string
	Times      []Times
	Features   []Features
	Properties []Properties
}

// BatchOf builds a batch from items. Properties are tracked if any item has
// some.
func BatchOf(items ...Item) Batch {
	b := Batch{
		Items:    make([]string, len(items)),
		Times:    make([]Times, len(items)),
		Features: make([]Features, len(items)),
	}
	tracked := false
	for i, it := range items {
		b.Items[i] = it.Name
		b.Times[i] = it.Times
		b.Features[i] = it.Features
		if it.Properties != nil {
			tracked = true
		}
	}
	if tracked {
		b.Properties = make([]Properties, len(items))
		for i, it := range items {
			b.Properties[i] = it.Properties
		}
	}
	return b
}

// Len returns the number of items.
func (b Batch) Len() int { return len(b.Items) }

// Item returns the i-th item.
func (b Batch) Item(i int) Item {
	it := Item{Name: b.Items[i], Times: b.Times[i], Features: b.Features[i]}
	if b.Properties != nil {
		it.Properties = b.Properties[i]
	}
	return it
}

// RowCounts returns the number of rows of each item.
func (b Batch) RowCounts() []int {
	counts := make([]int, len(b.Features))
	for i, f := range b.Features {
		counts[i] = f.Rows()
	}
	return counts
}

// Entries returns the columns of the batch.
func (b Batch) Entries() []Entry {
	names := Names(b.Items)
	entries := []Entry{
		names,
		TimesList{Names: names, Times: b.Times},
		FeaturesList{Names: names, Features: b.Features},
	}
	if b.Properties != nil {
		entries = append(entries, PropertiesList{Names: names, Properties: b.Properties})
	}
	return entries
}

// Descriptor summarizes the invariants of a batch or a group.
type Descriptor struct {
	Dim           int
	Dtype         Dtype
	TimeFormat    TimeFormat
	HasProperties bool
}

// Validate checks the batch and returns its descriptor.
func (b Batch) Validate(level CheckLevel) (Descriptor, error) {
	if len(b.Items) == 0 {
		return Descriptor{}, h5err.Invalid("data.Batch", "batch is empty")
	}
	if len(b.Times) != len(b.Items) || len(b.Features) != len(b.Items) {
		return Descriptor{}, h5err.Invalid("data.Batch",
			"length mismatch: %d items, %d times, %d features", len(b.Items), len(b.Times), len(b.Features))
	}
	if b.Properties != nil && len(b.Properties) != len(b.Items) {
		return Descriptor{}, h5err.Invalid("data.Batch",
			"length mismatch: %d items, %d properties", len(b.Items), len(b.Properties))
	}
	for _, e := range b.Entries() {
		if err := e.Validate(level); err != nil {
			return Descriptor{}, err
		}
	}
	for i := range b.Items {
		if b.Times[i].Rows() != b.Features[i].Rows() {
			return Descriptor{}, h5err.Invalid("data.Batch", "item %q: %d time labels for %d feature rows",
				b.Items[i], b.Times[i].Rows(), b.Features[i].Rows())
		}
	}
	return Descriptor{
		Dim:           b.Features[0].Dim(),
		Dtype:         b.Features[0].Dtype(),
		TimeFormat:    b.Times[0].Format(),
		HasProperties: b.Properties != nil,
	}, nil
}

// CheckAppendable checks that every column of b fits a group described by
// existing. It assumes b has been validated.
func (b Batch) CheckAppendable(existing Descriptor) error {
	for _, e := range b.Entries() {
		if err := e.CheckAppendable(existing); err != nil {
			return err
		}
	}
	return nil
}
