package data

import (
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// CheckLevel selects how much of a batch is inspected.
type CheckLevel int

const (
	// CheckShape verifies names, lengths, shapes, dtypes and time formats.
	CheckShape CheckLevel = iota + 1
	// CheckFull also verifies time monotonicity and every property value.
	CheckFull
)

// Entry is one column of a batch. Each kind validates itself and checks its
// compatibility with a group's existing invariants.
type Entry interface {
	// Len returns the number of items covered.
	Len() int
	// Validate checks internal consistency.
	Validate(level CheckLevel) error
	// CheckAppendable checks compatibility with an existing group.
	CheckAppendable(existing Descriptor) error
}

// Names is the item-name column of a batch.
type Names []string

func (n Names) Len() int { return len(n) }

func (n Names) Validate(CheckLevel) error {
	seen := make(map[string]int, len(n))
	for i, name := range n {
		if name == "" {
			return h5err.Invalid("data.Names", "item %d has an empty name", i)
		}
		if j, dup := seen[name]; dup {
			return h5err.Invalid("data.Names", "item name %q is duplicated (positions %d and %d)", name, j, i)
		}
		seen[name] = i
	}
	return nil
}

func (n Names) CheckAppendable(Descriptor) error { return nil }

// TimesList is the time column of a batch, one entry per item.
type TimesList struct {
	Names Names
	Times []Times
}

func (t TimesList) Len() int { return len(t.Times) }

func (t TimesList) Validate(level CheckLevel) error {
	var format TimeFormat
	for i, tm := range t.Times {
		name := nameAt(t.Names, i)
		if err := tm.validate("data.Times", name, level); err != nil {
			return err
		}
		if i == 0 {
			format = tm.Format()
		} else if tm.Format() != format {
			return h5err.Invalid("data.Times", "item %q: %s times in a batch of %s times", name, tm.Format(), format)
		}
	}
	return nil
}

func (t TimesList) CheckAppendable(existing Descriptor) error {
	if len(t.Times) == 0 {
		return nil
	}
	if f := t.Times[0].Format(); f != existing.TimeFormat {
		return h5err.Mismatch("data.Times", "batch has %s times, group stores %s times", f, existing.TimeFormat)
	}
	return nil
}

// FeaturesList is the feature column of a batch.
type FeaturesList struct {
	Names    Names
	Features []Features
}

func (f FeaturesList) Len() int { return len(f.Features) }

func (f FeaturesList) Validate(CheckLevel) error {
	for i, feats := range f.Features {
		name := nameAt(f.Names, i)
		if err := feats.validate("data.Features", name); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		first := f.Features[0]
		if feats.Dim() != first.Dim() {
			return h5err.Invalid("data.Features", "item %q: dimension %d differs from %d", name, feats.Dim(), first.Dim())
		}
		if feats.Dtype() != first.Dtype() {
			return h5err.Invalid("data.Features", "item %q: dtype %s differs from %s", name, feats.Dtype(), first.Dtype())
		}
	}
	return nil
}

func (f FeaturesList) CheckAppendable(existing Descriptor) error {
	if len(f.Features) == 0 {
		return nil
	}
	first := f.Features[0]
	if first.Dim() != existing.Dim {
		return h5err.Mismatch("data.Features", "batch dimension %d, group dimension %d", first.Dim(), existing.Dim)
	}
	if first.Dtype() != existing.Dtype {
		return h5err.Mismatch("data.Features", "batch dtype %s, group dtype %s", first.Dtype(), existing.Dtype)
	}
	return nil
}

// PropertiesList is the properties column of a batch.
type PropertiesList struct {
	Names      Names
	Properties []Properties
}

func (p PropertiesList) Len() int { return len(p.Properties) }

func (p PropertiesList) Validate(level CheckLevel) error {
	if level < CheckFull {
		return nil
	}
	for i, props := range p.Properties {
		if _, err := NormalizeProperties(props); err != nil {
			return h5err.Wrap(err, h5err.KindInvalidArgument, "data.Properties", "item %q", nameAt(p.Names, i))
		}
	}
	return nil
}

func (p PropertiesList) CheckAppendable(existing Descriptor) error {
	if len(p.Properties) > 0 && !existing.HasProperties {
		return h5err.Mismatch("data.Properties", "group does not store properties")
	}
	return nil
}

func nameAt(n Names, i int) string {
	if i < len(n) {
		return n[i]
	}
	return ""
}
