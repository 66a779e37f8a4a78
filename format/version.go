package format

import (
	"strings"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Version is a format version tag.
type Version string

const (
	// V0_1 is the legacy layout with a per-file "file_index" column.
	V0_1 Version = "0.1"
	// V1_0 introduced the "index" column and interval times.
	V1_0 Version = "1.0"
	// V1_1 added per-item properties and independent time/feature chunking.
	V1_1 Version = "1.1"
)

// Default is the version used for new groups.
const Default = V1_1

// Column names shared by all versions.
const (
	ItemsColumn    = "items"
	TimesColumn    = "times"
	FeaturesColumn = "features"
)

// Layout describes the structure a version implies.
type Layout struct {
	// IndexColumn names the boundary-index column.
	IndexColumn string
	// IntervalTimes reports whether (start, end) time labels are allowed.
	IntervalTimes bool
	// Properties reports whether per-item properties are stored.
	Properties bool
	// SharedChunking forces the time column to use the feature column's chunk size.
	SharedChunking bool
}

// Columns returns the persisted column names in creation order.
func (l Layout) Columns() []string {
	return []string{ItemsColumn, TimesColumn, FeaturesColumn, l.IndexColumn}
}

// ordered by generation
var registry = []struct {
	version Version
	layout  Layout
}{
	{V0_1, Layout{IndexColumn: "file_index", IntervalTimes: false, Properties: false, SharedChunking: true}},
	{V1_0, Layout{IndexColumn: "index", IntervalTimes: true, Properties: false, SharedChunking: true}},
	{V1_1, Layout{IndexColumn: "index", IntervalTimes: true, Properties: true, SharedChunking: false}},
}

// Supported returns all supported versions, oldest first.
func Supported() []Version {
	out := make([]Version, len(registry))
	for i, e := range registry {
		out[i] = e.version
	}
	return out
}

// Parse validates a version tag. The empty tag selects Default.
func Parse(tag string) (Version, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Default, nil
	}
	v := Version(tag)
	if !v.Supported() {
		return "", h5err.New(h5err.KindUnsupportedVersion, "format.Parse",
			"version %q is not one of %s", tag, joinSupported())
	}
	return v, nil
}

// Supported reports whether v is a known version.
func (v Version) Supported() bool {
	return v.ordinal() >= 0
}

// Equal reports whether two tags denote the same version.
func (v Version) Equal(other Version) bool {
	return v == other
}

// Less orders versions by generation. Unsupported versions sort first.
func (v Version) Less(other Version) bool {
	return v.ordinal() < other.ordinal()
}

// Layout returns the layout of v. It panics on an unsupported version; callers
// obtain versions through Parse.
func (v Version) Layout() Layout {
	i := v.ordinal()
	if i < 0 {
		panic("format: layout of unsupported version " + string(v))
	}
	return registry[i].layout
}

// CheckCompatible returns a schema-mismatch error if a batch written as v can
// not be appended to a group stored as existing.
func (v Version) CheckCompatible(existing Version) error {
	if !existing.Supported() {
		return h5err.New(h5err.KindUnsupportedVersion, "format.CheckCompatible",
			"group version %q is not supported", string(existing))
	}
	if !v.Equal(existing) {
		rel := "newer than"
		if v.Less(existing) {
			rel = "older than"
		}
		return h5err.Mismatch("format.CheckCompatible",
			"version %s is %s group version %s", v, rel, existing)
	}
	return nil
}

func (v Version) String() string { return string(v) }

func (v Version) ordinal() int {
	for i, e := range registry {
		if e.version == v {
			return i
		}
	}
	return -1
}

func joinSupported() string {
	tags := make([]string, len(registry))
	for i, e := range registry {
		tags[i] = string(e.version)
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
