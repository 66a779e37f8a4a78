// Package format enumerates the supported on-disk format versions of a group.
//
// Each version is a tag selecting one entry of a static layout table: the name
// of the boundary-index column, which time formats may be stored, whether
// per-item properties exist, and whether time and feature columns share their
// chunking. A group's version is fixed when the group is created and is checked
// for equality on every append.
//
//	v, err := format.Parse("1.1")
//	if err != nil { ... } // errors.Is(err, h5err.ErrUnsupportedVersion)
//	layout := v.Layout()
//	fmt.Println(layout.IndexColumn) // "index"
package format
