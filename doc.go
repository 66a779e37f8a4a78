// Package h5features stores timestamped feature vectors in an indexed
// columnar container.
//
// A container holds named groups. A group holds items: each item is a dense
// matrix of feature rows of one dimension and scalar type, one time label per
// row (a center time or a start/end interval), and optional properties. The
// items of a group are concatenated into one append-only row store, with a
// boundary index recording the last row of each item, so an item or a time
// window of an item is read without scanning.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	w, _ := h5features.NewWriter(ctx, h5features.Local("./feats"), "mfcc")
//	feats, _ := data.NewFeatures([][]float32{{1, 2}, {3, 4}})
//	item, _ := data.NewItem("utt1", feats, data.CenterTimes([]float64{0.01, 0.02}), nil)
//	_ = w.Write(ctx, item)
//	_ = w.Close()
//
//	r, _ := h5features.Open(ctx, h5features.Local("./feats"), "mfcc")
//	defer r.Close()
//	item, _ = r.Read(ctx, "utt1", h5features.Between(0.01, 0.015))
//
// Single-file mode keeps the whole container in one SQLite database:
//
//	w, _ := h5features.NewWriter(ctx, h5features.SQLite("./feats.db"), "mfcc")
//
// Cloud mode:
//
//	store, _ := s3.New(ctx, "my-bucket", "features/")
//	r, _ := h5features.Open(ctx, h5features.Remote(store), "mfcc")
//
// # Appending
//
// Every WriteBatch is one atomic commit: feature rows, time rows, item names,
// the boundary index and the properties list are staged as new immutable
// chunks and published together. A failed write leaves the group as it was.
//
// Item names are unique within a group, with one exception: a batch whose
// first item is named like the last stored item continues it. Its rows are
// appended to that item, its times must follow the stored ones and its
// properties, if given, must equal the stored ones.
//
// # Reading
//
// Read returns one item, ReadRange the items between two names in storage
// order and ReadAll the whole group. From and To restrict the first and last
// item to a time window; both bounds are inclusive.
//
// # Format Versions
//
// Groups are tagged with a format version (see package format). Version 1.1,
// the default, supports interval times and properties.
package h5features
