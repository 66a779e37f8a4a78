// Package data defines the in-memory model of items and the validator applied
// to every batch before it reaches a group.
//
// An item is a named, non-empty run of feature rows, each row labelled with a
// time (a center value or a start/end interval), plus optional properties:
//
//	feats, _ := data.NewFeatures([][]float32{{0.1, 0.2}, {0.3, 0.4}})
//	item, _ := data.NewItem("utt1", feats, data.CenterTimes([]float64{0, 0.01}), nil)
//
// A batch is the column view of several items. Batch.Validate checks internal
// consistency (unique names, equal lengths, uniform dimension, dtype and time
// format, monotonic times, property kinds) and returns the Descriptor a group
// must match; Batch.CheckAppendable performs the cross-group check.
package data
