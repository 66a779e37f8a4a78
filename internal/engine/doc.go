// Package engine implements the append and read protocols of a feature group
// on top of an arraystore.Group.
//
// The Appender validates a batch, checks it against the group's schema and
// version, applies the continuation rule (a batch whose first item is the
// group's last item extends it), computes the new boundaries and commits
// features, times, boundaries, item names and properties in one arraystore
// transaction.
//
// The Resolver turns an item interval and optional time bounds into row
// spans using the boundary index and a binary search over the time column,
// then loads those rows.
package engine
