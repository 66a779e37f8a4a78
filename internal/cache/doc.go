// Package cache holds immutable byte blocks read from a container.
//
// Two kinds of entries share one cache: raw byte ranges of remote blobs
// (KindBlob) and decoded column chunks (KindChunk). Both are immutable once
// written, so entries never go stale; deleting a blob invalidates its entries.
//
// ShardedLRU spreads keys over 64 independently locked LRU shards and can
// charge its footprint to a resource.Controller.
package cache
