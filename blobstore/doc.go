// Package blobstore abstracts where a container's blobs live.
//
// A container is a flat namespace of immutable blobs (column chunks,
// manifests, attributes) plus small mutable pointer blobs (CURRENT).
// Every backend must make Put atomic: a reader sees either the previous
// content of a name or the new one, never a prefix.
//
// # Built-in Implementations
//
//   - LocalStore: a directory tree, written with temp-file + rename and read through mmap
//   - MemoryStore: in-process map, for tests
//   - CachingStore: block cache in front of a slow store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB-backed pointers
//   - minio.Store: MinIO and other S3-compatible servers
//   - sqlite.Store: all blobs in one SQLite file
package blobstore
