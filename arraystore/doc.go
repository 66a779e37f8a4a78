// Package arraystore stores groups of extendable, chunked, compressed
// columns in a blobstore.BlobStore.
//
// # Layout
//
//	CONTAINER                         container marker
//	<group>/CURRENT                   name of the committed manifest
//	<group>/MANIFEST-<id>.bin         columns, chunk references, attributes
//	<group>/<column>/<chunk-id>.chk   immutable chunk blobs
//	<group>/attr-<key>-<id>.bin       blob attributes
//
// Manifests use a 16-byte header (magic, version, CRC32C of payload, payload
// length). Chunks use a 32-byte header carrying the compression codec, the
// row count, the decoded size and CRC32C checksums of header and payload.
//
// # Commit protocol
//
// A Tx buffers appended rows in memory. Commit encodes them into new chunk
// blobs, writes a new manifest and finally replaces CURRENT. Readers only
// follow CURRENT, so a failure before the switch leaves the previous state
// intact. Blobs staged by a failed commit are deleted best-effort; Vacuum
// collects whatever remains.
//
// Chunks are never modified. Appending to a column whose last chunk is
// partial rewrites that chunk's rows into a new chunk.
package arraystore
