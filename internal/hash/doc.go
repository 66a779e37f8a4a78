// Package hash computes the CRC32-Castagnoli checksums that guard chunk,
// manifest and attribute blobs.
//
//	sum := hash.CRC32C(header, payload)
//	if !hash.Match(sum, header, payload) { ... }
package hash
