// Package mmap maps chunk files read-only into memory.
//
// Local containers read column chunks through a Mapping so that a range read
// touches only the pages it needs. A Mapping is safe for concurrent reads;
// slices returned by Bytes are invalid once Close returns.
package mmap
