// Package store provides the growable linear byte regions that stablekit
// persists into.
//
// # Contract
//
// A Store is a flat address space starting at offset 0:
//
//   - Read(off, n): copy of n bytes at off
//   - Write(off, b): overwrite len(b) bytes at off
//   - Capacity(): current size in bytes
//   - Grow(extra): extend by at least extra bytes, rounded up to whole pages
//
// Reads and writes never extend the store; callers grow first. Newly grown
// bytes read as zero.
//
// # Implementations
//
//   - Mem: in-process byte slice, used for tests and ephemeral state
//   - File: memory-mapped file (unix) or a plain file (elsewhere)
//   - Pebble: pages stored as keys in a github.com/cockroachdb/pebble database
//
// Stores that buffer writes also implement Flusher.
//
// # Thread Safety
//
// Stores are not thread-safe.
package store
