// Package alloc provides free-space management for a stablekit store.
//
// # Overview
//
// The allocator hands out byte ranges inside a growable linear store. It keeps
// two pieces of state:
//
//   - a boundary: one past the highest byte ever bump-allocated
//   - a free list: previously allocated, now freed ranges, ordered by offset
//
// The first format.HeaderSize bytes of the store hold the snapshot header and
// are never handed out, so a fresh allocator starts its boundary there.
//
// # Allocation
//
// Every request is rounded up to a multiple of the block size (default 300
// bytes; a zero-length request stays zero). Alloc then picks the smallest free
// segment that fits (best fit, ties broken by lowest offset, exact fits stop
// the scan), splitting off any remainder. When nothing fits it bumps the
// boundary and grows the store if the new boundary is past its capacity. A
// failed grow rolls the boundary back.
//
//	a := alloc.New(st, 300)
//	off, err := a.Alloc(120)   // 300-byte range at off
//	err = a.Free(off, 120)     // same requested length
//
// # Coalescing
//
// Free merges the released range with a free neighbor that ends exactly at its
// start and/or one that starts exactly at its end, so the free list never holds
// two adjacent segments. A release that overlaps an existing free segment is a
// double free or a length mismatch; Free reports ErrOverlap and leaves the free
// list untouched.
//
// # Persistence
//
// State exports the boundary and free list as a plain value that can be
// serialized alongside the rest of the application state; FromState rebuilds an
// allocator from it after a restart. Verify checks a State against the
// invariants above.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. The stable package serializes all
// access through a single API handle.
package alloc
