// Package dirty provides page-level dirty tracking for memory-mapped stores.
//
// # Overview
//
// Every write into a mapped store is recorded as a byte range. At flush time
// the ranges are rounded out to page boundaries, sorted, and merged so each
// dirty page is synced exactly once.
//
//	Dirty writes: [100,+200) [4096,+10) [4100,+8192) → Pages: [0x0-0x1000, 0x1000-0x4000]
//
// # Flush Ordering
//
// The first page holds the snapshot header. FlushData syncs everything except
// that page; FlushHeader syncs the header page and then the file descriptor.
// Callers that publish a snapshot write the payload, call FlushData, write the
// header, then call FlushHeader, so a crash never leaves a header pointing at
// unsynced bytes.
//
// # Thread Safety
//
// Trackers are not thread-safe. The stores that own them are single-threaded.
package dirty
