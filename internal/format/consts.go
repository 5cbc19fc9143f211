// Package format houses the fixed on-store layout shared by the allocator, the
// snapshot protocol, and the inspection tooling. It stays free of allocator and
// codec dependencies so every higher-level package can import it.
package format

const (
	// HeaderSize is the size of the snapshot header at the start of every store.
	// Layout (big-endian):
	//   0x00  u64 snapshot offset
	//   0x08  u64 snapshot length
	// The region is permanently reserved; the first allocatable byte is HeaderSize.
	HeaderSize = 16

	// SnapshotOffsetField is the offset of the snapshot-offset field in the header.
	SnapshotOffsetField = 0x00

	// SnapshotLengthField is the offset of the snapshot-length field in the header.
	SnapshotLengthField = 0x08

	// DefaultBlockSize is the allocation quantum used when none is configured.
	DefaultBlockSize = 300

	// DefaultPageSize is the growth granularity of the stores (64 KiB, the size
	// of a wasm page).
	DefaultPageSize = 64 * 1024

	// SnapshotVersion is bumped whenever the snapshot envelope changes shape.
	SnapshotVersion = 1
)
