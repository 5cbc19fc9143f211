package format

import "encoding/binary"

// The header is big-endian so the first bytes of a dump read naturally in a
// hex viewer.

// PutU64 writes a big-endian uint64 to b at off.
func PutU64(b []byte, off int, v uint64) {
	binary.BigEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a big-endian uint64 from b at off.
func ReadU64(b []byte, off int) uint64 {
	return binary.BigEndian.Uint64(b[off : off+8])
}
