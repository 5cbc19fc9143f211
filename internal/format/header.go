package format

import "github.com/cockroachdb/errors"

// Header locates the most recent snapshot inside the store.
type Header struct {
	Offset uint64
	Length uint64
}

// Empty reports whether no snapshot has ever been recorded.
func (h Header) Empty() bool { return h.Length == 0 }

// End returns the offset one past the snapshot payload.
func (h Header) End() uint64 { return h.Offset + h.Length }

// Encode renders the header into its fixed HeaderSize-byte layout.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	PutU64(b, SnapshotOffsetField, h.Offset)
	PutU64(b, SnapshotLengthField, h.Length)
	return b
}

// ParseHeader decodes the header from the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", HeaderSize, len(b))
	}
	return Header{
		Offset: ReadU64(b, SnapshotOffsetField),
		Length: ReadU64(b, SnapshotLengthField),
	}, nil
}

// Validate checks that a non-empty header points inside a store of the given
// capacity and does not overlap the header itself.
func (h Header) Validate(capacity uint64) error {
	if h.Empty() {
		return nil
	}
	if h.Offset < HeaderSize {
		return errors.Wrapf(ErrBadHeader, "snapshot offset %d inside header", h.Offset)
	}
	end := h.End()
	if end < h.Offset || end > capacity {
		return errors.Wrapf(ErrBadHeader, "snapshot [%d,%d) exceeds capacity %d", h.Offset, end, capacity)
	}
	return nil
}
