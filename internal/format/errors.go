package format

import "github.com/cockroachdb/errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadHeader indicates the header points outside the store.
	ErrBadHeader = errors.New("format: header out of range")
)
