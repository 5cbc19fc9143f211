// Package mmfile maps store files read-only for inspection tools.
package mmfile

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/internal/buf"
)

// ErrOutOfRange indicates a read past the end of the mapped file.
var ErrOutOfRange = errors.New("mmfile: read out of range")

// Region is a read-only view of a file. It satisfies store.Reader.
type Region struct {
	data    []byte
	release func() error
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (r *Region) Bytes() []byte { return r.data }

// Capacity returns the file size.
func (r *Region) Capacity() uint64 { return uint64(len(r.data)) }

// Read returns a copy of n bytes at off.
func (r *Region) Read(off, n uint64) ([]byte, error) {
	src, ok := buf.Slice(r.data, off, n)
	if !ok {
		return nil, errors.Wrapf(ErrOutOfRange, "[%d,+%d) of %d", off, n, len(r.data))
	}
	return append([]byte(nil), src...), nil
}

// Close releases the mapping. Calling it twice is a no-op.
func (r *Region) Close() error {
	if r.release == nil {
		return nil
	}
	err := r.release()
	r.release = nil
	r.data = nil
	return err
}
