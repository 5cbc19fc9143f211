package store

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/internal/buf"
	"github.com/joshuapare/stablekit/internal/format"
)

// MemOptions configures a Mem store. Zero values select defaults.
type MemOptions struct {
	// PageSize is the growth granularity. Default: format.DefaultPageSize.
	PageSize uint64
	// MaxPages caps the capacity; growing past it fails with ErrNoSpace.
	// Zero means unlimited.
	MaxPages uint64
}

// Mem is an in-process Store backed by a byte slice.
type Mem struct {
	data     []byte
	pageSize uint64
	maxPages uint64
	grows    int
}

// NewMem returns an empty in-memory store.
func NewMem(opts MemOptions) *Mem {
	if opts.PageSize == 0 {
		opts.PageSize = format.DefaultPageSize
	}
	return &Mem{pageSize: opts.PageSize, maxPages: opts.MaxPages}
}

// FromBytes wraps data without copying. Writes mutate data; Grow reallocates.
// Used by tooling to view a read-only mapping through the Store contract.
func FromBytes(data []byte) *Mem {
	return &Mem{data: data, pageSize: format.DefaultPageSize}
}

func (m *Mem) Read(off, n uint64) ([]byte, error) {
	src, ok := buf.Slice(m.data, off, n)
	if !ok {
		return nil, outOfBounds("read", off, n, m.Capacity())
	}
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}

func (m *Mem) Write(off uint64, b []byte) error {
	dst, ok := buf.Slice(m.data, off, uint64(len(b)))
	if !ok {
		return outOfBounds("write", off, uint64(len(b)), m.Capacity())
	}
	copy(dst, b)
	return nil
}

func (m *Mem) Capacity() uint64 { return uint64(len(m.data)) }

func (m *Mem) Grow(extra uint64) error {
	if extra == 0 {
		return nil
	}
	pages := format.Pages(extra, m.pageSize)
	current := format.Pages(m.Capacity(), m.pageSize)
	if m.maxPages > 0 && current+pages > m.maxPages {
		return errors.Wrapf(ErrNoSpace, "grow by %d pages: %d of %d in use", pages, current, m.maxPages)
	}
	grown := make([]byte, uint64(len(m.data))+pages*m.pageSize)
	copy(grown, m.data)
	m.data = grown
	m.grows++
	return nil
}

// Bytes exposes the backing slice for inspection in tests and tooling.
func (m *Mem) Bytes() []byte { return m.data }

// GrowCalls reports how many times the store has grown.
func (m *Mem) GrowCalls() int { return m.grows }

var _ Store = (*Mem)(nil)
