package alloc

import "github.com/cockroachdb/errors"

var (
	// ErrGrowFail indicates that growing the backing store failed. The
	// allocation did not happen and the boundary is unchanged.
	ErrGrowFail = errors.New("alloc: grow failed")

	// ErrOverlap indicates a freed range overlaps an existing free segment
	// (double free or wrong length). The free list is unchanged.
	ErrOverlap = errors.New("alloc: freed range overlaps free segment")

	// ErrBadRange indicates a freed range lies outside [HeaderSize, boundary).
	ErrBadRange = errors.New("alloc: range outside allocated space")

	// ErrBadState indicates a persisted allocator state violates an invariant.
	ErrBadState = errors.New("alloc: invalid allocator state")
)
