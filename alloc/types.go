package alloc

// Backing is the part of a store the allocator needs: its size and a way to
// extend it.
type Backing interface {
	Capacity() uint64
	Grow(extra uint64) error
}

// Segment is a contiguous free byte range.
type Segment struct {
	Off uint64
	Len uint64
}

// End returns the offset one past the segment.
func (s Segment) End() uint64 { return s.Off + s.Len }

func segmentLess(a, b Segment) bool { return a.Off < b.Off }

// State is the detached, serializable form of an Allocator.
type State struct {
	BlockSize uint64
	Boundary  uint64
	Segments  []Segment // ordered by Off
}

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls int // Total Alloc() calls
	Reused     int // Allocations served from the free list
	Bumped     int // Allocations served by advancing the boundary
	Splits     int // Free segments split with a remainder reinserted
	FreeCalls  int // Total Free() calls
	Coalesced  int // Frees merged with at least one neighbor
	GrowCalls  int // Successful backing-store grows
	GrowFails  int // Failed backing-store grows (rolled back)
	Fixes      int // Fix() calls
}
