package alloc

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/joshuapare/stablekit/internal/buf"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/internal/logger"
)

// btreeDegree keeps nodes small; free lists are typically short.
const btreeDegree = 16

// Runtime debug flag for allocation logging - controlled by STABLEKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("STABLEKIT_LOG_ALLOC") != ""

// Allocator is a best-fit free-list allocator with coalescing over a growable
// store.
type Allocator struct {
	backing   Backing
	blockSize uint64
	boundary  uint64

	// free holds disjoint, non-adjacent segments ordered by offset.
	free *btree.BTreeG[Segment]

	stats Stats
}

// New creates an allocator for a fresh store. The boundary starts right after
// the reserved header. A zero blockSize selects format.DefaultBlockSize.
func New(backing Backing, blockSize uint64) *Allocator {
	if blockSize == 0 {
		blockSize = format.DefaultBlockSize
	}
	return &Allocator{
		backing:   backing,
		blockSize: blockSize,
		boundary:  format.HeaderSize,
		free:      btree.NewG(btreeDegree, segmentLess),
	}
}

// FromState rebuilds an allocator from a detached State after validating it
// against the backing store.
func FromState(backing Backing, s State) (*Allocator, error) {
	if err := Verify(s, backing.Capacity()); err != nil {
		return nil, err
	}
	a := &Allocator{
		backing:   backing,
		blockSize: s.BlockSize,
		boundary:  s.Boundary,
		free:      btree.NewG(btreeDegree, segmentLess),
	}
	for _, seg := range s.Segments {
		a.free.ReplaceOrInsert(seg)
	}
	return a, nil
}

// AllocationLength returns the length the allocator actually reserves for a
// request of n bytes: the smallest multiple of the block size >= n.
func (a *Allocator) AllocationLength(n uint64) uint64 {
	return format.RoundUp(n, a.blockSize)
}

// BlockSize returns the allocation quantum.
func (a *Allocator) BlockSize() uint64 { return a.blockSize }

// Boundary returns the offset one past the highest bump-allocated byte.
func (a *Allocator) Boundary() uint64 { return a.boundary }

// Alloc reserves AllocationLength(n) bytes and returns their offset.
func (a *Allocator) Alloc(n uint64) (uint64, error) {
	a.stats.AllocCalls++

	need := a.AllocationLength(n)
	if need == 0 {
		return a.boundary, nil
	}

	if seg, ok := a.bestFit(need); ok {
		a.free.Delete(seg)
		if seg.Len > need {
			a.free.ReplaceOrInsert(Segment{Off: seg.Off + need, Len: seg.Len - need})
			a.stats.Splits++
		}
		a.stats.Reused++
		return seg.Off, nil
	}

	start := a.boundary
	end, ok := buf.AddOverflowSafe(start, need)
	if !ok {
		return 0, errors.Wrapf(ErrGrowFail, "boundary %d + %d overflows", start, need)
	}
	a.boundary = end

	if end > a.backing.Capacity() {
		if logAlloc {
			logger.Debug("alloc: grow", "need", need, "boundary", end, "capacity", a.backing.Capacity())
		}
		if err := a.backing.Grow(need); err != nil {
			a.boundary = start
			a.stats.GrowFails++
			return 0, errors.Mark(errors.Wrapf(err, "alloc: grow by %d", need), ErrGrowFail)
		}
		if end > a.backing.Capacity() {
			a.boundary = start
			a.stats.GrowFails++
			return 0, errors.Wrapf(ErrGrowFail, "capacity %d still below boundary %d", a.backing.Capacity(), end)
		}
		a.stats.GrowCalls++
	}

	a.stats.Bumped++
	return start, nil
}

// bestFit returns the smallest free segment of at least need bytes, preferring
// the lowest offset among equals.
func (a *Allocator) bestFit(need uint64) (Segment, bool) {
	var best Segment
	found := false
	a.free.Ascend(func(s Segment) bool {
		if s.Len < need {
			return true
		}
		if !found || s.Len < best.Len {
			best, found = s, true
		}
		return s.Len != need
	})
	return best, found
}

// Free releases a range previously returned by Alloc for a request of n bytes.
func (a *Allocator) Free(off, n uint64) error {
	a.stats.FreeCalls++

	need := a.AllocationLength(n)
	if need == 0 {
		return nil
	}

	end, ok := buf.AddOverflowSafe(off, need)
	if off < format.HeaderSize || !ok || end > a.boundary {
		return errors.Wrapf(ErrBadRange, "free [%d,+%d) with boundary %d", off, need, a.boundary)
	}

	left, hasLeft, right, hasRight := a.neighbors(off)

	if hasRight && end > right.Off {
		return errors.Wrapf(ErrOverlap, "free [%d,%d) overlaps free segment [%d,%d)", off, end, right.Off, right.End())
	}
	if hasLeft && left.End() > off {
		return errors.Wrapf(ErrOverlap, "free [%d,%d) overlaps free segment [%d,%d)", off, end, left.Off, left.End())
	}

	mergeLeft := hasLeft && left.End() == off
	mergeRight := hasRight && right.Off == end

	switch {
	case mergeLeft && mergeRight:
		a.free.Delete(right)
		a.free.ReplaceOrInsert(Segment{Off: left.Off, Len: left.Len + need + right.Len})
	case mergeRight:
		a.free.Delete(right)
		a.free.ReplaceOrInsert(Segment{Off: off, Len: need + right.Len})
	case mergeLeft:
		// Same key as left, so this extends it in place.
		a.free.ReplaceOrInsert(Segment{Off: left.Off, Len: left.Len + need})
	default:
		a.free.ReplaceOrInsert(Segment{Off: off, Len: need})
	}
	if mergeLeft || mergeRight {
		a.stats.Coalesced++
	}
	return nil
}

// neighbors returns the last free segment starting before off and the first
// one starting at or after it.
func (a *Allocator) neighbors(off uint64) (left Segment, hasLeft bool, right Segment, hasRight bool) {
	pivot := Segment{Off: off}
	a.free.AscendGreaterOrEqual(pivot, func(s Segment) bool {
		right, hasRight = s, true
		return false
	})
	a.free.DescendLessOrEqual(pivot, func(s Segment) bool {
		if s.Off == off {
			return true
		}
		left, hasLeft = s, true
		return false
	})
	return left, hasLeft, right, hasRight
}

// Fix discards the free list and moves the boundary to the store's capacity.
// Every previously allocated range stays valid; all free space is leaked.
// Use it only to recover from a free list known to be corrupt.
func (a *Allocator) Fix() {
	a.stats.Fixes++
	a.free.Clear(false)
	a.boundary = a.backing.Capacity()
}

// State exports the allocator into its serializable form.
func (a *Allocator) State() State {
	return State{
		BlockSize: a.blockSize,
		Boundary:  a.boundary,
		Segments:  a.Segments(),
	}
}

// Segments returns the free list ordered by offset.
func (a *Allocator) Segments() []Segment {
	out := make([]Segment, 0, a.free.Len())
	a.free.Ascend(func(s Segment) bool {
		out = append(out, s)
		return true
	})
	return out
}

// FreeCount returns the number of free segments.
func (a *Allocator) FreeCount() int { return a.free.Len() }

// FreeBytes returns the total size of all free segments.
func (a *Allocator) FreeBytes() uint64 {
	var total uint64
	a.free.Ascend(func(s Segment) bool {
		total += s.Len
		return true
	})
	return total
}

// Capacity returns the backing store's current capacity.
func (a *Allocator) Capacity() uint64 { return a.backing.Capacity() }

// GetStats returns a copy of the allocator counters.
func (a *Allocator) GetStats() Stats { return a.stats }
