package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/internal/format"
)

// Verify checks a State against the allocator invariants:
//
//   - the block size is non-zero
//   - HeaderSize <= Boundary <= capacity
//   - segments are non-empty, block-multiple, ordered, disjoint and non-adjacent
//   - every segment lies in [HeaderSize, Boundary)
//
// Returns the first violation wrapped in ErrBadState.
func Verify(s State, capacity uint64) error {
	if s.BlockSize == 0 {
		return errors.Wrap(ErrBadState, "block size is zero")
	}
	if s.Boundary < format.HeaderSize {
		return errors.Wrapf(ErrBadState, "boundary %d inside header", s.Boundary)
	}
	if s.Boundary > capacity {
		return errors.Wrapf(ErrBadState, "boundary %d exceeds capacity %d", s.Boundary, capacity)
	}

	var prev Segment
	for i, seg := range s.Segments {
		if seg.Len == 0 {
			return errors.Wrapf(ErrBadState, "segment %d at %d is empty", i, seg.Off)
		}
		if seg.Len%s.BlockSize != 0 {
			return errors.Wrapf(ErrBadState, "segment %d length %d not a multiple of %d", i, seg.Len, s.BlockSize)
		}
		if seg.Off < format.HeaderSize || seg.End() < seg.Off || seg.End() > s.Boundary {
			return errors.Wrapf(ErrBadState, "segment %d [%d,%d) outside [%d,%d)",
				i, seg.Off, seg.End(), format.HeaderSize, s.Boundary)
		}
		if i > 0 {
			switch {
			case seg.Off < prev.End():
				return errors.Wrapf(ErrBadState, "segment %d at %d overlaps previous [%d,%d)", i, seg.Off, prev.Off, prev.End())
			case seg.Off == prev.End():
				return errors.Wrapf(ErrBadState, "segment %d at %d adjacent to previous [%d,%d)", i, seg.Off, prev.Off, prev.End())
			}
		}
		prev = seg
	}
	return nil
}
