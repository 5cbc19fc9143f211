package dirty

import (
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees for FlushHeader.
type FlushMode int

const (
	// FlushAuto msyncs the header page and then fdatasyncs the descriptor.
	// On macOS a plain fsync is used.
	FlushAuto FlushMode = iota

	// FlushDataOnly msyncs the header page but skips the descriptor sync.
	FlushDataOnly

	// FlushFull msyncs the header page and fdatasyncs; on macOS it issues
	// F_FULLFSYNC for power-loss durability.
	FlushFull
)

// Range represents a dirty byte range (absolute store offsets).
type Range struct {
	Off uint64
	Len uint64
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	m        Mapping
	ranges   []Range
	pageSize uint64
	mode     FlushMode
}

// NewTracker creates a dirty tracker for the given mapping.
func NewTracker(m Mapping, mode FlushMode) *Tracker {
	return &Tracker{
		m:        m,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
		mode:     mode,
	}
}

// Add records a dirty range. Zero-length ranges are ignored.
func (t *Tracker) Add(off, length uint64) {
	if length == 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: off, Len: length})
}

// Pending reports how many raw ranges are waiting to be flushed.
func (t *Tracker) Pending() int { return len(t.ranges) }

// FlushData flushes all dirty ranges, including data that shares the first
// page with the header. Callers must write the header only after FlushData
// returns, or the header page is published together with the data.
//
// This method:
//  1. Coalesces all ranges into page-aligned, non-overlapping ranges
//  2. Flushes each range using msync()
//  3. Clears the ranges slice
func (t *Tracker) FlushData() error {
	if len(t.ranges) == 0 {
		return nil
	}

	data := t.m.Bytes()
	if len(data) == 0 {
		t.ranges = t.ranges[:0]
		return nil
	}

	if err := t.flushRanges(data); err != nil {
		return err
	}
	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeader flushes the header page and, depending on the mode, syncs the
// file descriptor.
func (t *Tracker) FlushHeader() error {
	data := t.m.Bytes()
	if len(data) == 0 {
		return nil
	}

	headerLen := min(t.pageSize, uint64(len(data)))
	if err := msync(data[:headerLen]); err != nil {
		return err
	}
	t.ranges = t.ranges[:0]

	if t.mode == FlushDataOnly {
		return nil
	}

	fd := t.m.FD()
	if fd < 0 {
		return nil
	}
	return fdatasync(fd, t.mode == FlushFull)
}

// Flush flushes data pages and then the header page.
func (t *Tracker) Flush() error {
	if err := t.FlushData(); err != nil {
		return err
	}
	return t.FlushHeader()
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the page-aligned, sorted, merged ranges.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize

		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]
		if next.Off <= current.Off+current.Len {
			end := max(current.Off+current.Len, next.Off+next.Len)
			current.Len = end - current.Off
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	merged = append(merged, current)
	return merged
}
