package alloc

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Health reports the boundary, capacity, and free-list size, scaled to unit.
// Recognized units are "KB" and "MB" (case-insensitive); anything else reports
// raw bytes.
func (a *Allocator) Health(unit string) string {
	return HealthOf(a.State(), a.backing.Capacity(), unit)
}

// HealthOf formats the health line for a detached State.
func HealthOf(s State, capacity uint64, unit string) string {
	div, suffix := unitScale(unit)

	var freeBytes uint64
	for _, seg := range s.Segments {
		freeBytes += seg.Len
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("boundary: %d%s, capacity: %d%s, free segments: %d, free: %d%s",
		s.Boundary/div, suffix,
		capacity/div, suffix,
		len(s.Segments),
		freeBytes/div, suffix,
	)
}

func unitScale(unit string) (uint64, string) {
	switch strings.ToUpper(unit) {
	case "KB":
		return 1 << 10, " KB"
	case "MB":
		return 1 << 20, " MB"
	default:
		return 1, " B"
	}
}
