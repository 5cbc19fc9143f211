//go:build linux || freebsd

package dirty

import (
	"golang.org/x/sys/unix"
)

// flushRanges flushes individual dirty ranges to disk.
//
// On Linux and FreeBSD, msync() handles sub-slices of the mapping correctly.
func (t *Tracker) flushRanges(data []byte) error {
	for _, r := range t.coalesce() {
		start := r.Off
		end := min(r.Off+r.Len, uint64(len(data)))
		if start >= end {
			continue
		}
		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

// msync flushes a memory region to disk.
func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync performs a file descriptor sync. fullfsync is ignored here.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
