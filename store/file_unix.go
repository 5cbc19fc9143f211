//go:build unix

package store

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/stablekit/internal/buf"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/store/dirty"
)

// File is a Store backed by a memory-mapped file. The mapping is MAP_SHARED,
// so writes land in the page cache immediately; Flush makes them durable.
type File struct {
	f    *os.File
	data []byte
	size uint64
	opts FileOptions
	dt   *dirty.Tracker
}

// OpenFile maps the file at path read-write, creating it if it does not exist.
// A new file starts with zero capacity.
func OpenFile(path string, opts FileOptions) (*File, error) {
	opts = opts.withDefaults()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	fs := &File{f: f, size: uint64(st.Size()), opts: opts}
	fs.dt = dirty.NewTracker(fs, opts.Flush)

	if fs.size > 0 {
		if err := fs.remap(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return fs, nil
}

func (fs *File) remap() error {
	if fs.size > uint64(^uint(0)>>1) {
		return errors.Newf("store: file too large to map (%d bytes)", fs.size)
	}
	data, err := unix.Mmap(int(fs.f.Fd()), 0, int(fs.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "store: mmap failed")
	}
	fs.data = data
	return nil
}

func (fs *File) unmap() error {
	if fs.data == nil {
		return nil
	}
	err := unix.Munmap(fs.data)
	fs.data = nil
	return err
}

func (fs *File) Read(off, n uint64) ([]byte, error) {
	if fs.f == nil {
		return nil, ErrClosed
	}
	src, ok := buf.Slice(fs.data, off, n)
	if !ok {
		return nil, outOfBounds("read", off, n, fs.size)
	}
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}

func (fs *File) Write(off uint64, b []byte) error {
	if fs.f == nil {
		return ErrClosed
	}
	dst, ok := buf.Slice(fs.data, off, uint64(len(b)))
	if !ok {
		return outOfBounds("write", off, uint64(len(b)), fs.size)
	}
	copy(dst, b)
	fs.dt.Add(off, uint64(len(b)))
	return nil
}

func (fs *File) Capacity() uint64 { return fs.size }

// Grow extends the file by whole pages and remaps it. The new bytes are
// zero-initialized by the OS. Pending dirty ranges are flushed first because
// the old mapping goes away.
func (fs *File) Grow(extra uint64) error {
	if fs.f == nil {
		return ErrClosed
	}
	if extra == 0 {
		return nil
	}

	newSize := fs.size + format.Pages(extra, fs.opts.PageSize)*fs.opts.PageSize
	if fs.opts.MaxSize > 0 && newSize > fs.opts.MaxSize {
		return errors.Wrapf(ErrNoSpace, "grow to %d exceeds limit %d", newSize, fs.opts.MaxSize)
	}

	if err := fs.dt.FlushData(); err != nil {
		return errors.Wrap(err, "store: flush before grow")
	}
	if err := fs.unmap(); err != nil {
		return errors.Wrap(err, "store: unmap before grow")
	}

	if err := fs.f.Truncate(int64(newSize)); err != nil {
		// Try to remap old size to recover
		if fs.size > 0 {
			_ = fs.remap()
		}
		return errors.Wrap(err, "store: truncate")
	}

	oldSize := fs.size
	fs.size = newSize
	if err := fs.remap(); err != nil {
		fs.size = oldSize
		_ = fs.f.Truncate(int64(oldSize))
		if oldSize > 0 {
			_ = fs.remap()
		}
		return errors.Wrap(err, "store: remap after grow")
	}
	return nil
}

// FlushData syncs dirty payload pages.
func (fs *File) FlushData() error {
	if fs.f == nil {
		return ErrClosed
	}
	return fs.dt.FlushData()
}

// FlushHeader syncs the header page and the descriptor.
func (fs *File) FlushHeader() error {
	if fs.f == nil {
		return ErrClosed
	}
	return fs.dt.FlushHeader()
}

// Bytes implements dirty.Mapping.
func (fs *File) Bytes() []byte { return fs.data }

// FD implements dirty.Mapping.
func (fs *File) FD() int {
	if fs.f == nil {
		return -1
	}
	return int(fs.f.Fd())
}

// Close unmaps and closes the file. Unflushed writes remain in the page cache.
func (fs *File) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.unmap()
	if cerr := fs.f.Close(); err == nil {
		err = cerr
	}
	fs.f = nil
	return err
}

var (
	_ Store   = (*File)(nil)
	_ Flusher = (*File)(nil)
)
