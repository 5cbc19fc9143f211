//go:build !unix

package store

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/internal/buf"
	"github.com/joshuapare/stablekit/internal/format"
)

// File is a Store backed by a plain file on platforms without mmap support.
type File struct {
	f    *os.File
	size uint64
	opts FileOptions
}

// OpenFile opens the file at path read-write, creating it if it does not exist.
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
	return &File{f: f, size: uint64(st.Size()), opts: opts}, nil
}

func (fs *File) Read(off, n uint64) ([]byte, error) {
	if fs.f == nil {
		return nil, ErrClosed
	}
	if !buf.Within(fs.size, off, n) {
		return nil, outOfBounds("read", off, n, fs.size)
	}
	out := make([]byte, n)
	if _, err := fs.f.ReadAt(out, int64(off)); err != nil {
		return nil, errors.Wrap(err, "store: read")
	}
	return out, nil
}

func (fs *File) Write(off uint64, b []byte) error {
	if fs.f == nil {
		return ErrClosed
	}
	if !buf.Within(fs.size, off, uint64(len(b))) {
		return outOfBounds("write", off, uint64(len(b)), fs.size)
	}
	_, err := fs.f.WriteAt(b, int64(off))
	return errors.Wrap(err, "store: write")
}

func (fs *File) Capacity() uint64 { return fs.size }

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
	if err := fs.f.Truncate(int64(newSize)); err != nil {
		return errors.Wrap(err, "store: truncate")
	}
	fs.size = newSize
	return nil
}

func (fs *File) FlushData() error {
	if fs.f == nil {
		return ErrClosed
	}
	return fs.f.Sync()
}

func (fs *File) FlushHeader() error { return fs.FlushData() }

func (fs *File) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}

var (
	_ Store   = (*File)(nil)
	_ Flusher = (*File)(nil)
)
