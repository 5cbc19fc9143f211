package store

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/joshuapare/stablekit/internal/buf"
	"github.com/joshuapare/stablekit/internal/format"
)

const (
	// defaultPebblePageSize keeps read-modify-write of small records cheap.
	defaultPebblePageSize = 4096

	pagePrefix = "page/"
)

var metaPagesKey = []byte("meta/pages")

// PebbleOptions configures a Pebble store. Zero values select defaults.
type PebbleOptions struct {
	// PageSize is both the growth granularity and the value size of each key.
	// It is fixed when the database is created. Default: 4096.
	PageSize uint64
	// MaxPages caps the capacity; zero means unlimited.
	MaxPages uint64
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS vfs.FS
	// Sync makes every write durable before returning. When false, callers
	// rely on FlushData/FlushHeader.
	Sync bool
}

// Pebble is a Store whose pages are values in a pebble database, keyed by
// big-endian page number. Pages that were never written read as zero.
type Pebble struct {
	db       *pebble.DB
	pageSize uint64
	pages    uint64
	maxPages uint64
	wo       *pebble.WriteOptions
}

// OpenPebble opens (or creates) a pebble-backed store in dir.
func OpenPebble(dir string, opts PebbleOptions) (*Pebble, error) {
	if opts.PageSize == 0 {
		opts.PageSize = defaultPebblePageSize
	}
	po := &pebble.Options{}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, errors.Wrap(err, "store: open pebble")
	}

	p := &Pebble{
		db:       db,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		wo:       pebble.NoSync,
	}
	if opts.Sync {
		p.wo = pebble.Sync
	}

	val, closer, err := db.Get(metaPagesKey)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		_ = db.Close()
		return nil, errors.Wrap(err, "store: read page count")
	default:
		if len(val) != 8 {
			_ = closer.Close()
			_ = db.Close()
			return nil, errors.Newf("store: page count record has %d bytes", len(val))
		}
		p.pages = binary.BigEndian.Uint64(val)
		_ = closer.Close()
	}
	return p, nil
}

func pageKey(page uint64) []byte {
	k := make([]byte, len(pagePrefix)+8)
	copy(k, pagePrefix)
	binary.BigEndian.PutUint64(k[len(pagePrefix):], page)
	return k
}

// loadPage returns a private copy of the page, zero-filled if absent.
func (p *Pebble) loadPage(page uint64) ([]byte, error) {
	out := make([]byte, p.pageSize)
	val, closer, err := p.db.Get(pageKey(page))
	if errors.Is(err, pebble.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: load page %d", page)
	}
	copy(out, val)
	_ = closer.Close()
	return out, nil
}

func (p *Pebble) Read(off, n uint64) ([]byte, error) {
	if p.db == nil {
		return nil, ErrClosed
	}
	if !buf.Within(p.Capacity(), off, n) {
		return nil, outOfBounds("read", off, n, p.Capacity())
	}
	out := make([]byte, 0, n)
	for pos := off; pos < off+n; {
		page := pos / p.pageSize
		inPage := pos % p.pageSize
		chunk := min(p.pageSize-inPage, off+n-pos)

		data, err := p.loadPage(page)
		if err != nil {
			return nil, err
		}
		out = append(out, data[inPage:inPage+chunk]...)
		pos += chunk
	}
	return out, nil
}

func (p *Pebble) Write(off uint64, b []byte) error {
	if p.db == nil {
		return ErrClosed
	}
	n := uint64(len(b))
	if !buf.Within(p.Capacity(), off, n) {
		return outOfBounds("write", off, n, p.Capacity())
	}
	if n == 0 {
		return nil
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for pos := off; pos < off+n; {
		page := pos / p.pageSize
		inPage := pos % p.pageSize
		chunk := min(p.pageSize-inPage, off+n-pos)

		data, err := p.loadPage(page)
		if err != nil {
			return err
		}
		copy(data[inPage:inPage+chunk], b[pos-off:pos-off+chunk])
		if err := batch.Set(pageKey(page), data, nil); err != nil {
			return errors.Wrapf(err, "store: stage page %d", page)
		}
		pos += chunk
	}
	return errors.Wrap(batch.Commit(p.wo), "store: commit write")
}

func (p *Pebble) Capacity() uint64 { return p.pages * p.pageSize }

func (p *Pebble) Grow(extra uint64) error {
	if p.db == nil {
		return ErrClosed
	}
	if extra == 0 {
		return nil
	}
	add := format.Pages(extra, p.pageSize)
	if p.maxPages > 0 && p.pages+add > p.maxPages {
		return errors.Wrapf(ErrNoSpace, "grow by %d pages: %d of %d in use", add, p.pages, p.maxPages)
	}

	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, p.pages+add)
	if err := p.db.Set(metaPagesKey, val, p.wo); err != nil {
		return errors.Wrap(err, "store: record page count")
	}
	p.pages += add
	return nil
}

// FlushData forces buffered writes out of the memtable.
func (p *Pebble) FlushData() error {
	if p.db == nil {
		return ErrClosed
	}
	return errors.Wrap(p.db.Flush(), "store: flush pebble")
}

// FlushHeader is FlushData; pebble has no separate header page.
func (p *Pebble) FlushHeader() error { return p.FlushData() }

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

var (
	_ Store   = (*Pebble)(nil)
	_ Flusher = (*Pebble)(nil)
)
