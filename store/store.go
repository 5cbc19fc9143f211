package store

// Reader is the read-only half of a Store.
type Reader interface {
	// Read returns a copy of n bytes starting at off.
	Read(off, n uint64) ([]byte, error)
	// Capacity returns the current size of the region in bytes.
	Capacity() uint64
}

// Store is a growable linear byte address space.
type Store interface {
	Reader
	// Write overwrites len(b) bytes starting at off.
	Write(off uint64, b []byte) error
	// Grow extends the region by at least extra bytes, rounded up to the
	// store's page size.
	Grow(extra uint64) error
}

// Flusher is implemented by stores that need an explicit sync to make writes
// durable. FlushData makes payload writes durable; FlushHeader makes the
// header page durable. Callers flush data before publishing a header.
type Flusher interface {
	FlushData() error
	FlushHeader() error
}
