package dirty

// Mapping is the view of a memory-mapped file the tracker flushes.
type Mapping interface {
	// Bytes returns the current mapping. It may change after a grow.
	Bytes() []byte
	// FD returns the file descriptor backing the mapping, or -1.
	FD() int
}
