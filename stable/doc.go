// Package stable keeps application state in a persistent, growable region
// that survives process restarts.
//
// An API pairs a store.Store with the allocator that manages it. Any number of
// ObjectManagers share one API, each mapping keys to values written at
// allocator-chosen offsets and keeping only a small index in process memory.
// A Memory owns the API and implements the restart protocol:
//
//	m, _ := stable.New(st, stable.Options{})
//	_ = m.Init(app.ObjectManagers()...)
//	... mutate app ...
//	_ = stable.HeapToStable(m, app, codec.Gob[*App]{})  // before shutdown
//
//	app, m, _ := stable.StableToHeap(st, stable.Options{}, codec.Gob[*App]{}) // after restart
//
// HeapToStable appends the encoded application state and allocator at the
// boundary and publishes its location in the 16-byte header at offset 0.
// Data is flushed before the header, so a crash mid-snapshot leaves the
// previous header intact.
//
// Nothing here is safe for concurrent use. The API detects re-entrant calls
// and fails them with ErrReentrant instead of corrupting the free list.
package stable
