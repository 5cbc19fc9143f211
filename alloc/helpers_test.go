package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/store"
)

// newTestAllocator returns an allocator over an in-memory store that already
// holds the reserved header.
func newTestAllocator(t testing.TB, blockSize, pageSize uint64) (*Allocator, *store.Mem) {
	t.Helper()
	st := store.NewMem(store.MemOptions{PageSize: pageSize})
	require.NoError(t, st.Grow(format.HeaderSize))
	return New(st, blockSize), st
}

// assertInvariants checks the free list against Verify and the boundary
// against the store.
func assertInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, Verify(a.State(), a.Capacity()))
	require.LessOrEqual(t, a.Boundary(), a.Capacity())
}
