package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stablekit/codec"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/stable"
	"github.com/joshuapare/stablekit/store"
)

type fixture struct {
	Notes *stable.ObjectManager[int, string]
}

func (f *fixture) ObjectManagers() []stable.Manager { return []stable.Manager{f.Notes} }

// writeStore creates a file store holding a snapshot with a few free segments.
func writeStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.dat")

	st, err := store.OpenFile(path, store.FileOptions{PageSize: 4096})
	require.NoError(t, err)
	defer st.Close()

	m, err := stable.New(st, stable.Options{BlockSize: 64})
	require.NoError(t, err)
	f := &fixture{Notes: stable.NewObjectManager[int, string](nil)}
	require.NoError(t, m.Init(f.ObjectManagers()...))

	for i := range 10 {
		require.NoError(t, f.Notes.Insert(i, "note"))
	}
	for i := 0; i < 10; i += 3 {
		_, err := f.Notes.Remove(i)
		require.NoError(t, err)
	}
	require.NoError(t, stable.HeapToStable(m, f, codec.Gob[*fixture]{}))
	return path
}

// writeEmptyStore creates a store with a reserved header and no snapshot.
func writeEmptyStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, format.HeaderSize), 0o644))
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String(), fnErr
}

// resetFlags restores global flag state after a test.
func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		verbose, quiet, jsonOut = false, false, false
		healthUnit, healthSegments = "", false
	})
}
