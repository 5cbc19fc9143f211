package stable

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stablekit/codec"
	"github.com/joshuapare/stablekit/store"
)

type user struct {
	Name string
	Age  int
}

type post struct {
	Author uint64
	Body   string
}

// appState is a small application holding two managers and plain fields.
type appState struct {
	Users   *ObjectManager[uint64, user]
	Posts   *ObjectManager[string, post]
	Counter int
	Tags    []string
}

func newAppState() *appState {
	return &appState{
		Users: NewObjectManager[uint64, user](nil),
		Posts: NewObjectManager[string, post](nil),
	}
}

func (s *appState) ObjectManagers() []Manager { return []Manager{s.Users, s.Posts} }

var appCodec = codec.Gob[*appState]{}

// newTestMemory returns an initialized Memory over an in-memory store, with
// log output captured in the returned buffer.
func newTestMemory(t testing.TB, opts Options, managers ...Manager) (*Memory, *store.Mem, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	st := store.NewMem(store.MemOptions{PageSize: 256})
	m, err := New(st, opts)
	require.NoError(t, err)
	require.NoError(t, m.Init(managers...))
	return m, st, &logs
}

// contents materializes a manager into a map.
func contents[K comparable, V any](t testing.TB, om interface {
	Keys() []K
	GetSafe(K) (V, error)
}) map[K]V {
	t.Helper()
	out := make(map[K]V)
	for _, k := range om.Keys() {
		v, err := om.GetSafe(k)
		require.NoError(t, err)
		out[k] = v
	}
	return out
}

// hookStore runs onGrow before delegating Grow.
type hookStore struct {
	store.Store
	onGrow func()
}

func (h *hookStore) Grow(extra uint64) error {
	if h.onGrow != nil {
		h.onGrow()
	}
	return h.Store.Grow(extra)
}
