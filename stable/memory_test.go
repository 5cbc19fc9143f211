package stable

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joshuapare/stablekit/alloc"
	"github.com/joshuapare/stablekit/codec"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/store"
)

// populate fills s with a mix of live and freed values.
func populate(t testing.TB, s *appState) {
	t.Helper()
	for i := range uint64(20) {
		require.NoError(t, s.Users.Insert(i, user{Name: "user", Age: int(i)}))
	}
	for _, k := range []string{"hello", "world", "again"} {
		require.NoError(t, s.Posts.Insert(k, post{Author: 3, Body: k}))
	}
	for i := uint64(0); i < 20; i += 4 {
		_, err := s.Users.Remove(i)
		require.NoError(t, err)
	}
	s.Counter = 42
	s.Tags = []string{"a", "b"}
}

func TestMemory_SnapshotRestore(t *testing.T) {
	app := newAppState()
	m, st, logs := newTestMemory(t, Options{}, app.ObjectManagers()...)
	populate(t, app)

	wantUsers := contents[uint64, user](t, app.Users)
	wantPosts := contents[string, post](t, app.Posts)
	wantAlloc := m.Allocator().State()

	require.NoError(t, HeapToStable(m, app, appCodec))
	assert.Equal(t, PhaseSnapshotted, m.Phase())
	assert.Contains(t, logs.String(), "snapshot written")

	// Header is bit-exact big-endian offset and length.
	raw := st.Bytes()
	off := binary.BigEndian.Uint64(raw[0:8])
	length := binary.BigEndian.Uint64(raw[8:16])
	assert.Equal(t, wantAlloc.Boundary, off)
	assert.NotZero(t, length)

	restored, m2, err := StableToHeap(st, Options{}, appCodec)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, m2.Phase())
	assert.Equal(t, wantAlloc, m2.Allocator().State())

	assert.Equal(t, 42, restored.Counter)
	assert.Equal(t, []string{"a", "b"}, restored.Tags)
	assert.Equal(t, wantUsers, contents[uint64, user](t, restored.Users))
	assert.Equal(t, wantPosts, contents[string, post](t, restored.Posts))
	assert.Same(t, m2.API(), restored.Users.Bound())
	assert.Same(t, m2.API(), restored.Posts.Bound())
}

func TestMemory_RestoredStateKeepsWorking(t *testing.T) {
	app := newAppState()
	m, st, _ := newTestMemory(t, Options{BlockSize: 64}, app.ObjectManagers()...)
	populate(t, app)
	require.NoError(t, HeapToStable(m, app, appCodec))

	for cycle := range 3 {
		restored, m2, err := StableToHeap(st, Options{}, appCodec)
		require.NoError(t, err, "cycle %d", cycle)
		assert.Equal(t, uint64(64), m2.Allocator().BlockSize())

		// New values land on top of the previous snapshot payload.
		key := uint64(100 + cycle)
		require.NoError(t, restored.Users.Insert(key, user{Name: "new"}))
		_, err = restored.Posts.Remove("hello")
		if cycle == 0 {
			require.NoError(t, err)
		} else {
			assert.True(t, errors.Is(err, ErrNotFound))
		}
		restored.Counter++

		for k := uint64(1); k < 20; k++ {
			if k%4 == 0 {
				continue
			}
			v, err := restored.Users.GetSafe(k)
			require.NoError(t, err)
			assert.Equal(t, int(k), v.Age)
		}
		require.NoError(t, alloc.Verify(m2.Allocator().State(), st.Capacity()))
		require.NoError(t, HeapToStable(m2, restored, appCodec))
	}

	final, _, err := StableToHeap(st, Options{}, appCodec)
	require.NoError(t, err)
	assert.Equal(t, 45, final.Counter)
	assert.True(t, final.Users.Contains(100))
	assert.True(t, final.Users.Contains(102))
	assert.Equal(t, 2, final.Posts.Len())
}

func TestMemory_DetachedAfterSnapshot(t *testing.T) {
	app := newAppState()
	m, _, _ := newTestMemory(t, Options{}, app.ObjectManagers()...)
	require.NoError(t, app.Users.Insert(1, user{Name: "a"}))
	require.NoError(t, HeapToStable(m, app, appCodec))

	assert.True(t, m.API().Detached())

	err := app.Users.Insert(2, user{})
	assert.True(t, errors.Is(err, ErrDetached))
	_, err = app.Users.GetSafe(1)
	assert.True(t, errors.Is(err, ErrDetached))
	_, err = m.API().Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrDetached))
	assert.True(t, errors.Is(m.Fix(), ErrDetached))
	assert.True(t, errors.Is(m.Init(), ErrDetached))

	err = HeapToStable(m, app, appCodec)
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestMemory_InitIsIdempotent(t *testing.T) {
	users := NewObjectManager[uint64, user](nil)
	m, _, _ := newTestMemory(t, Options{}, users)
	require.NoError(t, m.Init(users))
	require.NoError(t, m.Init(users))
	assert.Len(t, m.Managers(), 1)
	assert.Equal(t, PhaseReady, m.Phase())
}

func TestMemory_ForeignManager(t *testing.T) {
	users := NewObjectManager[uint64, user](nil)
	newTestMemory(t, Options{}, users)
	other, _, _ := newTestMemory(t, Options{})

	err := other.Init(users)
	assert.True(t, errors.Is(err, ErrForeignManager))

	app := &appState{Users: users, Posts: NewObjectManager[string, post](nil)}
	require.NoError(t, other.Init(app.Posts))
	err = HeapToStable(other, app, appCodec)
	assert.True(t, errors.Is(err, ErrForeignManager))
	assert.False(t, other.API().Detached())
}

func TestMemory_SnapshotRequiresInit(t *testing.T) {
	m, err := New(store.NewMem(store.MemOptions{}), Options{})
	require.NoError(t, err)
	assert.Equal(t, PhaseUninitialized, m.Phase())

	err = HeapToStable(m, newAppState(), appCodec)
	assert.True(t, errors.Is(err, ErrNotInitialized))

	app := newAppState()
	require.NoError(t, m.Init(app.Users))
	err = HeapToStable(m, app, appCodec)
	assert.True(t, errors.Is(err, ErrNotInitialized), "posts manager is unbound")
}

func TestMemory_NilManagerIsMisuse(t *testing.T) {
	users := NewObjectManager[uint64, user](nil)
	m, _, _ := newTestMemory(t, Options{}, users)

	var posts *ObjectManager[string, post]
	assert.Nil(t, posts.Bound())
	assert.False(t, posts.Initialized())

	err := m.Init(posts)
	assert.True(t, errors.Is(err, ErrNotInitialized))
	err = m.Init(nil)
	assert.True(t, errors.Is(err, ErrNotInitialized))

	app := &appState{Users: users}
	require.NotPanics(t, func() { err = HeapToStable(m, app, appCodec) })
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.False(t, m.API().Detached())

	app.Posts = NewObjectManager[string, post](nil)
	require.NoError(t, m.Init(app.Posts))
	require.NoError(t, HeapToStable(m, app, appCodec))
}

func TestMemory_SnapshotGrowFailureKeepsMemoryLive(t *testing.T) {
	app := newAppState()
	st := store.NewMem(store.MemOptions{PageSize: 512, MaxPages: 1})
	m, err := New(st, Options{BlockSize: 16})
	require.NoError(t, err)
	require.NoError(t, m.Init(app.ObjectManagers()...))
	require.NoError(t, app.Users.Insert(1, user{Name: "fits"}))

	app.Tags = make([]string, 200)
	for i := range app.Tags {
		app.Tags[i] = "padding-to-overflow-the-single-page"
	}
	err = HeapToStable(m, app, appCodec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, alloc.ErrGrowFail))
	assert.True(t, errors.Is(err, store.ErrNoSpace))

	assert.Equal(t, PhaseReady, m.Phase())
	assert.False(t, m.API().Detached())
	h, err := ReadHeader(st)
	require.NoError(t, err)
	assert.True(t, h.Empty())

	v, ok := app.Users.Get(1)
	require.True(t, ok)
	assert.Equal(t, "fits", v.Name)
}

func TestMemory_NewRejectsStoreWithSnapshot(t *testing.T) {
	app := newAppState()
	m, st, _ := newTestMemory(t, Options{}, app.ObjectManagers()...)
	require.NoError(t, HeapToStable(m, app, appCodec))

	_, err := New(st, Options{})
	assert.True(t, errors.Is(err, ErrSnapshotExists))
}

func TestStableToHeap_Errors(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		_, _, err := StableToHeap(store.NewMem(store.MemOptions{}), Options{}, appCodec)
		assert.True(t, errors.Is(err, ErrNoSnapshot))
	})

	t.Run("fresh memory", func(t *testing.T) {
		_, st, _ := newTestMemory(t, Options{})
		_, _, err := StableToHeap(st, Options{}, appCodec)
		assert.True(t, errors.Is(err, ErrNoSnapshot))
	})

	t.Run("header past capacity", func(t *testing.T) {
		_, st, _ := newTestMemory(t, Options{})
		h := format.Header{Offset: 16, Length: st.Capacity()}
		require.NoError(t, st.Write(0, h.Encode()))
		_, _, err := StableToHeap(st, Options{}, appCodec)
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.True(t, errors.Is(err, format.ErrBadHeader))
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, st, _ := newTestMemory(t, Options{})
		require.NoError(t, st.Write(16, []byte{0xff, 0xff, 0xff, 0xff}))
		require.NoError(t, st.Write(0, format.Header{Offset: 16, Length: 4}.Encode()))
		_, _, err := StableToHeap(st, Options{}, appCodec)
		assert.True(t, errors.Is(err, ErrCorrupt))
	})
}

func TestMemory_Fix(t *testing.T) {
	app := newAppState()
	m, st, logs := newTestMemory(t, Options{}, app.ObjectManagers()...)
	populate(t, app)
	require.NotZero(t, m.Allocator().FreeCount())

	require.NoError(t, m.Fix())
	fixed := m.Allocator().Boundary()
	assert.Zero(t, m.Allocator().FreeCount())
	assert.Equal(t, st.Capacity(), fixed)
	assert.Contains(t, logs.String(), "allocator reset")

	v, err := app.Users.GetSafe(5)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Age)

	// New values are bumped past the old capacity.
	require.NoError(t, app.Users.Insert(500, user{Name: "after fix"}))
	spans := app.Users.Spans()
	assert.Equal(t, fixed, spans[len(spans)-1].Off)
}

func TestMemory_Health(t *testing.T) {
	users := NewObjectManager[uint64, user](nil)
	m, _, _ := newTestMemory(t, Options{}, users)
	require.NoError(t, users.Insert(1, user{}))
	assert.Equal(t, "boundary: 316 B, capacity: 768 B, free segments: 0, free: 0 B", m.Health(""))
}

func TestInspect(t *testing.T) {
	app := newAppState()
	m, st, _ := newTestMemory(t, Options{}, app.ObjectManagers()...)
	populate(t, app)
	want := m.Allocator().State()
	require.NoError(t, HeapToStable(m, app, appCodec))

	info, err := Inspect(st)
	require.NoError(t, err)
	assert.Equal(t, want, info.Allocator)
	assert.Equal(t, uint32(format.SnapshotVersion), info.Version)
	assert.Equal(t, want.Boundary, info.Header.Offset)
	assert.NotZero(t, info.StateSize)
}

func TestMemory_FileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.dat")

	st, err := store.OpenFile(path, store.FileOptions{PageSize: 4096})
	require.NoError(t, err)
	m, err := New(st, Options{})
	require.NoError(t, err)

	app := newAppState()
	require.NoError(t, m.Init(app.ObjectManagers()...))
	populate(t, app)
	want := contents[uint64, user](t, app.Users)
	require.NoError(t, HeapToStable(m, app, appCodec))
	require.NoError(t, st.Close())

	st, err = store.OpenFile(path, store.FileOptions{PageSize: 4096})
	require.NoError(t, err)
	defer st.Close()

	restored, _, err := StableToHeap(st, Options{}, appCodec)
	require.NoError(t, err)
	assert.Equal(t, want, contents[uint64, user](t, restored.Users))
	assert.Equal(t, 42, restored.Counter)
}

func TestMemory_PebbleStoreRoundTrip(t *testing.T) {
	fs := vfs.NewMem()
	st, err := store.OpenPebble("region", store.PebbleOptions{FS: fs})
	require.NoError(t, err)
	m, err := New(st, Options{BlockSize: 128})
	require.NoError(t, err)

	app := newAppState()
	require.NoError(t, m.Init(app.ObjectManagers()...))
	populate(t, app)
	want := contents[string, post](t, app.Posts)
	require.NoError(t, HeapToStable(m, app, appCodec))
	require.NoError(t, st.Close())

	st, err = store.OpenPebble("region", store.PebbleOptions{FS: fs})
	require.NoError(t, err)
	defer st.Close()

	restored, m2, err := StableToHeap(st, Options{}, appCodec)
	require.NoError(t, err)
	assert.Equal(t, uint64(128), m2.Allocator().BlockSize())
	assert.Equal(t, want, contents[string, post](t, restored.Posts))
}

type protoApp struct {
	Names *ObjectManager[string, *wrapperspb.StringValue]
}

func (a *protoApp) ObjectManagers() []Manager { return []Manager{a.Names} }

func TestMemory_ProtoManagerNeedsCodecAfterRestore(t *testing.T) {
	c := codec.Proto[*wrapperspb.StringValue]{}
	app := &protoApp{Names: NewObjectManager[string, *wrapperspb.StringValue](c)}
	m, st, _ := newTestMemory(t, Options{}, app.ObjectManagers()...)
	require.NoError(t, app.Names.Insert("greeting", wrapperspb.String("hi")))
	require.NoError(t, HeapToStable(m, app, codec.Gob[*protoApp]{}))

	restored, _, err := StableToHeap(st, Options{}, codec.Gob[*protoApp]{})
	require.NoError(t, err)

	// Still on the gob default: the proto bytes do not decode.
	_, err = restored.Names.GetSafe("greeting")
	assert.True(t, errors.Is(err, ErrCorrupt))

	restored.Names.SetCodec(c)
	v, err := restored.Names.GetSafe("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", v.GetValue())
}
