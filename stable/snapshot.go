package stable

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/alloc"
	"github.com/joshuapare/stablekit/codec"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/store"
)

// envelope is the snapshot payload. The allocator travels beside the
// application state so tooling can read it without the application's types.
type envelope struct {
	Version   uint32
	Allocator alloc.State
	State     []byte
}

// SnapshotInfo describes the snapshot recorded in a store.
type SnapshotInfo struct {
	Header    format.Header
	Version   uint32
	Allocator alloc.State
	StateSize int
}

// HeapToStable writes state and the allocator into the store and records
// their location in the header. On success the API is detached: every later
// call through it, or through state's managers, fails with ErrDetached.
//
// The payload is appended at the boundary without going through the
// allocator. Data is flushed before the header is written.
func HeapToStable[S Persistent](m *Memory, state S, c codec.Codec[S]) error {
	if m.phase != PhaseReady {
		return misuse(ErrNotInitialized, "snapshot in phase %s", m.phase)
	}
	for i, mgr := range state.ObjectManagers() {
		if isNilManager(mgr) {
			return misuse(ErrNotInitialized, "snapshot: manager %d is nil", i)
		}
		switch mgr.Bound() {
		case m.api:
		case nil:
			return misuse(ErrNotInitialized, "snapshot: %T not bound", mgr)
		default:
			return errors.Wrapf(ErrForeignManager, "snapshot %T", mgr)
		}
	}

	release, err := m.api.acquire("snapshot")
	if err != nil {
		return err
	}
	defer release()

	sb, err := c.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	env := envelope{
		Version:   format.SnapshotVersion,
		Allocator: m.api.alloc.State(),
		State:     sb,
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&env); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	st := m.api.st
	h := format.Header{Offset: env.Allocator.Boundary, Length: uint64(payload.Len())}
	if end := h.End(); end > st.Capacity() {
		if err := st.Grow(end - st.Capacity()); err != nil {
			return errors.Mark(errors.Wrap(err, "grow for snapshot"), alloc.ErrGrowFail)
		}
	}

	if err := st.Write(h.Offset, payload.Bytes()); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	fl, durable := st.(store.Flusher)
	if durable {
		if err := fl.FlushData(); err != nil {
			return errors.Wrap(err, "flush snapshot")
		}
	}
	if err := st.Write(0, h.Encode()); err != nil {
		return errors.Wrap(err, "write header")
	}
	if durable {
		if err := fl.FlushHeader(); err != nil {
			return errors.Wrap(err, "flush header")
		}
	}

	m.api.detached = true
	m.phase = PhaseSnapshotted
	m.log.Info("snapshot written",
		"offset", h.Offset,
		"length", h.Length,
		"state_bytes", len(sb),
		"free_segments", len(env.Allocator.Segments))
	return nil
}

// StableToHeap restores the state written by HeapToStable and returns it with
// a ready Memory whose API is bound to every manager in the state. Managers
// using a non-gob codec must have it set again after restore.
func StableToHeap[S Persistent](st store.Store, opts Options, c codec.Codec[S]) (S, *Memory, error) {
	var zero S
	opts = opts.withDefaults()

	h, env, err := readSnapshot(st)
	if err != nil {
		return zero, nil, err
	}

	state, err := c.Unmarshal(env.State)
	if err != nil {
		return zero, nil, errors.Mark(errors.Wrap(err, "decode state"), ErrCorrupt)
	}
	a, err := alloc.FromState(st, env.Allocator)
	if err != nil {
		return zero, nil, errors.Mark(errors.Wrap(err, "restore allocator"), ErrCorrupt)
	}
	if a.BlockSize() != opts.BlockSize {
		opts.Logger.Debug("block size from snapshot differs from options",
			"snapshot", a.BlockSize(), "options", opts.BlockSize)
	}

	api := NewAPI(st, a)
	api.log = opts.Logger
	m := &Memory{api: api, log: opts.Logger, phase: PhaseRestoring}
	if err := m.Init(state.ObjectManagers()...); err != nil {
		return zero, nil, err
	}

	m.log.Info("snapshot restored",
		"offset", h.Offset,
		"length", h.Length,
		"boundary", a.Boundary(),
		"managers", len(m.managers))
	return state, m, nil
}

// Inspect reads the header and snapshot envelope without decoding the
// application state.
func Inspect(r store.Reader) (SnapshotInfo, error) {
	h, env, err := readSnapshot(r)
	if err != nil {
		return SnapshotInfo{Header: h}, err
	}
	return SnapshotInfo{
		Header:    h,
		Version:   env.Version,
		Allocator: env.Allocator,
		StateSize: len(env.State),
	}, nil
}

// ReadHeader returns the header recorded in r.
func ReadHeader(r store.Reader) (format.Header, error) {
	if r.Capacity() < format.HeaderSize {
		return format.Header{}, errors.Wrapf(ErrNoSnapshot, "store holds %d bytes", r.Capacity())
	}
	hb, err := r.Read(0, format.HeaderSize)
	if err != nil {
		return format.Header{}, err
	}
	return format.ParseHeader(hb)
}

func readSnapshot(r store.Reader) (format.Header, envelope, error) {
	var env envelope

	h, err := ReadHeader(r)
	if err != nil {
		return h, env, err
	}
	if h.Empty() {
		return h, env, ErrNoSnapshot
	}
	if err := h.Validate(r.Capacity()); err != nil {
		return h, env, errors.Mark(err, ErrCorrupt)
	}

	payload, err := r.Read(h.Offset, h.Length)
	if err != nil {
		return h, env, err
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&env); err != nil {
		return h, env, errors.Mark(errors.Wrap(err, "decode snapshot"), ErrCorrupt)
	}
	if env.Version != format.SnapshotVersion {
		return h, env, errors.Wrapf(ErrCorrupt, "snapshot version %d, want %d", env.Version, format.SnapshotVersion)
	}
	return h, env, nil
}
