package stable

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/alloc"
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/internal/logger"
	"github.com/joshuapare/stablekit/store"
)

// Phase is the lifecycle position of a Memory.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseReady
	PhaseSnapshotted
	PhaseRestoring
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseReady:
		return "ready"
	case PhaseSnapshotted:
		return "snapshotted"
	case PhaseRestoring:
		return "restoring"
	default:
		return "unknown"
	}
}

// Options configures a Memory. Zero values select defaults.
type Options struct {
	// BlockSize is the allocation quantum. Default: 300. Ignored on restore,
	// where the persisted value wins.
	BlockSize uint64

	// Logger receives lifecycle events. Default: logger.L.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BlockSize == 0 {
		o.BlockSize = format.DefaultBlockSize
	}
	if o.Logger == nil {
		o.Logger = logger.L
	}
	return o
}

// Memory composes one API with the ObjectManagers bound to it and drives the
// snapshot/restore cycle.
type Memory struct {
	api      *API
	log      *slog.Logger
	phase    Phase
	managers []Manager
}

// New prepares a fresh store: it reserves the header and starts an empty
// allocator right after it. The store must not already hold a snapshot.
func New(st store.Store, opts Options) (*Memory, error) {
	opts = opts.withDefaults()

	if c := st.Capacity(); c < format.HeaderSize {
		if err := st.Grow(format.HeaderSize - c); err != nil {
			return nil, errors.Wrap(err, "reserve header")
		}
	} else {
		hb, err := st.Read(0, format.HeaderSize)
		if err != nil {
			return nil, err
		}
		if h, _ := format.ParseHeader(hb); !h.Empty() {
			return nil, errors.Wrapf(ErrSnapshotExists, "snapshot at [%d,+%d)", h.Offset, h.Length)
		}
	}

	api := NewAPI(st, alloc.New(st, opts.BlockSize))
	api.log = opts.Logger
	return &Memory{api: api, log: opts.Logger}, nil
}

// Init binds every unbound manager to the Memory's API and marks the Memory
// ready. Managers already bound to this Memory are left alone, so Init may be
// called more than once.
func (m *Memory) Init(managers ...Manager) error {
	if m.api.detached {
		return errors.Wrap(ErrDetached, "init")
	}
	for i, mgr := range managers {
		if isNilManager(mgr) {
			return misuse(ErrNotInitialized, "init: manager %d is nil", i)
		}
		switch mgr.Bound() {
		case nil:
			mgr.Init(m.api)
			m.managers = append(m.managers, mgr)
		case m.api:
		default:
			return errors.Wrapf(ErrForeignManager, "init %T", mgr)
		}
	}
	m.phase = PhaseReady
	return nil
}

// Phase returns the lifecycle position.
func (m *Memory) Phase() Phase { return m.phase }

// API returns the shared API.
func (m *Memory) API() *API { return m.api }

// Allocator returns the allocator owned by the API.
func (m *Memory) Allocator() *alloc.Allocator { return m.api.alloc }

// Managers returns the managers bound through Init.
func (m *Memory) Managers() []Manager { return m.managers }

// Health summarizes the allocator. See alloc.Allocator.Health.
func (m *Memory) Health(unit string) string { return m.api.alloc.Health(unit) }

// Fix discards the free list and moves the boundary to the end of the store.
// Live values stay readable; all free space is leaked.
func (m *Memory) Fix() error {
	release, err := m.api.acquire("fix")
	if err != nil {
		return err
	}
	defer release()

	before := m.api.alloc.State()
	m.api.alloc.Fix()
	m.log.Warn("allocator reset",
		"dropped_segments", len(before.Segments),
		"old_boundary", before.Boundary,
		"new_boundary", m.api.alloc.Boundary())
	return nil
}
