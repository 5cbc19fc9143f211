package stable

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/stablekit/alloc"
	"github.com/joshuapare/stablekit/codec"
	"github.com/joshuapare/stablekit/internal/logger"
	"github.com/joshuapare/stablekit/store"
)

// Span locates a value inside the store. Len is the exact encoded length, not
// the rounded allocation length.
type Span struct {
	Off uint64
	Len uint64
}

// API bridges byte values to allocator ranges in a store. It exclusively owns
// its allocator; ObjectManagers hold a shared, non-owning *API.
type API struct {
	st    store.Store
	alloc *alloc.Allocator
	log   *slog.Logger

	busy     bool
	detached bool
}

// NewAPI binds an allocator to the store it manages.
func NewAPI(st store.Store, a *alloc.Allocator) *API {
	return &API{st: st, alloc: a, log: logger.L}
}

// acquire takes exclusive access for one call. The returned func releases it.
func (api *API) acquire(op string) (func(), error) {
	if api.detached {
		return nil, errors.Wrapf(ErrDetached, "%s", op)
	}
	if api.busy {
		return nil, misuse(ErrReentrant, "%s", op)
	}
	api.busy = true
	return func() { api.busy = false }, nil
}

// Write allocates room for b and copies it into the store.
func (api *API) Write(b []byte) (Span, error) {
	release, err := api.acquire("write")
	if err != nil {
		return Span{}, err
	}
	defer release()

	n := uint64(len(b))
	off, err := api.alloc.Alloc(n)
	if err != nil {
		return Span{}, err
	}
	if n > 0 {
		if err := api.st.Write(off, b); err != nil {
			// The range was never handed out; give it back.
			_ = api.alloc.Free(off, n)
			return Span{}, errors.Wrapf(err, "write [%d,+%d)", off, n)
		}
	}
	return Span{Off: off, Len: n}, nil
}

// Read returns the bytes at s.
func (api *API) Read(s Span) ([]byte, error) {
	release, err := api.acquire("read")
	if err != nil {
		return nil, err
	}
	defer release()

	if s.Len == 0 {
		return []byte{}, nil
	}
	return api.st.Read(s.Off, s.Len)
}

// Remove returns the range at s to the allocator.
func (api *API) Remove(s Span) error {
	release, err := api.acquire("remove")
	if err != nil {
		return err
	}
	defer release()

	return api.alloc.Free(s.Off, s.Len)
}

// Allocator returns the allocator owned by the API.
func (api *API) Allocator() *alloc.Allocator { return api.alloc }

// Store returns the store the API writes to.
func (api *API) Store() store.Store { return api.st }

// Detached reports whether HeapToStable has taken the allocator.
func (api *API) Detached() bool { return api.detached }

// WriteValue encodes v and writes it through api.
func WriteValue[V any](api *API, c codec.Codec[V], v V) (Span, error) {
	b, err := c.Marshal(v)
	if err != nil {
		return Span{}, err
	}
	return api.Write(b)
}

// ReadValue reads and decodes the value at s. It panics if the bytes do not
// decode: s must come from a prior WriteValue with the same codec.
func ReadValue[V any](api *API, c codec.Codec[V], s Span) V {
	v, err := ReadValueSafe(api, c, s)
	if err != nil {
		panic(err)
	}
	return v
}

// ReadValueSafe is ReadValue returning an ErrCorrupt-marked error instead of
// panicking.
func ReadValueSafe[V any](api *API, c codec.Codec[V], s Span) (V, error) {
	var zero V
	b, err := api.Read(s)
	if err != nil {
		return zero, err
	}
	v, err := c.Unmarshal(b)
	if err != nil {
		return zero, errors.Mark(errors.Wrapf(err, "value at [%d,+%d)", s.Off, s.Len), ErrCorrupt)
	}
	return v, nil
}
