package stable

import (
	"bytes"
	"cmp"
	"encoding/gob"
	"iter"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/joshuapare/stablekit/codec"
)

// Manager is the type-erased view of an ObjectManager that Memory wires and
// checks.
type Manager interface {
	// Init binds the manager to api.
	Init(api *API)
	// Bound returns the API the manager is bound to, or nil.
	Bound() *API
}

// Persistent is implemented by application state that owns ObjectManagers.
type Persistent interface {
	ObjectManagers() []Manager
}

// isNilManager reports whether mgr is nil or a typed nil pointer.
func isNilManager(mgr Manager) bool {
	if mgr == nil {
		return true
	}
	v := reflect.ValueOf(mgr)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

type indexEntry[K cmp.Ordered] struct {
	Key  K
	Span Span
}

func entryLess[K cmp.Ordered](a, b indexEntry[K]) bool { return a.Key < b.Key }

// ObjectManager maps keys to values stored through a shared API. Only the
// key index lives in process memory; values stay in the store.
//
// The zero value is not usable; create one with NewObjectManager and bind it
// with Init (or Memory.Init) before use.
type ObjectManager[K cmp.Ordered, V any] struct {
	api   *API
	codec codec.Codec[V]
	index *btree.BTreeG[indexEntry[K]]
}

// NewObjectManager returns an unbound manager. A nil codec selects gob.
func NewObjectManager[K cmp.Ordered, V any](c codec.Codec[V]) *ObjectManager[K, V] {
	om := &ObjectManager[K, V]{}
	om.SetCodec(c)
	om.index = btree.NewG(btreeDegree, entryLess[K])
	return om
}

const btreeDegree = 16

// Init binds the manager to api.
func (om *ObjectManager[K, V]) Init(api *API) { om.api = api }

// Bound returns the API the manager is bound to, or nil. It is safe on a nil
// manager.
func (om *ObjectManager[K, V]) Bound() *API {
	if om == nil {
		return nil
	}
	return om.api
}

// Initialized reports whether Init has been called.
func (om *ObjectManager[K, V]) Initialized() bool { return om.Bound() != nil }

// SetCodec replaces the value codec. A nil codec selects gob. Restored
// managers start with gob and must be given their codec again if it differs.
func (om *ObjectManager[K, V]) SetCodec(c codec.Codec[V]) {
	if c == nil {
		c = codec.Gob[V]{}
	}
	om.codec = c
}

func (om *ObjectManager[K, V]) lookup(k K) (Span, bool) {
	e, ok := om.index.Get(indexEntry[K]{Key: k})
	return e.Span, ok
}

// Insert stores v under k. An existing value is freed before the new one is
// written, so its range is available to this allocation.
func (om *ObjectManager[K, V]) Insert(k K, v V) error {
	if om.api == nil {
		return misuse(ErrNotInitialized, "insert %v", k)
	}
	b, err := om.codec.Marshal(v)
	if err != nil {
		return err
	}

	if old, ok := om.lookup(k); ok {
		if err := om.api.Remove(old); err != nil {
			return errors.Wrapf(err, "insert %v: free previous value", k)
		}
		om.index.Delete(indexEntry[K]{Key: k})
	}

	span, err := om.api.Write(b)
	if err != nil {
		return errors.Wrapf(err, "insert %v", k)
	}
	om.index.ReplaceOrInsert(indexEntry[K]{Key: k, Span: span})
	return nil
}

// Get returns the value stored under k. It panics if the manager is not
// initialized or the stored bytes do not decode.
func (om *ObjectManager[K, V]) Get(k K) (V, bool) {
	if om.api == nil {
		panic(misuse(ErrNotInitialized, "get %v", k))
	}
	span, ok := om.lookup(k)
	if !ok {
		var zero V
		return zero, false
	}
	return ReadValue(om.api, om.codec, span), true
}

// GetSafe is Get returning errors instead of panicking. Undecodable values
// are logged and reported as ErrCorrupt so a scan can skip them.
func (om *ObjectManager[K, V]) GetSafe(k K) (V, error) {
	var zero V
	if om.api == nil {
		return zero, misuse(ErrNotInitialized, "get %v", k)
	}
	span, ok := om.lookup(k)
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "get %v", k)
	}
	v, err := ReadValueSafe(om.api, om.codec, span)
	if err != nil {
		om.api.log.Warn("corrupt object", "key", k, "off", span.Off, "len", span.Len, "err", err)
		return zero, err
	}
	return v, nil
}

// Remove deletes k and returns its value.
func (om *ObjectManager[K, V]) Remove(k K) (V, error) {
	var zero V
	if om.api == nil {
		return zero, misuse(ErrNotInitialized, "remove %v", k)
	}
	span, ok := om.lookup(k)
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "remove %v", k)
	}
	v, err := ReadValueSafe(om.api, om.codec, span)
	if err != nil {
		return zero, err
	}
	if err := om.api.Remove(span); err != nil {
		return zero, errors.Wrapf(err, "remove %v", k)
	}
	om.index.Delete(indexEntry[K]{Key: k})
	return v, nil
}

// Discard frees k's range and drops it from the index without decoding the
// value. It is the way to clear entries that GetSafe reports as ErrCorrupt.
func (om *ObjectManager[K, V]) Discard(k K) error {
	if om.api == nil {
		return misuse(ErrNotInitialized, "discard %v", k)
	}
	span, ok := om.lookup(k)
	if !ok {
		return errors.Wrapf(ErrNotFound, "discard %v", k)
	}
	if err := om.api.Remove(span); err != nil {
		return errors.Wrapf(err, "discard %v", k)
	}
	om.index.Delete(indexEntry[K]{Key: k})
	return nil
}

// Contains reports whether k is present without reading its value.
func (om *ObjectManager[K, V]) Contains(k K) bool {
	_, ok := om.lookup(k)
	return ok
}

// Len returns the number of keys.
func (om *ObjectManager[K, V]) Len() int { return om.index.Len() }

// Keys returns all keys in order.
func (om *ObjectManager[K, V]) Keys() []K {
	keys := make([]K, 0, om.index.Len())
	om.index.Ascend(func(e indexEntry[K]) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// All yields key/value pairs in key order. Keys are captured when iteration
// starts; each value is read when reached. Keys removed during iteration are
// skipped. Like Get, it panics on an uninitialized manager or corrupt value.
func (om *ObjectManager[K, V]) All() iter.Seq2[K, V] {
	if om.api == nil {
		panic(misuse(ErrNotInitialized, "iterate"))
	}
	return func(yield func(K, V) bool) {
		for _, k := range om.Keys() {
			v, ok := om.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Spans returns every key's storage range, in key order. Used by integrity
// checks.
func (om *ObjectManager[K, V]) Spans() []Span {
	out := make([]Span, 0, om.index.Len())
	om.index.Ascend(func(e indexEntry[K]) bool {
		out = append(out, e.Span)
		return true
	})
	return out
}

// GobEncode serializes the index only. Values already live in the store.
func (om *ObjectManager[K, V]) GobEncode() ([]byte, error) {
	entries := make([]indexEntry[K], 0, om.index.Len())
	om.index.Ascend(func(e indexEntry[K]) bool {
		entries = append(entries, e)
		return true
	})
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(entries); err != nil {
		return nil, errors.Wrap(err, "encode object index")
	}
	return b.Bytes(), nil
}

// GobDecode restores the index. The manager is left unbound with the gob
// codec until Init and SetCodec are called.
func (om *ObjectManager[K, V]) GobDecode(data []byte) error {
	var entries []indexEntry[K]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return errors.Mark(errors.Wrap(err, "decode object index"), ErrCorrupt)
	}
	om.api = nil
	if om.codec == nil {
		om.SetCodec(nil)
	}
	om.index = btree.NewG(btreeDegree, entryLess[K])
	for _, e := range entries {
		om.index.ReplaceOrInsert(e)
	}
	return nil
}

var _ Manager = (*ObjectManager[string, []byte])(nil)
