// Package codec converts typed values to and from the bytes stored in a
// persistent region.
//
// Two strategies ship with the package: Gob for arbitrary Go values and
// Proto for protobuf messages. Either can back an ObjectManager or the
// application snapshot.
package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
)

// Codec encodes and decodes values of type T.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(b []byte) (T, error)
}

// ErrDecode marks every decoding failure returned by this package.
var ErrDecode = errors.New("codec: decode failed")

// Gob encodes values with encoding/gob. The zero value is ready to use.
type Gob[T any] struct{}

func (Gob[T]) Marshal(v T) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(&v); err != nil {
		return nil, errors.Wrapf(err, "gob: encode %T", v)
	}
	return b.Bytes(), nil
}

func (Gob[T]) Unmarshal(b []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return v, errors.Mark(errors.Wrapf(err, "gob: decode %T", v), ErrDecode)
	}
	return v, nil
}

// Proto encodes protobuf messages. New allocates the message to decode into;
// when nil, the message type is derived from M.
type Proto[M proto.Message] struct {
	New func() M

	// Deterministic requests stable map ordering in the output.
	Deterministic bool
}

func (p Proto[M]) Marshal(m M) ([]byte, error) {
	b, err := proto.MarshalOptions{Deterministic: p.Deterministic}.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "proto: encode %T", m)
	}
	return b, nil
}

func (p Proto[M]) Unmarshal(b []byte) (M, error) {
	m := p.alloc()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero M
		return zero, errors.Mark(errors.Wrapf(err, "proto: decode %T", m), ErrDecode)
	}
	return m, nil
}

func (p Proto[M]) alloc() M {
	if p.New != nil {
		return p.New()
	}
	var zero M
	return zero.ProtoReflect().Type().New().Interface().(M)
}

var _ Codec[int] = Gob[int]{}
