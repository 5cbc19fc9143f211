package store

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfBounds indicates a read or write beyond the current capacity.
	ErrOutOfBounds = errors.New("store: access out of bounds")

	// ErrNoSpace indicates the store refused to grow past its configured limit.
	ErrNoSpace = errors.New("store: no space left to grow")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("store: closed")
)

func outOfBounds(op string, off, n, capacity uint64) error {
	return errors.Wrapf(ErrOutOfBounds, "%s [%d,+%d) capacity %d", op, off, n, capacity)
}
