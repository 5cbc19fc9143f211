package stable

import "github.com/cockroachdb/errors"

var (
	// ErrNotInitialized indicates an ObjectManager or Memory used before Init.
	ErrNotInitialized = errors.New("stable: not initialized")

	// ErrNotFound indicates a key absent from an ObjectManager.
	ErrNotFound = errors.New("stable: key not found")

	// ErrCorrupt indicates stored bytes that could not be decoded.
	ErrCorrupt = errors.New("stable: corrupt data")

	// ErrReentrant indicates an API call made while another is in progress.
	ErrReentrant = errors.New("stable: re-entrant access to shared API")

	// ErrDetached indicates use of an API whose allocator was detached by
	// HeapToStable.
	ErrDetached = errors.New("stable: API detached for snapshot")

	// ErrForeignManager indicates an ObjectManager bound to a different API
	// than the Memory it is being used with.
	ErrForeignManager = errors.New("stable: object manager bound to another memory")

	// ErrNoSnapshot indicates a store whose header records no snapshot.
	ErrNoSnapshot = errors.New("stable: no snapshot in store")

	// ErrSnapshotExists indicates New was called on a store that already
	// holds a snapshot.
	ErrSnapshotExists = errors.New("stable: store already holds a snapshot")
)

// misuse marks err as an assertion failure so it is reported as a
// programming error rather than a runtime condition.
func misuse(err error, format string, args ...any) error {
	return errors.WithAssertionFailure(errors.Wrapf(err, format, args...))
}
