package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a row that callers expected to exist (user or
	// day record) is absent. Recovered locally via EnsureRow/EnsureUser.
	ErrNotFound = errors.New("not found")

	// ErrNoMatch is the no-candidate outcome of reply selection. It is a
	// first-class result, not a failure: callers fall back to a catalog-wide
	// draw before telling the user nothing is available.
	ErrNoMatch = errors.New("no matching sticker")
)

// StorageError wraps failures of the persistence layer (I/O, timeouts,
// query errors). The orchestration layer logs these and skips the
// side-effect for the one event rather than aborting the handler.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for operation op. A nil err returns nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
