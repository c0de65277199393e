package sync

import (
	"errors"
	"fmt"

	"github.com/nhle/taskflow/internal/store"
)

// ErrOffline is returned when a write is attempted while offline. The
// store is never called in that case.
var ErrOffline = errors.New("offline: writes are disabled")

// ErrNoSession is returned when a write is attempted before Start.
var ErrNoSession = errors.New("no active session")

// RemoteError wraps a failed call to the document store.
type RemoteError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the operation could succeed.
func (e *RemoteError) Retryable() bool {
	return !errors.Is(e.Err, store.ErrNotFound)
}

// IsRemoteError reports whether err is or wraps a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
