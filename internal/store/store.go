package store

import (
	"context"
	"errors"

	"github.com/nhle/taskflow/internal/model"
)

// ErrNotFound is returned when a write targets a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Snapshot is one push from a live query: the complete current result set
// for the subscribed owner ordered by order ascending, or an error that
// interrupted the feed.
type Snapshot struct {
	Tasks []model.Task
	Err   error
}

// DocumentStore is the remote task store. Writes are independent calls:
// there are no transactions spanning documents, and every successful write
// is echoed back to subscribers as a new snapshot.
type DocumentStore interface {
	// Subscribe opens a live query for ownerID. The channel delivers the
	// current result set immediately and again after every change; it is
	// closed once ctx is cancelled.
	Subscribe(ctx context.Context, ownerID string) (<-chan Snapshot, error)

	// Insert stores a new task and returns its id. A task carrying an id
	// keeps it, so deleted documents can be restored under their old id.
	// CreatedAt is assigned unless already set; UpdatedAt always is.
	Insert(ctx context.Context, task model.Task) (string, error)

	// Merge writes the patch into an existing task and refreshes UpdatedAt.
	Merge(ctx context.Context, id string, patch model.Patch) error

	// Delete removes a single task. Subtasks are not cascaded.
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
