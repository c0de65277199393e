// Package storetest provides an in-memory DocumentStore for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// Fake is an in-memory store.DocumentStore that counts calls and pushes a
// snapshot to subscribers after every write, like the real backends.
type Fake struct {
	mu    sync.Mutex
	tasks map[string]model.Task
	subs  map[string]map[chan store.Snapshot]struct{}
	seq   int

	inserts    int
	merges     int
	deletes    int
	subscribes int

	writeErr error
	pingErr  error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		tasks: make(map[string]model.Task),
		subs:  make(map[string]map[chan store.Snapshot]struct{}),
	}
}

// Seed stores tasks directly, bypassing counters and subscribers.
func (f *Fake) Seed(tasks ...model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.tasks[t.ID] = t.Clone()
	}
}

// FailWrites makes every later Insert, Merge and Delete return err.
// A nil err restores normal behaviour.
func (f *Fake) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// FailPing makes Ping return err.
func (f *Fake) FailPing(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

// Writes returns the total number of Insert, Merge and Delete calls.
func (f *Fake) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts + f.merges + f.deletes
}

// Inserts returns the number of Insert calls.
func (f *Fake) Inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

// Merges returns the number of Merge calls.
func (f *Fake) Merges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merges
}

// Deletes returns the number of Delete calls.
func (f *Fake) Deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

// Subscriptions returns the number of Subscribe calls.
func (f *Fake) Subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

// Get returns the stored task with id.
func (f *Fake) Get(id string) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t.Clone(), ok
}

// Len returns the number of stored tasks.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// Ping implements store.Pinger.
func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

// Subscribe implements store.DocumentStore.
func (f *Fake) Subscribe(ctx context.Context, ownerID string) (<-chan store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribes++
	ch := make(chan store.Snapshot, 1)
	if f.subs[ownerID] == nil {
		f.subs[ownerID] = make(map[chan store.Snapshot]struct{})
	}
	f.subs[ownerID][ch] = struct{}{}
	ch <- store.Snapshot{Tasks: f.ownedLocked(ownerID)}

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ownerID][ch]; ok {
			delete(f.subs[ownerID], ch)
			close(ch)
		}
	}()

	return ch, nil
}

// Insert implements store.DocumentStore.
func (f *Fake) Insert(_ context.Context, task model.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts++
	if f.writeErr != nil {
		return "", f.writeErr
	}
	if task.ID == "" {
		f.seq++
		task.ID = fmt.Sprintf("task-%d", f.seq)
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	f.tasks[task.ID] = task.Clone()

	f.publishLocked(task.OwnerID)
	return task.ID, nil
}

// Merge implements store.DocumentStore.
func (f *Fake) Merge(_ context.Context, id string, patch model.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.merges++
	if f.writeErr != nil {
		return f.writeErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	t = patch.Apply(t)
	t.UpdatedAt = time.Now().UTC()
	f.tasks[id] = t

	f.publishLocked(t.OwnerID)
	return nil
}

// Delete implements store.DocumentStore.
func (f *Fake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes++
	if f.writeErr != nil {
		return f.writeErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	delete(f.tasks, id)

	f.publishLocked(t.OwnerID)
	return nil
}

func (f *Fake) ownedLocked(ownerID string) []model.Task {
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *Fake) publishLocked(ownerID string) {
	if len(f.subs[ownerID]) == 0 {
		return
	}
	snap := store.Snapshot{Tasks: f.ownedLocked(ownerID)}
	for ch := range f.subs[ownerID] {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

var (
	_ store.DocumentStore = (*Fake)(nil)
	_ store.Pinger        = (*Fake)(nil)
)
