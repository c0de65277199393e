// Package sync mirrors a user's tasks from the document store and issues
// writes against it.
package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/ordering"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/undo"
)

// Collection is the local copy of the subscribed tasks as of the last
// push. It is replaced wholesale and never modified in place.
type Collection struct {
	Tasks      []model.Task
	ReceivedAt time.Time
}

// ChangedMsg is a tea.Msg sent when a new snapshot replaced the collection.
type ChangedMsg struct {
	Collection Collection
}

// Session owns the live subscription for one signed-in user.
type Session struct {
	store  store.DocumentStore
	undo   *undo.Buffer
	notify notify.Notifier
	log    *logrus.Entry
	now    func() time.Time

	coll    atomic.Pointer[Collection]
	online  atomic.Bool
	changes chan struct{}

	mu      gosync.Mutex
	ownerID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where status messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notify = n }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Session) { s.log = log.WithField("component", "sync") }
}

// WithClock overrides the clock used for default ordering.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithUndo shares an undo buffer with the caller.
func WithUndo(b *undo.Buffer) Option {
	return func(s *Session) { s.undo = b }
}

// New creates a Session over st. It starts online with an empty collection.
func New(st store.DocumentStore, opts ...Option) *Session {
	s := &Session{
		store:   st,
		undo:    &undo.Buffer{},
		notify:  notify.Discard,
		log:     logrus.StandardLogger().WithField("component", "sync"),
		now:     time.Now,
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coll.Store(&Collection{})
	s.online.Store(true)
	return s
}

// Start subscribes to ownerID's tasks, replacing any earlier subscription.
// Every snapshot replaces the collection and signals Changes.
func (s *Session) Start(ctx context.Context, ownerID string) error {
	s.Stop()

	subCtx, cancel := context.WithCancel(ctx)
	feed, err := s.store.Subscribe(subCtx, ownerID)
	if err != nil {
		cancel()
		s.log.WithError(err).WithField("owner", ownerID).Error("subscribing to tasks")
		notify.Error(s.notify, "Error loading tasks: "+err.Error(), true)
		return &RemoteError{Op: "subscribe", Err: err}
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.ownerID = ownerID
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.consume(feed, done)
	return nil
}

// consume applies snapshots until the feed closes.
func (s *Session) consume(feed <-chan store.Snapshot, done chan struct{}) {
	defer close(done)

	for snap := range feed {
		if snap.Err != nil {
			s.log.WithError(snap.Err).Warn("task feed error")
			notify.Error(s.notify, "Error loading tasks: "+snap.Err.Error(), true)
			continue
		}
		tasks := make([]model.Task, len(snap.Tasks))
		for i, t := range snap.Tasks {
			tasks[i] = t.Clone()
		}
		s.coll.Store(&Collection{Tasks: tasks, ReceivedAt: s.now()})
		s.signal()
	}
}

// Stop ends the subscription, clears the collection and the undo slot.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.ownerID = ""
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.undo.Clear()
	s.coll.Store(&Collection{})
	s.signal()
}

// Owner returns the subscribed owner, or "" when stopped.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// Tasks returns the current collection.
func (s *Session) Tasks() Collection {
	return *s.coll.Load()
}

// Task returns a copy of the locally known task with id.
func (s *Session) Task(id string) (model.Task, bool) {
	for _, t := range s.coll.Load().Tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Task{}, false
}

// Changes signals after the collection is replaced. Signals coalesce, so
// a reader should re-read Tasks on each receive.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// WaitForChange returns a tea.Cmd that waits for the next collection
// change. Call it again after each ChangedMsg to keep listening.
func (s *Session) WaitForChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-s.changes; !ok {
			return nil
		}
		return ChangedMsg{Collection: s.Tasks()}
	}
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Online reports whether writes are currently allowed.
func (s *Session) Online() bool {
	return s.online.Load()
}

// SetOnline records a connectivity change and notifies on transitions.
func (s *Session) SetOnline(online bool) {
	if s.online.Swap(online) == online {
		return
	}
	s.log.WithField("online", online).Info("connectivity changed")
	if online {
		notify.Success(s.notify, "You are back online")
	} else {
		notify.Warning(s.notify, "You are offline. Writes are disabled.")
	}
	s.signal()
}

// Undo reverses the last recorded operation.
func (s *Session) Undo(ctx context.Context) (undo.Outcome, error) {
	a, outcome, err := s.undo.Undo(ctx, reverter{s})
	switch outcome {
	case undo.OutcomeEmpty:
		notify.Info(s.notify, "Nothing to undo")
		return outcome, nil
	case undo.OutcomeOffline:
		notify.Warning(s.notify, "Cannot undo while offline")
		return outcome, ErrOffline
	case undo.OutcomeFailed:
		s.log.WithError(err).Error("undoing action")
		notify.Error(s.notify, "Error undoing action: "+err.Error(), true)
		return outcome, &RemoteError{Op: "undo", Err: err}
	}
	notify.Info(s.notify, undo.DescribeReverted(a))
	return outcome, nil
}

// CanUndo reports whether an action is recorded.
func (s *Session) CanUndo() bool {
	_, ok := s.undo.Peek()
	return ok
}

func (s *Session) record(a undo.Action) {
	s.undo.Record(a)
	n := notify.New(model.NotifyInfo, undo.Describe(a))
	n.Undo = true
	s.notify.Notify(n)
}

// reverter writes reversals straight to the store so they are not
// themselves recorded.
type reverter struct {
	s *Session
}

func (r reverter) Online() bool { return r.s.Online() }

func (r reverter) Insert(ctx context.Context, task model.Task) (string, error) {
	return r.s.store.Insert(ctx, task)
}

func (r reverter) Merge(ctx context.Context, id string, patch model.Patch) error {
	return r.s.store.Merge(ctx, id, patch)
}

func (r reverter) Delete(ctx context.Context, id string) error {
	return r.s.store.Delete(ctx, id)
}

// defaultOrder is the order given to tasks created without one.
func (s *Session) defaultOrder() float64 {
	return ordering.Seed(s.now())
}
