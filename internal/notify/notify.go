// Package notify delivers user-visible status messages.
package notify

import (
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/model"
)

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(n model.Notification)
}

// Func adapts a function to Notifier.
type Func func(n model.Notification)

// Notify calls f(n).
func (f Func) Notify(n model.Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(model.Notification) {})

// New builds a notification stamped with the current time.
func New(kind model.NotificationKind, message string) model.Notification {
	return model.Notification{Kind: kind, Message: message, CreatedAt: time.Now()}
}

// Success sends a success notification to n.
func Success(n Notifier, message string) {
	n.Notify(New(model.NotifySuccess, message))
}

// Info sends an informational notification to n.
func Info(n Notifier, message string) {
	n.Notify(New(model.NotifyInfo, message))
}

// Warning sends a warning notification to n.
func Warning(n Notifier, message string) {
	n.Notify(New(model.NotifyWarning, message))
}

// Error sends an error notification to n. retry offers a reload action.
func Error(n Notifier, message string, retry bool) {
	msg := New(model.NotifyError, message)
	msg.Retry = retry
	n.Notify(msg)
}

// Feed buffers notifications on a channel for a single consumer such as
// the TUI. When the buffer is full the oldest notification is dropped.
type Feed struct {
	mu gosync.Mutex
	ch chan model.Notification
}

// NewFeed returns a Feed holding up to size undelivered notifications.
func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{ch: make(chan model.Notification, size)}
}

// Notify implements Notifier.
func (f *Feed) Notify(n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		select {
		case f.ch <- n:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// C returns the receive side of the feed.
func (f *Feed) C() <-chan model.Notification {
	return f.ch
}

// Logger writes every notification to a logrus logger.
type Logger struct {
	log *logrus.Entry
}

// NewLogger returns a Notifier that logs through log.
func NewLogger(log *logrus.Logger) *Logger {
	return &Logger{log: log.WithField("component", "notify")}
}

// Notify implements Notifier.
func (l *Logger) Notify(n model.Notification) {
	entry := l.log.WithField("kind", n.Kind)
	switch n.Kind {
	case model.NotifyError:
		entry.Error(n.Message)
	case model.NotifyWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Multi fans notifications out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n model.Notification) {
		for _, x := range notifiers {
			x.Notify(n)
		}
	})
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   gosync.Mutex
	sent []model.Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// All returns the notifications received so far.
func (r *Recorder) All() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.sent...)
}

// Messages returns the text of every notification received so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Message
	}
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (model.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return model.Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}
