package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/store"
)

// pingTimeout bounds a single connectivity check.
const pingTimeout = 5 * time.Second

// Monitor pings the store periodically and reports connectivity to a
// Session.
type Monitor struct {
	pinger   store.Pinger
	session  *Session
	interval time.Duration
	log      *logrus.Entry
}

// NewMonitor creates a Monitor. A non-positive interval defaults to 15s.
func NewMonitor(p store.Pinger, s *Session, interval time.Duration, log *logrus.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Monitor{
		pinger:   p,
		session:  s,
		interval: interval,
		log:      log.WithField("component", "monitor"),
	}
}

// Run checks connectivity immediately and then every interval until ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check pings the store once and updates the session.
func (m *Monitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := m.pinger.Ping(pingCtx)
	if err != nil && ctx.Err() != nil {
		return m.session.Online()
	}
	if err != nil {
		m.log.WithError(err).Debug("store unreachable")
	}
	m.session.SetOnline(err == nil)
	return err == nil
}
