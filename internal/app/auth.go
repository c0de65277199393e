package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/auth"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

// FollowAuth keeps session subscribed to whoever is signed in at gate:
// signing in starts the subscription for that user, signing out or
// switching users tears the previous one down. It returns when ctx is
// done, stopping the session.
func FollowAuth(ctx context.Context, gate *auth.Gate, session *tasksync.Session, log *logrus.Logger) {
	entry := log.WithField("component", "app")
	states, unsubscribe := gate.Subscribe()
	defer unsubscribe()
	defer session.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if !st.SignedIn {
				if session.Owner() != "" {
					entry.Info("signed out, stopping session")
					session.Stop()
				}
				continue
			}
			if session.Owner() == st.Identity.UserID {
				continue
			}
			entry.WithField("user", st.Identity.UserID).Info("starting session")
			if err := session.Start(ctx, st.Identity.UserID); err != nil {
				entry.WithError(err).Error("starting session")
			}
		}
	}
}
