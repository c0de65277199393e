package store

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements DocumentStore on a local SQLite database. Live
// queries are served in-process: every committed write re-reads the
// affected owner's tasks and pushes them to that owner's subscribers.
type SQLiteStore struct {
	db  *sqlx.DB
	log *logrus.Entry

	// writeMu serializes writes with their snapshot publication so
	// subscribers observe snapshots in commit order.
	writeMu gosync.Mutex
	feed    *feed
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, log *logrus.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between the writer and snapshot reads.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if log == nil {
		log = logrus.New()
	}

	s := &SQLiteStore{
		db:   db,
		log:  log.WithField("component", "sqlite-store"),
		feed: newFeed(),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close ends every live query and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.feed.closeAll()
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Subscribe opens a live query over ownerID's tasks.
func (s *SQLiteStore) Subscribe(ctx context.Context, ownerID string) (<-chan Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.listTasks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("subscribing to tasks of %s: %w", ownerID, err)
	}

	ch := s.feed.add(ownerID)
	s.feed.publishTo(ownerID, ch, Snapshot{Tasks: tasks})

	go func() {
		<-ctx.Done()
		s.feed.remove(ownerID, ch)
	}()

	return ch, nil
}

// notify pushes ownerID's current tasks to its subscribers. Callers hold
// writeMu. A failed read is pushed as an error snapshot.
func (s *SQLiteStore) notify(ctx context.Context, ownerID string) {
	if !s.feed.watched(ownerID) {
		return
	}
	tasks, err := s.listTasks(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		s.log.WithError(err).WithField("owner", ownerID).Warn("snapshot read failed")
		s.feed.publish(ownerID, Snapshot{Err: err})
		return
	}
	s.feed.publish(ownerID, Snapshot{Tasks: tasks})
}
