package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/credential"
	"github.com/nhle/taskflow/internal/logging"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/store"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

// loadTimeout bounds the wait for the first snapshot in one-shot commands.
const loadTimeout = 10 * time.Second

// env is the wired runtime shared by every command: configuration, the
// logger, the account store, the task store and the auth provider.
type env struct {
	cfgPath string
	cfg     *model.AppConfig
	log     *logrus.Logger

	users    *store.SQLiteStore
	tasks    store.DocumentStore
	pinger   store.Pinger
	provider *auth.LocalProvider
	tokens   *credential.SessionStore

	closers []func() error
}

// openEnv loads the configuration and opens the stores it names. A missing
// token secret is generated and written back to the config file.
func openEnv(ctx context.Context, o *options) (*env, error) {
	cfg, err := model.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if o.logToFile && logCfg.File == "" {
		logCfg.File = filepath.Join(model.DefaultConfigDir(), "taskflow.log")
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	e := &env{cfgPath: o.configPath, cfg: cfg, log: log}

	if cfg.Auth.TokenSecret == "" {
		cfg.Auth.TokenSecret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		if err := model.SaveConfig(o.configPath, cfg); err != nil {
			return nil, fmt.Errorf("saving generated token secret: %w", err)
		}
		log.WithField("config", o.configPath).Info("generated token secret")
	}

	if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	users, err := store.NewSQLiteStore(cfg.Store.SQLitePath, log)
	if err != nil {
		return nil, err
	}
	e.users = users
	e.closers = append(e.closers, users.Close)
	e.tasks = users
	e.pinger = users

	if cfg.Store.Backend == model.BackendMongo {
		mongo, err := store.NewMongoStore(ctx, cfg.Store, log)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, mongo.Close)
		if err := mongo.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("creating mongodb indexes")
		}
		e.tasks = mongo
		e.pinger = mongo
	}

	provider, err := auth.NewLocalProvider(users, cfg.Auth)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.provider = provider

	ring, err := o.openKeyring()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.tokens = credential.NewSessionStore(ring)

	return e, nil
}

// Close releases the stores in reverse order of opening.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.WithError(err).Warn("closing store")
		}
	}
	e.closers = nil
}

// gate returns an auth gate over the provider and the keyring.
func (e *env) gate(n notify.Notifier) *auth.Gate {
	return auth.NewGate(e.provider, e.tokens, n, e.log)
}

// session returns a sync session over the task store.
func (e *env) session(n notify.Notifier) *tasksync.Session {
	return tasksync.New(e.tasks, tasksync.WithNotifier(n), tasksync.WithLogger(e.log))
}

// controller wires a controller whose theme changes are saved to the
// config file.
func (e *env) controller(session *tasksync.Session, n notify.Notifier) *app.Controller {
	return app.NewController(session,
		app.WithNotifier(n),
		app.WithLogger(e.log),
		app.WithInitialState(app.ParseView(e.cfg.Display.DefaultView), app.ParseTheme(e.cfg.Display.Theme)),
		app.WithPreferences(func(th app.Theme) error {
			e.cfg.Display.Theme = string(th)
			return model.SaveConfig(e.cfgPath, e.cfg)
		}),
	)
}

// signedIn restores the saved session token. It fails when nobody is
// signed in.
func (e *env) signedIn(ctx context.Context, gate *auth.Gate) (auth.Identity, error) {
	st, err := gate.Restore(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if !st.SignedIn {
		return auth.Identity{}, errNotSignedIn
	}
	return st.Identity, nil
}

// startSession subscribes session to owner and waits for the first
// snapshot.
func startSession(ctx context.Context, session *tasksync.Session, owner string) error {
	changes := session.Changes()
	if err := session.Start(ctx, owner); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	select {
	case <-changes:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for tasks: %w", ctx.Err())
	}
}

func defaultKeyring() (keyring.Keyring, error) {
	return credential.Open()
}
