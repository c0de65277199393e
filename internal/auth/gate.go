package auth

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/notify"
)

// State is the current authentication state.
type State struct {
	SignedIn bool
	Identity Identity
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Gate tracks the signed-in user and publishes every state change.
type Gate struct {
	provider Provider
	tokens   TokenStore
	notify   notify.Notifier
	log      *logrus.Entry

	mu    gosync.Mutex
	state State
	subs  map[chan State]struct{}
}

// NewGate creates a signed-out Gate.
func NewGate(p Provider, tokens TokenStore, n notify.Notifier, log *logrus.Logger) *Gate {
	if n == nil {
		n = notify.Discard
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{
		provider: p,
		tokens:   tokens,
		notify:   n,
		log:      log.WithField("component", "auth"),
		subs:     make(map[chan State]struct{}),
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe returns a channel that receives the current state and then
// every change. Unread states are replaced by newer ones. Call the
// returned func to unsubscribe.
func (g *Gate) Subscribe() (<-chan State, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch := make(chan State, 1)
	ch <- g.state
	g.subs[ch] = struct{}{}

	var once gosync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.subs, ch)
			close(ch)
		})
	}
}

// Restore signs in with a saved token, if any. An unusable token is
// discarded and leaves the gate signed out without an error.
func (g *Gate) Restore(ctx context.Context) (State, error) {
	token, err := g.tokens.Load()
	if err != nil {
		return g.State(), fmt.Errorf("loading session token: %w", err)
	}
	if token == "" {
		return g.State(), nil
	}

	id, err := g.provider.Restore(ctx, token)
	if err != nil {
		g.log.WithError(err).Info("discarding saved session")
		if clearErr := g.tokens.Clear(); clearErr != nil {
			g.log.WithError(clearErr).Warn("clearing session token")
		}
		return g.State(), nil
	}

	g.set(State{SignedIn: true, Identity: id})
	return g.State(), nil
}

// SignIn authenticates and persists the session.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	id, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.log.WithError(err).WithField("code", CodeOf(err)).Info("sign-in failed")
		return err
	}
	g.establish(id)
	return nil
}

// SignUp creates an account, signs it in and persists the session.
func (g *Gate) SignUp(ctx context.Context, email, password string) error {
	id, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		g.log.WithError(err).WithField("code", CodeOf(err)).Info("sign-up failed")
		return err
	}
	g.establish(id)
	notify.Success(g.notify, "Account created successfully!")
	return nil
}

// SignOut ends the session and forgets the saved token.
func (g *Gate) SignOut(ctx context.Context) error {
	current := g.State()
	if err := g.provider.SignOut(ctx, current.Identity); err != nil {
		notify.Error(g.notify, "Error signing out: "+err.Error(), false)
		return fmt.Errorf("signing out: %w", err)
	}
	if err := g.tokens.Clear(); err != nil {
		g.log.WithError(err).Warn("clearing session token")
	}
	g.set(State{})
	notify.Info(g.notify, "Signed out successfully")
	return nil
}

// ChangePassword updates the signed-in user's password.
func (g *Gate) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	current := g.State()
	if !current.SignedIn {
		return newError(CodeInvalidCredential, nil)
	}
	if err := g.provider.ChangePassword(ctx, current.Identity, oldPassword, newPassword); err != nil {
		return err
	}
	notify.Success(g.notify, "Password updated")
	return nil
}

func (g *Gate) establish(id Identity) {
	if err := g.tokens.Save(id.Token); err != nil {
		g.log.WithError(err).Warn("saving session token")
	}
	g.set(State{SignedIn: true, Identity: id})
}

func (g *Gate) set(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = s
	for ch := range g.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
