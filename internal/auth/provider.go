// Package auth signs users in and tracks the current session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// Identity is an authenticated user.
type Identity struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Provider authenticates users. Failures are returned as *Error.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, id Identity) error
	ChangePassword(ctx context.Context, id Identity, oldPassword, newPassword string) error
	Restore(ctx context.Context, token string) (Identity, error)
}

// UserStore is the account storage used by LocalProvider.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

const (
	minPasswordLength = 6
	maxFailures       = 5
	lockout           = 5 * time.Minute
)

// Claims are the session token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type attempts struct {
	failures    int
	lockedUntil time.Time
}

// LocalProvider authenticates against accounts in a UserStore and issues
// HMAC-signed session tokens.
type LocalProvider struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int

	mu       gosync.Mutex
	attempts map[string]*attempts
}

// NewLocalProvider creates a provider. secret signs session tokens.
func NewLocalProvider(users UserStore, cfg model.AuthConfig) (*LocalProvider, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("auth token secret must not be empty")
	}
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &LocalProvider{
		users:    users,
		secret:   []byte(cfg.TokenSecret),
		ttl:      ttl,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
		attempts: make(map[string]*attempts),
	}, nil
}

// SignUp creates an account and signs it in.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if !govalidator.IsEmail(email) {
		return Identity{}, newError(CodeInvalidEmail, nil)
	}
	if len(password) < minPasswordLength {
		return Identity{}, newError(CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := p.users.CreateUser(ctx, model.User{Email: email, PasswordHash: string(hash)})
	if errors.Is(err, store.ErrDuplicateEmail) {
		return Identity{}, newError(CodeEmailInUse, err)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("creating account: %w", err)
	}

	return p.issue(user)
}

// SignIn verifies credentials. Repeated failures for an e-mail lock it
// out for a few minutes.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if !govalidator.IsEmail(email) {
		return Identity{}, newError(CodeInvalidEmail, nil)
	}
	if p.lockedOut(email) {
		return Identity{}, newError(CodeTooManyRequests, nil)
	}

	user, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		p.fail(email)
		return Identity{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("looking up account: %w", err)
	}
	if user.Disabled {
		return Identity{}, newError(CodeUserDisabled, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		p.fail(email)
		return Identity{}, newError(CodeWrongPassword, err)
	}

	p.reset(email)
	return p.issue(*user)
}

// SignOut is a no-op: tokens are self-contained and simply discarded.
func (p *LocalProvider) SignOut(context.Context, Identity) error {
	return nil
}

// ChangePassword replaces the password of id after verifying the old one.
func (p *LocalProvider) ChangePassword(ctx context.Context, id Identity, oldPassword, newPassword string) error {
	user, err := p.users.GetUserByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(CodeUserNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("looking up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return newError(CodeWrongPassword, err)
	}
	if len(newPassword) < minPasswordLength {
		return newError(CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := p.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// Restore validates a saved token and reloads its account.
func (p *LocalProvider) Restore(ctx context.Context, token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, newError(CodeInvalidCredential, err)
	}

	user, err := p.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("looking up account: %w", err)
	}
	if user.Disabled {
		return Identity{}, newError(CodeUserDisabled, nil)
	}

	return Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (p *LocalProvider) issue(user model.User) (Identity, error) {
	now := p.now()
	expires := now.Add(p.ttl)
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Identity{}, fmt.Errorf("signing session token: %w", err)
	}
	return Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

func (p *LocalProvider) lockedOut(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[email]
	return ok && p.now().Before(a.lockedUntil)
}

func (p *LocalProvider) fail(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.attempts[email]
	if !ok {
		a = &attempts{}
		p.attempts[email] = a
	}
	a.failures++
	if a.failures >= maxFailures {
		a.failures = 0
		a.lockedUntil = p.now().Add(lockout)
	}
}

func (p *LocalProvider) reset(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
