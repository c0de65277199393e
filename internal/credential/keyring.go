package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskflow"

// sessionKey is the keyring entry holding the signed-in session token.
const sessionKey = "session-token"

// Open returns the system keyring, falling back to an encrypted file.
func Open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskflow/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskflow-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// SessionStore persists the session token in a keyring so a restart can
// restore the signed-in user.
type SessionStore struct {
	ring keyring.Keyring
}

// NewSessionStore wraps ring.
func NewSessionStore(ring keyring.Keyring) *SessionStore {
	return &SessionStore{ring: ring}
}

// Load returns the saved token, or "" when none is saved.
func (s *SessionStore) Load() (string, error) {
	item, err := s.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", sessionKey, err)
	}
	return string(item.Data), nil
}

// Save stores token, replacing any earlier one.
func (s *SessionStore) Save(token string) error {
	err := s.ring.Set(keyring.Item{
		Key:   sessionKey,
		Data:  []byte(token),
		Label: "taskflow session",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", sessionKey, err)
	}
	return nil
}

// Clear removes the saved token. Clearing when nothing is saved is not
// an error.
func (s *SessionStore) Clear() error {
	err := s.ring.Remove(sessionKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", sessionKey, err)
	}
	return nil
}
