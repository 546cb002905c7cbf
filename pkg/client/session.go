package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// sessionFileName is the fixed storage key for the persisted session.
const sessionFileName = "margay_session.json"

// SessionStore persists the authenticated session to a JSON file. All reads
// and writes go through the store's mutex, so concurrent request goroutines
// always observe a consistent session.
type SessionStore struct {
	mu      sync.Mutex
	path    string
	session *Session
}

// NewSessionStore opens (or creates) a session store rooted at dir. An
// existing session file is loaded; a missing one means logged out.
func NewSessionStore(dir string) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	s := &SessionStore{path: filepath.Join(dir, sessionFileName)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt session file is treated as logged out rather than
		// making the client unusable.
		return s, nil
	}
	s.session = &sess
	return s, nil
}

// Current returns a copy of the stored session, or nil when logged out.
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// Token returns the access token, or "" when logged out.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// Set replaces the stored session and persists it.
func (s *SessionStore) Set(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
	data, err := json.MarshalIndent(&sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// SetToken updates only the access token, keeping the rest of the session.
// It is a no-op when logged out.
func (s *SessionStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	s.session.Token = token
	data, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Clear drops the session and removes the persisted file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
