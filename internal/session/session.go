// Package session keeps the client's authenticated state: the access and
// refresh tokens, the signed-in user and the branch being worked in.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/trgovina/internal/model"
)

// Tokens is an access / refresh token pair.
type Tokens struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenStore is where the API client reads and rotates tokens.
type TokenStore interface {
	Tokens() Tokens
	SetTokens(Tokens) error
	SetAccess(access string) error
	Clear() error
}

type data struct {
	Tokens
	User     *model.Me `json:"user,omitempty"`
	BranchID int64     `json:"branch_id,omitempty"`
}

// Store is a TokenStore that also tracks the signed-in user and active
// branch. With a path it persists every change to disk; without one it is
// an in-memory cache.
type Store struct {
	mu   sync.RWMutex
	path string
	data data
}

var _ TokenStore = (*Store)(nil)

// NewMemoryStore returns a store that is never written to disk.
func NewMemoryStore() *Store {
	return &Store{}
}

// DefaultPath returns the session file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config dir: %w", err)
	}
	return filepath.Join(dir, "trgovina", "session.json"), nil
}

// OpenFileStore loads the session file at path. A missing or unreadable
// file yields a logged-out store.
func OpenFileStore(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	// A corrupt file is treated as logged out.
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = data{}
	}
	return s, nil
}

// Path returns the backing file, or "" for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Tokens returns the current tokens.
func (s *Store) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Tokens
}

// SetTokens replaces both tokens.
func (s *Store) SetTokens(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Tokens = t
	return s.saveLocked()
}

// SetAccess replaces the access token and keeps the refresh token.
func (s *Store) SetAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Access = access
	return s.saveLocked()
}

// LoggedIn reports whether a refresh token is held.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Refresh != ""
}

// User returns the signed-in user, or nil.
func (s *Store) User() *model.Me {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User
}

// SetUser records the signed-in user. The active branch defaults to the
// user's home branch when none is selected.
func (s *Store) SetUser(me *model.Me) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.User = me
	if s.data.BranchID == 0 && me != nil && me.BranchID != nil {
		s.data.BranchID = *me.BranchID
	}
	return s.saveLocked()
}

// BranchID returns the active branch, or 0.
func (s *Store) BranchID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.BranchID
}

// SetBranch selects the active branch.
func (s *Store) SetBranch(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.BranchID = id
	return s.saveLocked()
}

// Clear forgets everything and removes the session file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// AccessExpiry reads the exp claim of a token without verifying it.
func AccessExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
