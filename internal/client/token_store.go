package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StoredToken is a persisted bearer token and the expiry the server last reported for it.
type StoredToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenStore persists the bearer token between runs. Load returns a zero StoredToken when none is saved.
type TokenStore interface {
	Load() (StoredToken, error)
	Save(StoredToken) error
	Clear() error
}

// FileTokenStore keeps the token in a JSON file readable only by the owner.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore returns a store at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath is $XDG_CONFIG_HOME/asset-registry/token.json, falling back to ~/.config.
func DefaultTokenPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "asset-registry", "token.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "asset-registry", "token.json")
}

func (s *FileTokenStore) Load() (StoredToken, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return StoredToken{}, nil
	}
	if err != nil {
		return StoredToken{}, err
	}
	var t StoredToken
	if err := json.Unmarshal(b, &t); err != nil {
		return StoredToken{}, err
	}
	return t, nil
}

func (s *FileTokenStore) Save(t StoredToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryTokenStore keeps the token in memory only.
type MemoryTokenStore struct {
	mu sync.Mutex
	t  StoredToken
}

func (s *MemoryTokenStore) Load() (StoredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t, nil
}

func (s *MemoryTokenStore) Save(t StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = StoredToken{}
	return nil
}
