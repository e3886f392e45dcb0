package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
)

// TokenStore is the client-local persistence for the token pair. Empty
// strings mean no token is stored.
type TokenStore interface {
	Load() (accessToken, refreshToken string, err error)
	Save(accessToken, refreshToken string) error
	Clear() error
}

// MemoryTokenStore keeps the pair in process memory. Useful for tests and
// short-lived tools.
type MemoryTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, nil
}

func (s *MemoryTokenStore) Save(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.Save("", "")
}

// storedTokens is the on-disk layout of FileTokenStore. Field names are
// fixed: they double as the storage keys.
type storedTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// FileTokenStore persists the pair as a JSON file with owner-only
// permissions. A missing file reads as no tokens.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Load() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}

	var st storedTokens
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt file is treated as no session rather than a fatal
		// bootstrap failure.
		return "", "", nil
	}
	return st.AccessToken, st.RefreshToken, nil
}

func (s *FileTokenStore) Save(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedTokens{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
