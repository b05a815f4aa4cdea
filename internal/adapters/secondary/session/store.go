package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/ports"
)

var (
	_ ports.CredentialStore = (*FileStore)(nil)
	_ ports.CredentialStore = (*MemoryStore)(nil)
)

// FileStore keeps the credential in a JSON file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored credential, or a zero credential when none is
// stored.
func (s *FileStore) Load() (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Credential{}, nil
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("read credential: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

// Save replaces the stored credential.
func (s *FileStore) Save(cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Clear removes the stored credential. Clearing an empty store succeeds.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// MemoryStore keeps the credential in memory.
type MemoryStore struct {
	mu   sync.Mutex
	cred domain.Credential
}

// NewMemoryStore creates a store holding cred.
func NewMemoryStore(cred domain.Credential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

func (s *MemoryStore) Load() (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, nil
}

func (s *MemoryStore) Save(cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = domain.Credential{}
	return nil
}
