// Package credstore persists wireless credentials for the reference stack.
//
// The provisioning module itself owns no persistence format; credential
// storage belongs to the stack side of the integration boundary. This
// package is the reference stack's implementation of it: a small versioned
// JSON file written atomically so a crash mid-save never leaves a device
// half-provisioned.
package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

// StoreVersion is the current version of the credentials file format.
const StoreVersion = 1

// StoredCredentials is the on-disk shape of provisioned credentials.
type StoredCredentials struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the credentials were stored.
	SavedAt time.Time `json:"saved_at"`

	// Credentials are the provisioned wireless credentials.
	Credentials netstack.Credentials `json:"credentials"`
}

// FileStore manages persistence of wireless credentials to a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a new credential store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save persists the credentials to disk, replacing any previous set.
// The write goes through a temp file and rename so readers never observe
// a partially written file.
func (s *FileStore) Save(creds netstack.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	stored := StoredCredentials{
		Version:     StoreVersion,
		SavedAt:     time.Now(),
		Credentials: creds,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the stored credentials from disk.
// Returns netstack.ErrNoCredentials if none have been stored.
func (s *FileStore) Load() (netstack.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return netstack.Credentials{}, netstack.ErrNoCredentials
	}
	if err != nil {
		return netstack.Credentials{}, err
	}

	var stored StoredCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		return netstack.Credentials{}, err
	}

	return stored.Credentials, nil
}

// Exists reports whether credentials have been stored.
func (s *FileStore) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the stored credentials.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
