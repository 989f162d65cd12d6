package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

const (
	credentialsFile = "credentials.json"
	scopeFile       = "scope.json"
)

// DefaultDir returns ~/.cvctl.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".cvctl"), nil
}

// FileStore implements sdk.CredentialStore using a JSON file.
type FileStore struct {
	path string
}

var _ sdk.CredentialStore = (*FileStore)(nil)

// NewFileStore creates a FileStore under ~/.cvctl.
func NewFileStore() (*FileStore, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewFileStoreAt(dir)
}

// NewFileStoreAt creates a FileStore under dir, creating dir if needed.
func NewFileStoreAt(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, credentialsFile)}, nil
}

// Path returns the credentials file location.
func (s *FileStore) Path() string { return s.path }

// SaveCredentials writes both tokens together.
func (s *FileStore) SaveCredentials(creds sdk.Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// LoadCredentials returns sdk.ErrNoCredentials when nothing is stored.
func (s *FileStore) LoadCredentials() (sdk.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sdk.Credentials{}, sdk.ErrNoCredentials
		}
		return sdk.Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds sdk.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return sdk.Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	if creds.Empty() {
		return sdk.Credentials{}, sdk.ErrNoCredentials
	}
	return creds, nil
}

// DeleteCredentials removes the credentials file. A missing file is not an error.
func (s *FileStore) DeleteCredentials() error {
	return removeIfExists(s.path)
}

// ScopeStore remembers the active role between invocations.
type ScopeStore struct {
	path string
}

type scopeRecord struct {
	ActiveRole string `json:"active_role"`
}

// NewScopeStoreAt creates a ScopeStore under dir, creating dir if needed.
func NewScopeStoreAt(dir string) (*ScopeStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &ScopeStore{path: filepath.Join(dir, scopeFile)}, nil
}

// Save records role as the active role.
func (s *ScopeStore) Save(role string) error {
	data, err := json.Marshal(scopeRecord{ActiveRole: role})
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// Load returns the remembered role, or "" when none is stored.
func (s *ScopeStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read scope file: %w", err)
	}
	var rec scopeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("failed to unmarshal scope file: %w", err)
	}
	return rec.ActiveRole, nil
}

// Delete forgets the active role.
func (s *ScopeStore) Delete() error {
	return removeIfExists(s.path)
}

// writeFileAtomic replaces path so a crash never leaves half a token pair.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
