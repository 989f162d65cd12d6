package sdk

import (
	"errors"
	"sync"
)

// ErrNoCredentials is returned by a CredentialStore that holds nothing.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the token pair that makes up an authenticated session.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether neither token is held.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// CredentialStore persists the token pair between process runs.
// Implementations write both tokens together and delete them together.
type CredentialStore interface {
	SaveCredentials(creds Credentials) error
	LoadCredentials() (Credentials, error)
	DeleteCredentials() error
}

// MemoryStore is a CredentialStore that lives only as long as the process.
type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveCredentials(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	return nil
}

func (m *MemoryStore) LoadCredentials() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds.Empty() {
		return Credentials{}, ErrNoCredentials
	}
	return m.creds, nil
}

func (m *MemoryStore) DeleteCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}
