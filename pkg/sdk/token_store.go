package sdk

import (
	"errors"
	"fmt"
	"sync"
)

// TokenStore is the single owner of the session's token pair. Every outbound
// request reads the access token from here, and every rotation, login and
// logout writes through here.
//
// Each write bumps a version counter. A refresh records the version it started
// from and commits with Rotate, which refuses the write if the session was
// cleared or replaced in the meantime.
type TokenStore struct {
	mu      sync.RWMutex
	creds   Credentials
	version uint64
	persist CredentialStore

	subMu  sync.Mutex
	subs   map[int]func(Credentials)
	nextID int
}

// NewTokenStore creates a TokenStore backed by persist and hydrates it with
// whatever pair was previously saved. A nil persist uses a MemoryStore.
func NewTokenStore(persist CredentialStore) (*TokenStore, error) {
	if persist == nil {
		persist = NewMemoryStore()
	}
	s := newTokenStore(persist)

	creds, err := persist.LoadCredentials()
	switch {
	case err == nil:
		s.creds = creds
	case errors.Is(err, ErrNoCredentials):
	default:
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return s, nil
}

func newTokenStore(persist CredentialStore) *TokenStore {
	return &TokenStore{
		persist: persist,
		subs:    make(map[int]func(Credentials)),
	}
}

// Get returns the current pair.
func (s *TokenStore) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Version returns the current write version.
func (s *TokenStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current pair together with the version it belongs to.
func (s *TokenStore) Snapshot() (Credentials, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.version
}

// Set replaces both tokens.
func (s *TokenStore) Set(access, refresh string) error {
	s.mu.Lock()
	creds := Credentials{AccessToken: access, RefreshToken: refresh}
	if err := s.persist.SaveCredentials(creds); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save credentials: %w", err)
	}
	s.creds = creds
	s.version++
	s.mu.Unlock()

	s.notify(creds)
	return nil
}

// Rotate installs a refreshed access token (and refresh token, when one was
// issued) only if no other write happened since version was observed.
// It reports whether the write was applied.
func (s *TokenStore) Rotate(version uint64, access, refresh string) (bool, error) {
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false, nil
	}
	creds := Credentials{AccessToken: access, RefreshToken: refresh}
	if creds.RefreshToken == "" {
		creds.RefreshToken = s.creds.RefreshToken
	}
	if err := s.persist.SaveCredentials(creds); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("save credentials: %w", err)
	}
	s.creds = creds
	s.version++
	s.mu.Unlock()

	s.notify(creds)
	return true, nil
}

// Clear drops both tokens from memory and from the persistent store.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.version++
	err := s.wipeLocked()
	s.mu.Unlock()

	s.notify(Credentials{})
	return err
}

// ClearIf clears the store only if no write happened since version was
// observed. It reports whether the store was cleared.
func (s *TokenStore) ClearIf(version uint64) (bool, error) {
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false, nil
	}
	s.creds = Credentials{}
	s.version++
	err := s.wipeLocked()
	s.mu.Unlock()

	s.notify(Credentials{})
	return true, err
}

// wipeLocked removes the persisted pair. When the delete fails, an empty pair
// is saved over it so the old tokens are not loaded on the next start. The
// delete error is still returned.
func (s *TokenStore) wipeLocked() error {
	err := s.persist.DeleteCredentials()
	if err == nil {
		return nil
	}
	if saveErr := s.persist.SaveCredentials(Credentials{}); saveErr != nil {
		return fmt.Errorf("delete credentials: %w", errors.Join(err, saveErr))
	}
	return fmt.Errorf("delete credentials: %w", err)
}

// Subscribe registers fn to be called after every write with the new pair.
// The returned function removes the subscription.
func (s *TokenStore) Subscribe(fn func(Credentials)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *TokenStore) notify(creds Credentials) {
	s.subMu.Lock()
	fns := make([]func(Credentials), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(creds)
	}
}
