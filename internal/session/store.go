package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredentials means the store holds nothing for the slot.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is what survives between runs: the auth token and the
// identity it was minted for.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Store persists credentials in a key-value store. Credential storage is
// delegated here; the session context never touches the backing store
// directly.
type Store interface {
	Save(ctx context.Context, cred Credentials) error
	Load(ctx context.Context) (Credentials, error)
	Delete(ctx context.Context) error
}

// MemoryStore is the in-process Store, used in tests and as the CLI
// fallback when Redis is unreachable.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credentials
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, cred Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return Credentials{}, ErrNoCredentials
	}
	return *s.cred, nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
