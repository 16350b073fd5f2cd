// Package authtest provides in-memory collaborator implementations for
// testing code built on the auth package.
package authtest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/supportal/cognitoauth/auth"
	"github.com/supportal/cognitoauth/keyset"
)

// UserStore is an in-memory auth.UserStore keyed by username.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserStore builds a store holding the given users.
func NewUserStore(users ...*auth.User) *UserStore {
	s := &UserStore{users: make(map[string]*auth.User)}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

// Add inserts or replaces a user.
func (s *UserStore) Add(u *auth.User) {
	s.mu.Lock()
	s.users[u.Username] = u
	s.mu.Unlock()
}

func (s *UserStore) GetByNaturalKey(ctx context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

// APIKeyStore is an in-memory auth.APIKeyStore keyed by client id.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*auth.APIKey
}

// NewAPIKeyStore builds a store holding the given keys.
func NewAPIKeyStore(keys ...*auth.APIKey) *APIKeyStore {
	s := &APIKeyStore{keys: make(map[string]*auth.APIKey)}
	for _, k := range keys {
		s.keys[k.ClientID] = k
	}
	return s
}

// Add inserts or replaces a key record.
func (s *APIKeyStore) Add(k *auth.APIKey) {
	s.mu.Lock()
	s.keys[k.ClientID] = k
	s.mu.Unlock()
}

func (s *APIKeyStore) Get(ctx context.Context, clientID string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[clientID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return k, nil
}

// LoginRecorder is an auth.LoginSink that records every notification.
type LoginRecorder struct {
	mu    sync.Mutex
	users []*auth.User
}

func (r *LoginRecorder) LoginObserved(ctx context.Context, user *auth.User) {
	r.mu.Lock()
	r.users = append(r.users, user)
	r.mu.Unlock()
}

// Count returns how many notifications have been observed.
func (r *LoginRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Users returns a copy of the observed users in order.
func (r *LoginRecorder) Users() []*auth.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*auth.User(nil), r.users...)
}

// StaticKeySource serves a fixed key set snapshot and counts calls, for
// asserting that verification never forces a refresh.
type StaticKeySource struct {
	Set *keyset.Set
	Err error

	calls atomic.Int64
}

func (s *StaticKeySource) Keys(ctx context.Context) (*keyset.Set, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Set, nil
}

// Calls returns how many times Keys was invoked.
func (s *StaticKeySource) Calls() int64 { return s.calls.Load() }
