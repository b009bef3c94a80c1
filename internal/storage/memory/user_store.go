package memory

import (
	"context"
	"sync"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu   sync.RWMutex
	data map[string]*domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{data: make(map[string]*domain.User)}
}

// Touch creates the user or bumps its last_seen_at.
func (s *UserStore) Touch(_ context.Context, wallet string, at time.Time) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u, exists := s.data[wallet]; exists {
		if at.After(u.LastSeenAt) {
			u.LastSeenAt = at
		}
		return nil
	}
	s.data[wallet] = &domain.User{WalletAddress: wallet, CreatedAt: at, LastSeenAt: at}
	return nil
}

// Get retrieves a user. Returns ErrNotFound if not exists.
func (s *UserStore) Get(_ context.Context, wallet string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

var _ storage.UserStore = (*UserStore)(nil)
