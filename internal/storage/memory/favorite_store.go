package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

type favoriteKey struct {
	wallet string
	symbol string
}

// FavoriteStore is an in-memory implementation of storage.FavoriteStore.
type FavoriteStore struct {
	mu   sync.RWMutex
	data map[favoriteKey]*domain.Favorite
}

// NewFavoriteStore creates a new in-memory favorite store.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{
		data: make(map[favoriteKey]*domain.Favorite),
	}
}

// Add inserts (wallet, symbol) or returns the existing row.
func (s *FavoriteStore) Add(_ context.Context, wallet, symbol string, at time.Time) (*domain.Favorite, error) {
	if wallet == "" || symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := favoriteKey{wallet: wallet, symbol: symbol}
	if f, exists := s.data[key]; exists {
		copy := *f
		return &copy, nil
	}

	f := &domain.Favorite{WalletAddress: wallet, Symbol: symbol, CreatedAt: at}
	s.data[key] = f
	copy := *f
	return &copy, nil
}

// Remove deletes (wallet, symbol) if present.
func (s *FavoriteStore) Remove(_ context.Context, wallet, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, favoriteKey{wallet: wallet, symbol: symbol})
	return nil
}

// List returns a wallet's favorites ordered by created_at ASC.
func (s *FavoriteStore) List(_ context.Context, wallet string) ([]*domain.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Favorite{}
	for key, f := range s.data {
		if key.wallet == wallet {
			copy := *f
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

var _ storage.FavoriteStore = (*FavoriteStore)(nil)
