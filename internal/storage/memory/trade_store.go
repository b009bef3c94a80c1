package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

func cloneTrade(t *domain.TradeRecord) *domain.TradeRecord {
	c := *t
	if t.TxSignature != nil {
		sig := *t.TxSignature
		c.TxSignature = &sig
	}
	if t.ConfirmedAt != nil {
		at := *t.ConfirmedAt
		c.ConfirmedAt = &at
	}
	return &c
}

// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.ID == "" || t.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.ID] = cloneTrade(t)
	return nil
}

// GetForWallet retrieves a trade owned by wallet. Returns ErrNotFound otherwise.
func (s *TradeStore) GetForWallet(_ context.Context, id, wallet string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[id]
	if !exists || t.WalletAddress != wallet {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(t), nil
}

// Update applies patch if the trade still has the expected status.
func (s *TradeStore) Update(_ context.Context, id, wallet string, expected domain.TradeStatus, patch domain.TradePatch) (*domain.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[id]
	if !exists || t.WalletAddress != wallet {
		return nil, storage.ErrNotFound
	}
	if t.Status != expected {
		return nil, storage.ErrConflict
	}

	next := cloneTrade(t)
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.TxSignature != nil {
		sig := *patch.TxSignature
		next.TxSignature = &sig
	}
	if patch.ConfirmedAt != nil {
		at := *patch.ConfirmedAt
		next.ConfirmedAt = &at
	}
	s.data[id] = next

	return cloneTrade(next), nil
}

// List returns a page of a wallet's trades ordered by created_at DESC.
func (s *TradeStore) List(_ context.Context, filter domain.TradeFilter) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.WalletAddress != filter.WalletAddress {
			continue
		}
		if filter.Symbol != "" && !strings.EqualFold(t.Symbol, filter.Symbol) {
			continue
		}
		result = append(result, cloneTrade(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return page(result, filter.Offset, filter.Limit), nil
}

// ListPendingWithSignature returns up to limit pending trades with a signature, oldest first.
func (s *TradeStore) ListPendingWithSignature(_ context.Context, limit int) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.Status == domain.TradeStatusPending && t.TxSignature != nil && *t.TxSignature != "" {
			result = append(result, cloneTrade(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return page(result, 0, limit), nil
}

// page slices items[offset:offset+limit]. A non-positive limit means no limit.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ storage.TradeStore = (*TradeStore)(nil)
