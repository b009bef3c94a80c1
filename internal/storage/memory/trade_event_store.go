package memory

import (
	"context"
	"sort"
	"sync"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
// Append-only.
type TradeEventStore struct {
	mu     sync.RWMutex
	events []*domain.TradeEvent
}

// NewTradeEventStore creates a new in-memory trade event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{}
}

// Insert appends an event.
func (s *TradeEventStore) Insert(_ context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.events = append(s.events, &copy)
	return nil
}

// GetByTradeID retrieves a trade's events ordered by occurred_at ASC.
func (s *TradeEventStore) GetByTradeID(_ context.Context, tradeID string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.events {
		if e.TradeID == tradeID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, nil
}

var _ storage.TradeEventStore = (*TradeEventStore)(nil)
