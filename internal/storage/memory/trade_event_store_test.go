package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

func TestTradeEventStore_InsertAndGet(t *testing.T) {
	store := NewTradeEventStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	events := []*domain.TradeEvent{
		{TradeID: "t1", WalletAddress: walletA, Kind: domain.TradeEventUpdated, Status: domain.TradeStatusConfirmed, OccurredAt: base.Add(time.Minute)},
		{TradeID: "t1", WalletAddress: walletA, Kind: domain.TradeEventCreated, Status: domain.TradeStatusPending, OccurredAt: base},
		{TradeID: "t2", WalletAddress: walletB, Kind: domain.TradeEventCreated, Status: domain.TradeStatusPending, OccurredAt: base},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTradeID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTradeID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].Kind != domain.TradeEventCreated || got[1].Kind != domain.TradeEventUpdated {
		t.Errorf("Expected created then updated, got %s then %s", got[0].Kind, got[1].Kind)
	}

	// Returned events are copies.
	got[0].Status = domain.TradeStatusFailed
	again, _ := store.GetByTradeID(ctx, "t1")
	if again[0].Status != domain.TradeStatusPending {
		t.Error("Store returned a shared pointer")
	}

	none, err := store.GetByTradeID(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no events, got %v, %v", none, err)
	}
}

func TestTradeEventStore_InvalidInput(t *testing.T) {
	store := NewTradeEventStore()
	if err := store.Insert(context.Background(), &domain.TradeEvent{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
