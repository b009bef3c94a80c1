package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-stock-swap/internal/storage"
)

func TestFavoriteStore_AddIsIdempotent(t *testing.T) {
	store := NewFavoriteStore()
	ctx := context.Background()

	first, err := store.Add(ctx, walletA, "AAPLX", time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	second, err := store.Add(ctx, walletA, "AAPLX", time.Unix(2000, 0))
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("re-adding changed created_at: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	list, _ := store.List(ctx, walletA)
	if len(list) != 1 {
		t.Errorf("expected 1 favorite, got %d", len(list))
	}
}

func TestFavoriteStore_RemoveAndScope(t *testing.T) {
	store := NewFavoriteStore()
	ctx := context.Background()

	_, _ = store.Add(ctx, walletA, "AAPLX", time.Unix(1000, 0))
	_, _ = store.Add(ctx, walletA, "TSLAX", time.Unix(1001, 0))
	_, _ = store.Add(ctx, walletB, "AAPLX", time.Unix(1002, 0))

	if err := store.Remove(ctx, walletA, "AAPLX"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, walletA, "AAPLX"); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}

	list, _ := store.List(ctx, walletA)
	if len(list) != 1 || list[0].Symbol != "TSLAX" {
		t.Errorf("unexpected favorites for walletA: %+v", list)
	}
	other, _ := store.List(ctx, walletB)
	if len(other) != 1 {
		t.Errorf("walletB favorites affected: %+v", other)
	}
}

func TestFavoriteStore_InvalidInput(t *testing.T) {
	store := NewFavoriteStore()
	if _, err := store.Add(context.Background(), "", "AAPLX", time.Now()); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestUserStore_Touch(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, walletA); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_ = store.Touch(ctx, walletA, time.Unix(1000, 0))
	_ = store.Touch(ctx, walletA, time.Unix(3000, 0))
	_ = store.Touch(ctx, walletA, time.Unix(2000, 0))

	u, err := store.Get(ctx, walletA)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.CreatedAt.Unix() != 1000 || u.LastSeenAt.Unix() != 3000 {
		t.Errorf("unexpected timestamps: %+v", u)
	}
}
