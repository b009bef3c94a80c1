package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

const (
	walletA = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	walletB = "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj"
)

func newTestTrade(wallet string, createdAt time.Time) *domain.TradeRecord {
	return &domain.TradeRecord{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Type:          domain.TradeTypeSell,
		Symbol:        "TSLAx",
		StockName:     "Tesla xStock",
		TokenAmount:   decimal.RequireFromString("0.123456789"),
		USDCAmount:    decimal.RequireFromString("30.5"),
		PricePerToken: decimal.RequireFromString("247.050000"),
		Status:        domain.TradeStatusPending,
		CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("trade insert and get", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		trade := newTestTrade(walletA, time.Now())
		require.NoError(t, store.Insert(ctx, trade))

		got, err := store.GetForWallet(ctx, trade.ID, walletA)
		require.NoError(t, err)
		assert.Equal(t, trade.ID, got.ID)
		assert.Equal(t, domain.TradeTypeSell, got.Type)
		assert.True(t, trade.TokenAmount.Equal(got.TokenAmount), "token amount %s", got.TokenAmount)
		assert.True(t, trade.PricePerToken.Equal(got.PricePerToken))
		assert.Nil(t, got.TxSignature)
		assert.Nil(t, got.ConfirmedAt)
		assert.True(t, trade.CreatedAt.Equal(got.CreatedAt))

		err = store.Insert(ctx, trade)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("trade rejected by constraints", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		zero := newTestTrade(walletA, time.Now())
		zero.TokenAmount = decimal.Zero
		assert.ErrorIs(t, store.Insert(ctx, zero), storage.ErrInvalidInput)

		// confirmed without confirmed_at
		unstamped := newTestTrade(walletA, time.Now())
		unstamped.Status = domain.TradeStatusConfirmed
		assert.ErrorIs(t, store.Insert(ctx, unstamped), storage.ErrInvalidInput)
	})

	t.Run("trade scoped by wallet", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		trade := newTestTrade(walletA, time.Now())
		require.NoError(t, store.Insert(ctx, trade))

		_, err := store.GetForWallet(ctx, trade.ID, walletB)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.Update(ctx, trade.ID, walletB, domain.TradeStatusPending, domain.TradePatch{Status: ptr(domain.TradeStatusFailed)})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.GetForWallet(ctx, uuid.NewString(), walletA)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("trade update compare and set", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		trade := newTestTrade(walletA, time.Now())
		require.NoError(t, store.Insert(ctx, trade))

		confirmedAt := time.Now().UTC().Truncate(time.Microsecond)
		got, err := store.Update(ctx, trade.ID, walletA, domain.TradeStatusPending, domain.TradePatch{
			Status:      ptr(domain.TradeStatusConfirmed),
			TxSignature: ptr("5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"),
			ConfirmedAt: &confirmedAt,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TradeStatusConfirmed, got.Status)
		require.NotNil(t, got.ConfirmedAt)
		assert.True(t, confirmedAt.Equal(*got.ConfirmedAt))
		require.NotNil(t, got.TxSignature)

		_, err = store.Update(ctx, trade.ID, walletA, domain.TradeStatusPending, domain.TradePatch{Status: ptr(domain.TradeStatusFailed)})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("trade list order and paging", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 55; i++ {
			tr := newTestTrade(walletA, base.Add(time.Duration(i)*time.Second))
			if i%5 == 0 {
				tr.Symbol = "AAPLx"
			}
			require.NoError(t, store.Insert(ctx, tr))
		}
		require.NoError(t, store.Insert(ctx, newTestTrade(walletB, base)))

		page, err := store.List(ctx, domain.TradeFilter{WalletAddress: walletA, Limit: 50})
		require.NoError(t, err)
		require.Len(t, page, 50)
		for i := 1; i < len(page); i++ {
			assert.False(t, page[i].CreatedAt.After(page[i-1].CreatedAt), "not descending at %d", i)
		}

		rest, err := store.List(ctx, domain.TradeFilter{WalletAddress: walletA, Limit: 50, Offset: 50})
		require.NoError(t, err)
		assert.Len(t, rest, 5)

		apple, err := store.List(ctx, domain.TradeFilter{WalletAddress: walletA, Symbol: "AAPLx", Limit: 50})
		require.NoError(t, err)
		assert.Len(t, apple, 11)

		upper, err := store.List(ctx, domain.TradeFilter{WalletAddress: walletA, Symbol: "AAPLX", Limit: 50})
		require.NoError(t, err)
		assert.Len(t, upper, 11, "symbol filter ignores case")
	})

	t.Run("pending with signature", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewTradeStore(pool)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			tr := newTestTrade(walletA, base.Add(time.Duration(i)*time.Minute))
			tr.TxSignature = ptr(fmt.Sprintf("sig-%d", i))
			require.NoError(t, store.Insert(ctx, tr))
		}
		require.NoError(t, store.Insert(ctx, newTestTrade(walletA, base)))

		got, err := store.ListPendingWithSignature(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "sig-0", *got[0].TxSignature)
		assert.Equal(t, "sig-1", *got[1].TxSignature)
	})

	t.Run("favorites idempotent", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewFavoriteStore(pool)

		first, err := store.Add(ctx, walletA, "AAPLX", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		second, err := store.Add(ctx, walletA, "AAPLX", time.Now())
		require.NoError(t, err)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

		_, err = store.Add(ctx, walletA, "NVDAX", time.Now())
		require.NoError(t, err)
		_, err = store.Add(ctx, walletB, "AAPLX", time.Now())
		require.NoError(t, err)

		list, err := store.List(ctx, walletA)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "AAPLX", list[0].Symbol)

		require.NoError(t, store.Remove(ctx, walletA, "AAPLX"))
		require.NoError(t, store.Remove(ctx, walletA, "AAPLX"))
		list, err = store.List(ctx, walletA)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("users touch", func(t *testing.T) {
		truncateAll(t, ctx, pool)
		store := NewUserStore(pool)

		_, err := store.Get(ctx, walletA)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		first := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
		later := first.Add(30 * time.Minute)
		require.NoError(t, store.Touch(ctx, walletA, first))
		require.NoError(t, store.Touch(ctx, walletA, later))
		require.NoError(t, store.Touch(ctx, walletA, first))

		u, err := store.Get(ctx, walletA)
		require.NoError(t, err)
		assert.True(t, first.Equal(u.CreatedAt))
		assert.True(t, later.Equal(u.LastSeenAt))
	})
}
