package storage

import (
	"context"
	"time"

	"solana-stock-swap/internal/domain"
)

// TradeStore provides access to trades storage.
// Every read and write of a single record is scoped by wallet.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetForWallet retrieves a trade owned by wallet. Returns ErrNotFound otherwise.
	GetForWallet(ctx context.Context, id, wallet string) (*domain.TradeRecord, error)

	// Update applies patch to the trade (id, wallet) only if its status is still
	// expected. Returns ErrNotFound if no such trade exists and ErrConflict if
	// the status changed underneath the caller.
	Update(ctx context.Context, id, wallet string, expected domain.TradeStatus, patch domain.TradePatch) (*domain.TradeRecord, error)

	// List returns a page of a wallet's trades ordered by created_at DESC.
	// The symbol filter ignores case.
	List(ctx context.Context, filter domain.TradeFilter) ([]*domain.TradeRecord, error)

	// ListPendingWithSignature returns up to limit pending trades carrying a
	// transaction signature, oldest first.
	ListPendingWithSignature(ctx context.Context, limit int) ([]*domain.TradeRecord, error)
}

// FavoriteStore provides access to favorites storage.
type FavoriteStore interface {
	// Add inserts (wallet, symbol). Adding an existing pair returns the stored row.
	Add(ctx context.Context, wallet, symbol string, at time.Time) (*domain.Favorite, error)

	// Remove deletes (wallet, symbol). Removing a missing pair is not an error.
	Remove(ctx context.Context, wallet, symbol string) error

	// List returns a wallet's favorites ordered by created_at ASC.
	List(ctx context.Context, wallet string) ([]*domain.Favorite, error)
}

// UserStore provides access to users storage.
type UserStore interface {
	// Touch creates the user on first sight and bumps last_seen_at afterwards.
	Touch(ctx context.Context, wallet string, at time.Time) error

	// Get retrieves a user. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet string) (*domain.User, error)
}

// TradeEventStore provides access to the trade_events audit log.
type TradeEventStore interface {
	// Insert appends an event.
	Insert(ctx context.Context, e *domain.TradeEvent) error

	// GetByTradeID retrieves a trade's events ordered by occurred_at ASC.
	GetByTradeID(ctx context.Context, tradeID string) ([]*domain.TradeEvent, error)
}
