package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ storage.UserStore = (*UserStore)(nil)

// Touch creates the user or bumps its last_seen_at.
func (s *UserStore) Touch(ctx context.Context, wallet string, at time.Time) error {
	query := `
		INSERT INTO users (wallet_address, created_at, last_seen_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (wallet_address) DO UPDATE
		SET last_seen_at = GREATEST(users.last_seen_at, EXCLUDED.last_seen_at)
	`
	if _, err := s.pool.Exec(ctx, query, wallet, at); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// Get retrieves a user. Returns ErrNotFound if not exists.
func (s *UserStore) Get(ctx context.Context, wallet string) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT wallet_address, created_at, last_seen_at FROM users WHERE wallet_address = $1`, wallet,
	).Scan(&u.WalletAddress, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
