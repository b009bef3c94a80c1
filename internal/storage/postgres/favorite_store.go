package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// FavoriteStore implements storage.FavoriteStore using PostgreSQL.
type FavoriteStore struct {
	pool *Pool
}

// NewFavoriteStore creates a new FavoriteStore.
func NewFavoriteStore(pool *Pool) *FavoriteStore {
	return &FavoriteStore{pool: pool}
}

var _ storage.FavoriteStore = (*FavoriteStore)(nil)

// Add inserts (wallet, symbol) or returns the existing row.
func (s *FavoriteStore) Add(ctx context.Context, wallet, symbol string, at time.Time) (*domain.Favorite, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO favorites (wallet_address, symbol, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_address, symbol) DO UPDATE SET symbol = EXCLUDED.symbol
		RETURNING wallet_address, symbol, created_at
	`

	var f domain.Favorite
	if err := s.pool.QueryRow(ctx, query, wallet, symbol, at).Scan(&f.WalletAddress, &f.Symbol, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return &f, nil
}

// Remove deletes (wallet, symbol) if present.
func (s *FavoriteStore) Remove(ctx context.Context, wallet, symbol string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE wallet_address = $1 AND symbol = $2`, wallet, symbol); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// List returns a wallet's favorites ordered by created_at ASC.
func (s *FavoriteStore) List(ctx context.Context, wallet string) ([]*domain.Favorite, error) {
	query := `
		SELECT wallet_address, symbol, created_at
		FROM favorites
		WHERE wallet_address = $1
		ORDER BY created_at ASC, symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	result := []*domain.Favorite{}
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.WalletAddress, &f.Symbol, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return result, nil
}
