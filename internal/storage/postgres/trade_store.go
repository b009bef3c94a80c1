package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// NUMERIC and UUID columns are read back as text so decimals keep their exact value.
const tradeColumns = `
	id::text, wallet_address, type, symbol, stock_name,
	token_amount::text, usdc_amount::text, price_per_token::text,
	tx_signature, status, created_at, confirmed_at`

// Insert adds a new trade. Returns ErrDuplicateKey if id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO trades (
			id, wallet_address, type, symbol, stock_name,
			token_amount, usdc_amount, price_per_token,
			tx_signature, status, created_at, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.WalletAddress, string(t.Type), t.Symbol, t.StockName,
		t.TokenAmount.String(), t.USDCAmount.String(), t.PricePerToken.String(),
		t.TxSignature, string(t.Status), t.CreatedAt, t.ConfirmedAt,
	)
	if err != nil {
		switch {
		case isDuplicateKeyError(err):
			return storage.ErrDuplicateKey
		case isInvalidInputError(err):
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetForWallet retrieves a trade owned by wallet. Returns ErrNotFound otherwise.
func (s *TradeStore) GetForWallet(ctx context.Context, id, wallet string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1 AND wallet_address = $2`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, id, wallet))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// Update applies patch only while the row still has the expected status.
// id must be a valid UUID.
// The row is re-read on a miss to tell ErrNotFound from ErrConflict.
func (s *TradeStore) Update(ctx context.Context, id, wallet string, expected domain.TradeStatus, patch domain.TradePatch) (*domain.TradeRecord, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}

	query := `
		UPDATE trades SET
			status       = COALESCE($4, status),
			tx_signature = COALESCE($5, tx_signature),
			confirmed_at = COALESCE($6, confirmed_at)
		WHERE id = $1 AND wallet_address = $2 AND status = $3
		RETURNING ` + tradeColumns

	t, err := scanTrade(s.pool.QueryRow(ctx, query, id, wallet, string(expected), status, patch.TxSignature, patch.ConfirmedAt))
	if err == nil {
		return t, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("update trade: %w", err)
	}

	if _, err := s.GetForWallet(ctx, id, wallet); err != nil {
		return nil, err
	}
	return nil, storage.ErrConflict
}

// List returns a page of a wallet's trades ordered by created_at DESC.
func (s *TradeStore) List(ctx context.Context, filter domain.TradeFilter) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE wallet_address = $1 AND ($2 = '' OR upper(symbol) = upper($2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := s.pool.Query(ctx, query, filter.WalletAddress, filter.Symbol, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListPendingWithSignature returns up to limit pending trades with a signature, oldest first.
func (s *TradeStore) ListPendingWithSignature(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = 'pending' AND tx_signature IS NOT NULL AND tx_signature <> ''
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	result := []*domain.TradeRecord{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}

// scanTrade scans a single row in tradeColumns order.
func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t                              domain.TradeRecord
		tradeType, status              string
		tokenAmount, usdcAmount, price string
	)
	err := row.Scan(
		&t.ID, &t.WalletAddress, &tradeType, &t.Symbol, &t.StockName,
		&tokenAmount, &usdcAmount, &price,
		&t.TxSignature, &status, &t.CreatedAt, &t.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TradeType(tradeType)
	t.Status = domain.TradeStatus(status)

	if t.TokenAmount, err = decimal.NewFromString(tokenAmount); err != nil {
		return nil, fmt.Errorf("parse token_amount: %w", err)
	}
	if t.USDCAmount, err = decimal.NewFromString(usdcAmount); err != nil {
		return nil, fmt.Errorf("parse usdc_amount: %w", err)
	}
	if t.PricePerToken, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price_per_token: %w", err)
	}
	return &t, nil
}
