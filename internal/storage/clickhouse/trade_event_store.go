package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using ClickHouse.
type TradeEventStore struct {
	conn *Conn
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(conn *Conn) *TradeEventStore {
	return &TradeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

// Insert appends an event. MergeTree keeps duplicates; the log is append-only.
func (s *TradeEventStore) Insert(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_events (
			trade_id, wallet_address, kind, status, tx_signature, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.TradeID, e.WalletAddress, string(e.Kind), string(e.Status), e.TxSignature, e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert trade event: %w", err)
	}
	return nil
}

// GetByTradeID retrieves a trade's events ordered by occurred_at ASC.
func (s *TradeEventStore) GetByTradeID(ctx context.Context, tradeID string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT trade_id, wallet_address, kind, status, tx_signature, occurred_at
		FROM trade_events
		WHERE trade_id = ?
		ORDER BY occurred_at ASC
	`

	rows, err := s.conn.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("query trade events: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeEvent
	for rows.Next() {
		var (
			e            domain.TradeEvent
			kind, status string
			occurredAt   time.Time
		)
		if err := rows.Scan(&e.TradeID, &e.WalletAddress, &kind, &status, &e.TxSignature, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan trade event: %w", err)
		}
		e.Kind = domain.TradeEventKind(kind)
		e.Status = domain.TradeStatus(status)
		e.OccurredAt = occurredAt
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade events: %w", err)
	}
	return result, nil
}
