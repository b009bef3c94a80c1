package domain

import "time"

// Favorite is a symbol on a wallet's watchlist. (wallet, symbol) is unique.
type Favorite struct {
	WalletAddress string    `json:"walletAddress"`
	Symbol        string    `json:"symbol"`
	CreatedAt     time.Time `json:"createdAt"`
}

// User is the row a wallet gets the first time it touches the ledger.
type User struct {
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

// TradeEvent records one successful ledger mutation.
// Emitted to the audit log and to websocket subscribers of the owning wallet.
type TradeEvent struct {
	TradeID       string         `json:"tradeId"`
	WalletAddress string         `json:"walletAddress"`
	Kind          TradeEventKind `json:"kind"`
	Status        TradeStatus    `json:"status"`
	TxSignature   *string        `json:"txSignature,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
}

// TradeEventKind distinguishes creations from updates.
type TradeEventKind string

// Trade event kinds
const (
	TradeEventCreated TradeEventKind = "created"
	TradeEventUpdated TradeEventKind = "updated"
)

// NewTradeEvent snapshots t as an event of the given kind.
func NewTradeEvent(kind TradeEventKind, t *TradeRecord, at time.Time) TradeEvent {
	return TradeEvent{
		TradeID:       t.ID,
		WalletAddress: t.WalletAddress,
		Kind:          kind,
		Status:        t.Status,
		TxSignature:   t.TxSignature,
		OccurredAt:    at,
	}
}
