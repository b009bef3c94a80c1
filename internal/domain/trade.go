package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is a wallet's ledger entry for one stablecoin <-> stock swap.
// Corresponds to the trades table in PostgreSQL.
type TradeRecord struct {
	ID            string          `json:"id"`            // uuid
	WalletAddress string          `json:"walletAddress"` // owner, immutable
	Type          TradeType       `json:"type"`          // "buy" | "sell"
	Symbol        string          `json:"symbol"`        // e.g. "AAPLx"
	StockName     string          `json:"stockName,omitempty"`
	TokenAmount   decimal.Decimal `json:"tokenAmount"`   // stock tokens, human units
	USDCAmount    decimal.Decimal `json:"usdcAmount"`    // stablecoin, human units
	PricePerToken decimal.Decimal `json:"pricePerToken"` // usdc per token
	TxSignature   *string         `json:"txSignature,omitempty"`
	Status        TradeStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ConfirmedAt   *time.Time      `json:"confirmedAt,omitempty"` // set iff Status == confirmed
}

// TradeType is the direction of a trade relative to the stock token.
type TradeType string

// Trade type constants
const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// Valid reports whether t is a known trade type.
func (t TradeType) Valid() bool {
	return t == TradeTypeBuy || t == TradeTypeSell
}

// TradeStatus is the lifecycle state of a trade record.
type TradeStatus string

// Trade status constants
const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusConfirmed TradeStatus = "confirmed"
	TradeStatusFailed    TradeStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeStatusPending, TradeStatusConfirmed, TradeStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition out of s is permitted.
func (s TradeStatus) Terminal() bool {
	return s == TradeStatusConfirmed || s == TradeStatusFailed
}

// CanTransitionTo reports whether a record in s may move to next.
// pending -> pending is allowed so a signature can be attached before settlement.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	if !next.Valid() {
		return false
	}
	return s == TradeStatusPending
}

// InitialTradeStatus returns the status a new record starts in.
// A record reported together with its transaction signature is confirmed at creation.
func InitialTradeStatus(txSignature *string) TradeStatus {
	if txSignature != nil && *txSignature != "" {
		return TradeStatusConfirmed
	}
	return TradeStatusPending
}

// TradePatch describes a requested mutation of a trade record.
// Nil fields are left untouched.
type TradePatch struct {
	Status      *TradeStatus
	TxSignature *string
	ConfirmedAt *time.Time
}

// TradeFilter selects a page of a wallet's trades.
type TradeFilter struct {
	WalletAddress string
	Symbol        string // optional, exact match
	Limit         int
	Offset        int
}
