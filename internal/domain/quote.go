package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quote is a priced exchange route returned by the aggregator.
// Amounts are integer strings in the asset's smallest unit.
// Quotes are not persisted and go stale within seconds.
type Quote struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode,omitempty"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       decimal.Decimal `json:"priceImpactPct"` // fraction: 0.01 == 1%
	RoutePlan            []RouteHop      `json:"routePlan"`
	ContextSlot          int64           `json:"contextSlot,omitempty"`

	// Raw is the aggregator payload, echoed verbatim when building the swap.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// RouteHop is one venue leg of a quote's route plan.
type RouteHop struct {
	AMMKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
	Percent    int    `json:"percent"`
}

// UnsignedSwapTransaction is a ready-to-sign transaction built from a quote.
// It must be signed and landed before LastValidBlockHeight or the network rejects it.
type UnsignedSwapTransaction struct {
	SwapTransaction           []byte `json:"swapTransaction"` // serialized, base64 in JSON
	LastValidBlockHeight      int64  `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports *int64 `json:"prioritizationFeeLamports,omitempty"`
}
