// Package jupiter talks to a Jupiter-compatible swap aggregator.
//
// Two API generations are supported behind the Endpoint interface: the
// metered API (requires an API key, capped priority fees) and the legacy
// public API (automatic priority fees). The generation is chosen once at
// construction and never changes for the lifetime of a client.
package jupiter

import (
	"strings"

	"solana-stock-swap/internal/config"
)

// Priority level requested from the metered API.
const meteredPriorityLevel = "medium"

// Endpoint describes one aggregator API generation.
type Endpoint interface {
	// Name identifies the generation in logs and metrics.
	Name() string
	QuoteURL() string
	SwapURL() string
	// Headers are attached to every request.
	Headers() map[string]string
	// PrioritizationFee is the value sent as prioritizationFeeLamports.
	PrioritizationFee() any
}

// NewEndpoint selects the metered generation when an API key is configured
// and the legacy generation otherwise.
func NewEndpoint(cfg config.JupiterConfig) Endpoint {
	if cfg.APIKey != "" {
		return &MeteredEndpoint{
			BaseURL:     strings.TrimRight(cfg.MeteredBaseURL, "/"),
			APIKey:      cfg.APIKey,
			MaxLamports: cfg.MaxPriorityFeeLamports,
		}
	}
	return &LegacyEndpoint{BaseURL: strings.TrimRight(cfg.LegacyBaseURL, "/")}
}

// MeteredEndpoint is the keyed API generation.
type MeteredEndpoint struct {
	BaseURL     string
	APIKey      string
	MaxLamports int64
}

func (e *MeteredEndpoint) Name() string     { return "metered" }
func (e *MeteredEndpoint) QuoteURL() string { return e.BaseURL + "/quote" }
func (e *MeteredEndpoint) SwapURL() string  { return e.BaseURL + "/swap" }

func (e *MeteredEndpoint) Headers() map[string]string {
	return map[string]string{"x-api-key": e.APIKey}
}

type priorityLevelWithMaxLamports struct {
	PriorityLevel string `json:"priorityLevel"`
	MaxLamports   int64  `json:"maxLamports"`
}

func (e *MeteredEndpoint) PrioritizationFee() any {
	return map[string]priorityLevelWithMaxLamports{
		"priorityLevelWithMaxLamports": {
			PriorityLevel: meteredPriorityLevel,
			MaxLamports:   e.MaxLamports,
		},
	}
}

// LegacyEndpoint is the unkeyed API generation.
type LegacyEndpoint struct {
	BaseURL string
}

func (e *LegacyEndpoint) Name() string               { return "legacy" }
func (e *LegacyEndpoint) QuoteURL() string           { return e.BaseURL + "/quote" }
func (e *LegacyEndpoint) SwapURL() string            { return e.BaseURL + "/swap" }
func (e *LegacyEndpoint) Headers() map[string]string { return nil }
func (e *LegacyEndpoint) PrioritizationFee() any     { return "auto" }
