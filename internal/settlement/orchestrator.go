// Package settlement composes quoting, the price-impact gate and swap building
// into one trade flow, and settles recorded trades from on-chain state.
//
// Flow: quote -> impact gate -> build -> (client signs and submits) -> record -> settle
package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/auth"
	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/observability"
)

// Quoter requests priced routes.
type Quoter interface {
	GetQuote(ctx context.Context, req jupiter.QuoteRequest) (*domain.Quote, error)
}

// TxBuilder builds unsigned swap transactions.
type TxBuilder interface {
	BuildTransaction(ctx context.Context, quote *domain.Quote, wallet string) (*domain.UnsignedSwapTransaction, error)
}

// TradeLedger is the subset of the ledger the settlement flow writes to.
type TradeLedger interface {
	Create(ctx context.Context, wallet string, in ledger.CreateTradeInput) (*domain.TradeRecord, error)
	Update(ctx context.Context, id, wallet string, in ledger.UpdateTradeInput) (*domain.TradeRecord, error)
	ListPendingWithSignature(ctx context.Context, limit int) ([]*domain.TradeRecord, error)
}

// Options for creating Orchestrator.
type Options struct {
	Quoter  Quoter
	Builder TxBuilder
	Ledger  TradeLedger

	StableMint string
	Decimals   jupiter.DecimalsFunc
	// MaxImpactPercent applies when a request does not set its own cap.
	MaxImpactPercent float64

	Logger logrus.FieldLogger
}

// Orchestrator runs the trade flow for one wallet at a time.
type Orchestrator struct {
	quoter     Quoter
	builder    TxBuilder
	ledger     TradeLedger
	stableMint string
	decimals   jupiter.DecimalsFunc
	maxImpact  float64
	logger     logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.MaxImpactPercent <= 0 {
		opts.MaxImpactPercent = 1
	}
	if opts.Decimals == nil {
		opts.Decimals = func(string) int32 { return jupiter.DefaultDecimals }
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		quoter:     opts.Quoter,
		builder:    opts.Builder,
		ledger:     opts.Ledger,
		stableMint: opts.StableMint,
		decimals:   opts.Decimals,
		maxImpact:  opts.MaxImpactPercent,
		logger:     opts.Logger.WithField("component", "settlement"),
	}
}

// PrepareRequest asks for a ready-to-sign swap.
// For a buy Amount is in the stablecoin; for a sell it is in stock tokens.
type PrepareRequest struct {
	Wallet           string
	Side             domain.TradeType
	StockMint        string
	Amount           decimal.Decimal
	SlippageBps      int
	MaxImpactPercent float64
}

// Prepared is a quote together with the transaction executing it.
type Prepared struct {
	Quote       *domain.Quote                   `json:"quote"`
	Transaction *domain.UnsignedSwapTransaction `json:"transaction"`
}

// Prepare quotes the swap, rejects it when the price impact exceeds the cap
// and builds the unsigned transaction.
func (o *Orchestrator) Prepare(ctx context.Context, req PrepareRequest) (*Prepared, error) {
	if !auth.IsWalletAddress(req.Wallet) {
		return nil, domain.NewValidationError("wallet", "not a valid public key")
	}
	input, output, err := o.route(req.Side, req.StockMint)
	if err != nil {
		return nil, err
	}

	quote, err := o.quoter.GetQuote(ctx, jupiter.QuoteRequest{
		InputMint:   input,
		OutputMint:  output,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return nil, err
	}

	maxImpact := req.MaxImpactPercent
	if maxImpact <= 0 {
		maxImpact = o.maxImpact
	}
	if !jupiter.IsPriceImpactAcceptable(quote, maxImpact) {
		observability.RecordQuoteRejected("price_impact")
		o.logger.WithFields(logrus.Fields{
			"wallet":       req.Wallet,
			"stock_mint":   req.StockMint,
			"price_impact": quote.PriceImpactPct.String(),
			"max_percent":  maxImpact,
		}).Info("quote rejected for price impact")
		return nil, fmt.Errorf("%w: %s%% exceeds %v%%",
			domain.ErrPriceImpactTooHigh, quote.PriceImpactPct.Shift(2).String(), maxImpact)
	}

	tx, err := o.builder.BuildTransaction(ctx, quote, req.Wallet)
	if err != nil {
		return nil, err
	}

	return &Prepared{Quote: quote, Transaction: tx}, nil
}

func (o *Orchestrator) route(side domain.TradeType, stockMint string) (input, output string, err error) {
	stockMint = strings.TrimSpace(stockMint)
	if stockMint == "" {
		return "", "", domain.NewValidationError("stockMint", "required")
	}
	if stockMint == o.stableMint {
		return "", "", domain.NewValidationError("stockMint", "must not be the stablecoin")
	}
	switch side {
	case domain.TradeTypeBuy:
		return o.stableMint, stockMint, nil
	case domain.TradeTypeSell:
		return stockMint, o.stableMint, nil
	default:
		return "", "", domain.NewValidationError("side", "must be buy or sell")
	}
}

// RecordRequest reports a submitted swap so it enters the ledger.
type RecordRequest struct {
	Side        domain.TradeType
	Symbol      string
	StockName   string
	Quote       *domain.Quote
	TxSignature *string
}

// Record derives amounts and price from the executed quote and creates the
// trade. A trade recorded with its signature is confirmed at creation.
func (o *Orchestrator) Record(ctx context.Context, wallet string, req RecordRequest) (*domain.TradeRecord, error) {
	if req.Quote == nil {
		return nil, domain.NewValidationError("quote", "required")
	}

	var stableUnits, stockUnits, stockMint string
	switch req.Side {
	case domain.TradeTypeBuy:
		if req.Quote.InputMint != o.stableMint {
			return nil, domain.NewValidationError("quote", "buy must spend the stablecoin")
		}
		stableUnits, stockUnits, stockMint = req.Quote.InAmount, req.Quote.OutAmount, req.Quote.OutputMint
	case domain.TradeTypeSell:
		if req.Quote.OutputMint != o.stableMint {
			return nil, domain.NewValidationError("quote", "sell must receive the stablecoin")
		}
		stableUnits, stockUnits, stockMint = req.Quote.OutAmount, req.Quote.InAmount, req.Quote.InputMint
	default:
		return nil, domain.NewValidationError("type", "must be buy or sell")
	}

	usdc, err := jupiter.FromBaseUnits(stableUnits, o.decimals(o.stableMint))
	if err != nil {
		return nil, domain.NewValidationError("quote", err.Error())
	}
	tokens, err := jupiter.FromBaseUnits(stockUnits, o.decimals(stockMint))
	if err != nil {
		return nil, domain.NewValidationError("quote", err.Error())
	}
	if !tokens.IsPositive() {
		return nil, domain.NewValidationError("tokenAmount", "must be positive")
	}

	return o.ledger.Create(ctx, wallet, ledger.CreateTradeInput{
		Type:          req.Side,
		Symbol:        req.Symbol,
		StockName:     req.StockName,
		TokenAmount:   tokens,
		USDCAmount:    usdc,
		PricePerToken: usdc.Div(tokens),
		TxSignature:   req.TxSignature,
	})
}

// Outcome is what the client observed after submitting the transaction.
type Outcome struct {
	TxSignature *string
	Succeeded   bool
}

// Settle moves a pending trade to confirmed or failed.
func (o *Orchestrator) Settle(ctx context.Context, wallet, tradeID string, outcome Outcome) (*domain.TradeRecord, error) {
	status := domain.TradeStatusFailed
	if outcome.Succeeded {
		status = domain.TradeStatusConfirmed
	}
	return o.ledger.Update(ctx, tradeID, wallet, ledger.UpdateTradeInput{
		Status:      &status,
		TxSignature: outcome.TxSignature,
	})
}
