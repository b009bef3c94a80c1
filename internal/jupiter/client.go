package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultSlippageBps = 50
	DefaultDecimals    = 8

	metricsService = "jupiter"
)

// DecimalsFunc returns the decimal count configured for a mint.
type DecimalsFunc func(mint string) int32

// QuoteRequest asks for a priced route for Amount of InputMint.
type QuoteRequest struct {
	InputMint  string
	OutputMint string
	Amount     decimal.Decimal // human units
	// Decimals overrides the configured decimal count of InputMint.
	Decimals    *int32
	SlippageBps int
}

// Options configures Client.
type Options struct {
	Timeout            time.Duration
	DefaultSlippageBps int
	Decimals           DecimalsFunc
	Logger             logrus.FieldLogger
	// HTTPClient overrides the resty client. Tests only.
	HTTPClient *resty.Client
}

// Client requests quotes and builds swap transactions. It never retries;
// each call is a single bounded attempt.
type Client struct {
	endpoint        Endpoint
	http            *resty.Client
	defaultSlippage int
	decimals        DecimalsFunc
	logger          logrus.FieldLogger
}

// NewClient creates a Client bound to endpoint.
func NewClient(endpoint Endpoint, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DefaultSlippageBps <= 0 {
		opts.DefaultSlippageBps = DefaultSlippageBps
	}
	if opts.Decimals == nil {
		opts.Decimals = func(string) int32 { return DefaultDecimals }
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = resty.New()
	}
	httpClient.
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	for k, v := range endpoint.Headers() {
		httpClient.SetHeader(k, v)
	}

	return &Client{
		endpoint:        endpoint,
		http:            httpClient,
		defaultSlippage: opts.DefaultSlippageBps,
		decimals:        opts.Decimals,
		logger:          opts.Logger.WithFields(logrus.Fields{"component": "jupiter", "api": endpoint.Name()}),
	}
}

// Endpoint returns the API generation in use.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// wireQuote is the aggregator's quote payload.
type wireQuote struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       decimal.Decimal `json:"priceImpactPct"`
	RoutePlan            []wireRoute     `json:"routePlan"`
	ContextSlot          int64           `json:"contextSlot,omitempty"`
}

type wireRoute struct {
	SwapInfo struct {
		AMMKey     string `json:"ammKey"`
		Label      string `json:"label"`
		InputMint  string `json:"inputMint"`
		OutputMint string `json:"outputMint"`
		InAmount   string `json:"inAmount"`
		OutAmount  string `json:"outAmount"`
		FeeAmount  string `json:"feeAmount"`
		FeeMint    string `json:"feeMint"`
	} `json:"swapInfo"`
	Percent int `json:"percent"`
}

// ParseQuote decodes an aggregator quote payload. The payload is kept
// verbatim in Quote.Raw.
func ParseQuote(body []byte) (*domain.Quote, error) {
	var w wireQuote
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if w.InputMint == "" || w.OutputMint == "" || w.InAmount == "" || w.OutAmount == "" {
		return nil, errors.New("decode quote: missing mint or amount")
	}

	q := &domain.Quote{
		InputMint:            w.InputMint,
		OutputMint:           w.OutputMint,
		InAmount:             w.InAmount,
		OutAmount:            w.OutAmount,
		OtherAmountThreshold: w.OtherAmountThreshold,
		SwapMode:             w.SwapMode,
		SlippageBps:          w.SlippageBps,
		PriceImpactPct:       w.PriceImpactPct,
		ContextSlot:          w.ContextSlot,
		RoutePlan:            make([]domain.RouteHop, 0, len(w.RoutePlan)),
		Raw:                  append(json.RawMessage(nil), body...),
	}
	for _, r := range w.RoutePlan {
		q.RoutePlan = append(q.RoutePlan, domain.RouteHop{
			AMMKey:     r.SwapInfo.AMMKey,
			Label:      r.SwapInfo.Label,
			InputMint:  r.SwapInfo.InputMint,
			OutputMint: r.SwapInfo.OutputMint,
			InAmount:   r.SwapInfo.InAmount,
			OutAmount:  r.SwapInfo.OutAmount,
			FeeAmount:  r.SwapInfo.FeeAmount,
			FeeMint:    r.SwapInfo.FeeMint,
			Percent:    r.Percent,
		})
	}
	return q, nil
}

// rawQuote returns the payload to echo to the swap endpoint.
func rawQuote(q *domain.Quote) (json.RawMessage, error) {
	if len(q.Raw) > 0 {
		return q.Raw, nil
	}
	w := wireQuote{
		InputMint:            q.InputMint,
		InAmount:             q.InAmount,
		OutputMint:           q.OutputMint,
		OutAmount:            q.OutAmount,
		OtherAmountThreshold: q.OtherAmountThreshold,
		SwapMode:             q.SwapMode,
		SlippageBps:          q.SlippageBps,
		PriceImpactPct:       q.PriceImpactPct,
		ContextSlot:          q.ContextSlot,
		RoutePlan:            make([]wireRoute, len(q.RoutePlan)),
	}
	for i, hop := range q.RoutePlan {
		r := &w.RoutePlan[i]
		r.SwapInfo.AMMKey = hop.AMMKey
		r.SwapInfo.Label = hop.Label
		r.SwapInfo.InputMint = hop.InputMint
		r.SwapInfo.OutputMint = hop.OutputMint
		r.SwapInfo.InAmount = hop.InAmount
		r.SwapInfo.OutAmount = hop.OutAmount
		r.SwapInfo.FeeAmount = hop.FeeAmount
		r.SwapInfo.FeeMint = hop.FeeMint
		r.Percent = hop.Percent
	}
	return json.Marshal(w)
}

// GetQuote requests a priced route. Upstream failures of any kind are
// returned as *UpstreamError, which matches ErrNoRoute.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if req.InputMint == "" {
		return nil, domain.NewValidationError("inputMint", "required")
	}
	if req.OutputMint == "" {
		return nil, domain.NewValidationError("outputMint", "required")
	}
	if req.InputMint == req.OutputMint {
		return nil, domain.NewValidationError("outputMint", "must differ from inputMint")
	}
	decimals := c.decimals(req.InputMint)
	if req.Decimals != nil {
		decimals = *req.Decimals
	}
	amount, err := ToBaseUnits(req.Amount, decimals)
	if err != nil {
		return nil, err
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = c.defaultSlippage
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   req.InputMint,
			"outputMint":  req.OutputMint,
			"amount":      amount,
			"slippageBps": strconv.Itoa(slippage),
		}).
		Get(c.endpoint.QuoteURL())
	elapsed := time.Since(start).Seconds()

	if err != nil {
		observability.RecordUpstreamCall(metricsService, "quote", elapsed, "transport", true)
		c.logger.WithError(err).Warn("quote request failed")
		return nil, &UpstreamError{Err: err}
	}
	status := strconv.Itoa(resp.StatusCode())
	if !resp.IsSuccess() {
		observability.RecordUpstreamCall(metricsService, "quote", elapsed, status, true)
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode(),
			"input":  req.InputMint,
			"output": req.OutputMint,
		}).Warn("quote rejected upstream")
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Body:       excerpt(resp.Body()),
			Err:        ErrNoRoute,
		}
	}

	q, err := ParseQuote(resp.Body())
	if err != nil {
		observability.RecordUpstreamCall(metricsService, "quote", elapsed, status, true)
		c.logger.WithError(err).Warn("undecodable quote")
		return nil, &UpstreamError{Body: excerpt(resp.Body()), Err: err}
	}
	observability.RecordUpstreamCall(metricsService, "quote", elapsed, status, false)

	c.logger.WithFields(logrus.Fields{
		"input":        q.InputMint,
		"output":       q.OutputMint,
		"in_amount":    q.InAmount,
		"out_amount":   q.OutAmount,
		"price_impact": q.PriceImpactPct.String(),
	}).Debug("quote received")
	return q, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports any             `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      int64  `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports *int64 `json:"prioritizationFeeLamports,omitempty"`
}

// BuildTransaction requests an unsigned transaction executing quote for wallet.
// Failures are returned as *SwapBuildError.
func (c *Client) BuildTransaction(ctx context.Context, quote *domain.Quote, wallet string) (*domain.UnsignedSwapTransaction, error) {
	if quote == nil {
		return nil, domain.NewValidationError("quote", "required")
	}
	if wallet == "" {
		return nil, domain.NewValidationError("userPublicKey", "required")
	}
	raw, err := rawQuote(quote)
	if err != nil {
		return nil, domain.NewValidationError("quote", err.Error())
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(swapRequest{
			QuoteResponse:             raw,
			UserPublicKey:             wallet,
			WrapAndUnwrapSol:          true,
			DynamicComputeUnitLimit:   true,
			PrioritizationFeeLamports: c.endpoint.PrioritizationFee(),
		}).
		Post(c.endpoint.SwapURL())
	elapsed := time.Since(start).Seconds()

	if err != nil {
		observability.RecordUpstreamCall(metricsService, "swap", elapsed, "transport", true)
		c.logger.WithError(err).Warn("swap build request failed")
		return nil, &SwapBuildError{Err: err}
	}
	status := strconv.Itoa(resp.StatusCode())
	if !resp.IsSuccess() {
		observability.RecordUpstreamCall(metricsService, "swap", elapsed, status, true)
		c.logger.WithField("status", resp.StatusCode()).Warn("swap build rejected upstream")
		return nil, &SwapBuildError{
			StatusCode: resp.StatusCode(),
			Body:       excerpt(resp.Body()),
			Err:        fmt.Errorf("status %d", resp.StatusCode()),
		}
	}

	var out swapResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		observability.RecordUpstreamCall(metricsService, "swap", elapsed, status, true)
		return nil, &SwapBuildError{StatusCode: resp.StatusCode(), Body: excerpt(resp.Body()), Err: fmt.Errorf("decode swap response: %w", err)}
	}
	tx, err := base64.StdEncoding.DecodeString(out.SwapTransaction)
	if err != nil || len(tx) == 0 {
		observability.RecordUpstreamCall(metricsService, "swap", elapsed, status, true)
		return nil, &SwapBuildError{StatusCode: resp.StatusCode(), Body: excerpt(resp.Body()), Err: errors.New("empty or invalid swap transaction")}
	}
	if out.LastValidBlockHeight <= 0 {
		observability.RecordUpstreamCall(metricsService, "swap", elapsed, status, true)
		return nil, &SwapBuildError{StatusCode: resp.StatusCode(), Body: excerpt(resp.Body()), Err: errors.New("missing lastValidBlockHeight")}
	}
	observability.RecordUpstreamCall(metricsService, "swap", elapsed, status, false)

	c.logger.WithFields(logrus.Fields{
		"wallet":             wallet,
		"last_valid_height":  out.LastValidBlockHeight,
		"transaction_length": len(tx),
	}).Debug("swap transaction built")

	return &domain.UnsignedSwapTransaction{
		SwapTransaction:           tx,
		LastValidBlockHeight:      out.LastValidBlockHeight,
		PrioritizationFeeLamports: out.PrioritizationFeeLamports,
	}, nil
}
