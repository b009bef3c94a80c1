package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"solana-stock-swap/internal/auth"
	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/settlement"
)

type authMessageResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// GET /api/auth/message?wallet=&nonce=
func (h *Handler) authMessage(c *gin.Context) {
	wallet := strings.TrimSpace(c.Query("wallet"))
	if !auth.IsWalletAddress(wallet) {
		h.writeError(c, domain.NewValidationError("wallet", "not a valid public key"))
		return
	}
	nonce := strings.TrimSpace(c.Query("nonce"))
	if nonce == "" {
		nonce = auth.NonceAt(h.now())
	}
	c.JSON(http.StatusOK, authMessageResponse{Message: auth.BuildMessage(wallet, nonce), Nonce: nonce})
}

// GET /api/quote?inputMint=&outputMint=&amount=&slippageBps=&decimals=
func (h *Handler) getQuote(c *gin.Context) {
	req := jupiter.QuoteRequest{
		InputMint:  strings.TrimSpace(c.Query("inputMint")),
		OutputMint: strings.TrimSpace(c.Query("outputMint")),
	}
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		h.writeError(c, domain.NewValidationError("amount", "not a number"))
		return
	}
	req.Amount = amount

	if v := c.Query("slippageBps"); v != "" {
		bps, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(c, domain.NewValidationError("slippageBps", "not an integer"))
			return
		}
		req.SlippageBps = bps
	}
	if v := c.Query("decimals"); v != "" {
		d, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			h.writeError(c, domain.NewValidationError("decimals", "not an integer"))
			return
		}
		decimals := int32(d)
		req.Decimals = &decimals
	}

	quote, err := h.quotes.GetQuote(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

type swapRequest struct {
	Quote         json.RawMessage `json:"quote"`
	UserPublicKey string          `json:"userPublicKey"`
}

// decodeQuote accepts either a quote returned by /api/quote or the
// aggregator's own quote payload.
func decodeQuote(raw json.RawMessage) (*domain.Quote, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, domain.NewValidationError("quote", "required")
	}
	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, domain.NewValidationError("quote", "malformed")
	}
	if len(q.Raw) > 0 {
		return &q, nil
	}
	parsed, err := jupiter.ParseQuote(raw)
	if err != nil {
		return nil, domain.NewValidationError("quote", err.Error())
	}
	return parsed, nil
}

// POST /api/swap
func (h *Handler) buildSwap(c *gin.Context) {
	var req swapRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	if !auth.IsWalletAddress(req.UserPublicKey) {
		h.writeError(c, domain.NewValidationError("userPublicKey", "not a valid public key"))
		return
	}
	quote, err := decodeQuote(req.Quote)
	if err != nil {
		h.writeError(c, err)
		return
	}

	tx, err := h.quotes.BuildTransaction(c.Request.Context(), quote, req.UserPublicKey)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

type prepareRequest struct {
	Side           domain.TradeType `json:"side"`
	StockMint      string           `json:"stockMint"`
	Amount         decimal.Decimal  `json:"amount"`
	SlippageBps    int              `json:"slippageBps"`
	MaxPriceImpact float64          `json:"maxPriceImpact"`
}

// POST /api/swap/prepare
func (h *Handler) prepareSwap(c *gin.Context) {
	var req prepareRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := h.settlement.Prepare(c.Request.Context(), settlement.PrepareRequest{
		Wallet:           walletFrom(c),
		Side:             req.Side,
		StockMint:        req.StockMint,
		Amount:           req.Amount,
		SlippageBps:      req.SlippageBps,
		MaxImpactPercent: req.MaxPriceImpact,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type recordRequest struct {
	Side        domain.TradeType `json:"side"`
	Symbol      string           `json:"symbol"`
	StockName   string           `json:"stockName"`
	Quote       json.RawMessage  `json:"quote"`
	TxSignature *string          `json:"txSignature"`
}

// POST /api/swap/record
func (h *Handler) recordSwap(c *gin.Context) {
	var req recordRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	quote, err := decodeQuote(req.Quote)
	if err != nil {
		h.writeError(c, err)
		return
	}
	trade, err := h.settlement.Record(c.Request.Context(), walletFrom(c), settlement.RecordRequest{
		Side:        req.Side,
		Symbol:      req.Symbol,
		StockName:   req.StockName,
		Quote:       quote,
		TxSignature: req.TxSignature,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}
