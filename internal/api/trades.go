package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/settlement"
)

type createTradeRequest struct {
	Type          domain.TradeType `json:"type"`
	Symbol        string           `json:"symbol"`
	StockName     string           `json:"stockName"`
	TokenAmount   decimal.Decimal  `json:"tokenAmount"`
	USDCAmount    decimal.Decimal  `json:"usdcAmount"`
	PricePerToken decimal.Decimal  `json:"pricePerToken"`
	TxSignature   *string          `json:"txSignature"`
}

// POST /api/trades
func (h *Handler) createTrade(c *gin.Context) {
	var req createTradeRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	trade, err := h.trades.Create(c.Request.Context(), walletFrom(c), ledger.CreateTradeInput{
		Type:          req.Type,
		Symbol:        req.Symbol,
		StockName:     req.StockName,
		TokenAmount:   req.TokenAmount,
		USDCAmount:    req.USDCAmount,
		PricePerToken: req.PricePerToken,
		TxSignature:   req.TxSignature,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

type tradeList struct {
	Trades []*domain.TradeRecord `json:"trades"`
}

// GET /api/trades?symbol=&limit=&offset=
func (h *Handler) listTrades(c *gin.Context) {
	opts := ledger.ListOptions{Symbol: c.Query("symbol")}
	var err error
	if opts.Limit, err = intQuery(c, "limit"); err != nil {
		h.writeError(c, err)
		return
	}
	if opts.Offset, err = intQuery(c, "offset"); err != nil {
		h.writeError(c, err)
		return
	}

	trades, err := h.trades.List(c.Request.Context(), walletFrom(c), opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if trades == nil {
		trades = []*domain.TradeRecord{}
	}
	c.JSON(http.StatusOK, tradeList{Trades: trades})
}

func intQuery(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

// GET /api/trades/:id
func (h *Handler) getTrade(c *gin.Context) {
	trade, err := h.trades.Get(c.Request.Context(), c.Param("id"), walletFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

type updateTradeRequest struct {
	Status      *domain.TradeStatus `json:"status"`
	TxSignature *string             `json:"txSignature"`
}

// PATCH /api/trades/:id
func (h *Handler) updateTrade(c *gin.Context) {
	var req updateTradeRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	trade, err := h.trades.Update(c.Request.Context(), c.Param("id"), walletFrom(c), ledger.UpdateTradeInput{
		Status:      req.Status,
		TxSignature: req.TxSignature,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

type settleTradeRequest struct {
	TxSignature *string `json:"txSignature"`
	Succeeded   bool    `json:"succeeded"`
}

// POST /api/trades/:id/settle
func (h *Handler) settleTrade(c *gin.Context) {
	var req settleTradeRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	trade, err := h.settlement.Settle(c.Request.Context(), walletFrom(c), c.Param("id"), settlement.Outcome{
		TxSignature: req.TxSignature,
		Succeeded:   req.Succeeded,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

type eventList struct {
	Events []*domain.TradeEvent `json:"events"`
}

// GET /api/trades/:id/events
func (h *Handler) tradeEvents(c *gin.Context) {
	events, err := h.trades.History(c.Request.Context(), c.Param("id"), walletFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if events == nil {
		events = []*domain.TradeEvent{}
	}
	c.JSON(http.StatusOK, eventList{Events: events})
}

// GET /api/trades/stream
func (h *Handler) streamTrades(c *gin.Context) {
	if err := h.stream.ServeWS(c.Writer, c.Request, walletFrom(c)); err != nil {
		// The upgrader has already answered the request.
		h.logger.WithError(err).Debug("stream upgrade failed")
	}
}
