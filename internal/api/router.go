// Package api exposes the auth, quote, swap, ledger and watchlist operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/auth"
	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/observability"
	"solana-stock-swap/internal/settlement"
)

// DefaultUpstreamTimeout bounds a request that calls the aggregator.
const DefaultUpstreamTimeout = 10 * time.Second

// QuoteService quotes routes and builds swap transactions.
type QuoteService interface {
	GetQuote(ctx context.Context, req jupiter.QuoteRequest) (*domain.Quote, error)
	BuildTransaction(ctx context.Context, quote *domain.Quote, wallet string) (*domain.UnsignedSwapTransaction, error)
}

// TradeService is the trade ledger.
type TradeService interface {
	Create(ctx context.Context, wallet string, in ledger.CreateTradeInput) (*domain.TradeRecord, error)
	Update(ctx context.Context, id, wallet string, in ledger.UpdateTradeInput) (*domain.TradeRecord, error)
	Get(ctx context.Context, id, wallet string) (*domain.TradeRecord, error)
	List(ctx context.Context, wallet string, opts ledger.ListOptions) ([]*domain.TradeRecord, error)
	History(ctx context.Context, id, wallet string) ([]*domain.TradeEvent, error)
}

// FavoriteService is the watchlist.
type FavoriteService interface {
	List(ctx context.Context, wallet string) ([]*domain.Favorite, error)
	Add(ctx context.Context, wallet, symbol string) (*domain.Favorite, error)
	Remove(ctx context.Context, wallet, symbol string) error
}

// SettlementService runs the prepare, record and settle steps of a trade.
type SettlementService interface {
	Prepare(ctx context.Context, req settlement.PrepareRequest) (*settlement.Prepared, error)
	Record(ctx context.Context, wallet string, req settlement.RecordRequest) (*domain.TradeRecord, error)
	Settle(ctx context.Context, wallet, tradeID string, outcome settlement.Outcome) (*domain.TradeRecord, error)
}

// UserDirectory looks up the users seen by the ledger and watchlist.
type UserDirectory interface {
	Get(ctx context.Context, wallet string) (*domain.User, error)
}

// EventStream upgrades a request into a live feed of the wallet's trade events.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, wallet string) error
}

// Options wires the router.
type Options struct {
	Gateway    *auth.Gateway
	Quotes     QuoteService
	Trades     TradeService
	Favorites  FavoriteService
	Settlement SettlementService
	Users      UserDirectory
	Stream     EventStream // optional

	UpstreamTimeout time.Duration
	Logger          logrus.FieldLogger
	Now             func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	gateway    *auth.Gateway
	quotes     QuoteService
	trades     TradeService
	favorites  FavoriteService
	settlement SettlementService
	users      UserDirectory
	stream     EventStream

	upstreamTimeout time.Duration
	logger          logrus.FieldLogger
	now             func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		gateway:         opts.Gateway,
		quotes:          opts.Quotes,
		trades:          opts.Trades,
		favorites:       opts.Favorites,
		settlement:      opts.Settlement,
		users:           opts.Users,
		stream:          opts.Stream,
		upstreamTimeout: opts.UpstreamTimeout,
		logger:          opts.Logger.WithField("component", "api"),
		now:             opts.Now,
	}
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	api.GET("/auth/message", h.authMessage)

	upstream := api.Group("", h.withTimeout(h.upstreamTimeout))
	upstream.GET("/quote", h.getQuote)
	upstream.POST("/swap", h.buildSwap)

	signed := api.Group("", h.RequireWallet())
	signed.POST("/swap/prepare", h.withTimeout(h.upstreamTimeout), h.prepareSwap)
	signed.POST("/swap/record", h.recordSwap)
	signed.GET("/trades/:id", h.getTrade)
	signed.PATCH("/trades/:id", h.updateTrade)
	signed.POST("/trades/:id/settle", h.settleTrade)
	signed.GET("/trades/:id/events", h.tradeEvents)
	signed.GET("/me", h.me)
	signed.GET("/favorites", h.listFavorites)
	signed.POST("/favorites", h.addFavorite)
	signed.DELETE("/favorites", h.removeFavorite)

	// Create and list trust the asserted wallet header without a signature.
	asserted := api.Group("", h.AssertedWallet())
	asserted.POST("/trades", h.createTrade)
	asserted.GET("/trades", h.listTrades)

	if h.stream != nil {
		api.GET("/trades/stream", h.RequireStreamWallet(), h.streamTrades)
	}

	return r
}
