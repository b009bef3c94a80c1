// Package main runs the stock swap API server:
// - HTTP API: wallet auth, quotes, swap building, trade ledger, watchlist
// - Trade event stream (websocket) and ClickHouse audit log
// - Settlement reconciler (scheduled) when a Solana RPC endpoint is configured
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/api"
	"solana-stock-swap/internal/auth"
	"solana-stock-swap/internal/config"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/logger"
	"solana-stock-swap/internal/settlement"
	"solana-stock-swap/internal/solana"
	"solana-stock-swap/internal/storage"
	chstore "solana-stock-swap/internal/storage/clickhouse"
	"solana-stock-swap/internal/storage/memory"
	"solana-stock-swap/internal/storage/migrations"
	pgstore "solana-stock-swap/internal/storage/postgres"
	"solana-stock-swap/internal/stream"
	"solana-stock-swap/internal/watchlist"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	stores *allStores
	logger *logrus.Logger

	ledger     *ledger.Service
	hub        *stream.Hub
	gateway    *auth.Gateway
	reconciler *settlement.Reconciler
	aggregator string

	started time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	backend    string
	trades     storage.TradeStore
	favorites  storage.FavoriteStore
	users      storage.UserStore
	tradeAudit storage.TradeEventStore // nil when ClickHouse is not configured
}

func main() {
	// Load .env file if exists; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	listenAddr := flag.String("listen-addr", "", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (optional, enables the trade audit log)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (optional, enables the reconciler)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-addr":
			cfg.ListenAddr = *listenAddr
		case "postgres-dsn":
			cfg.PostgresDSN = *postgresDSN
		case "clickhouse-dsn":
			cfg.ClickHouseDSN = *clickhouseDSN
		case "rpc-endpoint":
			cfg.Solana.RPCEndpoint = *rpcEndpoint
		case "use-memory":
			cfg.UseMemory = *useMemory
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.Format == config.LogFormatJSON,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create stores")
	}
	defer cleanup()

	server := &Server{cfg: cfg, stores: stores, logger: log, started: time.Now()}
	httpServer := server.build()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("received signal, initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Warn("received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx, httpServer)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server error")
	}
	log.Info("shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*allStores, func(), error) {
	if cfg.UseMemory {
		log.Warn("using in-memory storage; trades are lost on restart")
		stores := &allStores{
			backend:    "memory",
			trades:     memory.NewTradeStore(),
			favorites:  memory.NewFavoriteStore(),
			users:      memory.NewUserStore(),
			tradeAudit: memory.NewTradeEventStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &allStores{
		backend:   "postgres",
		trades:    pgstore.NewTradeStore(pool),
		favorites: pgstore.NewFavoriteStore(pool),
		users:     pgstore.NewUserStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse (optional audit log)
	if cfg.ClickHouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.tradeAudit = chstore.NewTradeEventStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// build wires services and returns the HTTP server.
func (s *Server) build() *http.Server {
	cfg := s.cfg
	log := s.logger

	s.hub = stream.NewHub(nil, log)
	s.ledger = ledger.NewService(ledger.Options{
		Trades: s.stores.trades,
		Users:  s.stores.users,
		Audit:  s.stores.tradeAudit,
		Sinks:  []ledger.EventSink{s.hub},
		Logger: log,
	})

	endpoint := jupiter.NewEndpoint(cfg.Jupiter)
	s.aggregator = endpoint.Name()
	quotes := jupiter.NewClient(endpoint, jupiter.Options{
		Timeout:            cfg.HTTPTimeout,
		DefaultSlippageBps: cfg.Jupiter.DefaultSlippageBps,
		Decimals:           cfg.DecimalsFor,
		Logger:             log,
	})

	orchestrator := settlement.New(settlement.Options{
		Quoter:           quotes,
		Builder:          quotes,
		Ledger:           s.ledger,
		StableMint:       cfg.Assets.StableMint,
		Decimals:         cfg.DecimalsFor,
		MaxImpactPercent: cfg.Jupiter.MaxPriceImpactPercent,
		Logger:           log,
	})

	if cfg.Solana.RPCEndpoint != "" {
		rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint, solana.WithTimeout(cfg.HTTPTimeout))
		s.reconciler = settlement.NewReconciler(s.ledger, rpc, settlement.ReconcilerOptions{
			Interval: cfg.Solana.ReconcileInterval,
			Logger:   log,
		})
	}

	s.gateway = auth.NewGateway(auth.NewCodec(), auth.NewVerifier(auth.DefaultKeyCacheSize), auth.GatewayOptions{
		Production:           cfg.IsProduction(),
		AllowDevWalletHeader: cfg.AllowDevWalletHeader,
		Logger:               log,
	})

	handler := api.NewHandler(api.Options{
		Gateway:         s.gateway,
		Quotes:          quotes,
		Trades:          s.ledger,
		Favorites:       watchlist.NewService(s.stores.favorites, s.stores.users, log),
		Settlement:      orchestrator,
		Users:           s.stores.users,
		Stream:          s.hub,
		UpstreamTimeout: cfg.HTTPTimeout,
		Logger:          log,
	})
	router := handler.Router()
	router.GET("/status", s.handleStatus)

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves HTTP and the reconciler until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context, httpServer *http.Server) error {
	s.logger.WithFields(logrus.Fields{
		"addr":       httpServer.Addr,
		"env":        s.cfg.Environment,
		"storage":    s.stores.backend,
		"aggregator": s.aggregator,
		"reconciler": s.reconciler != nil,
	}).Info("starting server")

	// Create error channel for goroutines
	errCh := make(chan error, 1)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var wg sync.WaitGroup
	if s.reconciler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.reconciler.Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Warn("http shutdown")
	}
	wg.Wait()

	return runErr
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string `json:"status"`
	Environment      string `json:"environment"`
	Uptime           string `json:"uptime"`
	Storage          string `json:"storage"`
	AuditLog         bool   `json:"audit_log"`
	Aggregator       string `json:"aggregator"`
	DevWalletHeader  bool   `json:"dev_wallet_header"`
	ReconcilerActive bool   `json:"reconciler_active"`
	StreamClients    int    `json:"stream_clients"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:           "running",
		Environment:      s.cfg.Environment,
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Storage:          s.stores.backend,
		AuditLog:         s.stores.tradeAudit != nil,
		Aggregator:       s.aggregator,
		DevWalletHeader:  s.gateway.DevFallbackEnabled(),
		ReconcilerActive: s.reconciler != nil,
		StreamClients:    s.hub.Subscribers(),
	})
}
