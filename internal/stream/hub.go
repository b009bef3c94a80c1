// Package stream pushes trade events to websocket subscribers of the owning wallet.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/observability"
)

// HubConfig configures Hub behavior.
type HubConfig struct {
	// BufferSize is the number of events queued per subscriber before new ones are dropped.
	BufferSize int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ReadTimeout bounds the wait for a pong.
	ReadTimeout time.Duration
	// CheckOrigin overrides the upgrader's same-origin check.
	CheckOrigin func(r *http.Request) bool
}

// DefaultHubConfig returns default Hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:   32,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
}

type subscriber struct {
	wallet string
	send   chan domain.TradeEvent
}

// Hub fans trade events out to per-wallet subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	count  int
	closed bool
}

// NewHub creates a Hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, logger logrus.FieldLogger) *Hub {
	defaults := DefaultHubConfig()
	cfg := defaults
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReadTimeout <= cfg.PingInterval {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger.WithField("component", "stream"),
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Name identifies the hub as a ledger event sink.
func (h *Hub) Name() string { return "stream" }

// Publish delivers e to every subscriber of e.WalletAddress.
func (h *Hub) Publish(_ context.Context, e domain.TradeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[e.WalletAddress] {
		select {
		case sub.send <- e:
		default:
			observability.RecordStreamDropped()
			h.logger.WithFields(logrus.Fields{
				"wallet":   e.WalletAddress,
				"trade_id": e.TradeID,
			}).Debug("subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribe registers a subscriber for wallet. The returned channel is closed
// by cancel or by Close. Returns nil after Close.
func (h *Hub) Subscribe(wallet string) (<-chan domain.TradeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, func() {}
	}

	sub := &subscriber{wallet: wallet, send: make(chan domain.TradeEvent, h.config.BufferSize)}
	if h.subs[wallet] == nil {
		h.subs[wallet] = make(map[*subscriber]struct{})
	}
	h.subs[wallet][sub] = struct{}{}
	h.count++
	observability.SetStreamSubscribers(h.count)

	var once sync.Once
	return sub.send, func() {
		once.Do(func() { h.remove(sub) })
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.wallet]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.wallet)
	}
	close(sub.send)
	h.count--
	observability.SetStreamSubscribers(h.count)
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for wallet, set := range h.subs {
		for sub := range set {
			close(sub.send)
		}
		delete(h.subs, wallet)
	}
	h.count = 0
	observability.SetStreamSubscribers(0)
}

// ServeWS upgrades the request and streams wallet's events as JSON text
// frames until the client disconnects or the hub closes.
// The caller must have authenticated wallet.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, wallet string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, cancel := h.Subscribe(wallet)
	defer cancel()
	if events == nil {
		h.writeClose(conn, websocket.CloseGoingAway, "shutting down")
		return nil
	}

	log := h.logger.WithField("wallet", wallet)
	log.Debug("stream subscriber connected")
	defer log.Debug("stream subscriber disconnected")

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case e, ok := <-events:
			if !ok {
				h.writeClose(conn, websocket.CloseGoingAway, "shutting down")
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				return nil
			}
		}
	}
}

// readPump discards client frames and keeps the pong deadline fresh.
// It closes done once the connection fails.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.config.WriteTimeout))
}
