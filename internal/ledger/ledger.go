// Package ledger records trades per wallet and enforces their lifecycle:
// pending -> confirmed, pending -> failed, or confirmed at creation when the
// transaction signature is already known.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/observability"
	"solana-stock-swap/internal/storage"
)

// Listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Amounts are stored as NUMERIC(38,18): at most 18 fractional digits and a
// magnitude below 10^20.
const amountScale = 18

var amountCeiling = decimal.New(1, 38-amountScale)

// ErrAuditUnavailable is returned by History when no audit log is configured.
var ErrAuditUnavailable = errors.New("trade audit log not configured")

// EventSink receives an event after every successful mutation.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, e domain.TradeEvent) error
}

// CreateTradeInput is a trade reported by its owner.
type CreateTradeInput struct {
	Type          domain.TradeType
	Symbol        string
	StockName     string
	TokenAmount   decimal.Decimal
	USDCAmount    decimal.Decimal
	PricePerToken decimal.Decimal
	TxSignature   *string
}

// UpdateTradeInput is a requested status change. Nil fields are left untouched.
type UpdateTradeInput struct {
	Status      *domain.TradeStatus
	TxSignature *string
}

// ListOptions selects a page of a wallet's trades.
type ListOptions struct {
	Symbol string
	Limit  int
	Offset int
}

// Options configures Service.
type Options struct {
	Trades storage.TradeStore
	Users  storage.UserStore // optional
	// Audit, when set, receives every event and backs History.
	Audit  storage.TradeEventStore
	Sinks  []EventSink
	Logger logrus.FieldLogger
	Now    func() time.Time
	NewID  func() string
}

// Service is the trade ledger.
type Service struct {
	trades storage.TradeStore
	users  storage.UserStore
	audit  storage.TradeEventStore
	sinks  []EventSink
	logger logrus.FieldLogger
	now    func() time.Time
	newID  func() string
}

// NewService creates a ledger Service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	sinks := append([]EventSink(nil), opts.Sinks...)
	if opts.Audit != nil {
		sinks = append(sinks, StoreSink{Store: opts.Audit})
	}
	return &Service{
		trades: opts.Trades,
		users:  opts.Users,
		audit:  opts.Audit,
		sinks:  sinks,
		logger: opts.Logger.WithField("component", "ledger"),
		now:    opts.Now,
		newID:  opts.NewID,
	}
}

func validateCreate(wallet string, in CreateTradeInput) error {
	if strings.TrimSpace(wallet) == "" {
		return domain.NewValidationError("walletAddress", "required")
	}
	if !in.Type.Valid() {
		return domain.NewValidationError("type", "must be buy or sell")
	}
	if strings.TrimSpace(in.Symbol) == "" {
		return domain.NewValidationError("symbol", "required")
	}
	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"tokenAmount", in.TokenAmount},
		{"usdcAmount", in.USDCAmount},
		{"pricePerToken", in.PricePerToken},
	}
	for _, a := range amounts {
		switch {
		case !a.value.IsPositive():
			return domain.NewValidationError(a.field, "must be positive")
		case !a.value.Equal(a.value.Truncate(amountScale)):
			return domain.NewValidationError(a.field, fmt.Sprintf("at most %d decimal places", amountScale))
		case a.value.GreaterThanOrEqual(amountCeiling):
			return domain.NewValidationError(a.field, "too large")
		}
	}
	return nil
}

// Create records a new trade for wallet. A trade reported with its signature
// is confirmed immediately; otherwise it starts pending.
func (s *Service) Create(ctx context.Context, wallet string, in CreateTradeInput) (*domain.TradeRecord, error) {
	if err := validateCreate(wallet, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &domain.TradeRecord{
		ID:            s.newID(),
		WalletAddress: wallet,
		Type:          in.Type,
		Symbol:        strings.TrimSpace(in.Symbol),
		StockName:     strings.TrimSpace(in.StockName),
		TokenAmount:   in.TokenAmount,
		USDCAmount:    in.USDCAmount,
		PricePerToken: in.PricePerToken,
		CreatedAt:     now,
	}
	if in.TxSignature != nil && *in.TxSignature != "" {
		sig := *in.TxSignature
		t.TxSignature = &sig
	}
	t.Status = domain.InitialTradeStatus(t.TxSignature)
	if t.Status == domain.TradeStatusConfirmed {
		t.ConfirmedAt = &now
	}

	s.touchUser(ctx, wallet, now)

	if err := s.trades.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}

	observability.RecordTradeCreated(string(t.Type), string(t.Status))
	s.logger.WithFields(logrus.Fields{
		"trade_id": t.ID,
		"wallet":   wallet,
		"type":     t.Type,
		"symbol":   t.Symbol,
		"status":   t.Status,
	}).Info("trade recorded")

	s.emit(ctx, domain.NewTradeEvent(domain.TradeEventCreated, t, now))
	return t, nil
}

// Update applies a status change to the trade (id, wallet).
//
// A record owned by another wallet is reported as ErrNotFound. Leaving a
// terminal status returns ErrInvalidTransition, except that re-asserting the
// record's current state is a no-op returning it unchanged. A concurrent
// update that wins the race makes this one fail with ErrConflict.
func (s *Service) Update(ctx context.Context, id, wallet string, in UpdateTradeInput) (*domain.TradeRecord, error) {
	if in.Status == nil && in.TxSignature == nil {
		return nil, domain.NewValidationError("status", "nothing to update")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be pending, confirmed or failed")
	}
	if in.TxSignature != nil && strings.TrimSpace(*in.TxSignature) == "" {
		return nil, domain.NewValidationError("txSignature", "must not be empty")
	}

	current, err := s.Get(ctx, id, wallet)
	if err != nil {
		return nil, err
	}

	next := current.Status
	if in.Status != nil {
		next = *in.Status
	}

	if current.Status.Terminal() {
		if next == current.Status && sameSignature(current.TxSignature, in.TxSignature) {
			return current, nil
		}
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
	}

	now := s.now().UTC()
	patch := domain.TradePatch{Status: in.Status, TxSignature: in.TxSignature}
	if next == domain.TradeStatusConfirmed {
		patch.ConfirmedAt = &now
	}

	updated, err := s.trades.Update(ctx, current.ID, wallet, current.Status, patch)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update trade: %w", err)
	}

	if updated.Status != current.Status {
		observability.RecordTradeTransition(string(current.Status), string(updated.Status))
	}
	s.logger.WithFields(logrus.Fields{
		"trade_id": updated.ID,
		"wallet":   wallet,
		"from":     current.Status,
		"to":       updated.Status,
	}).Info("trade updated")

	s.emit(ctx, domain.NewTradeEvent(domain.TradeEventUpdated, updated, now))
	return updated, nil
}

// sameSignature reports whether requested adds nothing to current.
func sameSignature(current, requested *string) bool {
	if requested == nil {
		return true
	}
	return current != nil && *current == *requested
}

// Get returns the trade (id, wallet) or ErrNotFound.
func (s *Service) Get(ctx context.Context, id, wallet string) (*domain.TradeRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	t, err := s.trades.GetForWallet(ctx, id, wallet)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// List returns a wallet's trades newest first.
func (s *Service) List(ctx context.Context, wallet string, opts ListOptions) ([]*domain.TradeRecord, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, domain.NewValidationError("walletAddress", "required")
	}
	filter := domain.TradeFilter{
		WalletAddress: wallet,
		Symbol:        strings.TrimSpace(opts.Symbol),
		Limit:         clampLimit(opts.Limit),
		Offset:        max(opts.Offset, 0),
	}
	trades, err := s.trades.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

// History returns the audit trail of the trade (id, wallet), oldest first.
// Without an audit log it reports ErrAuditUnavailable.
func (s *Service) History(ctx context.Context, id, wallet string) ([]*domain.TradeEvent, error) {
	if _, err := s.Get(ctx, id, wallet); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, ErrAuditUnavailable
	}
	events, err := s.audit.GetByTradeID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}
	return events, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// ListPendingWithSignature returns pending trades that carry a transaction
// signature, across all wallets, oldest first.
func (s *Service) ListPendingWithSignature(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	trades, err := s.trades.ListPendingWithSignature(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending trades: %w", err)
	}
	return trades, nil
}

func (s *Service) touchUser(ctx context.Context, wallet string, at time.Time) {
	if s.users == nil {
		return
	}
	if err := s.users.Touch(ctx, wallet, at); err != nil {
		s.logger.WithError(err).WithField("wallet", wallet).Warn("touch user failed")
	}
}

// emit fans e out to every sink. Sink failures never fail the mutation.
func (s *Service) emit(ctx context.Context, e domain.TradeEvent) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, e); err != nil {
			observability.RecordEventSinkError(sink.Name())
			s.logger.WithError(err).WithFields(logrus.Fields{
				"sink":     sink.Name(),
				"trade_id": e.TradeID,
			}).Warn("trade event not delivered")
		}
	}
}

// StoreSink persists events to a TradeEventStore.
type StoreSink struct {
	Store storage.TradeEventStore
}

func (s StoreSink) Name() string { return "audit" }

func (s StoreSink) Publish(ctx context.Context, e domain.TradeEvent) error {
	return s.Store.Insert(ctx, &e)
}
