package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/observability"
	"solana-stock-swap/internal/solana"
)

// Reconciler defaults.
const (
	DefaultReconcileInterval = 30 * time.Second
	DefaultReconcileBatch    = 100
)

// ReconcilerOptions configures Reconciler.
type ReconcilerOptions struct {
	Interval  time.Duration
	BatchSize int
	Logger    logrus.FieldLogger
}

// Reconciler settles pending trades that carry a signature by asking the
// cluster what happened to the transaction. Unknown or still-processing
// signatures stay pending; nothing is settled from elapsed time alone.
type Reconciler struct {
	ledger   TradeLedger
	rpc      solana.RPCClient
	interval time.Duration
	batch    int
	logger   logrus.FieldLogger
}

// NewReconciler creates a Reconciler.
func NewReconciler(l TradeLedger, rpc solana.RPCClient, opts ReconcilerOptions) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultReconcileInterval
	}
	if opts.BatchSize <= 0 || opts.BatchSize > solana.MaxSignaturesPerCall {
		opts.BatchSize = DefaultReconcileBatch
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Reconciler{
		ledger:   l,
		rpc:      rpc,
		interval: opts.Interval,
		batch:    opts.BatchSize,
		logger:   opts.Logger.WithField("component", "reconciler"),
	}
}

// Run reconciles every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.interval).Info("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WithError(err).Warn("reconcile tick failed")
			}
		}
	}
}

// ReconcileResult summarizes one tick.
type ReconcileResult struct {
	Checked   int
	Confirmed int
	Failed    int
}

// ReconcileOnce checks one batch of pending trades.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult

	pending, err := r.ledger.ListPendingWithSignature(ctx, r.batch)
	if err != nil {
		observability.RecordReconcileRun("error")
		return result, err
	}
	if len(pending) == 0 {
		observability.RecordReconcileRun("idle")
		return result, nil
	}

	signatures := make([]string, len(pending))
	for i, t := range pending {
		signatures[i] = *t.TxSignature
	}

	statuses, err := r.rpc.GetSignatureStatuses(ctx, signatures)
	if err != nil {
		observability.RecordReconcileRun("error")
		return result, err
	}
	result.Checked = len(pending)

	for i, t := range pending {
		st := statuses[i]
		if st == nil {
			continue
		}

		var next domain.TradeStatus
		switch {
		case st.Failed():
			next = domain.TradeStatusFailed
		case st.Settled():
			next = domain.TradeStatusConfirmed
		default:
			continue
		}

		_, err := r.ledger.Update(ctx, t.ID, t.WalletAddress, ledger.UpdateTradeInput{Status: &next})
		switch {
		case err == nil:
			observability.RecordReconciledTrade(string(next))
			if next == domain.TradeStatusConfirmed {
				result.Confirmed++
			} else {
				result.Failed++
			}
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
			// The owner settled it first.
			r.logger.WithField("trade_id", t.ID).Debug("trade settled concurrently")
		default:
			r.logger.WithError(err).WithField("trade_id", t.ID).Warn("settle trade failed")
		}
	}

	observability.RecordReconcileRun("ok")
	if result.Confirmed+result.Failed > 0 {
		r.logger.WithFields(logrus.Fields{
			"checked":   result.Checked,
			"confirmed": result.Confirmed,
			"failed":    result.Failed,
		}).Info("reconciled trades")
	}
	return result, nil
}
