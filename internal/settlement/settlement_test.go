package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-stock-swap/internal/config"
	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/logger"
	"solana-stock-swap/internal/solana"
	"solana-stock-swap/internal/storage/memory"
)

const (
	stockMint = "XsbEhLAtcf6HdfpFZ5xEMdqW8nfAvcsP5bdudRLJzJp"
	wallet    = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

type fakeQuoter struct {
	last   jupiter.QuoteRequest
	impact string
	err    error
}

func (f *fakeQuoter) GetQuote(_ context.Context, req jupiter.QuoteRequest) (*domain.Quote, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	impact := f.impact
	if impact == "" {
		impact = "0.001"
	}
	return &domain.Quote{
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InAmount:       "100000000",
		OutAmount:      "50000000",
		PriceImpactPct: decimal.RequireFromString(impact),
	}, nil
}

type fakeBuilder struct {
	calls int
}

func (f *fakeBuilder) BuildTransaction(_ context.Context, _ *domain.Quote, _ string) (*domain.UnsignedSwapTransaction, error) {
	f.calls++
	return &domain.UnsignedSwapTransaction{SwapTransaction: []byte{1, 2, 3}, LastValidBlockHeight: 42}, nil
}

func newOrchestrator(q *fakeQuoter, b *fakeBuilder) (*Orchestrator, *ledger.Service) {
	cfg := config.Default()
	l := ledger.NewService(ledger.Options{Trades: memory.NewTradeStore(), Logger: logger.Discard()})
	return New(Options{
		Quoter:           q,
		Builder:          b,
		Ledger:           l,
		StableMint:       cfg.Assets.StableMint,
		Decimals:         cfg.DecimalsFor,
		MaxImpactPercent: 1,
		Logger:           logger.Discard(),
	}), l
}

func TestPrepare_BuyAndSellRouting(t *testing.T) {
	q := &fakeQuoter{}
	b := &fakeBuilder{}
	o, _ := newOrchestrator(q, b)
	ctx := context.Background()

	out, err := o.Prepare(ctx, PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy, StockMint: stockMint, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, config.USDCMint, q.last.InputMint)
	assert.Equal(t, stockMint, q.last.OutputMint)
	assert.NotNil(t, out.Quote)
	assert.Equal(t, int64(42), out.Transaction.LastValidBlockHeight)

	_, err = o.Prepare(ctx, PrepareRequest{Wallet: wallet, Side: domain.TradeTypeSell, StockMint: stockMint, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, stockMint, q.last.InputMint)
	assert.Equal(t, config.USDCMint, q.last.OutputMint)
	assert.Equal(t, 2, b.calls)
}

func TestPrepare_PriceImpactGate(t *testing.T) {
	q := &fakeQuoter{impact: "0.05"}
	b := &fakeBuilder{}
	o, _ := newOrchestrator(q, b)

	_, err := o.Prepare(context.Background(), PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy, StockMint: stockMint, Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, domain.ErrPriceImpactTooHigh)
	assert.Zero(t, b.calls, "no transaction is built for a rejected quote")

	// A caller may raise its own cap.
	_, err = o.Prepare(context.Background(), PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy, StockMint: stockMint, Amount: decimal.NewFromInt(100), MaxImpactPercent: 10})
	assert.NoError(t, err)
}

func TestPrepare_Errors(t *testing.T) {
	upstream := &jupiter.UpstreamError{StatusCode: 503, Body: "down", Err: jupiter.ErrNoRoute}
	o, _ := newOrchestrator(&fakeQuoter{err: upstream}, &fakeBuilder{})
	ctx := context.Background()

	_, err := o.Prepare(ctx, PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy, StockMint: stockMint, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	tests := []struct {
		name string
		req  PrepareRequest
	}{
		{"bad wallet", PrepareRequest{Wallet: "nope", Side: domain.TradeTypeBuy, StockMint: stockMint}},
		{"bad side", PrepareRequest{Wallet: wallet, Side: "swap", StockMint: stockMint}},
		{"missing mint", PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy}},
		{"stable as stock", PrepareRequest{Wallet: wallet, Side: domain.TradeTypeBuy, StockMint: config.USDCMint}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Prepare(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRecordAndSettle(t *testing.T) {
	o, l := newOrchestrator(&fakeQuoter{}, &fakeBuilder{})
	ctx := context.Background()

	quote := &domain.Quote{
		InputMint:  config.USDCMint,
		OutputMint: stockMint,
		InAmount:   "100000000", // 100 USDC
		OutAmount:  "50000000",  // 0.5 tokens at 8 decimals
	}
	trade, err := o.Record(ctx, wallet, RecordRequest{Side: domain.TradeTypeBuy, Symbol: "AAPLx", Quote: quote})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPending, trade.Status)
	assert.True(t, trade.USDCAmount.Equal(decimal.NewFromInt(100)), "usdc %s", trade.USDCAmount)
	assert.True(t, trade.TokenAmount.Equal(decimal.RequireFromString("0.5")), "tokens %s", trade.TokenAmount)
	assert.True(t, trade.PricePerToken.Equal(decimal.NewFromInt(200)), "price %s", trade.PricePerToken)

	sig := "5sig"
	settled, err := o.Settle(ctx, wallet, trade.ID, Outcome{TxSignature: &sig, Succeeded: true})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusConfirmed, settled.Status)
	assert.NotNil(t, settled.ConfirmedAt)

	_, err = o.Settle(ctx, wallet, trade.ID, Outcome{Succeeded: false})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := l.Get(ctx, trade.ID, wallet)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusConfirmed, got.Status)
}

func TestRecord_SellAndMismatchedQuote(t *testing.T) {
	o, _ := newOrchestrator(&fakeQuoter{}, &fakeBuilder{})
	ctx := context.Background()

	sell := &domain.Quote{InputMint: stockMint, OutputMint: config.USDCMint, InAmount: "25000000", OutAmount: "60000000"}
	sig := "5sell"
	trade, err := o.Record(ctx, wallet, RecordRequest{Side: domain.TradeTypeSell, Symbol: "TSLAx", Quote: sell, TxSignature: &sig})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusConfirmed, trade.Status)
	assert.True(t, trade.TokenAmount.Equal(decimal.RequireFromString("0.25")))
	assert.True(t, trade.USDCAmount.Equal(decimal.NewFromInt(60)))
	assert.True(t, trade.PricePerToken.Equal(decimal.NewFromInt(240)))

	_, err = o.Record(ctx, wallet, RecordRequest{Side: domain.TradeTypeBuy, Symbol: "TSLAx", Quote: sell})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = o.Record(ctx, wallet, RecordRequest{Side: domain.TradeTypeBuy, Symbol: "TSLAx"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type fakeRPC struct {
	statuses map[string]*solana.SignatureStatus
	err      error
	calls    int
}

func (f *fakeRPC) GetSignatureStatuses(_ context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*solana.SignatureStatus, len(sigs))
	for i, s := range sigs {
		out[i] = f.statuses[s]
	}
	return out, nil
}

func pendingWithSig(t *testing.T, l *ledger.Service, sig string) *domain.TradeRecord {
	t.Helper()
	ctx := context.Background()
	tr, err := l.Create(ctx, wallet, ledger.CreateTradeInput{
		Type:          domain.TradeTypeBuy,
		Symbol:        "AAPLx",
		TokenAmount:   decimal.NewFromInt(1),
		USDCAmount:    decimal.NewFromInt(200),
		PricePerToken: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	tr, err = l.Update(ctx, tr.ID, wallet, ledger.UpdateTradeInput{TxSignature: &sig})
	require.NoError(t, err)
	return tr
}

func TestReconcileOnce(t *testing.T) {
	l := ledger.NewService(ledger.Options{Trades: memory.NewTradeStore(), Logger: logger.Discard()})
	ok := pendingWithSig(t, l, "sig-ok")
	bad := pendingWithSig(t, l, "sig-bad")
	unknown := pendingWithSig(t, l, "sig-unknown")
	processing := pendingWithSig(t, l, "sig-processing")

	rpc := &fakeRPC{statuses: map[string]*solana.SignatureStatus{
		"sig-ok":         {Slot: 10, ConfirmationStatus: solana.CommitmentFinalized},
		"sig-bad":        {Slot: 11, ConfirmationStatus: solana.CommitmentConfirmed, Err: map[string]any{"InstructionError": []any{0, "Custom"}}},
		"sig-processing": {Slot: 12, ConfirmationStatus: solana.CommitmentProcessed},
	}}
	r := NewReconciler(l, rpc, ReconcilerOptions{Logger: logger.Discard()})
	ctx := context.Background()

	res, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Checked: 4, Confirmed: 1, Failed: 1}, res)

	check := func(id string, want domain.TradeStatus) {
		t.Helper()
		got, err := l.Get(ctx, id, wallet)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
	check(ok.ID, domain.TradeStatusConfirmed)
	check(bad.ID, domain.TradeStatusFailed)
	check(unknown.ID, domain.TradeStatusPending)
	check(processing.ID, domain.TradeStatusPending)

	// Settled trades drop out of the next batch.
	res, err = r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
}

func TestReconcileOnce_Idle(t *testing.T) {
	l := ledger.NewService(ledger.Options{Trades: memory.NewTradeStore(), Logger: logger.Discard()})
	rpc := &fakeRPC{}
	r := NewReconciler(l, rpc, ReconcilerOptions{Logger: logger.Discard()})

	res, err := r.ReconcileOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
	assert.Zero(t, rpc.calls, "no RPC call without pending trades")
}

func TestReconcileOnce_RPCErrorLeavesTradesPending(t *testing.T) {
	l := ledger.NewService(ledger.Options{Trades: memory.NewTradeStore(), Logger: logger.Discard()})
	tr := pendingWithSig(t, l, "sig")
	r := NewReconciler(l, &fakeRPC{err: errors.New("rpc down")}, ReconcilerOptions{Logger: logger.Discard()})

	_, err := r.ReconcileOnce(context.Background())
	assert.Error(t, err)

	got, err := l.Get(context.Background(), tr.ID, wallet)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPending, got.Status)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	l := ledger.NewService(ledger.Options{Trades: memory.NewTradeStore(), Logger: logger.Discard()})
	pendingWithSig(t, l, "sig-ok")
	rpc := &fakeRPC{statuses: map[string]*solana.SignatureStatus{
		"sig-ok": {ConfirmationStatus: solana.CommitmentConfirmed},
	}}
	r := NewReconciler(l, rpc, ReconcilerOptions{Interval: 5 * time.Millisecond, Logger: logger.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pending, err := l.ListPendingWithSignature(context.Background(), 10)
		return err == nil && len(pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
