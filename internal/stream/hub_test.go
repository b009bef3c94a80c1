package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/logger"
)

const (
	walletA = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	walletB = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

func event(wallet, id string, status domain.TradeStatus) domain.TradeEvent {
	return domain.TradeEvent{
		TradeID:       id,
		WalletAddress: wallet,
		Kind:          domain.TradeEventUpdated,
		Status:        status,
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestHub_PublishOnlyToOwner(t *testing.T) {
	hub := NewHub(nil, logger.Discard())
	ctx := context.Background()

	a, cancelA := hub.Subscribe(walletA)
	defer cancelA()
	b, cancelB := hub.Subscribe(walletB)
	defer cancelB()
	assert.Equal(t, 2, hub.Subscribers())

	require.NoError(t, hub.Publish(ctx, event(walletA, "t1", domain.TradeStatusConfirmed)))

	select {
	case e := <-a:
		assert.Equal(t, "t1", e.TradeID)
	default:
		t.Fatal("owner did not receive event")
	}
	select {
	case e := <-b:
		t.Fatalf("other wallet received %+v", e)
	default:
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(&HubConfig{BufferSize: 1}, logger.Discard())
	ch, cancel := hub.Subscribe(walletA)
	defer cancel()

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(context.Background(), event(walletA, "t", domain.TradeStatusPending)))
	}
	assert.Len(t, ch, 1)
}

func TestHub_CancelAndClose(t *testing.T) {
	hub := NewHub(nil, logger.Discard())

	ch, cancel := hub.Subscribe(walletA)
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers())

	ch, cancel = hub.Subscribe(walletA)
	defer cancel()
	hub.Close()
	_, open = <-ch
	assert.False(t, open)

	late, _ := hub.Subscribe(walletA)
	assert.Nil(t, late)
	assert.NoError(t, hub.Publish(context.Background(), event(walletA, "t", domain.TradeStatusPending)))
}

func TestHub_ServeWS(t *testing.T) {
	hub := NewHub(nil, logger.Discard())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, r.URL.Query().Get("wallet"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?wallet=" + walletA
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, event(walletB, "other", domain.TradeStatusPending)))
	require.NoError(t, hub.Publish(ctx, event(walletA, "mine", domain.TradeStatusConfirmed)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.TradeEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "mine", got.TradeID)
	assert.Equal(t, domain.TradeStatusConfirmed, got.Status)
	assert.Equal(t, walletA, got.WalletAddress)

	hub.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_ServeWSUnsubscribesOnDisconnect(t *testing.T) {
	hub := NewHub(nil, logger.Discard())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, walletA)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}
