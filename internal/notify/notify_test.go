// internal/notify/notify_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/monad-bot/internal/events"
)

var token = common.HexToAddress("0x00000000000000000000000000000000000000ab")

func TestTelegramNotifier_Send(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{Token: "123:abc", ChatID: "42"}, zaptest.NewLogger(t))
	n.apiBase = srv.URL

	err := n.Send(context.Background(), Alert{Level: LevelCritical, Title: "Sell failed", Message: "boom"})
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Equal(t, "🚨 *Sell failed*\nboom", got.Text)
}

func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{Token: "t", ChatID: "1"}, zaptest.NewLogger(t))
	n.apiBase = srv.URL

	err := n.Send(context.Background(), Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramConfig_Enabled(t *testing.T) {
	assert.False(t, TelegramConfig{}.Enabled())
	assert.False(t, TelegramConfig{Token: "t"}.Enabled())
	assert.True(t, TelegramConfig{Token: "t", ChatID: "1"}.Enabled())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "ℹ️ *Hello*", Format(Alert{Title: "Hello"}))
	assert.Equal(t, "⚠️ *Hello*\nworld", Format(Alert{Level: LevelWarning, Title: "Hello", Message: "world"}))
}

func TestAlertFor(t *testing.T) {
	alert, ok := AlertFor(events.SellFailedEvent{
		BaseEvent: events.NewBase(events.SellFailed),
		Token:     token,
		Symbol:    "PEPE",
		Reason:    "HardStopLoss{pnl:-45.00}",
		Err:       errors.New("all attempts failed"),
	})
	require.True(t, ok)
	assert.Equal(t, LevelCritical, alert.Level)
	assert.Contains(t, alert.Message, "PEPE")
	assert.Contains(t, alert.Message, "all attempts failed")

	alert, ok = AlertFor(events.CopyTradeRejectedEvent{BaseEvent: events.NewBase(events.CopyTradeRejected), Token: token, Score: 12})
	require.True(t, ok)
	assert.Equal(t, LevelWarning, alert.Level)
	assert.Contains(t, alert.Message, "12.0")

	_, ok = AlertFor(events.NewBase("unknown"))
	assert.False(t, ok)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	sent   chan struct{}
}

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
	r.sent <- struct{}{}
	return nil
}

func TestSubscriber_ForwardsBusEvents(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	rec := &recordingNotifier{sent: make(chan struct{}, 4)}
	sub := Subscribe(bus, rec, logger)

	bus.Emit(events.PositionClosedEvent{
		BaseEvent: events.NewBase(events.PositionClosed),
		Token:     token,
		Symbol:    "PEPE",
		Sold:      "1000",
		Reason:    "TrailingStop{pnl:50.00}",
		Backend:   "curve",
		TxRef:     "0xabc",
	})

	select {
	case <-rec.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("alert not delivered")
	}
	rec.mu.Lock()
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "Position closed", rec.alerts[0].Title)
	rec.mu.Unlock()

	sub.Unsubscribe()
	assert.Empty(t, bus.Stats().HandlersPerType)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zaptest.NewLogger(t))
	for _, lvl := range []Level{LevelInfo, LevelWarning, LevelCritical} {
		assert.NoError(t, n.Send(context.Background(), Alert{Level: lvl, Title: "t"}))
	}
}
