// internal/bot/engine_test.go
package bot

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/monitor"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/seller"
	"github.com/rovshanmuradov/monad-bot/internal/storage/file"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	smart = common.HexToAddress("0x1111111111111111111111111111111111111111")
	scout = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type stubBackend struct {
	name  string
	mu    sync.Mutex
	sells int
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Sell(_ context.Context, _ common.Address, amount *big.Int, _ float64) (string, *big.Int, error) {
	b.mu.Lock()
	b.sells++
	b.mu.Unlock()
	return "0xsold-" + b.name, amount, nil
}

func (b *stubBackend) Buy(context.Context, common.Address, *big.Int, float64) (string, error) {
	return "", errors.New("buy disabled")
}

func (b *stubBackend) Quote(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *stubBackend) sellCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sells
}

// fixedQuoter values every position at the same native amount.
type fixedQuoter struct{ value float64 }

func (q fixedQuoter) Quote(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return types.NativeToWei(q.value), nil
}

type engineFixture struct {
	engine  *Engine
	storage *file.Store
	primary *stubBackend
	metrics *metrics.Collector
}

func newEngineFixture(t *testing.T, quote float64, interval time.Duration) *engineFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	st := file.New(file.Paths{
		Positions:  filepath.Join(dir, "positions.json"),
		Reputation: filepath.Join(dir, "wallet_scores.json"),
		Trades:     filepath.Join(dir, "trades.jsonl"),
	}, logger)

	mon := monitor.DefaultConfig()
	mon.Interval = interval

	f := &engineFixture{
		storage: st,
		primary: &stubBackend{name: "curve"},
		metrics: metrics.NewCollector(prometheus.NewRegistry()),
	}
	engine, err := NewEngine(Config{
		Risk:       risk.DefaultConfig(),
		Monitor:    mon,
		Sell:       seller.DefaultConfig(),
		Reputation: reputation.DefaultWeights(),
		Copy:       copytrade.DefaultConfig(),
	}, Deps{
		Storage:   st,
		Primary:   f.primary,
		Secondary: &stubBackend{name: "router"},
		Quoter:    fixedQuoter{value: quote},
		Metrics:   f.metrics,
		Logger:    logger,
	})
	require.NoError(t, err)
	f.engine = engine

	engine.store.Add(position.Position{
		Token:          token,
		Symbol:         "TKN",
		Amount:         big.NewInt(1_000),
		EntryValue:     1,
		EntryTime:      time.Now(),
		HighWaterValue: 1,
		Source:         "snipe",
	})
	return f
}

func (f *engineFixture) run(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.engine.Run(ctx) }()
	return cancel, errc
}

func TestEngine_SellFlowPersistsState(t *testing.T) {
	f := newEngineFixture(t, 1.0, time.Hour)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OpenPositionsGauge()))

	cancel, errc := f.run(t)
	require.NoError(t, f.engine.SubmitSell(token, risk.ForcedExit{Reason: "manual"}))

	require.Eventually(t, func() bool { return len(f.engine.Snapshot()) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)

	assert.Equal(t, 1, f.primary.sellCount())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.OpenPositionsGauge()))

	saved, err := f.storage.LoadPositions()
	require.NoError(t, err)
	assert.Empty(t, saved)

	summary, err := f.storage.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SellCount)

	require.NoError(t, f.engine.Shutdown(context.Background()))
}

func TestEngine_MonitorTriggersHardStop(t *testing.T) {
	// 0.5 against a 1.0 basis is -50%, beyond the -40% hard stop
	f := newEngineFixture(t, 0.5, 10*time.Millisecond)

	cancel, errc := f.run(t)
	require.Eventually(t, func() bool { return len(f.engine.Snapshot()) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errc)

	summary, err := f.storage.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.SellCount)
	assert.InDelta(t, 0.5, summary.TotalSold, 1e-9)

	require.NoError(t, f.engine.Shutdown(context.Background()))
}

func TestEngine_ReloadsPersistedPositions(t *testing.T) {
	f := newEngineFixture(t, 1.0, time.Hour)
	require.NoError(t, f.engine.Flush())

	reloaded := position.Load(f.storage, zaptest.NewLogger(t))
	p, ok := reloaded.Get(token)
	require.True(t, ok)
	assert.Equal(t, "1000", p.Amount.String())
	assert.Equal(t, "TKN", p.Symbol)

	require.NoError(t, f.engine.Shutdown(context.Background()))
}

func TestEngine_ObserveActorTradeScoutsUnknownWallet(t *testing.T) {
	f := newEngineFixture(t, 1.0, time.Hour)

	err := f.engine.ObserveActorTrade(context.Background(), copytrade.ActorTrade{
		Actor:     smart,
		Token:     common.HexToAddress("0x00000000000000000000000000000000000000dd"),
		IsBuy:     true,
		AmountIn:  types.NativeToWei(1),
		AmountOut: big.NewInt(10),
	})
	require.NoError(t, err)

	assert.Len(t, f.engine.Snapshot(), 1, "an unmirrored wallet is only scored")
	assert.Equal(t, 1, f.engine.tracker.OpenEntries())

	require.NoError(t, f.engine.Shutdown(context.Background()))
}

func TestNewEngine_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := Config{Risk: risk.DefaultConfig(), Monitor: monitor.DefaultConfig(), Sell: seller.DefaultConfig(),
		Reputation: reputation.DefaultWeights(), Copy: copytrade.DefaultConfig()}

	_, err := NewEngine(cfg, Deps{Quoter: fixedQuoter{}, Logger: logger})
	assert.Error(t, err)

	_, err = NewEngine(cfg, Deps{Primary: &stubBackend{}, Secondary: &stubBackend{}, Logger: logger})
	assert.Error(t, err)

	bad := cfg
	bad.Risk.HardStopLossPct = 10
	_, err = NewEngine(bad, Deps{Primary: &stubBackend{}, Secondary: &stubBackend{}, Quoter: fixedQuoter{}, Logger: logger})
	assert.Error(t, err)
}

func TestListenerWallets(t *testing.T) {
	assert.Nil(t, listenerWallets(copytrade.Config{SmartWallets: []string{smart.Hex()}}))

	got := listenerWallets(copytrade.Config{
		SmartWallets: []string{smart.Hex(), scout.Hex()},
		ScoutWallets: []string{scout.Hex()},
	})
	assert.Equal(t, []common.Address{smart, scout}, got)
}
