// internal/copytrade/handler_test.go
package copytrade

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

var (
	whale = common.HexToAddress("0x1111111111111111111111111111111111111111")
	scout = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type fakeBuyer struct {
	mu    sync.Mutex
	spent []*big.Int
	err   error
}

func (b *fakeBuyer) Name() string { return "curve" }

func (b *fakeBuyer) Sell(context.Context, common.Address, *big.Int, float64) (string, *big.Int, error) {
	return "", nil, errors.New("not used")
}

func (b *fakeBuyer) Buy(_ context.Context, _ common.Address, amountIn *big.Int, _ float64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent = append(b.spent, amountIn)
	if b.err != nil {
		return "", b.err
	}
	return "0xbuy", nil
}

func (b *fakeBuyer) Quote(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(1), nil
}

type fakeWallet struct {
	balance *big.Int
	err     error
	name    string
	symbol  string
}

func (w *fakeWallet) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return w.balance, w.err
}

func (w *fakeWallet) TokenInfo(context.Context, common.Address) (string, string, error) {
	if w.name == "" {
		return "", "", errors.New("no metadata")
	}
	return w.name, w.symbol, nil
}

type recordingSubmitter struct {
	mu    sync.Mutex
	sells map[common.Address]risk.Decision
}

func (s *recordingSubmitter) SubmitSell(token common.Address, d risk.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sells == nil {
		s.sells = make(map[common.Address]risk.Decision)
	}
	s.sells[token] = d
	return nil
}

type memJournal struct {
	mu      sync.Mutex
	records []history.TradeRecord
}

func (j *memJournal) RecordTrade(_ context.Context, rec history.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) Summary(context.Context) (history.Summary, error) {
	return history.Summarize(j.records), nil
}

type fixture struct {
	h       *Handler
	tracker *reputation.Tracker
	store   *position.Store
	buyer   *fakeBuyer
	wallet  *fakeWallet
	sub     *recordingSubmitter
	journal *memJournal
	metrics *metrics.Collector
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.SmartWallets = []string{whale.Hex()}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		tracker: reputation.NewTracker(reputation.DefaultWeights(), nil, logger),
		store:   position.NewStore(nil, logger),
		buyer:   &fakeBuyer{},
		wallet:  &fakeWallet{balance: big.NewInt(5_000), name: "Pepe", symbol: "PEPE"},
		sub:     &recordingSubmitter{},
		journal: &memJournal{},
		metrics: metrics.NewCollector(prometheus.NewRegistry()),
	}
	h, err := NewHandler(cfg, Deps{
		Tracker:   f.tracker,
		Store:     f.store,
		Buyer:     f.buyer,
		Wallet:    f.wallet,
		Submitter: f.sub,
		Journal:   f.journal,
		Metrics:   f.metrics,
		Logger:    logger,
	})
	require.NoError(t, err)
	f.h = h
	return f
}

func buy(actor common.Address, native float64) ActorTrade {
	return ActorTrade{Actor: actor, Token: token, IsBuy: true, AmountIn: types.NativeToWei(native), AmountOut: big.NewInt(1)}
}

func sell(actor common.Address, native float64) ActorTrade {
	return ActorTrade{Actor: actor, Token: token, AmountIn: big.NewInt(1), AmountOut: types.NativeToWei(native)}
}

// closeTrades records n closed trades of capital -> proceeds for actor.
func closeTrades(tr *reputation.Tracker, actor common.Address, n int, capital, proceeds float64) {
	for i := 0; i < n; i++ {
		tok := common.BigToAddress(big.NewInt(int64(1000 + i)))
		tr.RecordEntry(actor, tok, capital)
		tr.RecordExit(actor, tok, proceeds)
	}
}

func TestConfig_Size(t *testing.T) {
	cfg := DefaultConfig() // base 0.1, max 1.0, pct 10, min input 0.5

	tests := []struct {
		name    string
		whaleIn float64
		want    float64
	}{
		{"small whale uses base", 0.4, 0.1},
		{"at threshold uses base", 0.5, 0.1},
		{"scaled below base keeps base", 0.8, 0.1},
		{"scaled", 5, 0.5},
		{"capped", 50, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cfg.Size(tt.whaleIn), 1e-9)
		})
	}

	cfg.MaxAmount = 0
	assert.InDelta(t, 5.0, cfg.Size(50), 1e-9, "zero max disables the cap")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.SmartWallets = []string{"not-an-address"}
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxAmount = 0.05
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Enabled = true
	bad.BaseAmount = 0
	assert.Error(t, bad.Validate())
}

func TestHandler_MirroredBuyOpensPosition(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.h.ObserveActorTrade(context.Background(), buy(whale, 5)))

	require.Len(t, f.buyer.spent, 1)
	assert.Equal(t, types.NativeToWei(0.5).String(), f.buyer.spent[0].String())

	pos, ok := f.store.Get(token)
	require.True(t, ok)
	assert.Equal(t, "5000", pos.Amount.String())
	assert.Equal(t, "PEPE", pos.Symbol)
	assert.Equal(t, SourceCopy, pos.Source)
	assert.InDelta(t, 0.5, pos.EntryValue, 1e-9)
	assert.Equal(t, "0xbuy", pos.TxRef)

	require.Len(t, f.journal.records, 1)
	assert.Equal(t, history.Buy, f.journal.records[0].Side)
	assert.Equal(t, token, f.journal.records[0].Token)
	assert.Equal(t, "5000", f.journal.records[0].AmountTokens)

	// the whale's entry is now open in the ledger
	assert.Equal(t, 1, f.tracker.OpenEntries())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CopyTrades(OutcomeExecuted)))
}

func TestHandler_MirroredBuyAddsToHeldPosition(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Add(position.Position{
		Token:          token,
		Symbol:         "PEPE",
		Amount:         big.NewInt(2_000),
		EntryValue:     0.4,
		HighWaterValue: 0.6,
		LastValue:      0.5,
		Source:         SourceCopy,
	})

	// wallet balance after the buy covers both tranches
	require.NoError(t, f.h.ObserveActorTrade(context.Background(), buy(whale, 5)))

	pos, ok := f.store.Get(token)
	require.True(t, ok)
	assert.Equal(t, "5000", pos.Amount.String())
	assert.InDelta(t, 0.9, pos.EntryValue, 1e-9, "basis includes the earlier buy")
	assert.InDelta(t, 1.1, pos.HighWaterValue, 1e-9)
	assert.InDelta(t, 1.0, pos.LastValue, 1e-9)
	assert.Equal(t, "0xbuy", pos.TxRef)

	require.Len(t, f.journal.records, 1)
	assert.Equal(t, "3000", f.journal.records[0].AmountTokens)
}

func TestAddToPosition_FallbackAmountIsAdded(t *testing.T) {
	prev := position.Position{Token: token, Name: "Pepe", Amount: big.NewInt(2_000), EntryValue: 0.4}
	next := position.Position{Token: token, Name: "CopyTrade", Amount: big.NewInt(100), EntryValue: 0.1, TxRef: "0x2"}

	merged := addToPosition(prev, next, false)
	assert.Equal(t, "2100", merged.Amount.String())
	assert.InDelta(t, 0.5, merged.EntryValue, 1e-9)
	assert.Equal(t, "Pepe", merged.Name)
	assert.Equal(t, "2000", prev.Amount.String(), "input left untouched")
}

func TestHandler_BalanceAndMetadataFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.wallet.err = errors.New("rpc down")
	f.wallet.balance = nil
	f.wallet.name = ""

	require.NoError(t, f.h.ObserveActorTrade(context.Background(), buy(whale, 0.2)))

	pos, ok := f.store.Get(token)
	require.True(t, ok)
	assert.Equal(t, types.NativeToWei(0.1).String(), pos.Amount.String())
	assert.Equal(t, "COPY", pos.Symbol)
	assert.Equal(t, "CopyTrade-"+token.Hex(), pos.Name)
}

func TestHandler_LowScoreRejected(t *testing.T) {
	f := newFixture(t, nil)
	closeTrades(f.tracker, whale, 3, 1, 0)
	require.Less(t, f.tracker.Score(whale), 40.0)

	require.NoError(t, f.h.ObserveActorTrade(context.Background(), buy(whale, 5)))

	assert.Empty(t, f.buyer.spent)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.tracker.OpenEntries(), "rejected trades are not recorded")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CopyTrades(OutcomeRejected)))
}

func TestHandler_BuyFailureLeavesStoreEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.buyer.err = errors.New("execution reverted")

	err := f.h.ObserveActorTrade(context.Background(), buy(whale, 1))
	require.Error(t, err)
	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.journal.records)
}

func TestHandler_DisabledOnlyScores(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Enabled = false })

	require.NoError(t, f.h.ObserveActorTrade(context.Background(), buy(whale, 1)))
	assert.Empty(t, f.buyer.spent)
	assert.Equal(t, 1, f.tracker.OpenEntries())
}

func TestHandler_MirroredSellForcesExit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.h.ObserveActorTrade(ctx, buy(whale, 1)))

	require.NoError(t, f.h.ObserveActorTrade(ctx, sell(whale, 2)))

	d, ok := f.sub.sells[token]
	require.True(t, ok)
	assert.Equal(t, risk.KindForcedExit, d.Kind())
	assert.Contains(t, d.String(), whale.Hex())

	rec, ok := f.tracker.Record(whale)
	require.True(t, ok)
	assert.Equal(t, uint32(1), rec.TotalTrades)

	// the position itself is only changed by the sell coordinator
	_, ok = f.store.Get(token)
	assert.True(t, ok)
}

func TestHandler_MirroredSellWithoutPosition(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.h.ObserveActorTrade(context.Background(), sell(whale, 2)))
	assert.Empty(t, f.sub.sells)
}

func TestHandler_ScoutIsObservedOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.h.ObserveActorTrade(ctx, buy(scout, 1)))
	require.NoError(t, f.h.ObserveActorTrade(ctx, sell(scout, 3)))

	assert.Empty(t, f.buyer.spent)
	assert.False(t, f.h.IsMirrored(scout), "fewer than three trades keep the neutral score")
	rec, ok := f.tracker.Record(scout)
	require.True(t, ok)
	assert.Equal(t, uint32(1), rec.Wins)
}

func TestHandler_ScoutPromotion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	closeTrades(f.tracker, scout, 2, 10, 20)

	require.NoError(t, f.h.ObserveActorTrade(ctx, buy(scout, 10)))
	require.NoError(t, f.h.ObserveActorTrade(ctx, sell(scout, 20)))

	require.Greater(t, f.tracker.Score(scout), 80.0)
	assert.True(t, f.h.IsMirrored(scout))
	assert.Equal(t, []common.Address{scout}, f.h.Promoted())
	assert.Len(t, f.h.Wallets(), 2)

	// promoted wallets are copied from now on
	require.NoError(t, f.h.ObserveActorTrade(ctx, buy(scout, 1)))
	assert.Len(t, f.buyer.spent, 1)
}

func TestNewHandler_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tracker := reputation.NewTracker(reputation.DefaultWeights(), nil, logger)
	store := position.NewStore(nil, logger)

	_, err := NewHandler(DefaultConfig(), Deps{Tracker: tracker, Store: store})
	assert.Error(t, err, "submitter is required")

	cfg := DefaultConfig()
	cfg.Enabled = true
	_, err = NewHandler(cfg, Deps{Tracker: tracker, Store: store, Submitter: &recordingSubmitter{}})
	assert.Error(t, err, "buyer is required when enabled")

	_, err = NewHandler(DefaultConfig(), Deps{Tracker: tracker, Store: store, Submitter: &recordingSubmitter{}})
	assert.NoError(t, err)
}
