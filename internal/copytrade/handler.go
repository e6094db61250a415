// internal/copytrade/handler.go
package copytrade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/events"
	"github.com/rovshanmuradov/monad-bot/internal/executor"
	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// SourceCopy marks positions opened by mirroring another wallet.
const SourceCopy = "copy"

// Outcome labels for metrics.
const (
	OutcomeObserved = "observed"
	OutcomeRejected = "rejected"
	OutcomeExecuted = "executed"
	OutcomeFailed   = "failed"
	OutcomeExit     = "exit"
)

// ActorTrade is one observed third-party trade on the curve.
type ActorTrade struct {
	Actor common.Address
	Token common.Address
	IsBuy bool
	// AmountIn is native wei for buys and token units for sells.
	AmountIn *big.Int
	// AmountOut is token units for buys and native wei for sells.
	AmountOut *big.Int
	TxHash    common.Hash
	Block     uint64
}

// Wallet reads our own holdings and token metadata.
type Wallet interface {
	BalanceOf(ctx context.Context, token common.Address) (*big.Int, error)
	TokenInfo(ctx context.Context, token common.Address) (string, string, error)
}

// Submitter enqueues a sell; implemented by the sell coordinator.
type Submitter interface {
	SubmitSell(token common.Address, decision risk.Decision) error
}

// Deps groups the collaborators of the handler. Journal, Bus and Metrics may be nil.
type Deps struct {
	Tracker   *reputation.Tracker
	Store     *position.Store
	Buyer     executor.Backend
	Wallet    Wallet
	Submitter Submitter
	Journal   history.Journal
	Bus       *events.Bus
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Handler applies admission control to observed trades and mirrors the ones that pass.
type Handler struct {
	cfg  Config
	deps Deps

	mu       sync.RWMutex
	smart    map[common.Address]struct{}
	promoted map[common.Address]struct{}

	now    func() time.Time
	logger *zap.Logger
}

// NewHandler validates cfg and builds the handler.
func NewHandler(cfg Config, deps Deps) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid copy config: %w", err)
	}
	if deps.Tracker == nil || deps.Store == nil || deps.Submitter == nil {
		return nil, errors.New("copytrade: tracker, store and submitter are required")
	}
	if cfg.Enabled && (deps.Buyer == nil || deps.Wallet == nil) {
		return nil, errors.New("copytrade: buyer and wallet are required when copying is enabled")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	h := &Handler{
		cfg:      cfg,
		deps:     deps,
		smart:    make(map[common.Address]struct{}, len(cfg.SmartWallets)),
		promoted: make(map[common.Address]struct{}),
		now:      time.Now,
		logger:   deps.Logger.Named("copytrade"),
	}
	for _, w := range cfg.SmartWallets {
		h.smart[common.HexToAddress(w)] = struct{}{}
	}
	return h, nil
}

// IsMirrored reports whether trades of actor are copied (configured or promoted).
func (h *Handler) IsMirrored(actor common.Address) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.smart[actor]; ok {
		return true
	}
	_, ok := h.promoted[actor]
	return ok
}

// Promoted returns the wallets promoted from scout mode.
func (h *Handler) Promoted() []common.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]common.Address, 0, len(h.promoted))
	for a := range h.promoted {
		out = append(out, a)
	}
	return out
}

// Wallets returns the configured smart wallets plus promoted ones.
func (h *Handler) Wallets() []common.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]common.Address, 0, len(h.smart)+len(h.promoted))
	for a := range h.smart {
		out = append(out, a)
	}
	for a := range h.promoted {
		if _, ok := h.smart[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// ObserveActorTrade feeds the reputation tracker and, for mirrored wallets, copies
// the trade. It never mutates a position directly on a sell; exits go through the
// sell queue.
func (h *Handler) ObserveActorTrade(ctx context.Context, trade ActorTrade) error {
	if trade.AmountIn == nil {
		trade.AmountIn = new(big.Int)
	}
	if trade.AmountOut == nil {
		trade.AmountOut = new(big.Int)
	}

	if !h.IsMirrored(trade.Actor) {
		h.scout(trade)
		return nil
	}
	if trade.IsBuy {
		return h.mirrorBuy(ctx, trade)
	}
	return h.mirrorSell(trade)
}

// scout only records the trade; a profitable closing trade may promote the wallet.
func (h *Handler) scout(trade ActorTrade) {
	h.deps.Metrics.RecordCopyTrade(OutcomeObserved)

	if trade.IsBuy {
		h.deps.Tracker.RecordEntry(trade.Actor, trade.Token, types.WeiToNative(trade.AmountIn))
		return
	}

	pnl, closed := h.deps.Tracker.RecordExit(trade.Actor, trade.Token, types.WeiToNative(trade.AmountOut))
	if !closed {
		return
	}
	score := h.deps.Tracker.Score(trade.Actor)
	if score <= h.cfg.PromoteScore {
		return
	}

	h.mu.Lock()
	_, already := h.promoted[trade.Actor]
	h.promoted[trade.Actor] = struct{}{}
	h.mu.Unlock()
	if already {
		return
	}

	h.logger.Info("🎖 Scout wallet promoted",
		zap.String("actor", trade.Actor.Hex()),
		zap.Float64("score", score),
		zap.Float64("last_pnl", pnl))
	h.deps.Bus.Emit(events.ActorPromotedEvent{
		BaseEvent: events.NewBase(events.ActorPromoted),
		Actor:     trade.Actor,
		Score:     score,
	})
}

func (h *Handler) mirrorBuy(ctx context.Context, trade ActorTrade) error {
	logger := h.logger.With(
		zap.String("actor", trade.Actor.Hex()),
		zap.String("token", trade.Token.Hex()))

	score := h.deps.Tracker.Score(trade.Actor)
	if score < h.cfg.MinScore {
		logger.Info("Copy trade rejected, low score", zap.Float64("score", score))
		h.deps.Metrics.RecordCopyTrade(OutcomeRejected)
		h.deps.Bus.Emit(events.CopyTradeRejectedEvent{
			BaseEvent: events.NewBase(events.CopyTradeRejected),
			Actor:     trade.Actor,
			Token:     trade.Token,
			Score:     score,
		})
		return nil
	}

	whaleIn := types.WeiToNative(trade.AmountIn)
	h.deps.Tracker.RecordEntry(trade.Actor, trade.Token, whaleIn)

	if !h.cfg.Enabled {
		h.deps.Metrics.RecordCopyTrade(OutcomeObserved)
		return nil
	}

	size := h.cfg.Size(whaleIn)
	amountIn := types.NativeToWei(size)
	logger.Info("🐋 Copying buy",
		zap.Float64("score", score),
		zap.Float64("whale_in", whaleIn),
		zap.Float64("size", size))

	txRef, err := h.deps.Buyer.Buy(ctx, trade.Token, amountIn, h.cfg.SlippagePct)
	if err != nil {
		h.deps.Metrics.RecordCopyTrade(OutcomeFailed)
		return fmt.Errorf("copy buy %s: %w", trade.Token.Hex(), err)
	}

	held, err := h.deps.Wallet.BalanceOf(ctx, trade.Token)
	balanceKnown := err == nil && held != nil && held.Sign() > 0
	if !balanceKnown {
		// баланс ещё не виден, берём размер покупки
		logger.Warn("Balance unavailable after buy, using buy amount", zap.Error(err))
		held = new(big.Int).Set(amountIn)
	}

	name, symbol, err := h.deps.Wallet.TokenInfo(ctx, trade.Token)
	if err != nil || (name == "" && symbol == "") {
		name = "CopyTrade-" + trade.Token.Hex()
		symbol = "COPY"
	}

	pos := position.Position{
		Token:          trade.Token,
		Name:           name,
		Symbol:         symbol,
		Amount:         held,
		EntryValue:     size,
		EntryTime:      h.now(),
		HighWaterValue: size,
		LastValue:      size,
		TxRef:          txRef,
		Source:         SourceCopy,
	}
	bought := held
	if prev, ok := h.deps.Store.Get(trade.Token); ok {
		pos = addToPosition(prev, pos, balanceKnown)
		if balanceKnown && held.Cmp(prev.Amount) > 0 {
			bought = new(big.Int).Sub(held, prev.Amount)
		}
		logger.Info("Added to existing position",
			zap.String("amount", pos.Amount.String()),
			zap.Float64("entry_value", pos.EntryValue))
	}
	h.deps.Store.Add(pos)
	h.deps.Metrics.RecordCopyTrade(OutcomeExecuted)

	history.Record(ctx, h.deps.Journal, history.TradeRecord{
		Token:        trade.Token,
		Name:         name,
		Symbol:       symbol,
		Side:         history.Buy,
		AmountTokens: bought.String(),
		Value:        size,
		TxRef:        txRef,
		Backend:      h.deps.Buyer.Name(),
		Reason:       "copy " + trade.Actor.Hex(),
		Timestamp:    h.now(),
	}, logger)

	h.deps.Bus.Emit(events.PositionOpenedEvent{
		BaseEvent:  events.NewBase(events.PositionOpened),
		Token:      trade.Token,
		Symbol:     symbol,
		Amount:     pos.Amount.String(),
		EntryValue: pos.EntryValue,
		Source:     SourceCopy,
		TxRef:      txRef,
	})
	logger.Info("✅ Copy position opened", zap.String("tx", txRef), zap.String("amount", pos.Amount.String()))
	return nil
}

func (h *Handler) mirrorSell(trade ActorTrade) error {
	h.deps.Tracker.RecordExit(trade.Actor, trade.Token, types.WeiToNative(trade.AmountOut))

	if _, ok := h.deps.Store.Get(trade.Token); !ok {
		return nil
	}

	h.deps.Metrics.RecordCopyTrade(OutcomeExit)
	h.logger.Info("Mirrored wallet exited, forcing sell",
		zap.String("actor", trade.Actor.Hex()),
		zap.String("token", trade.Token.Hex()))

	decision := risk.ForcedExit{Reason: fmt.Sprintf("smart wallet %s exited", trade.Actor.Hex())}
	if err := h.deps.Submitter.SubmitSell(trade.Token, decision); err != nil {
		return fmt.Errorf("submit forced exit %s: %w", trade.Token.Hex(), err)
	}
	return nil
}

// Size returns the native amount to spend when copying a buy of whaleIn.
func (c Config) Size(whaleIn float64) float64 {
	if whaleIn <= c.WhaleMinInput || math.IsNaN(whaleIn) {
		return c.BaseAmount
	}
	size := math.Max(c.BaseAmount, whaleIn*c.WhaleCopyPct/100)
	if c.MaxAmount > 0 {
		size = math.Min(size, c.MaxAmount)
	}
	return size
}

// addToPosition folds a new buy into a held position. The cost basis, peak and
// last value grow by the new buy. A wallet balance already includes the old
// tokens; a fallback amount does not, so it is added.
func addToPosition(prev, buy position.Position, balanceKnown bool) position.Position {
	merged := prev.Clone()
	if balanceKnown {
		merged.Amount = new(big.Int).Set(buy.Amount)
	} else {
		merged.Amount = new(big.Int).Add(prev.Amount, buy.Amount)
	}
	merged.EntryValue += buy.EntryValue
	merged.HighWaterValue += buy.EntryValue
	merged.LastValue += buy.EntryValue
	merged.TxRef = buy.TxRef
	if merged.Name == "" {
		merged.Name, merged.Symbol = buy.Name, buy.Symbol
	}
	return merged
}
