// internal/seller/coordinator.go
package seller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/events"
	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

var (
	// ErrQueueFull is returned by SubmitSell when the queue buffer is full.
	ErrQueueFull = errors.New("sell queue full")
	// ErrClosed is returned by SubmitSell after Close.
	ErrClosed = errors.New("sell coordinator closed")
)

// Request asks the coordinator to act on a decision for a token.
type Request struct {
	Token    common.Address
	Decision risk.Decision
	Enqueued time.Time
}

// Deps are the coordinator's collaborators. Journal, Bus and Metrics are optional.
type Deps struct {
	Store   *position.Store
	Ladder  []Attempt
	Journal history.Journal
	Bus     *events.Bus
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Coordinator is the single consumer of sell requests. It rate-limits per token,
// walks the attempt ladder and applies the result to the position store.
type Coordinator struct {
	cfg     Config
	store   *position.Store
	ladder  []Attempt
	journal history.Journal
	bus     *events.Bus
	metrics *metrics.Collector
	logger  *zap.Logger

	mu     sync.RWMutex // guards closed against sends on a closed queue
	closed bool
	queue  chan Request

	// consumer-only state
	lastAttempt map[common.Address]time.Time
	now         func() time.Time
}

// NewCoordinator validates cfg and builds a coordinator.
func NewCoordinator(cfg Config, deps Deps) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sell config: %w", err)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("position store is required")
	}
	if len(deps.Ladder) == 0 {
		return nil, fmt.Errorf("sell ladder is empty")
	}
	for i, a := range deps.Ladder {
		if a.Backend == nil {
			return nil, fmt.Errorf("ladder step %d has no backend", i)
		}
	}

	return &Coordinator{
		cfg:         cfg,
		store:       deps.Store,
		ladder:      deps.Ladder,
		journal:     deps.Journal,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		logger:      deps.Logger.Named("seller"),
		queue:       make(chan Request, cfg.QueueSize),
		lastAttempt: make(map[common.Address]time.Time),
		now:         time.Now,
	}, nil
}

// SubmitSell enqueues a request without blocking.
func (c *Coordinator) SubmitSell(token common.Address, decision risk.Decision) error {
	if decision == nil || decision.Kind() == risk.KindHold {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.queue <- Request{Token: token, Decision: decision, Enqueued: c.now()}:
		c.metrics.SetQueueDepth(len(c.queue))
		return nil
	default:
		c.metrics.RecordSellSkipped("queue_full")
		return ErrQueueFull
	}
}

// Close stops accepting requests. Run returns after draining what is queued or
// when its context ends.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
}

// Pending returns the number of queued requests.
func (c *Coordinator) Pending() int {
	return len(c.queue)
}

// Run consumes the queue until ctx is done or the coordinator is closed. A request
// being processed when ctx ends finishes its current attempt.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("Sell coordinator started", zap.Int("ladder_steps", len(c.ladder)))
	defer c.logger.Info("Sell coordinator stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-c.queue:
			if !ok {
				return nil
			}
			c.metrics.SetQueueDepth(len(c.queue))
			c.handle(ctx, req)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, req Request) {
	logger := c.logger.With(
		zap.String("token", req.Token.Hex()),
		zap.String("decision", req.Decision.String()))

	now := c.now()
	if last, ok := c.lastAttempt[req.Token]; ok && now.Sub(last) < c.cfg.Cooldown {
		logger.Info("Skipping sell: token in cooldown",
			zap.Duration("since_last", now.Sub(last)),
			zap.Duration("cooldown", c.cfg.Cooldown))
		c.metrics.RecordSellSkipped("cooldown")
		return
	}
	c.lastAttempt[req.Token] = now
	c.pruneCooldowns(now)
	// cooldown runs from the end of the ladder, so requests queued while it ran stay blocked
	defer func() { c.lastAttempt[req.Token] = c.now() }()

	pos, ok := c.store.Get(req.Token)
	if !ok {
		logger.Info("Skipping sell: position no longer tracked")
		c.metrics.RecordSellSkipped("not_tracked")
		return
	}
	if _, secure := req.Decision.(risk.SecureProfit); secure && pos.ProfitSecured {
		logger.Info("Skipping sell: profit already secured for this position")
		c.metrics.RecordSellSkipped("already_secured")
		return
	}

	amount := sellAmount(pos.Amount, req.Decision)
	if amount.Sign() <= 0 {
		logger.Warn("Skipping sell: computed amount is zero",
			zap.String("held", pos.Amount.String()),
			zap.Float64("portion", req.Decision.Portion()))
		c.metrics.RecordSellSkipped("dust")
		return
	}

	logger.Info("🔴 Executing sell",
		zap.String("label", pos.Label()),
		zap.String("amount", amount.String()),
		zap.String("held", pos.Amount.String()))

	var errs error
	for i, step := range c.ladder {
		if i > 0 && ctx.Err() != nil {
			logger.Warn("Shutdown requested, not starting further sell attempts", zap.Int("attempts_made", i))
			break
		}

		txRef, sold, err := c.attempt(ctx, step, req.Token, amount)
		if err == nil {
			c.applySuccess(pos, req.Decision, soldAmount(sold, amount), step, txRef, logger)
			return
		}

		logger.Warn("Sell attempt failed",
			zap.Int("attempt", i+1),
			zap.String("backend", step.Name),
			zap.Float64("slippage_pct", step.SlippagePct),
			zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("attempt %d (%s @ %.1f%%): %w", i+1, step.Name, step.SlippagePct, err))
	}

	// позиция остаётся как есть и будет переоценена на следующем цикле
	logger.Error("❌ All sell attempts failed, position kept", zap.Error(errs))
	c.bus.Emit(events.SellFailedEvent{
		BaseEvent: events.NewBase(events.SellFailed),
		Token:     req.Token,
		Symbol:    pos.Symbol,
		Reason:    req.Decision.String(),
		Err:       errs,
	})
}

// attempt runs one ladder step detached from shutdown cancellation so a started
// approve+sell pair is never abandoned midway.
func (c *Coordinator) attempt(ctx context.Context, step Attempt, token common.Address, amount *big.Int) (string, *big.Int, error) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	txRef, sold, err := step.Backend.Sell(attemptCtx, token, new(big.Int).Set(amount), step.SlippagePct)
	c.metrics.RecordSellAttempt(step.Name, time.Since(start), err == nil)
	return txRef, sold, err
}

// soldAmount trusts the backend's report, bounded by what was requested. A
// backend that reports nothing is taken to have sold the full request.
func soldAmount(reported, requested *big.Int) *big.Int {
	if reported == nil || reported.Sign() <= 0 {
		return requested
	}
	return types.MinAmount(reported, requested)
}

// applySuccess performs exactly one store mutation for the executed sell.
func (c *Coordinator) applySuccess(pos position.Position, decision risk.Decision, sold *big.Int, step Attempt, txRef string, logger *zap.Logger) {
	value := valueOf(pos, sold)
	fullExit := risk.IsFullExit(decision)

	var remaining *big.Int
	if fullExit {
		if _, ok := c.store.Remove(pos.Token); !ok {
			logger.Warn("Position disappeared before removal")
		}
		remaining = new(big.Int)
	} else {
		remaining = new(big.Int)
		_, secure := decision.(risk.SecureProfit)
		found := c.store.Mutate(pos.Token, func(p *position.Position) bool {
			// живой баланс мог измениться с момента копирования
			p.Shrink(sold)
			if secure {
				p.ProfitSecured = true
			}
			remaining.Set(p.Amount)
			return true
		})
		if !found {
			logger.Warn("Position disappeared before reduction")
		}
	}

	logger.Info("✅ Sell succeeded",
		zap.String("backend", step.Name),
		zap.String("sold", sold.String()),
		zap.String("remaining", remaining.String()),
		zap.Float64("est_value", value),
		zap.String("tx", txRef))

	history.Record(context.Background(), c.journal, history.TradeRecord{
		Token:        pos.Token,
		Name:         pos.Name,
		Symbol:       pos.Symbol,
		Side:         history.Sell,
		AmountTokens: sold.String(),
		Value:        value,
		TxRef:        txRef,
		Backend:      step.Name,
		Reason:       decision.String(),
		Timestamp:    c.now(),
	}, c.logger)

	if remaining.Sign() == 0 {
		c.bus.Emit(events.PositionClosedEvent{
			BaseEvent: events.NewBase(events.PositionClosed),
			Token:     pos.Token,
			Symbol:    pos.Symbol,
			Sold:      sold.String(),
			Reason:    decision.String(),
			Backend:   step.Name,
			TxRef:     txRef,
		})
		return
	}
	c.bus.Emit(events.PositionReducedEvent{
		BaseEvent: events.NewBase(events.PositionReduced),
		Token:     pos.Token,
		Symbol:    pos.Symbol,
		Sold:      sold.String(),
		Remaining: remaining.String(),
		Reason:    decision.String(),
		Backend:   step.Name,
		TxRef:     txRef,
	})
}

func (c *Coordinator) pruneCooldowns(now time.Time) {
	if len(c.lastAttempt) < 256 {
		return
	}
	for token, at := range c.lastAttempt {
		if now.Sub(at) >= c.cfg.Cooldown {
			delete(c.lastAttempt, token)
		}
	}
}

// sellAmount resolves the amount for decision, never more than held.
func sellAmount(held *big.Int, decision risk.Decision) *big.Int {
	if held == nil || held.Sign() <= 0 {
		return new(big.Int)
	}
	if risk.IsFullExit(decision) {
		return new(big.Int).Set(held)
	}
	return types.MinAmount(types.PortionOf(held, decision.Portion()), held)
}

// valueOf estimates the native value of sold from the last observed value.
func valueOf(pos position.Position, sold *big.Int) float64 {
	if pos.Amount == nil || pos.Amount.Sign() <= 0 || pos.LastValue <= 0 {
		return 0
	}
	ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(sold), new(big.Float).SetInt(pos.Amount)).Float64()
	return pos.LastValue * ratio
}
