// internal/bot/engine.go
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
	"github.com/rovshanmuradov/monad-bot/internal/eventlistener"
	"github.com/rovshanmuradov/monad-bot/internal/events"
	"github.com/rovshanmuradov/monad-bot/internal/executor"
	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/logger"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/monitor"
	"github.com/rovshanmuradov/monad-bot/internal/notify"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/seller"
	"github.com/rovshanmuradov/monad-bot/internal/storage"
)

const busBufferSize = 256

// Config groups the engine's component settings.
type Config struct {
	Risk       risk.Config
	Monitor    monitor.Config
	Sell       seller.Config
	Reputation reputation.Weights
	Copy       copytrade.Config
	// CurveEvents is the emitter followed by the listener; zero follows any.
	CurveEvents common.Address
}

// Deps are the external collaborators. Storage, Logs, Notifier and Metrics may be nil.
type Deps struct {
	Storage   storage.Storage
	Primary   executor.Backend
	Secondary executor.Backend
	Quoter    executor.Quoter
	Wallet    copytrade.Wallet
	Logs      eventlistener.LogSource
	Notifier  notify.Notifier
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Engine owns the position store, the reputation tracker and the tasks that act
// on them: monitor, sell coordinator, copy-trade handler and log listener.
type Engine struct {
	store       *position.Store
	tracker     *reputation.Tracker
	bus         *events.Bus
	coordinator *seller.Coordinator
	monitor     *monitor.Monitor
	copier      *copytrade.Handler
	listener    *eventlistener.EventListener
	alerts      *notify.Subscriber
	journal     history.Journal
	logger      *zap.Logger
}

// NewEngine loads persisted state and wires the components.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Primary == nil || deps.Secondary == nil {
		return nil, errors.New("primary and secondary backends are required")
	}
	if deps.Quoter == nil {
		return nil, errors.New("quote source is required")
	}
	if err := cfg.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}
	log := deps.Logger.Named("engine")

	var (
		posSnap position.Snapshotter
		repSnap reputation.Snapshotter
		journal history.Journal
	)
	if deps.Storage != nil {
		posSnap, repSnap, journal = deps.Storage, deps.Storage, deps.Storage
	}

	store := position.Load(posSnap, deps.Logger)
	store.SetObserver(deps.Metrics.SetOpenPositions)
	deps.Metrics.SetOpenPositions(store.Len())

	tracker := reputation.NewTracker(cfg.Reputation, repSnap, deps.Logger)
	bus := events.NewBus(deps.Logger, busBufferSize)

	coordinator, err := seller.NewCoordinator(cfg.Sell, seller.Deps{
		Store:   store,
		Ladder:  seller.DefaultLadder(deps.Primary, deps.Secondary, cfg.Sell),
		Journal: journal,
		Bus:     bus,
		Metrics: deps.Metrics,
		Logger:  deps.Logger,
	})
	if err != nil {
		_ = bus.Shutdown(context.Background())
		return nil, fmt.Errorf("build sell coordinator: %w", err)
	}

	copier, err := copytrade.NewHandler(cfg.Copy, copytrade.Deps{
		Tracker:   tracker,
		Store:     store,
		Buyer:     deps.Primary,
		Wallet:    deps.Wallet,
		Submitter: coordinator,
		Journal:   journal,
		Bus:       bus,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	})
	if err != nil {
		_ = bus.Shutdown(context.Background())
		return nil, fmt.Errorf("build copy handler: %w", err)
	}

	e := &Engine{
		store:       store,
		tracker:     tracker,
		bus:         bus,
		coordinator: coordinator,
		monitor:     monitor.New(cfg.Monitor, store, risk.NewEvaluator(cfg.Risk), deps.Quoter, coordinator, deps.Metrics, deps.Logger),
		copier:      copier,
		journal:     journal,
		logger:      log,
	}

	if deps.Logs != nil {
		e.listener = eventlistener.NewEventListener(deps.Logs, eventlistener.Config{
			Emitter: cfg.CurveEvents,
			Wallets: listenerWallets(cfg.Copy),
		}, e, deps.Metrics, deps.Logger)
	}
	if deps.Notifier != nil {
		e.alerts = notify.Subscribe(bus, deps.Notifier, deps.Logger)
	}

	log.Info("Engine ready",
		zap.Int("positions", store.Len()),
		zap.Bool("copy_trading", cfg.Copy.Enabled),
		zap.Bool("listener", e.listener != nil))
	return e, nil
}

// listenerWallets returns nil (follow everyone) unless scouts are restricted.
func listenerWallets(cfg copytrade.Config) []common.Address {
	if len(cfg.ScoutWallets) == 0 {
		return nil
	}
	seen := make(map[common.Address]struct{})
	var out []common.Address
	for _, w := range append(append([]string{}, cfg.SmartWallets...), cfg.ScoutWallets...) {
		addr := common.HexToAddress(w)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// SubmitSell enqueues an exit; it never blocks.
func (e *Engine) SubmitSell(token common.Address, decision risk.Decision) error {
	return e.coordinator.SubmitSell(token, decision)
}

// Snapshot returns copies of all open positions.
func (e *Engine) Snapshot() []position.Position {
	return e.store.All()
}

// ObserveActorTrade feeds a third-party trade into scoring and copy trading.
func (e *Engine) ObserveActorTrade(ctx context.Context, trade copytrade.ActorTrade) error {
	return e.copier.ObserveActorTrade(ctx, trade)
}

// Bus exposes the event bus for additional subscribers.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Run starts the tasks and blocks until ctx is cancelled. Positions and actor
// records are flushed before it returns.
func (e *Engine) Run(ctx context.Context) error {
	history.LogSummary(ctx, e.journal, e.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.coordinator.Run(gctx) })
	g.Go(func() error { return e.monitor.Run(gctx) })
	if e.listener != nil {
		g.Go(func() error { return e.listener.Run(gctx) })
	}

	err := g.Wait()
	if ferr := e.Flush(); ferr != nil {
		err = multierr.Append(err, ferr)
	}
	return err
}

// Flush writes the current positions and actor records.
func (e *Engine) Flush() error {
	opLogger := logger.WithOperation(e.logger, "flush")
	err := multierr.Combine(
		e.store.Save(),
		e.tracker.Save(),
	)
	if err != nil {
		opLogger.Error("Failed to flush state", zap.Error(err))
		return err
	}
	opLogger.Info("💾 State flushed",
		zap.Int("positions", e.store.Len()),
		zap.Int("open_actor_entries", e.tracker.OpenEntries()))
	return nil
}

// Shutdown stops accepting sells, flushes state and drains the event bus.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.coordinator.Close()
	err := e.Flush()
	if e.alerts != nil {
		defer e.alerts.Unsubscribe()
	}
	return multierr.Append(err, e.bus.Shutdown(ctx))
}
