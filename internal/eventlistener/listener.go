// internal/eventlistener/listener.go
package eventlistener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/monad-bot/internal/metrics"
)

// EventListener follows curve trade logs and hands them to the sink. It
// resubscribes with exponential backoff whenever the subscription drops.
type EventListener struct {
	src     LogSource
	cfg     Config
	sink    Sink
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewEventListener creates a listener; Run starts it.
func NewEventListener(src LogSource, cfg Config, sink Sink, m *metrics.Collector, logger *zap.Logger) *EventListener {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	return &EventListener{
		src:     src,
		cfg:     cfg,
		sink:    sink,
		metrics: m,
		logger:  logger.Named("eventlistener"),
	}
}

// Run blocks until ctx is cancelled.
func (el *EventListener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(el.cfg.Workers)
	defer func() { _ = g.Wait() }()

	el.logger.Info("Listening for curve trades",
		zap.String("emitter", el.cfg.Emitter.Hex()),
		zap.Int("wallets", len(el.cfg.Wallets)))

	for {
		healthy, err := el.follow(gctx, g)
		if ctx.Err() != nil {
			return nil
		}
		if healthy {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		el.metrics.RecordReconnect()
		el.logger.Warn("Log subscription lost, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// follow runs one subscription until it fails. healthy reports whether at least
// one log was received, which resets the backoff.
func (el *EventListener) follow(ctx context.Context, g *errgroup.Group) (bool, error) {
	logs := make(chan gethtypes.Log, el.cfg.Buffer)
	query := ethereum.FilterQuery{Topics: filterTopics(el.cfg.Wallets)}
	if el.cfg.Emitter != (common.Address{}) {
		query.Addresses = []common.Address{el.cfg.Emitter}
	}

	sub, err := el.src.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	healthy := false
	for {
		select {
		case <-ctx.Done():
			return healthy, ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return healthy, err
		case lg := <-logs:
			healthy = true
			el.dispatch(ctx, g, lg)
		}
	}
}

func (el *EventListener) dispatch(ctx context.Context, g *errgroup.Group, lg gethtypes.Log) {
	if lg.Removed {
		el.logger.Debug("Skipping reorged log", zap.String("tx", lg.TxHash.Hex()))
		return
	}
	trade, err := Decode(lg)
	if err != nil {
		el.logger.Debug("Skipping undecodable log", zap.Error(err))
		return
	}

	g.Go(func() error {
		if err := el.sink.ObserveActorTrade(ctx, trade); err != nil {
			el.logger.Error("Failed to handle actor trade",
				zap.String("actor", trade.Actor.Hex()),
				zap.String("token", trade.Token.Hex()),
				zap.Bool("buy", trade.IsBuy),
				zap.Error(err))
		}
		// ошибки обработчика не останавливают слушатель
		return nil
	})
}
