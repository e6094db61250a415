// internal/notify/subscriber.go
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/events"
)

const sendTimeout = 15 * time.Second

// Subscriber forwards engine events to a Notifier.
type Subscriber struct {
	notifier Notifier
	sub      events.Subscription
	logger   *zap.Logger
}

// Subscribe registers alert handlers for every engine event on bus.
func Subscribe(bus *events.Bus, n Notifier, logger *zap.Logger) *Subscriber {
	s := &Subscriber{notifier: n, logger: logger.Named("notify")}
	s.sub = bus.SubscribeAll(events.AllTypes, events.HandlerFunc(s.handle))
	return s
}

// Unsubscribe removes all handlers.
func (s *Subscriber) Unsubscribe() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

func (s *Subscriber) handle(ctx context.Context, e events.Event) error {
	alert, ok := AlertFor(e)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()
	if err := s.notifier.Send(ctx, alert); err != nil {
		return fmt.Errorf("send %s alert: %w", e.Type(), err)
	}
	return nil
}

// AlertFor maps an engine event to an alert.
func AlertFor(e events.Event) (Alert, bool) {
	switch ev := e.(type) {
	case events.PositionOpenedEvent:
		return Alert{
			Level: LevelInfo,
			Title: "Position opened",
			Message: fmt.Sprintf("%s %s\nAmount: %s\nCost: %.4f\nSource: %s\nTx: %s",
				ev.Symbol, ev.Token.Hex(), ev.Amount, ev.EntryValue, ev.Source, ev.TxRef),
		}, true
	case events.PositionReducedEvent:
		return Alert{
			Level: LevelInfo,
			Title: "Profit secured",
			Message: fmt.Sprintf("%s %s\nSold: %s, left: %s\nReason: %s\nVia: %s\nTx: %s",
				ev.Symbol, ev.Token.Hex(), ev.Sold, ev.Remaining, ev.Reason, ev.Backend, ev.TxRef),
		}, true
	case events.PositionClosedEvent:
		return Alert{
			Level: LevelInfo,
			Title: "Position closed",
			Message: fmt.Sprintf("%s %s\nSold: %s\nReason: %s\nVia: %s\nTx: %s",
				ev.Symbol, ev.Token.Hex(), ev.Sold, ev.Reason, ev.Backend, ev.TxRef),
		}, true
	case events.SellFailedEvent:
		return Alert{
			Level: LevelCritical,
			Title: "Sell failed",
			Message: fmt.Sprintf("%s %s\nReason: %s\nError: %v",
				ev.Symbol, ev.Token.Hex(), ev.Reason, ev.Err),
		}, true
	case events.ActorPromotedEvent:
		return Alert{
			Level:   LevelInfo,
			Title:   "Wallet promoted",
			Message: fmt.Sprintf("%s now mirrored, score %.1f", ev.Actor.Hex(), ev.Score),
		}, true
	case events.CopyTradeRejectedEvent:
		return Alert{
			Level:   LevelWarning,
			Title:   "Copy trade rejected",
			Message: fmt.Sprintf("%s bought %s, score %.1f", ev.Actor.Hex(), ev.Token.Hex(), ev.Score),
		}, true
	default:
		return Alert{}, false
	}
}
