// internal/events/handler.go
package events

import (
	"context"
)

// AllTypes lists every engine event type, for subscribers that want all of them.
var AllTypes = []EventType{
	PositionOpened,
	PositionReduced,
	PositionClosed,
	SellFailed,
	ActorPromoted,
	CopyTradeRejected,
}

// Handler processes events delivered by the bus. Handlers run on the bus
// goroutine and should return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Typed adapts a handler for one concrete event, e.g. Typed(func(ctx, e SellFailedEvent) error).
// Events of any other type are ignored.
func Typed[T Event](fn func(ctx context.Context, event T) error) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}

// Subscription can be cancelled; Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}

// subscriptionGroup cancels several subscriptions at once.
type subscriptionGroup []Subscription

func (g subscriptionGroup) Unsubscribe() {
	for _, s := range g {
		s.Unsubscribe()
	}
}

// SubscribeAll registers handler for each of types and returns one handle for all.
func (b *Bus) SubscribeAll(types []EventType, handler Handler) Subscription {
	group := make(subscriptionGroup, 0, len(types))
	for _, t := range types {
		group = append(group, b.Subscribe(t, handler))
	}
	return group
}
