// internal/events/types.go
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event.
type EventType string

const (
	// Position lifecycle
	PositionOpened  EventType = "position.opened"
	PositionReduced EventType = "position.reduced"
	PositionClosed  EventType = "position.closed"

	// Execution
	SellFailed EventType = "sell.failed"

	// Copy trading
	ActorPromoted     EventType = "actor.promoted"
	CopyTradeRejected EventType = "copytrade.rejected"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// PositionOpenedEvent is emitted when a buy executes and a position is tracked.
type PositionOpenedEvent struct {
	BaseEvent
	Token      common.Address
	Symbol     string
	Amount     string // raw units
	EntryValue float64
	Source     string
	TxRef      string
}

// PositionReducedEvent is emitted after a successful partial sell.
type PositionReducedEvent struct {
	BaseEvent
	Token     common.Address
	Symbol    string
	Sold      string
	Remaining string
	Reason    string
	Backend   string
	TxRef     string
}

// PositionClosedEvent is emitted after a successful full exit.
type PositionClosedEvent struct {
	BaseEvent
	Token   common.Address
	Symbol  string
	Sold    string
	Reason  string
	Backend string
	TxRef   string
}

// SellFailedEvent is emitted when every step of the sell ladder failed.
type SellFailedEvent struct {
	BaseEvent
	Token  common.Address
	Symbol string
	Reason string
	Err    error
}

// ActorPromotedEvent is emitted when a scout wallet joins the mirror set.
type ActorPromotedEvent struct {
	BaseEvent
	Actor common.Address
	Score float64
}

// CopyTradeRejectedEvent is emitted when admission control refuses to mirror a buy.
type CopyTradeRejectedEvent struct {
	BaseEvent
	Actor common.Address
	Token common.Address
	Score float64
}
