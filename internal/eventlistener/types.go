// internal/eventlistener/types.go
package eventlistener

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
)

// ErrUnknownEvent is returned for logs that are not curve trades.
var ErrUnknownEvent = errors.New("unknown curve event")

// LogSource opens a log subscription; *ethclient.Client over a websocket
// endpoint satisfies it.
type LogSource interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error)
}

// Sink consumes decoded trades.
type Sink interface {
	ObserveActorTrade(ctx context.Context, trade copytrade.ActorTrade) error
}

// Config selects which logs to follow.
type Config struct {
	// Emitter is the contract that emits CurveBuy / CurveSell.
	Emitter common.Address
	// Wallets filters by trader. Empty follows every trader.
	Wallets []common.Address
	// Workers bounds concurrent sink calls.
	Workers int
	// Buffer is the log channel capacity.
	Buffer int
}

var (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

const (
	defaultWorkers = 4
	defaultBuffer  = 256
)
