// internal/eventlistener/listener_test.go
package eventlistener

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/monad-bot/internal/blockchain/evm"
	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
)

var (
	trader = common.HexToAddress("0x3333333333333333333333333333333333333333")
	token  = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

func curveLog(t *testing.T, name string, in, out int64) gethtypes.Log {
	t.Helper()
	ev := evm.CurveEventsABI.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(in), big.NewInt(out))
	require.NoError(t, err)
	return gethtypes.Log{
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(trader.Bytes()),
			common.BytesToHash(token.Bytes()),
		},
		Data:        data,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xabc"),
	}
}

func TestDecode(t *testing.T) {
	trade, err := Decode(curveLog(t, "CurveBuy", 1000, 5))
	require.NoError(t, err)
	assert.True(t, trade.IsBuy)
	assert.Equal(t, trader, trade.Actor)
	assert.Equal(t, token, trade.Token)
	assert.Equal(t, "1000", trade.AmountIn.String())
	assert.Equal(t, "5", trade.AmountOut.String())
	assert.Equal(t, uint64(42), trade.Block)

	trade, err = Decode(curveLog(t, "CurveSell", 5, 900))
	require.NoError(t, err)
	assert.False(t, trade.IsBuy)
	assert.Equal(t, "900", trade.AmountOut.String())
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode(gethtypes.Log{Topics: []common.Hash{curveBuyID}})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	lg := curveLog(t, "CurveBuy", 1, 1)
	lg.Topics[0] = common.HexToHash("0xdeadbeef")
	_, err = Decode(lg)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	lg = curveLog(t, "CurveBuy", 1, 1)
	lg.Data = lg.Data[:10]
	_, err = Decode(lg)
	assert.Error(t, err)
}

func TestFilterTopics(t *testing.T) {
	topics := filterTopics(nil)
	require.Len(t, topics, 1)
	assert.ElementsMatch(t, []common.Hash{curveBuyID, curveSellID}, topics[0])

	topics = filterTopics([]common.Address{trader})
	require.Len(t, topics, 2)
	assert.Equal(t, common.BytesToHash(trader.Bytes()), topics[1][0])
}

type fakeSub struct {
	errc chan error
	once sync.Once
}

func newFakeSub() *fakeSub { return &fakeSub{errc: make(chan error, 1)} }

func (s *fakeSub) Err() <-chan error { return s.errc }
func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errc) }) }

// scriptedSource fails the first `failures` subscriptions, then delivers logs.
type scriptedSource struct {
	mu       sync.Mutex
	failures int
	calls    int
	logs     []gethtypes.Log
	queries  []ethereum.FilterQuery
}

func (s *scriptedSource) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.queries = append(s.queries, q)
	if s.calls <= s.failures {
		return nil, errors.New("dial tcp: connection refused")
	}
	for _, lg := range s.logs {
		ch <- lg
	}
	return newFakeSub(), nil
}

type recordingSink struct {
	mu     sync.Mutex
	trades []copytrade.ActorTrade
	done   chan struct{}
	want   int
}

func (r *recordingSink) ObserveActorTrade(_ context.Context, trade copytrade.ActorTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
	if len(r.trades) == r.want {
		close(r.done)
	}
	return errors.New("sink errors are only logged")
}

func TestEventListener_ReconnectsAndDispatches(t *testing.T) {
	initialBackoff, maxBackoff = time.Millisecond, 5*time.Millisecond
	t.Cleanup(func() { initialBackoff, maxBackoff = 200*time.Millisecond, 30*time.Second })

	removed := curveLog(t, "CurveSell", 1, 1)
	removed.Removed = true
	src := &scriptedSource{
		failures: 2,
		logs: []gethtypes.Log{
			curveLog(t, "CurveBuy", 100, 1),
			removed,
			{Topics: []common.Hash{common.HexToHash("0x01")}},
			curveLog(t, "CurveSell", 1, 200),
		},
	}
	sink := &recordingSink{done: make(chan struct{}), want: 2}
	m := metrics.NewCollector(prometheus.NewRegistry())
	emitter := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	el := NewEventListener(src, Config{Emitter: emitter, Wallets: []common.Address{trader}}, sink, m, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- el.Run(ctx) }()

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("trades were not dispatched")
	}
	cancel()
	require.NoError(t, <-errc)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reconnects()))
	src.mu.Lock()
	assert.Equal(t, []common.Address{emitter}, src.queries[0].Addresses)
	src.mu.Unlock()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var buys, sells int
	for _, tr := range sink.trades {
		if tr.IsBuy {
			buys++
		} else {
			sells++
		}
	}
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)
}
