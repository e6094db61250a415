// internal/eventlistener/decode.go
package eventlistener

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rovshanmuradov/monad-bot/internal/blockchain/evm"
	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
)

var (
	curveBuyID  = evm.CurveEventsABI.Events["CurveBuy"].ID
	curveSellID = evm.CurveEventsABI.Events["CurveSell"].ID
)

// Decode turns a CurveBuy / CurveSell log into an ActorTrade.
func Decode(lg gethtypes.Log) (copytrade.ActorTrade, error) {
	if len(lg.Topics) < 3 {
		return copytrade.ActorTrade{}, fmt.Errorf("%w: %d topics", ErrUnknownEvent, len(lg.Topics))
	}

	var isBuy bool
	switch lg.Topics[0] {
	case curveBuyID:
		isBuy = true
	case curveSellID:
	default:
		return copytrade.ActorTrade{}, fmt.Errorf("%w: %s", ErrUnknownEvent, lg.Topics[0].Hex())
	}

	ev, err := evm.CurveEventsABI.EventByID(lg.Topics[0])
	if err != nil {
		return copytrade.ActorTrade{}, fmt.Errorf("lookup event: %w", err)
	}
	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return copytrade.ActorTrade{}, fmt.Errorf("unpack %s: %w", ev.Name, err)
	}
	if len(values) != 2 {
		return copytrade.ActorTrade{}, fmt.Errorf("unpack %s: want 2 values, got %d", ev.Name, len(values))
	}
	amountIn, ok1 := values[0].(*big.Int)
	amountOut, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return copytrade.ActorTrade{}, fmt.Errorf("unpack %s: unexpected value types", ev.Name)
	}

	return copytrade.ActorTrade{
		Actor:     common.BytesToAddress(lg.Topics[1].Bytes()),
		Token:     common.BytesToAddress(lg.Topics[2].Bytes()),
		IsBuy:     isBuy,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		TxHash:    lg.TxHash,
		Block:     lg.BlockNumber,
	}, nil
}

// filterTopics builds [event ids, senders]. A nil sender slot matches any trader.
func filterTopics(wallets []common.Address) [][]common.Hash {
	topics := [][]common.Hash{{curveBuyID, curveSellID}}
	if len(wallets) == 0 {
		return topics
	}
	senders := make([]common.Hash, 0, len(wallets))
	for _, w := range wallets {
		senders = append(senders, common.BytesToHash(w.Bytes()))
	}
	return append(topics, senders)
}
