// internal/blockchain/evm/tx.go
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// Receipt polling. Variables so tests can shorten them.
var (
	receiptInitialInterval = 250 * time.Millisecond
	receiptMaxInterval     = 2 * time.Second
)

type headerSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

type receiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

type nonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// suggestFees applies the gas strategy to the latest base fee.
func suggestFees(ctx context.Context, src headerSource, strategy types.GasStrategy) (maxFee, tip *big.Int, err error) {
	head, err := src.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("latest header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	maxFee, tip = strategy.Calculate(baseFee)
	return maxFee, tip, nil
}

// nextNonce returns the nonce to use; the caller holds nonceMu.
func (c *Client) nextNonce(ctx context.Context, src nonceSource) (uint64, error) {
	if c.nonce == nil {
		n, err := src.PendingNonceAt(ctx, c.wallet)
		if err != nil {
			return 0, fmt.Errorf("pending nonce: %w", err)
		}
		c.nonce = &n
	}
	return *c.nonce, nil
}

// transact signs and sends a contract call, then waits for a successful receipt.
func (c *Client) transact(ctx context.Context, to common.Address, parsed abi.ABI, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	maxFee, tip, err := suggestFees(ctx, c.eth, c.strategy)
	if err != nil {
		return common.Hash{}, err
	}

	// Отправка сериализована: локальный счётчик nonce позволяет не ждать pending-пула
	c.nonceMu.Lock()
	nonce, err := c.nextNonce(ctx, c.eth)
	if err != nil {
		c.nonceMu.Unlock()
		return common.Hash{}, err
	}

	opts := *c.auth
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.Value = value
	opts.GasFeeCap = maxFee
	opts.GasTipCap = tip
	opts.GasLimit = c.gasLimit

	tx, err := c.bound(to, parsed).Transact(&opts, method, args...)
	if err != nil {
		// resync from the node on the next send
		c.nonce = nil
		c.nonceMu.Unlock()
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}
	*c.nonce = nonce + 1
	c.nonceMu.Unlock()

	c.logger.Debug("Transaction sent",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("max_fee", maxFee.String()),
		zap.String("tip", tip.String()))

	receipt, err := waitReceipt(ctx, c.eth, tx.Hash(), c.timeout)
	if err != nil {
		return tx.Hash(), fmt.Errorf("wait %s receipt %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%s %s: %w", method, tx.Hash().Hex(), ErrReverted)
	}
	return tx.Hash(), nil
}

// waitReceipt polls for the receipt with exponential backoff until timeout.
func waitReceipt(ctx context.Context, src receiptSource, hash common.Hash, timeout time.Duration) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = receiptInitialInterval
	bo.MaxInterval = receiptMaxInterval

	op := func() (*gethtypes.Receipt, error) {
		// ethereum.NotFound до включения в блок, просто повторяем
		return src.TransactionReceipt(ctx, hash)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(timeout),
	)
}
