// internal/blockchain/evm/erc20.go
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BalanceOf returns the wallet's balance of token.
func (c *Client) BalanceOf(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "balanceOf", c.wallet)
	if err != nil {
		return nil, err
	}
	return asBigInt(out, 0)
}

// Allowance returns how much spender may move from the wallet.
func (c *Client) Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "allowance", c.wallet, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(out, 0)
}

// Approve sets spender's allowance and waits until the approval is mined.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	hash, err := c.transact(ctx, token, erc20ABI, nil, "approve", spender, amount)
	if err != nil {
		return hash, err
	}
	c.logger.Info("Approval confirmed",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("tx", hash.Hex()))
	return hash, nil
}

// TokenInfo returns name and symbol. It fails only when neither could be read.
func (c *Client) TokenInfo(ctx context.Context, token common.Address) (name, symbol string, err error) {
	out, nameErr := c.call(ctx, token, erc20ABI, "name")
	if nameErr == nil && len(out) > 0 {
		name, _ = out[0].(string)
	}
	out, symErr := c.call(ctx, token, erc20ABI, "symbol")
	if symErr == nil && len(out) > 0 {
		symbol, _ = out[0].(string)
	}
	if nameErr != nil && symErr != nil {
		return "", "", fmt.Errorf("token info %s: %w", token.Hex(), multierr.Combine(nameErr, symErr))
	}
	return name, symbol, nil
}

func asBigInt(out []interface{}, i int) (*big.Int, error) {
	if len(out) <= i {
		return nil, fmt.Errorf("expected %d outputs, got %d", i+1, len(out))
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d: unexpected type %T", i, out[i])
	}
	return v, nil
}
