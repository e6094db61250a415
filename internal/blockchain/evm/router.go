// internal/blockchain/evm/router.go
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AmountsOut calls getAmountsOut on a v2 router.
func (c *Client) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := c.call(ctx, router, routerABI, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getAmountsOut: expected 1 output, got %d", len(out))
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAmountsOut: unexpected type %T", out[0])
	}
	return amounts, nil
}

// SwapExactTokensForNative sells amountIn along path to the wallet.
func (c *Client) SwapExactTokensForNative(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline *big.Int) (common.Hash, error) {
	return c.transact(ctx, router, routerABI, nil, "swapExactTokensForETH", amountIn, minOut, path, c.wallet, deadline)
}

// SwapExactNativeForTokens buys along path with value wei.
func (c *Client) SwapExactNativeForTokens(ctx context.Context, router common.Address, value, minOut *big.Int, path []common.Address, deadline *big.Int) (common.Hash, error) {
	return c.transact(ctx, router, routerABI, value, "swapExactETHForTokens", minOut, path, c.wallet, deadline)
}
