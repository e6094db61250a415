// internal/blockchain/evm/curve.go
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CurveQuote asks the lens which router fills the trade and for how much.
func (c *Client) CurveQuote(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error) {
	out, err := c.call(ctx, c.lens, lensABI, "getAmountOut", token, amountIn, isBuy)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(out) != 2 {
		return common.Address{}, nil, fmt.Errorf("getAmountOut: expected 2 outputs, got %d", len(out))
	}
	router, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("getAmountOut: unexpected router type %T", out[0])
	}
	amountOut, err := asBigInt(out, 1)
	if err != nil {
		return common.Address{}, nil, err
	}
	return router, amountOut, nil
}

// CurveSell sells amountIn of token through router.
func (c *Client) CurveSell(ctx context.Context, router, token common.Address, amountIn, minOut, deadline *big.Int) (common.Hash, error) {
	params := curveSellParams{
		AmountIn:     amountIn,
		AmountOutMin: minOut,
		Token:        token,
		To:           c.wallet,
		Deadline:     deadline,
	}
	return c.transact(ctx, router, curveRouterABI, nil, "sell", params)
}

// CurveBuy spends value wei on token through router.
func (c *Client) CurveBuy(ctx context.Context, router, token common.Address, value, minOut, deadline *big.Int) (common.Hash, error) {
	params := curveBuyParams{
		AmountOutMin: minOut,
		Token:        token,
		To:           c.wallet,
		Deadline:     deadline,
	}
	return c.transact(ctx, router, curveRouterABI, value, "buy", params)
}
