// internal/executor/fake_test.go
package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// fakeChain records calls and returns canned results.
type fakeChain struct {
	wallet    common.Address
	balance   *big.Int
	allowance *big.Int
	quote     *big.Int
	router    common.Address
	quoteErr  error
	sendErr   error

	approvals []*big.Int
	sells     []sellCall
	buys      []sellCall
}

type sellCall struct {
	router common.Address
	amount *big.Int
	minOut *big.Int
	path   []common.Address
}

var okHash = common.HexToHash("0xabc")

func (f *fakeChain) Wallet() common.Address { return f.wallet }

func (f *fakeChain) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	if f.allowance == nil {
		return big.NewInt(0), nil
	}
	return f.allowance, nil
}

func (f *fakeChain) Approve(_ context.Context, _, _ common.Address, amount *big.Int) (common.Hash, error) {
	f.approvals = append(f.approvals, new(big.Int).Set(amount))
	f.allowance = amount
	return okHash, nil
}

func (f *fakeChain) CurveQuote(_ context.Context, _ common.Address, _ *big.Int, _ bool) (common.Address, *big.Int, error) {
	if f.quoteErr != nil {
		return common.Address{}, nil, f.quoteErr
	}
	return f.router, f.quote, nil
}

func (f *fakeChain) CurveSell(_ context.Context, router, _ common.Address, amountIn, minOut, _ *big.Int) (common.Hash, error) {
	f.sells = append(f.sells, sellCall{router: router, amount: amountIn, minOut: minOut})
	return okHash, f.sendErr
}

func (f *fakeChain) CurveBuy(_ context.Context, router, _ common.Address, value, minOut, _ *big.Int) (common.Hash, error) {
	f.buys = append(f.buys, sellCall{router: router, amount: value, minOut: minOut})
	return okHash, f.sendErr
}

func (f *fakeChain) AmountsOut(_ context.Context, _ common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return []*big.Int{amountIn, f.quote}, nil
}

func (f *fakeChain) SwapExactTokensForNative(_ context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, _ *big.Int) (common.Hash, error) {
	f.sells = append(f.sells, sellCall{router: router, amount: amountIn, minOut: minOut, path: path})
	return okHash, f.sendErr
}

func (f *fakeChain) SwapExactNativeForTokens(_ context.Context, router common.Address, value, minOut *big.Int, path []common.Address, _ *big.Int) (common.Hash, error) {
	f.buys = append(f.buys, sellCall{router: router, amount: value, minOut: minOut, path: path})
	return okHash, f.sendErr
}
