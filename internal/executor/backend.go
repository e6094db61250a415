// internal/executor/backend.go
package executor

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrZeroQuote is returned when a venue quotes zero output.
	ErrZeroQuote = errors.New("zero quote")
	// ErrNothingToSell is returned when the wallet holds none of the token.
	ErrNothingToSell = errors.New("no tokens to sell")
)

// deadlineWindow is added to the current time for swap deadlines.
const deadlineWindow = 300 * time.Second

// Backend: единый интерфейс для путей исполнения (bonding curve, DEX router).
type Backend interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string
	// Sell sells up to amount raw units of token. It returns the confirmed tx
	// reference and the amount actually sold, which may be less than asked.
	Sell(ctx context.Context, token common.Address, amount *big.Int, slippagePct float64) (string, *big.Int, error)
	// Buy spends amountIn wei on token.
	Buy(ctx context.Context, token common.Address, amountIn *big.Int, slippagePct float64) (string, error)
	// Quote returns the native output in wei for selling amount of token.
	Quote(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error)
}

// Quoter is a read-only price source.
type Quoter interface {
	Quote(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error)
}

// TokenClient is the ERC20 surface both backends need. Approve blocks until the
// approval is mined and fails on revert.
type TokenClient interface {
	Wallet() common.Address
	BalanceOf(ctx context.Context, token common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
}

// CurveClient talks to the bonding-curve lens and routers. Send methods block
// until the transaction is mined and fail on revert.
type CurveClient interface {
	TokenClient
	// CurveQuote returns the router that will fill the trade and the expected output.
	CurveQuote(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error)
	CurveSell(ctx context.Context, router, token common.Address, amountIn, minOut, deadline *big.Int) (common.Hash, error)
	CurveBuy(ctx context.Context, router, token common.Address, value, minOut, deadline *big.Int) (common.Hash, error)
}

// RouterClient talks to a Uniswap-v2 style router.
type RouterClient interface {
	TokenClient
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	SwapExactTokensForNative(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline *big.Int) (common.Hash, error)
	SwapExactNativeForTokens(ctx context.Context, router common.Address, value, minOut *big.Int, path []common.Address, deadline *big.Int) (common.Hash, error)
}

func deadlineFrom(now time.Time) *big.Int {
	return big.NewInt(now.Add(deadlineWindow).Unix())
}
