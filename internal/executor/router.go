// internal/executor/router.go
package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// RouterConfig locates the DEX router and the wrapped native token.
type RouterConfig struct {
	Router  common.Address
	Wrapped common.Address
}

// RouterBackend sells through a Uniswap-v2 style router. It is the fallback path
// and re-reads the on-chain balance because the tracked amount may be stale.
type RouterBackend struct {
	client RouterClient
	cfg    RouterConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewRouterBackend creates a DEX router backend.
func NewRouterBackend(client RouterClient, cfg RouterConfig, logger *zap.Logger) *RouterBackend {
	return &RouterBackend{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("router"),
	}
}

func (b *RouterBackend) Name() string { return "router" }

func (b *RouterBackend) sellPath(token common.Address) []common.Address {
	return []common.Address{token, b.cfg.Wrapped}
}

// Quote returns the router output for amount via getAmountsOut.
func (b *RouterBackend) Quote(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	amounts, err := b.client.AmountsOut(ctx, b.cfg.Router, amount, b.sellPath(token))
	if err != nil {
		return nil, fmt.Errorf("getAmountsOut failed: %w", err)
	}
	if len(amounts) < 2 || amounts[len(amounts)-1].Sign() <= 0 {
		return nil, ErrZeroQuote
	}
	return amounts[len(amounts)-1], nil
}

// Sell clamps to the wallet balance, approves the exact amount, quotes and swaps.
func (b *RouterBackend) Sell(ctx context.Context, token common.Address, amount *big.Int, slippagePct float64) (string, *big.Int, error) {
	balance, err := b.client.BalanceOf(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get balance: %w", err)
	}

	sellAmount := types.MinAmount(amount, balance)
	if sellAmount.Sign() <= 0 {
		return "", nil, ErrNothingToSell
	}
	if sellAmount.Cmp(amount) < 0 {
		b.logger.Warn("Clamped sell to wallet balance",
			zap.String("token", token.Hex()),
			zap.String("requested", amount.String()),
			zap.String("balance", balance.String()))
	}

	if _, err := b.client.Approve(ctx, token, b.cfg.Router, sellAmount); err != nil {
		return "", nil, fmt.Errorf("approve: %w", err)
	}

	expected, err := b.Quote(ctx, token, sellAmount)
	if err != nil {
		return "", nil, err
	}
	minOut := types.CalculateMinAmountOut(expected, types.Percent(slippagePct))

	hash, err := b.client.SwapExactTokensForNative(ctx, b.cfg.Router, sellAmount, minOut, b.sellPath(token), deadlineFrom(b.now()))
	if err != nil {
		return "", nil, fmt.Errorf("swap: %w", err)
	}

	b.logger.Info("Sell confirmed",
		zap.String("token", token.Hex()),
		zap.String("amount", sellAmount.String()),
		zap.String("expected_out", expected.String()),
		zap.String("min_out", minOut.String()),
		zap.String("tx", hash.Hex()))
	return hash.Hex(), sellAmount, nil
}

// Buy swaps amountIn native for token.
func (b *RouterBackend) Buy(ctx context.Context, token common.Address, amountIn *big.Int, slippagePct float64) (string, error) {
	path := []common.Address{b.cfg.Wrapped, token}
	amounts, err := b.client.AmountsOut(ctx, b.cfg.Router, amountIn, path)
	if err != nil {
		return "", fmt.Errorf("getAmountsOut failed: %w", err)
	}
	if len(amounts) < 2 || amounts[len(amounts)-1].Sign() <= 0 {
		return "", ErrZeroQuote
	}

	minOut := types.CalculateMinAmountOut(amounts[len(amounts)-1], types.Percent(slippagePct))
	hash, err := b.client.SwapExactNativeForTokens(ctx, b.cfg.Router, amountIn, minOut, path, deadlineFrom(b.now()))
	if err != nil {
		return "", fmt.Errorf("swap: %w", err)
	}
	b.logger.Info("Buy confirmed", zap.String("token", token.Hex()), zap.String("tx", hash.Hex()))
	return hash.Hex(), nil
}
