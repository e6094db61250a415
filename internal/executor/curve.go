// internal/executor/curve.go
package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// CurveBackend trades on the launchpad bonding curve. The lens picks the router,
// which changes once a token graduates, so every trade quotes first.
type CurveBackend struct {
	client CurveClient
	now    func() time.Time
	logger *zap.Logger
}

// NewCurveBackend creates a bonding-curve backend.
func NewCurveBackend(client CurveClient, logger *zap.Logger) *CurveBackend {
	return &CurveBackend{
		client: client,
		now:    time.Now,
		logger: logger.Named("curve"),
	}
}

func (b *CurveBackend) Name() string { return "curve" }

// Quote returns the curve sell output for amount.
func (b *CurveBackend) Quote(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	_, out, err := b.client.CurveQuote(ctx, token, amount, false)
	if err != nil {
		return nil, fmt.Errorf("curve quote: %w", err)
	}
	if out == nil || out.Sign() <= 0 {
		return nil, ErrZeroQuote
	}
	return out, nil
}

// Sell quotes, approves the router for the max amount if the allowance is short,
// then sells with a min-out derived from slippagePct.
func (b *CurveBackend) Sell(ctx context.Context, token common.Address, amount *big.Int, slippagePct float64) (string, *big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", nil, ErrNothingToSell
	}

	router, expected, err := b.client.CurveQuote(ctx, token, amount, false)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get sell quote: %w", err)
	}
	if expected == nil || expected.Sign() <= 0 {
		return "", nil, ErrZeroQuote
	}
	b.logger.Debug("Sell quote",
		zap.String("token", token.Hex()),
		zap.String("router", router.Hex()),
		zap.String("expected_out", expected.String()))

	allowance, err := b.client.Allowance(ctx, token, router)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check allowance: %w", err)
	}
	if allowance.Cmp(amount) < 0 {
		b.logger.Info("Approving router", zap.String("token", token.Hex()), zap.String("router", router.Hex()))
		if _, err := b.client.Approve(ctx, token, router, math.MaxBig256); err != nil {
			return "", nil, fmt.Errorf("approve: %w", err)
		}
	}

	minOut := types.CalculateMinAmountOut(expected, types.Percent(slippagePct))
	hash, err := b.client.CurveSell(ctx, router, token, amount, minOut, deadlineFrom(b.now()))
	if err != nil {
		return "", nil, fmt.Errorf("curve sell: %w", err)
	}

	b.logger.Info("Sell confirmed",
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("min_out", minOut.String()),
		zap.Float64("slippage_pct", slippagePct),
		zap.String("tx", hash.Hex()))
	return hash.Hex(), new(big.Int).Set(amount), nil
}

// Buy spends amountIn on token through the router the lens selects.
func (b *CurveBackend) Buy(ctx context.Context, token common.Address, amountIn *big.Int, slippagePct float64) (string, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return "", fmt.Errorf("buy amount must be positive")
	}

	router, expected, err := b.client.CurveQuote(ctx, token, amountIn, true)
	if err != nil {
		return "", fmt.Errorf("failed to get buy quote: %w", err)
	}
	if expected == nil || expected.Sign() <= 0 {
		return "", ErrZeroQuote
	}

	minOut := types.CalculateMinAmountOut(expected, types.Percent(slippagePct))
	hash, err := b.client.CurveBuy(ctx, router, token, amountIn, minOut, deadlineFrom(b.now()))
	if err != nil {
		return "", fmt.Errorf("curve buy: %w", err)
	}

	b.logger.Info("Buy confirmed",
		zap.String("token", token.Hex()),
		zap.String("spent", amountIn.String()),
		zap.String("min_tokens", minOut.String()),
		zap.String("tx", hash.Hex()))
	return hash.Hex(), nil
}
