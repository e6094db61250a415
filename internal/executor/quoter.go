// internal/executor/quoter.go
package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
)

// FallbackQuoter tries each source in order and returns the first usable quote.
type FallbackQuoter struct {
	sources []Quoter
}

// NewFallbackQuoter creates a quoter over sources, tried in the given order.
func NewFallbackQuoter(sources ...Quoter) *FallbackQuoter {
	return &FallbackQuoter{sources: sources}
}

func (q *FallbackQuoter) Quote(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	var errs error
	for i, src := range q.sources {
		out, err := src.Quote(ctx, token, amount)
		if err == nil && out != nil && out.Sign() > 0 {
			return out, nil
		}
		if err == nil {
			err = ErrZeroQuote
		}
		errs = multierr.Append(errs, fmt.Errorf("source %d: %w", i, err))
		if ctx.Err() != nil {
			break
		}
	}
	if errs == nil {
		return nil, fmt.Errorf("no quote sources configured")
	}
	return nil, errs
}
