// internal/history/history.go
package history

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// TradeRecord is one executed buy or sell of ours.
type TradeRecord struct {
	Token  common.Address `json:"token"`
	Name   string         `json:"name,omitempty"`
	Symbol string         `json:"symbol,omitempty"`
	Side   Side           `json:"side"`
	// AmountTokens is the raw token amount as a decimal string.
	AmountTokens string `json:"amount_tokens"`
	// Value is the native-currency value of the trade.
	Value     float64   `json:"value"`
	TxRef     string    `json:"tx_ref"`
	Backend   string    `json:"backend,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary aggregates the journal.
type Summary struct {
	TotalBought float64
	TotalSold   float64
	NetPnL      float64
	BuyCount    int
	SellCount   int
}

// Journal stores trade records.
type Journal interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error
	Summary(ctx context.Context) (Summary, error)
}

// Summarize folds a list of records into a Summary.
func Summarize(records []TradeRecord) Summary {
	var s Summary
	for _, r := range records {
		switch r.Side {
		case Buy:
			s.TotalBought += r.Value
			s.BuyCount++
		case Sell:
			s.TotalSold += r.Value
			s.SellCount++
		}
	}
	s.NetPnL = s.TotalSold - s.TotalBought
	return s
}

// Record writes rec and logs failures instead of returning them. Journal
// failures never affect trading.
func Record(ctx context.Context, j Journal, rec TradeRecord, logger *zap.Logger) {
	if j == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := j.RecordTrade(ctx, rec); err != nil {
		logger.Warn("Failed to journal trade",
			zap.String("token", rec.Token.Hex()),
			zap.String("side", string(rec.Side)),
			zap.Error(err))
	}
}

// LogSummary prints the journal summary at startup.
func LogSummary(ctx context.Context, j Journal, logger *zap.Logger) {
	if j == nil {
		return
	}
	s, err := j.Summary(ctx)
	if err != nil {
		logger.Warn("Failed to summarize trade history", zap.Error(err))
		return
	}
	logger.Info("📊 Trade history summary",
		zap.Int("buys", s.BuyCount),
		zap.Float64("bought", s.TotalBought),
		zap.Int("sells", s.SellCount),
		zap.Float64("sold", s.TotalSold),
		zap.Float64("net_pnl", s.NetPnL))
}
