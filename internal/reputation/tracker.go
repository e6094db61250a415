// internal/reputation/tracker.go
package reputation

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Snapshotter persists the durable actor records.
type Snapshotter interface {
	SaveReputation(records map[common.Address]Record) error
	LoadReputation() (map[common.Address]Record, error)
}

// entry is an open, not yet matched, actor buy.
type entry struct {
	capital float64
	at      time.Time
}

type ledgerKey struct {
	actor common.Address
	token common.Address
}

// Tracker keeps per-actor trading statistics. It has its own lock, independent
// from the position store.
type Tracker struct {
	mu      sync.RWMutex
	records map[common.Address]Record
	open    map[ledgerKey]entry

	weights  Weights
	saveMu   sync.Mutex
	snapshot Snapshotter
	now      func() time.Time
	logger   *zap.Logger
}

// NewTracker creates a tracker and loads persisted records from snap (may be nil).
// Load failures are logged and result in an empty record set.
func NewTracker(weights Weights, snap Snapshotter, logger *zap.Logger) *Tracker {
	t := &Tracker{
		records:  make(map[common.Address]Record),
		open:     make(map[ledgerKey]entry),
		weights:  weights,
		snapshot: snap,
		now:      time.Now,
		logger:   logger.Named("reputation"),
	}

	if snap != nil {
		loaded, err := snap.LoadReputation()
		if err != nil {
			t.logger.Warn("Failed to load reputation snapshot, starting fresh", zap.Error(err))
		} else {
			for actor, r := range loaded {
				t.records[actor] = r
			}
			t.logger.Info("Loaded actor records", zap.Int("count", len(t.records)))
		}
	}
	return t
}

// WithClock overrides the time source (tests).
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RecordEntry opens a ledger entry for (actor, token). A re-entry overwrites the
// previous one; basis is not averaged.
func (t *Tracker) RecordEntry(actor, token common.Address, capital float64) {
	t.mu.Lock()
	t.open[ledgerKey{actor, token}] = entry{capital: capital, at: t.now()}
	t.mu.Unlock()

	t.logger.Debug("Actor entry recorded",
		zap.String("actor", actor.Hex()),
		zap.String("token", token.Hex()),
		zap.Float64("capital", capital))
}

// RecordExit matches an exit against the open entry and updates the actor's record.
// Returns the realized P&L, or false when no entry exists (ignored, not an error).
func (t *Tracker) RecordExit(actor, token common.Address, proceeds float64) (float64, bool) {
	key := ledgerKey{actor, token}
	now := t.now()

	t.mu.Lock()
	e, ok := t.open[key]
	if !ok {
		t.mu.Unlock()
		return 0, false
	}
	delete(t.open, key)

	pnl := proceeds - e.capital
	roi := 0.0
	if e.capital > 0 {
		roi = pnl / e.capital * 100
	}
	hold := now.Sub(e.at)
	if hold < 0 {
		hold = 0
	}

	r := t.records[actor]
	r.TotalTrades++
	n := float64(r.TotalTrades)
	r.LastTradeTime = now
	r.TotalInvested += e.capital
	r.TotalPnL += pnl
	r.AvgROIPct = (r.AvgROIPct*(n-1) + roi) / n
	r.AvgHoldTime = time.Duration((float64(r.AvgHoldTime)*(n-1) + float64(hold)) / n)

	if pnl > 0 {
		r.Wins++
		r.WinStreak++
	} else {
		r.Losses++
		r.WinStreak = 0
	}
	if pnl > r.BestTrade {
		r.BestTrade = pnl
	}
	if pnl < r.WorstTrade {
		r.WorstTrade = pnl
	}
	t.records[actor] = r
	score := t.weights.Score(r)
	t.mu.Unlock()

	t.logger.Info("Actor trade closed",
		zap.String("actor", actor.Hex()),
		zap.String("token", token.Hex()),
		zap.Float64("pnl", pnl),
		zap.Float64("roi_pct", roi),
		zap.Duration("hold", hold),
		zap.Float64("score", score))

	t.persist()
	return pnl, true
}

// Score returns the actor's quality score in [0, 100].
func (t *Tracker) Score(actor common.Address) float64 {
	t.mu.RLock()
	r, ok := t.records[actor]
	t.mu.RUnlock()
	if !ok {
		return t.weights.NeutralScore
	}
	return t.weights.Score(r)
}

// Record returns a copy of the actor's record.
func (t *Tracker) Record(actor common.Address) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[actor]
	return r, ok
}

// OpenEntries returns the number of unmatched entries.
func (t *Tracker) OpenEntries() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.open)
}

// Save writes the durable records.
func (t *Tracker) Save() error {
	if t.snapshot == nil {
		return nil
	}
	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.RLock()
	snap := make(map[common.Address]Record, len(t.records))
	for k, v := range t.records {
		snap[k] = v
	}
	t.mu.RUnlock()
	return t.snapshot.SaveReputation(snap)
}

func (t *Tracker) persist() {
	if err := t.Save(); err != nil {
		t.logger.Warn("Failed to save reputation records", zap.Error(err))
	}
}
