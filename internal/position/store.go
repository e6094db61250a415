// internal/position/store.go
package position

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a token has no tracked position.
var ErrNotFound = errors.New("position not found")

// Snapshotter persists the whole position map. Implementations overwrite the
// previous snapshot entirely.
type Snapshotter interface {
	SavePositions(positions map[common.Address]Position) error
	LoadPositions() (map[common.Address]Position, error)
}

// Observer is notified after every mutation with the current position count.
type Observer func(open int)

// Store is the authoritative set of open positions. The lock is never exposed:
// callers get copies, or mutate through Mutate while the lock is held for the
// duration of the callback only. Callbacks must not perform I/O.
type Store struct {
	mu        sync.RWMutex
	positions map[common.Address]*Position

	saveMu   sync.Mutex
	snapshot Snapshotter
	observer Observer
	logger   *zap.Logger
}

// NewStore creates an empty store persisted through snap (may be nil).
func NewStore(snap Snapshotter, logger *zap.Logger) *Store {
	return &Store{
		positions: make(map[common.Address]*Position),
		snapshot:  snap,
		logger:    logger.Named("positions"),
	}
}

// Load restores positions from snap. Any failure results in an empty store and a
// logged warning; it never fails the caller.
func Load(snap Snapshotter, logger *zap.Logger) *Store {
	s := NewStore(snap, logger)
	if snap == nil {
		return s
	}

	loaded, err := snap.LoadPositions()
	if err != nil {
		s.logger.Warn("Failed to load positions snapshot, starting empty", zap.Error(err))
		return s
	}

	for token, p := range loaded {
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			s.logger.Warn("Dropping empty position from snapshot", zap.String("token", token.Hex()))
			continue
		}
		cp := p.Clone()
		cp.Token = token
		s.positions[token] = &cp
	}

	s.logger.Info("Loaded positions", zap.Int("count", len(s.positions)))
	return s
}

// SetObserver registers a hook invoked after each mutation.
func (s *Store) SetObserver(fn Observer) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
	s.notify()
}

// Add inserts or overwrites the position for p.Token (last write wins).
// Positions with a non-positive amount are ignored.
func (s *Store) Add(p Position) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		s.logger.Warn("Refusing to track empty position", zap.String("token", p.Token.Hex()))
		return
	}
	cp := p.Clone()
	if cp.HighWaterValue < cp.EntryValue {
		cp.HighWaterValue = cp.EntryValue
	}

	s.mu.Lock()
	s.positions[cp.Token] = &cp
	s.mu.Unlock()

	s.logger.Info("Position added",
		zap.String("token", cp.Token.Hex()),
		zap.String("label", cp.Label()),
		zap.String("amount", cp.Amount.String()),
		zap.Float64("entry_value", cp.EntryValue))

	s.persist()
}

// Remove deletes and returns the position for token.
func (s *Store) Remove(token common.Address) (Position, bool) {
	s.mu.Lock()
	p, ok := s.positions[token]
	if ok {
		delete(s.positions, token)
	}
	s.mu.Unlock()

	if !ok {
		return Position{}, false
	}
	s.logger.Info("Position removed", zap.String("token", token.Hex()))
	s.persist()
	return p.Clone(), true
}

// Get returns a copy of the position for token.
func (s *Store) Get(token common.Address) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[token]
	if !ok {
		return Position{}, false
	}
	return p.Clone(), true
}

// Mutate runs fn against the live position while holding the lock. fn reports
// whether the change should be persisted. A position whose amount drops to zero
// is removed. Returns false when token is not tracked.
func (s *Store) Mutate(token common.Address, fn func(p *Position) bool) bool {
	s.mu.Lock()
	p, ok := s.positions[token]
	if !ok {
		s.mu.Unlock()
		return false
	}
	persist := fn(p)
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		delete(s.positions, token)
		persist = true
	}
	s.mu.Unlock()

	if persist {
		s.persist()
	}
	return true
}

// Reduce subtracts sold from the tracked amount, clamping at zero, and removes
// the position when nothing is left. Returns the remaining amount.
func (s *Store) Reduce(token common.Address, sold *big.Int) (*big.Int, error) {
	remaining := new(big.Int)
	found := s.Mutate(token, func(p *Position) bool {
		p.Shrink(sold)
		remaining.Set(p.Amount)
		return true
	})
	if !found {
		return nil, ErrNotFound
	}
	if remaining.Sign() == 0 {
		s.logger.Info("Position fully sold", zap.String("token", token.Hex()))
	}
	return remaining, nil
}

// All returns copies of all positions ordered by entry time.
func (s *Store) All() []Position {
	s.mu.RLock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].Token.Hex() < out[j].Token.Hex()
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Save writes the current snapshot. Saves are serialized so an older snapshot
// can never overwrite a newer one.
func (s *Store) Save() error {
	if s.snapshot == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	snap := make(map[common.Address]Position, len(s.positions))
	for token, p := range s.positions {
		snap[token] = p.Clone()
	}
	s.mu.RUnlock()

	if err := s.snapshot.SavePositions(snap); err != nil {
		return err
	}
	s.logger.Debug("Saved positions", zap.Int("count", len(snap)))
	return nil
}

// persist saves and logs failures; the in-memory state stays authoritative.
func (s *Store) persist() {
	s.notify()
	if err := s.Save(); err != nil {
		s.logger.Error("Failed to save positions", zap.Error(err))
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.observer
	n := len(s.positions)
	s.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}
