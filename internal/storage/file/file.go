// internal/storage/file/file.go
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
)

// Paths lists the files used by the store.
type Paths struct {
	Positions  string
	Reputation string
	Trades     string
}

// Store keeps whole-map JSON snapshots on disk and appends trades as JSON lines.
type Store struct {
	paths    Paths
	tradesMu sync.Mutex
	logger   *zap.Logger
}

// New creates a file store. Parent directories are created on demand.
func New(paths Paths, logger *zap.Logger) *Store {
	return &Store{
		paths:  paths,
		logger: logger.Named("file_store"),
	}
}

// SavePositions overwrites the positions snapshot.
func (s *Store) SavePositions(positions map[common.Address]position.Position) error {
	return writeJSON(s.paths.Positions, positions)
}

// LoadPositions reads the positions snapshot. A missing file yields an empty map.
func (s *Store) LoadPositions() (map[common.Address]position.Position, error) {
	out := make(map[common.Address]position.Position)
	if err := readJSON(s.paths.Positions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveReputation overwrites the reputation snapshot.
func (s *Store) SaveReputation(records map[common.Address]reputation.Record) error {
	return writeJSON(s.paths.Reputation, records)
}

// LoadReputation reads the reputation snapshot. A missing file yields an empty map.
func (s *Store) LoadReputation() (map[common.Address]reputation.Record, error) {
	out := make(map[common.Address]reputation.Record)
	if err := readJSON(s.paths.Reputation, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordTrade appends one JSON line to the trades file.
func (s *Store) RecordTrade(_ context.Context, rec history.TradeRecord) error {
	if s.paths.Trades == "" {
		return nil
	}

	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()

	if err := ensureDir(s.paths.Trades); err != nil {
		return err
	}
	f, err := os.OpenFile(s.paths.Trades, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open trades file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

// Summary scans the trades file.
func (s *Store) Summary(ctx context.Context) (history.Summary, error) {
	records, err := s.Trades(ctx)
	if err != nil {
		return history.Summary{}, err
	}
	return history.Summarize(records), nil
}

// Trades returns every journaled trade in file order. Corrupt lines are skipped.
func (s *Store) Trades(_ context.Context) ([]history.TradeRecord, error) {
	if s.paths.Trades == "" {
		return nil, nil
	}

	s.tradesMu.Lock()
	defer s.tradesMu.Unlock()

	f, err := os.Open(s.paths.Trades)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trades file: %w", err)
	}
	defer f.Close()

	var records []history.TradeRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec history.TradeRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			s.logger.Warn("Skipping corrupt trade line", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read trades file: %w", err)
	}
	return records, nil
}

// Close is a no-op; every write is flushed immediately.
func (s *Store) Close() error { return nil }

// writeJSON replaces path atomically: temp file in the same directory, fsync, rename.
func writeJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
