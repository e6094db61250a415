// internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/storage/file"
	"github.com/rovshanmuradov/monad-bot/internal/storage/sqlstore"
)

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Снапшот позиций
	position.Snapshotter
	// Снапшот репутации
	reputation.Snapshotter
	// Журнал сделок
	history.Journal

	Close() error
}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backends.
const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

// Config selects and configures the storage backend.
type Config struct {
	Backend        string `mapstructure:"backend"`
	PositionsFile  string `mapstructure:"positions_file"`
	ReputationFile string `mapstructure:"reputation_file"`
	TradesFile     string `mapstructure:"trades_file"`
	// SQLDriver is "postgres" or "sqlite".
	SQLDriver   string `mapstructure:"sql_driver"`
	DatabaseURL string `mapstructure:"database_url"`
}

// Open builds the configured backend.
func Open(cfg Config, logger *zap.Logger) (Storage, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return file.New(file.Paths{
			Positions:  cfg.PositionsFile,
			Reputation: cfg.ReputationFile,
			Trades:     cfg.TradesFile,
		}, logger), nil
	case BackendSQL:
		s, err := sqlstore.Open(cfg.SQLDriver, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open sql storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
