// internal/storage/sqlstore/sqlstore.go
package sqlstore

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rovshanmuradov/monad-bot/internal/history"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/storage/models"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// opTimeout bounds snapshot writes, which are called without a context.
const opTimeout = 10 * time.Second

// Store persists positions, reputation and trades in a relational database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects with the given driver and DSN and runs migrations. For sqlite the
// DSN is a file path or ":memory:".
func Open(driver, dsn string, zapLogger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Настройка пула соединений
	if driver == DriverSQLite {
		// одна база :memory: на соединение, к тому же sqlite сериализует запись
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s := &Store{
		db:     db,
		logger: zapLogger.Named("sql_store"),
	}
	if err := s.RunMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations использует GORM AutoMigrate; на postgres под advisory lock
func (s *Store) RunMigrations() error {
	if s.db.Dialector.Name() == DriverPostgres {
		var lockObtained bool
		err := s.db.Raw("SELECT pg_try_advisory_lock(101)").Scan(&lockObtained).Error
		if err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return fmt.Errorf("another migration is in progress")
		}
		defer s.db.Exec("SELECT pg_advisory_unlock(101)")
	}

	err := s.db.AutoMigrate(
		&models.Position{},
		&models.ActorRecord{},
		&models.Trade{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SavePositions replaces the positions table in one transaction.
func (s *Store) SavePositions(positions map[common.Address]position.Position) error {
	rows := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, positionToModel(p))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Position{}).Error; err != nil {
			return fmt.Errorf("clear positions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert positions: %w", err)
		}
		return nil
	})
}

// LoadPositions reads the positions table.
func (s *Store) LoadPositions() (map[common.Address]position.Position, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var rows []models.Position
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	out := make(map[common.Address]position.Position, len(rows))
	for _, row := range rows {
		p, err := modelToPosition(row)
		if err != nil {
			s.logger.Warn("Skipping malformed position row",
				zap.String("token", row.Token), zap.Error(err))
			continue
		}
		out[p.Token] = p
	}
	return out, nil
}

// SaveReputation upserts every record by actor.
func (s *Store) SaveReputation(records map[common.Address]reputation.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.ActorRecord, 0, len(records))
	for actor, r := range records {
		rows = append(rows, recordToModel(actor, r))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "actor"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "total_trades", "wins", "losses", "total_pnl", "total_invested",
			"avg_roi_pct", "avg_hold_nanos", "last_trade_time", "win_streak",
			"best_trade", "worst_trade",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save reputation: %w", err)
	}
	return nil
}

// LoadReputation reads every actor record.
func (s *Store) LoadReputation() (map[common.Address]reputation.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var rows []models.ActorRecord
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reputation: %w", err)
	}

	out := make(map[common.Address]reputation.Record, len(rows))
	for _, row := range rows {
		if !common.IsHexAddress(row.Actor) {
			continue
		}
		out[common.HexToAddress(row.Actor)] = modelToRecord(row)
	}
	return out, nil
}

// RecordTrade appends a trade to the journal.
func (s *Store) RecordTrade(ctx context.Context, rec history.TradeRecord) error {
	row := models.Trade{
		Token:        rec.Token.Hex(),
		Name:         rec.Name,
		Symbol:       rec.Symbol,
		Side:         string(rec.Side),
		AmountTokens: rec.AmountTokens,
		Value:        rec.Value,
		TxRef:        rec.TxRef,
		Backend:      rec.Backend,
		Reason:       rec.Reason,
		ExecutedAt:   rec.Timestamp.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

// Summary aggregates the journal per side.
func (s *Store) Summary(ctx context.Context) (history.Summary, error) {
	var rows []struct {
		Side  string
		Total float64
		Count int
	}
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Select("side, COALESCE(SUM(value), 0) AS total, COUNT(*) AS count").
		Group("side").
		Scan(&rows).Error
	if err != nil {
		return history.Summary{}, fmt.Errorf("summarize trades: %w", err)
	}

	var sum history.Summary
	for _, r := range rows {
		switch history.Side(r.Side) {
		case history.Buy:
			sum.TotalBought, sum.BuyCount = r.Total, r.Count
		case history.Sell:
			sum.TotalSold, sum.SellCount = r.Total, r.Count
		}
	}
	sum.NetPnL = sum.TotalSold - sum.TotalBought
	return sum, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func positionToModel(p position.Position) models.Position {
	amount := "0"
	if p.Amount != nil {
		amount = p.Amount.String()
	}
	return models.Position{
		Token:          p.Token.Hex(),
		Name:           p.Name,
		Symbol:         p.Symbol,
		Amount:         amount,
		EntryValue:     p.EntryValue,
		EntryTime:      p.EntryTime.UTC(),
		HighWaterValue: p.HighWaterValue,
		LastValue:      p.LastValue,
		TxRef:          p.TxRef,
		ProfitSecured:  p.ProfitSecured,
		Source:         p.Source,
	}
}

func modelToPosition(m models.Position) (position.Position, error) {
	if !common.IsHexAddress(m.Token) {
		return position.Position{}, fmt.Errorf("invalid token address %q", m.Token)
	}
	amount, ok := new(big.Int).SetString(m.Amount, 10)
	if !ok {
		return position.Position{}, fmt.Errorf("invalid amount %q", m.Amount)
	}
	return position.Position{
		Token:          common.HexToAddress(m.Token),
		Name:           m.Name,
		Symbol:         m.Symbol,
		Amount:         amount,
		EntryValue:     m.EntryValue,
		EntryTime:      m.EntryTime,
		HighWaterValue: m.HighWaterValue,
		LastValue:      m.LastValue,
		TxRef:          m.TxRef,
		ProfitSecured:  m.ProfitSecured,
		Source:         m.Source,
	}, nil
}

func recordToModel(actor common.Address, r reputation.Record) models.ActorRecord {
	return models.ActorRecord{
		Actor:         actor.Hex(),
		TotalTrades:   r.TotalTrades,
		Wins:          r.Wins,
		Losses:        r.Losses,
		TotalPnL:      r.TotalPnL,
		TotalInvested: r.TotalInvested,
		AvgROIPct:     r.AvgROIPct,
		AvgHoldNanos:  int64(r.AvgHoldTime),
		LastTradeTime: r.LastTradeTime.UTC(),
		WinStreak:     r.WinStreak,
		BestTrade:     r.BestTrade,
		WorstTrade:    r.WorstTrade,
	}
}

func modelToRecord(m models.ActorRecord) reputation.Record {
	return reputation.Record{
		TotalTrades:   m.TotalTrades,
		Wins:          m.Wins,
		Losses:        m.Losses,
		TotalPnL:      m.TotalPnL,
		TotalInvested: m.TotalInvested,
		AvgROIPct:     m.AvgROIPct,
		AvgHoldTime:   time.Duration(m.AvgHoldNanos),
		LastTradeTime: m.LastTradeTime,
		WinStreak:     m.WinStreak,
		BestTrade:     m.BestTrade,
		WorstTrade:    m.WorstTrade,
	}
}
