package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/chitieu/finbot/errors"
)

// Transactions is the ledger persistence contract. Every method is scoped
// to a single owner.
type Transactions interface {
	// Create inserts a transaction, assigning its id.
	Create(ctx context.Context, tx *Transaction) error

	// ListByDateRange returns transactions dated within [from, to], inclusive,
	// most recent first.
	ListByDateRange(ctx context.Context, ownerID string, from, to time.Time) ([]Transaction, error)

	// ListRecent returns up to limit most recent transactions, optionally
	// restricted to one category (empty category means any).
	ListRecent(ctx context.Context, ownerID string, category Category, limit int) ([]Transaction, error)

	// DeleteByIDs removes the given transactions and reports how many were deleted.
	DeleteByIDs(ctx context.Context, ownerID string, ids []string) (int64, error)

	// DeleteAll removes every transaction of the owner.
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
}

// Config selects the database backing the ledger.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// DSN is the file path for sqlite or the connection string for postgres.
	DSN string

	// LogQueries enables gorm's SQL logging.
	LogQueries bool
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.LogQueries {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// gormTransactions implements Transactions over gorm.
type gormTransactions struct {
	db *gorm.DB
}

// NewTransactions creates a gorm-backed ledger.
func NewTransactions(db *gorm.DB) Transactions {
	return &gormTransactions{db: db}
}

func (s *gormTransactions) Create(ctx context.Context, tx *Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		if apperrors.CodeOf(err) != "" {
			return err
		}
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	return nil
}

func (s *gormTransactions) ListByDateRange(ctx context.Context, ownerID string, from, to time.Time) ([]Transaction, error) {
	var txs []Transaction
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, Day(from), Day(to)).
		Order("date DESC").
		Order("created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return txs, nil
}

func (s *gormTransactions) ListRecent(ctx context.Context, ownerID string, category Category, limit int) ([]Transaction, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var txs []Transaction
	err := query.Order("date DESC").Order("created_at DESC").Find(&txs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}
	return txs, nil
}

func (s *gormTransactions) DeleteByIDs(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Delete(&Transaction{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormTransactions) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&Transaction{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, res.Error)
	}
	return res.RowsAffected, nil
}
