// Package gormstore persists portfolio snapshots to SQLite through Gorm.
// Every mutation writes the full snapshot; boot reads it back. The events
// table is append-only and never read on the hot path.
package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"clawtrader/internal/portfolio"
	"clawtrader/internal/types"
)

const settingsRowID = 1

// Store implements portfolio.Persister on a SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the portfolio database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&settingsModel{},
		&positionModel{},
		&tradeModel{},
		&watchlistModel{},
		&eventModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep connection count low to avoid lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ portfolio.Persister = (*Store)(nil)

// Save replaces the stored snapshot and appends the events that produced it,
// all inside one transaction. Position, trade and watchlist rows are rewritten
// from the snapshot, so a portfolio reset also clears the history on disk.
func (s *Store) Save(snap portfolio.Snapshot, events []portfolio.Event) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	now := time.Now().UnixMilli()
	return s.db.Transaction(func(tx *gorm.DB) error {
		settings := settingsModel{
			ID:                settingsRowID,
			CashBalance:       snap.CashBalance,
			StartingBalance:   snap.StartingBalance,
			SelectedAssetID:   snap.SelectedAssetID,
			SelectedTimeRange: string(snap.SelectedTimeRange),
			UpdatedAtUnix:     now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&settings).Error; err != nil {
			return err
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&positionModel{}).Error; err != nil {
			return err
		}
		if len(snap.Positions) > 0 {
			models := make([]positionModel, 0, len(snap.Positions))
			for _, p := range snap.Positions {
				models = append(models, newPositionModel(p))
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&tradeModel{}).Error; err != nil {
			return err
		}
		if len(snap.Trades) > 0 {
			models := make([]tradeModel, 0, len(snap.Trades))
			for _, t := range snap.Trades {
				models = append(models, newTradeModel(t))
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&watchlistModel{}).Error; err != nil {
			return err
		}
		if len(snap.Watchlist) > 0 {
			models := make([]watchlistModel, 0, len(snap.Watchlist))
			for i, w := range snap.Watchlist {
				models = append(models, newWatchlistModel(w, i))
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}

		for _, evt := range events {
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				return fmt.Errorf("encoding %s event payload: %w", evt.Op, err)
			}
			row := eventModel{
				Op:            evt.Op,
				Payload:       datatypes.JSON(payload),
				CreatedAtUnix: now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the stored snapshot. The second return value reports whether a
// snapshot existed; a fresh database yields (zero, false, nil).
func (s *Store) Load() (portfolio.Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return portfolio.Snapshot{}, false, fmt.Errorf("gorm store not initialized")
	}

	var settings settingsModel
	err := s.db.First(&settings, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return portfolio.Snapshot{}, false, nil
	}
	if err != nil {
		return portfolio.Snapshot{}, false, err
	}

	var positions []positionModel
	if err := s.db.Order("opened_at ASC, id ASC").Find(&positions).Error; err != nil {
		return portfolio.Snapshot{}, false, err
	}
	var trades []tradeModel
	if err := s.db.Order("closed_at ASC, id ASC").Find(&trades).Error; err != nil {
		return portfolio.Snapshot{}, false, err
	}
	var watchlist []watchlistModel
	if err := s.db.Order("sort_order ASC").Find(&watchlist).Error; err != nil {
		return portfolio.Snapshot{}, false, err
	}

	snap := portfolio.Snapshot{
		CashBalance:       settings.CashBalance,
		StartingBalance:   settings.StartingBalance,
		SelectedAssetID:   settings.SelectedAssetID,
		SelectedTimeRange: types.TimeRange(settings.SelectedTimeRange),
	}
	for _, m := range positions {
		snap.Positions = append(snap.Positions, positionModelToType(m))
	}
	for _, m := range trades {
		snap.Trades = append(snap.Trades, tradeModelToType(m))
	}
	for _, m := range watchlist {
		snap.Watchlist = append(snap.Watchlist, watchlistModelToType(m))
	}
	return snap, true, nil
}

// CountEvents returns the total number of audit events, optionally filtered
// by op.
func (s *Store) CountEvents(op string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	query := s.db.Model(&eventModel{})
	if op = strings.TrimSpace(op); op != "" {
		query = query.Where("op = ?", op)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
