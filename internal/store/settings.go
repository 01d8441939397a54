// Package store persists per-(account, strategy) settings in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/sergvlet/AiTradeBot-sub002/internal/strategy"
)

// SettingsService is the settings collaborator consumed by runners and the
// tuning orchestrator.
type SettingsService interface {
	GetOrCreate(ctx context.Context, accountID, strategyType string) (strategy.Settings, error)
	Update(ctx context.Context, accountID string, s strategy.Settings) error
}

// SettingsStore is the SQLite-backed SettingsService.
type SettingsStore struct {
	db *sql.DB
}

// NewSettingsStore opens (or creates) the settings database at dbPath.
// ":memory:" works for tests.
func NewSettingsStore(dbPath string) (*SettingsStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS strategy_settings (
			account_id TEXT NOT NULL,
			strategy_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (account_id, strategy_type)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("create strategy_settings table: %w", err)
	}

	return &SettingsStore{db: db}, nil
}

// GetOrCreate loads the settings row for (accountID, strategyType), seeding
// it with the strategy defaults when absent.
func (s *SettingsStore) GetOrCreate(ctx context.Context, accountID, strategyType string) (strategy.Settings, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM strategy_settings WHERE account_id = ? AND strategy_type = ?",
		accountID, strategyType,
	).Scan(&payload)
	switch {
	case err == sql.ErrNoRows:
		defaults, derr := strategy.DefaultSettings(strategyType)
		if derr != nil {
			return nil, derr
		}
		if uerr := s.Update(ctx, accountID, defaults); uerr != nil {
			return nil, uerr
		}
		return defaults, nil
	case err != nil:
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return strategy.DecodeSettings(payload)
}

// Update upserts the settings row for (accountID, settings.StrategyType()).
func (s *SettingsStore) Update(ctx context.Context, accountID string, set strategy.Settings) error {
	payload, err := strategy.EncodeSettings(set)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategy_settings (account_id, strategy_type, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id, strategy_type)
		 DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		accountID, set.StrategyType(), payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}
