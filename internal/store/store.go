// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/easytalk/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Setting keys.
const (
	KeySpeechStyle = "speech_style"
	KeyAPIKey      = "api_key"
)

// Store wraps SQLite access for history, stats and settings.
type Store struct {
	db           *sql.DB
	historyLimit int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, historyLimit: model.HistoryLimit}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetHistoryLimit changes how many history rows are kept. Non-positive
// values restore the default.
func (s *Store) SetHistoryLimit(limit int) {
	if limit <= 0 {
		limit = model.HistoryLimit
	}
	s.historyLimit = limit
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			original TEXT NOT NULL,
			converted TEXT NOT NULL,
			created_at TEXT NOT NULL,
			user TEXT NOT NULL,
			style TEXT NOT NULL,
			source TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS usage_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_conversions INTEGER NOT NULL,
			auto_converted INTEGER NOT NULL,
			today_detected INTEGER NOT NULL,
			accuracy REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendHistory stores entry as the newest row and evicts rows past the
// history limit.
func (s *Store) AppendHistory(ctx context.Context, entry model.HistoryEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, original, converted, created_at, user, style, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Original,
		entry.Converted,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.User,
		string(entry.Style),
		string(entry.Source),
	); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE seq NOT IN (
			SELECT seq FROM history ORDER BY seq DESC LIMIT ?
		)`, s.historyLimit); err != nil {
		return err
	}

	return tx.Commit()
}

// ListHistory returns up to limit entries, newest first. A non-positive
// limit returns everything kept.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original, converted, created_at, user, style, source
		 FROM history ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		var createdAt, style, source string
		if err := rows.Scan(&entry.ID, &entry.Original, &entry.Converted, &createdAt, &entry.User, &style, &source); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		entry.Timestamp = parsed
		entry.Style = model.SpeechStyle(style)
		entry.Source = model.Source(source)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearHistory deletes every history row.
func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return err
}

// LoadStats returns the stored counters, or fresh ones when none exist.
func (s *Store) LoadStats(ctx context.Context) (model.UsageStats, error) {
	var stats model.UsageStats
	err := s.db.QueryRowContext(ctx,
		`SELECT total_conversions, auto_converted, today_detected, accuracy FROM usage_stats WHERE id = 1`).
		Scan(&stats.TotalConversions, &stats.AutoConverted, &stats.TodayDetected, &stats.Accuracy)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewUsageStats(), nil
	}
	if err != nil {
		return model.UsageStats{}, err
	}
	return stats, nil
}

// SaveStats overwrites the stored counters.
func (s *Store) SaveStats(ctx context.Context, stats model.UsageStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_stats (id, total_conversions, auto_converted, today_detected, accuracy)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			total_conversions = excluded.total_conversions,
			auto_converted = excluded.auto_converted,
			today_detected = excluded.today_detected,
			accuracy = excluded.accuracy`,
		stats.TotalConversions, stats.AutoConverted, stats.TodayDetected, stats.Accuracy)
	return err
}

// ResetStats removes stored counters so the next load starts fresh.
func (s *Store) ResetStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM usage_stats`)
	return err
}

// GetSetting returns a stored value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores a value, replacing any previous one.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a value. Missing keys are not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}
