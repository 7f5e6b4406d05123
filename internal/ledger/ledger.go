// Package ledger records accepted instances and filter rejections in a
// SQLite database, so an interrupted collection resumes with its
// per-category counters intact.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"easel/internal/config"
)

// Store manages collection state backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database under the
// configured log directory and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "ledger.db"))
}

// OpenPath opens the ledger database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// RecordInstance registers one persisted instance.
func (s *Store) RecordInstance(ctx context.Context, runner, category, id, instanceName string, sourceDate time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO instances (uuid, runner, category, instance_name, source_date, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		runner,
		category,
		instanceName,
		sourceDate.UTC().Format(time.RFC3339),
		now,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// RecordRejection registers one filtered-out candidate for auditing.
func (s *Store) RecordRejection(ctx context.Context, runner, stage, filterName, instanceName, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO rejections (runner, stage, filter, instance_name, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runner,
		stage,
		filterName,
		instanceName,
		reason,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

// Counts returns the number of persisted instances per category for one
// runner, used to resume an interrupted collection.
func (s *Store) Counts(ctx context.Context, runner string) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT category, COUNT(*) FROM instances WHERE runner = ? GROUP BY category`,
		runner,
	)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// SeenInstances returns the instance names already persisted for one
// runner, so identity filtering survives restarts.
func (s *Store) SeenInstances(ctx context.Context, runner string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT instance_name FROM instances WHERE runner = ?`,
		runner,
	)
	if err != nil {
		return nil, fmt.Errorf("query seen instances: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan instance name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen instances: %w", err)
	}
	return names, nil
}

// AllCounts returns persisted instance counts per runner and category,
// used by the status command.
func (s *Store) AllCounts(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT runner, category, COUNT(*) FROM instances GROUP BY runner, category`,
	)
	if err != nil {
		return nil, fmt.Errorf("query all counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var runner, category string
		var count int
		if err := rows.Scan(&runner, &category, &count); err != nil {
			return nil, fmt.Errorf("scan all counts: %w", err)
		}
		if counts[runner] == nil {
			counts[runner] = make(map[string]int)
		}
		counts[runner][category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate all counts: %w", err)
	}
	return counts, nil
}

// RejectionCounts returns the number of rejections per filter for one
// runner, reported in the run summary.
func (s *Store) RejectionCounts(ctx context.Context, runner string) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT filter, COUNT(*) FROM rejections WHERE runner = ? GROUP BY filter`,
		runner,
	)
	if err != nil {
		return nil, fmt.Errorf("query rejection counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var filterName string
		var count int
		if err := rows.Scan(&filterName, &count); err != nil {
			return nil, fmt.Errorf("scan rejection count: %w", err)
		}
		counts[filterName] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejection counts: %w", err)
	}
	return counts, nil
}
