package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex // serializes Record
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewStoreError("NewSQLiteStore", "", "", "failed to create database directory", ErrConnectionFailed)
			}
		}
	}

	db, err := sqlx.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// A single connection keeps ":memory:" databases shared and makes the
	// store the only writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Record Operations
// =============================================================================

// recordRow represents a deployment_records row in the database.
type recordRow struct {
	ID           int64  `db:"id"`
	RepoURL      string `db:"repo_url"`
	Platform     string `db:"platform"`
	Status       string `db:"status"`
	HostedURL    string `db:"hosted_url"`
	Notes        string `db:"notes"`
	AttemptCount int    `db:"attempt_count"`
	RunID        string `db:"run_id"`
	RecordedAt   string `db:"recorded_at"`
}

const recordColumns = `id, repo_url, platform, status, hosted_url, notes, attempt_count, run_id, recorded_at`

func (s *SQLiteStore) HasTerminal(ctx context.Context, unit domain.DeploymentUnit) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM deployment_records WHERE repo_url = ? AND platform = ?`,
		unit.Repo.URL, string(unit.Platform))
	if err != nil {
		return false, NewStoreError("HasTerminal", "deployment_record", unit.Key(), err.Error(), err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, unit domain.DeploymentUnit) (*domain.DeploymentRecord, error) {
	return latestRecord(ctx, s.db, unit.Repo.URL, unit.Platform)
}

func (s *SQLiteStore) History(ctx context.Context, unit domain.DeploymentUnit) ([]domain.DeploymentRecord, error) {
	return recordHistory(ctx, s.db, unit.Repo.URL, unit.Platform)
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	var rows []recordRow
	query := `SELECT r.id, r.repo_url, r.platform, r.status, r.hosted_url, r.notes, r.attempt_count, r.run_id, r.recorded_at
		FROM deployment_records r
		JOIN (
			SELECT MAX(id) AS id, MIN(id) AS first_id
			FROM deployment_records
			GROUP BY repo_url, platform
		) latest ON latest.id = r.id
		ORDER BY latest.first_id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, NewStoreError("List", "deployment_record", "", err.Error(), err)
	}
	return rowsToRecords(rows)
}

// Record appends rec inside a transaction. The append rules are checked
// against the rows visible to the same transaction.
func (s *SQLiteStore) Record(ctx context.Context, rec domain.DeploymentRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrWriteFailed)
	}

	if err := appendRecord(ctx, tx, rec); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrWriteFailed)
	}
	return nil
}

// =============================================================================
// Shared Implementation (used by both DB and Tx)
// =============================================================================

func appendRecord(ctx context.Context, exec executor, rec domain.DeploymentRecord) error {
	existing, err := recordHistory(ctx, exec, rec.RepoURL, rec.Platform)
	if err != nil {
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrWriteFailed)
	}
	if err := checkAppend(rec, existing); err != nil {
		return err
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	row := recordRow{
		RepoURL:      rec.RepoURL,
		Platform:     string(rec.Platform),
		Status:       string(rec.Status),
		HostedURL:    rec.HostedURL,
		Notes:        rec.Notes,
		AttemptCount: rec.AttemptCount,
		RunID:        rec.RunID,
		RecordedAt:   recordedAt.Format(time.RFC3339Nano),
	}

	query := `INSERT INTO deployment_records (repo_url, platform, status, hosted_url, notes, attempt_count, run_id, recorded_at)
		VALUES (:repo_url, :platform, :status, :hosted_url, :notes, :attempt_count, :run_id, :recorded_at)`
	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployment_records") {
			return NewStoreError("Record", "deployment_record", rec.Key(), "unit already recorded in this run", ErrDuplicateRecord)
		}
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrWriteFailed)
	}
	return nil
}

func latestRecord(ctx context.Context, exec executor, repoURL string, platform domain.PlatformKind) (*domain.DeploymentRecord, error) {
	var row recordRow
	query := `SELECT ` + recordColumns + ` FROM deployment_records
		WHERE repo_url = ? AND platform = ? ORDER BY id DESC LIMIT 1`
	err := exec.GetContext(ctx, &row, query, repoURL, string(platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("Latest", "deployment_record", domain.UnitKey(repoURL, platform), "not found", ErrNotFound)
		}
		return nil, NewStoreError("Latest", "deployment_record", domain.UnitKey(repoURL, platform), err.Error(), err)
	}
	rec, err := rowToRecord(&row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func recordHistory(ctx context.Context, exec executor, repoURL string, platform domain.PlatformKind) ([]domain.DeploymentRecord, error) {
	var rows []recordRow
	query := `SELECT ` + recordColumns + ` FROM deployment_records
		WHERE repo_url = ? AND platform = ? ORDER BY id`
	if err := exec.SelectContext(ctx, &rows, query, repoURL, string(platform)); err != nil {
		return nil, NewStoreError("History", "deployment_record", domain.UnitKey(repoURL, platform), err.Error(), err)
	}
	return rowsToRecords(rows)
}

// =============================================================================
// Row Conversion
// =============================================================================

func rowsToRecords(rows []recordRow) ([]domain.DeploymentRecord, error) {
	records := make([]domain.DeploymentRecord, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func rowToRecord(row *recordRow) (domain.DeploymentRecord, error) {
	recordedAt, err := time.Parse(time.RFC3339Nano, row.RecordedAt)
	if err != nil {
		return domain.DeploymentRecord{}, NewStoreError("rowToRecord", "deployment_record", fmt.Sprint(row.ID), "invalid recorded_at", ErrInvalidData)
	}
	return domain.DeploymentRecord{
		RepoURL:      row.RepoURL,
		Platform:     domain.PlatformKind(row.Platform),
		Status:       domain.RecordStatus(row.Status),
		HostedURL:    row.HostedURL,
		Notes:        row.Notes,
		AttemptCount: row.AttemptCount,
		RunID:        row.RunID,
		RecordedAt:   recordedAt,
	}, nil
}
