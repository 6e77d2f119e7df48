package datastore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/models"
)

// ScanHistoryStore keeps one row per scan session in SQLite so past
// runs survive restarts. Only counts and status land here, never
// findings or secrets.
type ScanHistoryStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

const historyColumns = `scan_session_id, target_path, status, findings_count, verified_count, duplicate_count, duration_ms, error_message, started_at, completed_at`

// NewScanHistoryStore opens the history database, creating it and its
// schema as needed.
func NewScanHistoryStore(cfg *config.StorageConfig, logger zerolog.Logger) (*ScanHistoryStore, error) {
	if cfg == nil {
		return nil, common.NewValidationError("config", cfg, "storage config cannot be nil")
	}

	dbPath := cfg.HistoryDBPath
	if dbPath == "" {
		dbPath = config.DefaultStorageHistoryDBPath
	}
	expanded, err := homedir.Expand(dbPath)
	if err != nil {
		return nil, common.WrapError(err, "failed to expand history database path")
	}
	if err := common.EnsureDir(filepath.Dir(expanded)); err != nil {
		return nil, common.WrapError(err, "failed to create history database directory")
	}

	db, err := sql.Open("sqlite", expanded)
	if err != nil {
		return nil, common.WrapError(err, "failed to open history database")
	}

	store := &ScanHistoryStore{
		db:     db,
		logger: logger.With().Str("component", "ScanHistoryStore").Logger(),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	store.logger.Debug().Str("db_path", expanded).Msg("Scan history database ready")
	return store, nil
}

// Close closes the underlying database.
func (s *ScanHistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *ScanHistoryStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_session_id TEXT NOT NULL UNIQUE,
		target_path TEXT NOT NULL,
		status TEXT NOT NULL,
		findings_count INTEGER NOT NULL DEFAULT 0,
		verified_count INTEGER NOT NULL DEFAULT 0,
		duplicate_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return common.WrapError(err, "failed to initialize scan history schema")
	}
	return nil
}

// RecordStart inserts a running entry for a new scan session.
func (s *ScanHistoryStore) RecordStart(ctx context.Context, scanSessionID, targetPath string, startedAt time.Time) error {
	query := `INSERT INTO scan_history (scan_session_id, target_path, status, started_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, scanSessionID, targetPath, string(models.ScanStatusRunning), startedAt.UTC()); err != nil {
		return common.WrapError(err, "failed to record scan start")
	}
	s.logger.Debug().Str("scan_session_id", scanSessionID).Msg("Recorded scan start")
	return nil
}

// RecordCompletion finalizes the session entry with its outcome.
func (s *ScanHistoryStore) RecordCompletion(ctx context.Context, summary models.ScanSummaryData) error {
	completedAt := summary.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	query := `UPDATE scan_history
		SET status = ?, findings_count = ?, verified_count = ?, duplicate_count = ?, duration_ms = ?, error_message = ?, completed_at = ?
		WHERE scan_session_id = ?`
	result, err := s.db.ExecContext(ctx, query,
		string(summary.Status),
		summary.FindingsCount,
		summary.VerifiedCount,
		summary.DuplicateCount,
		summary.ScanDuration.Milliseconds(),
		summary.ErrorMessage,
		completedAt.UTC(),
		summary.ScanSessionID)
	if err != nil {
		return common.WrapError(err, "failed to record scan completion")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return common.WrapError(err, "failed to check scan completion update")
	}
	if affected == 0 {
		return common.WrapError(common.ErrNotFound, "no scan history entry for session "+summary.ScanSessionID)
	}

	s.logger.Debug().
		Str("scan_session_id", summary.ScanSessionID).
		Str("status", string(summary.Status)).
		Msg("Recorded scan completion")
	return nil
}

// LastScan returns the most recently started scan entry.
func (s *ScanHistoryStore) LastScan(ctx context.Context) (*models.ScanSummaryData, error) {
	query := `SELECT ` + historyColumns + ` FROM scan_history ORDER BY started_at DESC, id DESC LIMIT 1`
	summary, err := scanHistoryRow(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, "scan history is empty")
		}
		return nil, common.WrapError(err, "failed to query last scan")
	}
	return &summary, nil
}

// RecentScans returns up to limit entries, newest first.
func (s *ScanHistoryStore) RecentScans(ctx context.Context, limit int) ([]models.ScanSummaryData, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + historyColumns + ` FROM scan_history ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, common.WrapError(err, "failed to query recent scans")
	}
	defer rows.Close()

	var summaries []models.ScanSummaryData
	for rows.Next() {
		summary, err := scanHistoryRow(rows)
		if err != nil {
			return nil, common.WrapError(err, "failed to scan history row")
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "failed to iterate history rows")
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRow(row rowScanner) (models.ScanSummaryData, error) {
	var summary models.ScanSummaryData
	var status string
	var durationMS int64
	var completedAt sql.NullTime

	err := row.Scan(
		&summary.ScanSessionID,
		&summary.TargetPath,
		&status,
		&summary.FindingsCount,
		&summary.VerifiedCount,
		&summary.DuplicateCount,
		&durationMS,
		&summary.ErrorMessage,
		&summary.StartedAt,
		&completedAt)
	if err != nil {
		return summary, err
	}

	summary.Status = models.ScanStatus(status)
	summary.ScanDuration = time.Duration(durationMS) * time.Millisecond
	if completedAt.Valid {
		summary.CompletedAt = completedAt.Time
	}
	return summary, nil
}
