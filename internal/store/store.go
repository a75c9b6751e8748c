package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store archives validation runs in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lint_runs (
    run_id       TEXT PRIMARY KEY,
    project_name TEXT NOT NULL,
    project_dir  TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL,
    files        INTEGER NOT NULL,
    properties   INTEGER NOT NULL,
    suppressed   INTEGER NOT NULL,
    errors       INTEGER NOT NULL,
    warnings     INTEGER NOT NULL,
    notes        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS lint_diagnostics (
    run_id          TEXT NOT NULL REFERENCES lint_runs (run_id) ON DELETE CASCADE,
    seq             INTEGER NOT NULL,
    file_name       TEXT NOT NULL,
    file_type       TEXT NOT NULL,
    line_id         INTEGER NOT NULL,
    line            INTEGER NOT NULL,
    json_path       TEXT NOT NULL,
    message         TEXT NOT NULL,
    validation_type TEXT NOT NULL,
    severity        TEXT NOT NULL,
    source          TEXT NOT NULL,
    PRIMARY KEY (run_id, seq)
);`

var diagnosticColumns = []string{
	"run_id", "seq", "file_name", "file_type", "line_id", "line",
	"json_path", "message", "validation_type", "severity", "source",
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects a pool to url and ensures the archive tables exist. The
// returned close function releases the pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// Migrate creates the archive tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create archive tables: %w", err)
	}
	return nil
}

// ArchiveRun stores the run summary and its diagnostics in one transaction.
func (s *Store) ArchiveRun(ctx context.Context, report *diagnostics.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlInsertRun,
		report.RunID, report.ProjectName, report.ProjectDir,
		report.StartedAt.UTC(), report.Duration.Milliseconds(),
		report.Files, report.Properties, report.Suppressed,
		report.Summary.Count(diagnostics.SeverityError),
		report.Summary.Count(diagnostics.SeverityWarning),
		report.Summary.Count(diagnostics.SeverityNote),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	if len(report.Items) > 0 {
		if err := s.persistDiagnostics(ctx, tx, report.RunID, report.Items); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Archived run", zap.String("run_id", report.RunID), zap.Int("diagnostics", len(report.Items)))
	return nil
}

const sqlInsertRun = `
        INSERT INTO lint_runs (run_id, project_name, project_dir, started_at, duration_ms, files, properties, suppressed, errors, warnings, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
    `

func (s *Store) persistDiagnostics(ctx context.Context, tx pgx.Tx, runID string, items []diagnostics.ReportItem) error {
	rows := make([][]interface{}, len(items))
	for i, item := range items {
		rows[i] = []interface{}{
			runID, i, item.FullFileName, item.FileType, item.LineID, item.Line,
			item.JsonPath, item.Message, item.ValidationType.String(), item.Severity.String(), item.Source,
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"lint_diagnostics"}, diagnosticColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy diagnostics: %w", err)
	}
	if int(copyCount) != len(items) {
		return fmt.Errorf("mismatch in copied diagnostics count: expected %d, got %d", len(items), copyCount)
	}
	return nil
}

// GetDiagnosticsByRunID returns the archived diagnostics of a run in their
// original order.
func (s *Store) GetDiagnosticsByRunID(ctx context.Context, runID string) ([]diagnostics.ReportItem, error) {
	query := `
        SELECT r.project_name, d.file_name, d.file_type, d.line_id, d.line, d.json_path, d.message, d.validation_type, d.severity, d.source
        FROM lint_diagnostics d
        JOIN lint_runs r ON r.run_id = d.run_id
        WHERE d.run_id = $1
        ORDER BY d.seq ASC;
    `
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var items []diagnostics.ReportItem
	for rows.Next() {
		var item diagnostics.ReportItem
		var validationType, severity string

		err := rows.Scan(
			&item.ProjectName, &item.FullFileName, &item.FileType, &item.LineID, &item.Line,
			&item.JsonPath, &item.Message, &validationType, &severity, &item.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic row: %w", err)
		}
		if item.ValidationType, err = diagnostics.ParseValidationType(validationType); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		if item.Severity, err = diagnostics.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return items, nil
}
