package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newStore(t *testing.T, logger *zap.Logger) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, logger)
	require.NoError(t, err)
	return s, mockPool
}

func sampleReport() *diagnostics.Report {
	items := []diagnostics.ReportItem{
		{
			ProjectName:    "demo",
			FullFileName:   "/work/proj/events.jsonc",
			FileType:       "Events",
			LineID:         4,
			Line:           7,
			JsonPath:       "root.events[0].id",
			Message:        "Event id is empty.",
			ValidationType: diagnostics.ValidationLogic,
			Severity:       diagnostics.SeverityError,
			Source:         "EmptyEventIds",
		},
		{
			ProjectName:    "demo",
			Message:        "Manifest file rules.jsonc is missing.",
			ValidationType: diagnostics.ValidationFile,
			Severity:       diagnostics.SeverityWarning,
			Source:         "ProjectBuilder",
		},
	}
	return &diagnostics.Report{
		RunID:       uuid.NewString(),
		ProjectName: "demo",
		ProjectDir:  "/work/proj",
		StartedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
		Duration:    1250 * time.Millisecond,
		Files:       4,
		Properties:  80,
		Suppressed:  1,
		Items:       items,
		Summary:     diagnostics.Summarize(items),
	}
}

func expectRunInsert(mockPool pgxmock.PgxPoolIface, report *diagnostics.Report) *pgxmock.ExpectedExec {
	return mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
		WithArgs(
			report.RunID, "demo", "/work/proj",
			report.StartedAt.UTC(), int64(1250),
			4, 80, 1,
			1, 1, 0,
		)
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates tables", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		mockPool.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS lint_runs")).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, s.Migrate(ctx))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("propagates failure", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		execErr := errors.New("permission denied")
		mockPool.ExpectExec("CREATE TABLE").WillReturnError(execErr)

		err := s.Migrate(ctx)
		assert.ErrorIs(t, err, execErr)
		assert.Contains(t, err.Error(), "failed to create archive tables")
	})
}

func TestArchiveRun(t *testing.T) {
	ctx := context.Background()

	t.Run("should archive a run without rollback errors", func(t *testing.T) {
		observedZapCore, observedLogs := observer.New(zapcore.ErrorLevel)
		s, mockPool := newStore(t, zap.New(observedZapCore))
		report := sampleReport()

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, report).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"lint_diagnostics"}, diagnosticColumns).
			WillReturnResult(2)
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.ArchiveRun(ctx, report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "Expected no errors logged on successful commit")
	})

	t.Run("skips the copy for a clean run", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		report := sampleReport()
		report.Items = nil
		report.Summary = diagnostics.Summarize(nil)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
			WithArgs(report.RunID, "demo", "/work/proj", report.StartedAt.UTC(), int64(1250), 4, 80, 1, 0, 0, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, s.ArchiveRun(ctx, report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err := s.ArchiveRun(ctx, sampleReport())
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if the run insert fails", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		report := sampleReport()
		insertErr := errors.New("duplicate key")

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, report).WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err := s.ArchiveRun(ctx, report)
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		assert.Contains(t, err.Error(), "failed to insert run "+report.RunID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback if copying diagnostics fails", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		report := sampleReport()
		copyErr := errors.New("copy from failed")

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, report).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"lint_diagnostics"}, diagnosticColumns).
			WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err := s.ArchiveRun(ctx, report)
		require.Error(t, err)
		assert.ErrorIs(t, err, copyErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject a short copy", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		report := sampleReport()

		mockPool.ExpectBegin()
		expectRunInsert(mockPool, report).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"lint_diagnostics"}, diagnosticColumns).
			WillReturnResult(1)
		mockPool.ExpectRollback()

		err := s.ArchiveRun(ctx, report)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2, got 1")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetDiagnosticsByRunID(t *testing.T) {
	ctx := context.Background()
	sqlGetDiagnostics := `
        SELECT r.project_name, d.file_name, d.file_type, d.line_id, d.line, d.json_path, d.message, d.validation_type, d.severity, d.source
        FROM lint_diagnostics d
        JOIN lint_runs r ON r.run_id = d.run_id
        WHERE d.run_id = $1
        ORDER BY d.seq ASC;
    `
	columns := []string{"project_name", "file_name", "file_type", "line_id", "line", "json_path", "message", "validation_type", "severity", "source"}

	t.Run("should retrieve diagnostics successfully", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		report := sampleReport()

		rows := pgxmock.NewRows(columns)
		for _, item := range report.Items {
			rows.AddRow(item.ProjectName, item.FullFileName, item.FileType, item.LineID, item.Line,
				item.JsonPath, item.Message, item.ValidationType.String(), item.Severity.String(), item.Source)
		}
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetDiagnostics)).
			WithArgs(report.RunID).
			WillReturnRows(rows)

		items, err := s.GetDiagnosticsByRunID(ctx, report.RunID)
		require.NoError(t, err)
		if diff := cmp.Diff(report.Items, items); diff != "" {
			t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
		}
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should reject unknown severities", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		rows := pgxmock.NewRows(columns).
			AddRow("demo", "", "", 0, 0, "", "msg", "Logic", "Fatal", "X")
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetDiagnostics)).
			WithArgs("run-x").
			WillReturnRows(rows)

		_, err := s.GetDiagnosticsByRunID(ctx, "run-x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown severity "Fatal"`)
	})

	t.Run("should propagate query errors", func(t *testing.T) {
		s, mockPool := newStore(t, zap.NewNop())
		queryErr := errors.New("connection reset")
		mockPool.ExpectQuery("SELECT").WithArgs("run-y").WillReturnError(queryErr)

		_, err := s.GetDiagnosticsByRunID(ctx, "run-y")
		assert.ErrorIs(t, err, queryErr)
	})
}
