package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// -- Mock Implementations --

type mockStore struct {
	mu       sync.Mutex
	archived []*diagnostics.Report
}

func (m *mockStore) ArchiveRun(ctx context.Context, report *diagnostics.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived = append(m.archived, report)
	return nil
}

type mockStoreProvider struct {
	store   *mockStore
	err     error
	cleaned bool
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg config.Interface) (engine.Store, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleaned = true }, nil
}

// -- Test Cases --

func TestValidateCmd_Text(t *testing.T) {
	dir := demoProject(t)
	cfgFile := createTempConfig(t, "")

	out, err := executeCommand(t, "--config", cfgFile, "validate", dir)
	assert.ErrorIs(t, err, ErrFailThreshold, "the dangling event call is an error")

	assert.Contains(t, out, "events.jsonc\n")
	assert.Contains(t, out, "[CallNonExistingEvents]")
	assert.Contains(t, out, "[RedundantStrings]")
	assert.Contains(t, out, "demo: 2 diagnostics: 1 errors, 1 warnings, 0 notes in 2 files")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")

	assert.Len(t, lastReport(t, dir), 2, "the report is persisted for the ignore command")
}

func TestValidateCmd_JSON(t *testing.T) {
	dir := demoProject(t)
	cfgFile := createTempConfig(t, "")

	out, err := executeCommand(t, "--config", cfgFile, "validate", "--format", "json", "--fail-on", "never", dir)
	require.NoError(t, err)

	var report diagnostics.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "demo", report.ProjectName)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Count(diagnostics.SeverityError))
}

func TestValidateCmd_SARIFFile(t *testing.T) {
	dir := demoProject(t)
	cfgFile := createTempConfig(t, "")
	output := filepath.Join(t.TempDir(), "out.sarif")

	out, err := executeCommand(t, "--config", cfgFile, "validate", "-f", "sarif", "-o", output, "--fail-on", "never", dir)
	require.NoError(t, err)
	assert.Empty(t, out, "the report goes to the file only")

	report, err := sarif.Open(output)
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Len(t, report.Runs[0].Results, 2)
	assert.NotEmpty(t, report.Runs[0].Tool.Driver.Rules)
}

func TestValidateCmd_MultipleProjects(t *testing.T) {
	first := demoProject(t)
	second := writeProject(t, map[string]string{"strings.jsonc": stringsFile})
	cfgFile := createTempConfig(t, "")

	out, err := executeCommand(t, "--config", cfgFile, "validate", "--jobs", "2", "--fail-on", "warning", first, second)
	assert.ErrorIs(t, err, ErrFailThreshold)
	assert.Contains(t, out, "demo: 2 diagnostics")
	assert.Contains(t, out, "demo: 1 diagnostics: 0 errors, 1 warnings")
}

func TestValidateCmd_DisabledRules(t *testing.T) {
	dir := demoProject(t)
	cfgFile := createTempConfig(t, "")

	t.Run("disabling the failing rule passes", func(t *testing.T) {
		out, err := executeCommand(t, "--config", cfgFile, "validate", "--disable", "callnonexistingevents", dir)
		require.NoError(t, err)
		assert.NotContains(t, out, "CallNonExistingEvents")
		assert.Contains(t, out, "demo: 1 diagnostics")
	})

	t.Run("unknown rule names are rejected", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgFile, "validate", "--disable", "NoSuchRule", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown rule "NoSuchRule"`)
	})
}

func TestValidateCmd_MissingProject(t *testing.T) {
	cfgFile := createTempConfig(t, "")
	_, err := executeCommand(t, "--config", cfgFile, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, project.ErrProjectRoot)
	assert.NotErrorIs(t, err, ErrFailThreshold)
}

func TestRunValidate_Archive(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := demoProject(t)
	cfg := newTestConfig()
	cfg.ReportCfg.FailOn = "never"

	t.Run("archives every run", func(t *testing.T) {
		provider := &mockStoreProvider{store: &mockStore{}}
		var out bytes.Buffer
		err := runValidate(context.Background(), &out, zap.NewNop(), cfg, []string{dir}, validateOptions{}, provider)
		require.NoError(t, err)

		require.Len(t, provider.store.archived, 1)
		assert.Equal(t, 2, provider.store.archived[0].Summary.Total)
		assert.True(t, provider.cleaned, "the archive is released")
	})

	t.Run("provider failure aborts", func(t *testing.T) {
		provider := &mockStoreProvider{err: errors.New("connection refused")}
		var out bytes.Buffer
		err := runValidate(context.Background(), &out, zap.NewNop(), cfg, []string{dir}, validateOptions{}, provider)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Empty(t, out.String())
	})
}

func TestRunValidate_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := runValidate(ctx, &out, zap.NewNop(), newTestConfig(), []string{demoProject(t), demoProject(t)}, validateOptions{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestCheckThreshold(t *testing.T) {
	warnOnly := &diagnostics.Report{Items: []diagnostics.ReportItem{{Severity: diagnostics.SeverityWarning}}}
	clean := &diagnostics.Report{}

	tests := []struct {
		failOn  string
		reports []*diagnostics.Report
		wantErr error
	}{
		{"error", []*diagnostics.Report{warnOnly}, nil},
		{"warning", []*diagnostics.Report{clean, warnOnly}, ErrFailThreshold},
		{"Note", []*diagnostics.Report{warnOnly}, ErrFailThreshold},
		{"never", []*diagnostics.Report{warnOnly}, nil},
		{"warning", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			err := checkThreshold(tt.failOn, tt.reports)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("rejects unknown levels", func(t *testing.T) {
		err := checkThreshold("fatal", []*diagnostics.Report{clean})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "invalid fail_on level"))
	})
}
