package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
)

// seedReport writes a last report with three diagnostics into a fresh
// project directory.
func seedReport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	events := filepath.Join(dir, "events.jsonc")
	strs := filepath.Join(dir, "strings.jsonc")
	items := []diagnostics.ReportItem{
		{ProjectName: "demo", FullFileName: events, LineID: 3, Line: 1, JsonPath: "root.events[0].actions[0].param.event",
			Message: `Event "ghost" is not defined`, ValidationType: diagnostics.ValidationLogic, Severity: diagnostics.SeverityError, Source: "CallNonExistingEvents"},
		{ProjectName: "demo", FullFileName: strs, LineID: 2, Line: 1, JsonPath: "root.strings[0].id",
			Message: `String "s" is never used`, ValidationType: diagnostics.ValidationLogic, Severity: diagnostics.SeverityWarning, Source: "RedundantStrings"},
		{ProjectName: "demo", FullFileName: diagnostics.JoinFiles(events, strs), LineID: 4,
			Message: "Duplicate id", ValidationType: diagnostics.ValidationLogic, Severity: diagnostics.SeverityError, Source: "DuplicateIds"},
	}
	require.NoError(t, diagnostics.SaveItems(engine.StatePath(dir, ".layerlint", engine.ReportFileName), items))
	return dir
}

func loadIgnore(t *testing.T, dir string) diagnostics.IgnoreList {
	t.Helper()
	list, err := diagnostics.LoadIgnoreList(engine.StatePath(dir, ".layerlint", engine.IgnoreFileName))
	require.NoError(t, err)
	return list
}

func TestRunIgnore(t *testing.T) {
	cfg := newTestConfig()

	t.Run("selects by source", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{source: "RedundantStrings"}))
		assert.Contains(t, out.String(), "Added 1 entries")

		list := loadIgnore(t, dir)
		require.Len(t, list, 1)
		assert.Equal(t, "RedundantStrings", list[0].Source)
		assert.Zero(t, list[0].Line, "display lines are not stored")
		assert.Equal(t, 2, list[0].LineID)

		out.Reset()
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{source: "RedundantStrings"}))
		assert.Contains(t, out.String(), "Added 0 entries")
		assert.Len(t, loadIgnore(t, dir), 1)
	})

	t.Run("file selector matches either side of a pair", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{files: []string{"strings.jsonc"}, severity: "error"}))
		list := loadIgnore(t, dir)
		require.Len(t, list, 1)
		assert.Equal(t, "DuplicateIds", list[0].Source)
	})

	t.Run("two files select only the pair", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{files: []string{"strings.jsonc", "events.jsonc"}}))
		list := loadIgnore(t, dir)
		require.Len(t, list, 1)
		assert.Equal(t, "DuplicateIds", list[0].Source)
	})

	t.Run("file pattern matches two-file diagnostics when both are named", func(t *testing.T) {
		dir := seedReport(t)
		events := filepath.Join(dir, "events.jsonc")
		strs := filepath.Join(dir, "strings.jsonc")
		pair := diagnostics.ReportItem{FullFileName: diagnostics.JoinFiles(events, strs), Source: "DuplicateIds"}

		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{files: []string{"events.jsonc", "strings.jsonc"}, pattern: true}))
		list := loadIgnore(t, dir)
		require.Len(t, list, 1)
		assert.Equal(t, pair.FullFileName, list[0].FullFileName)
		assert.True(t, list.Suppresses(pair))

		single := diagnostics.IgnoreList{{FullFileName: events}}
		assert.False(t, single.Suppresses(pair), "one file never matches a joined pair")

		err := runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{files: []string{"a", "b", "c"}, pattern: true})
		assert.ErrorContains(t, err, "at most two")
	})

	t.Run("all", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{all: true}))
		assert.Len(t, loadIgnore(t, dir), 3)
	})

	t.Run("pattern", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{validationType: "logic", severity: "warning", pattern: true}))
		list := loadIgnore(t, dir)
		assert.Equal(t, diagnostics.IgnoreList{{ValidationType: diagnostics.ValidationLogic, Severity: diagnostics.SeverityWarning}}, list)
	})

	t.Run("global", func(t *testing.T) {
		dir := seedReport(t)
		global := filepath.Join(t.TempDir(), "global-ignore.json")
		gcfg := newTestConfig()
		gcfg.ReportCfg.GlobalIgnoreFile = global

		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), gcfg, dir, ignoreOptions{source: "DuplicateIds", global: true}))
		list, err := diagnostics.LoadIgnoreList(global)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Empty(t, loadIgnore(t, dir))
	})

	t.Run("dry run saves nothing", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		require.NoError(t, runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{all: true, dryRun: true}))
		assert.Contains(t, out.String(), "3 entries would be added")
		assert.Contains(t, out.String(), "CallNonExistingEvents")
		assert.Empty(t, loadIgnore(t, dir))
	})

	t.Run("errors", func(t *testing.T) {
		dir := seedReport(t)
		var out bytes.Buffer
		err := runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{})
		assert.ErrorContains(t, err, "no selector given")

		err = runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{severity: "fatal"})
		assert.ErrorContains(t, err, `unknown severity "fatal"`)

		err = runIgnore(&out, zap.NewNop(), cfg, dir, ignoreOptions{all: true, global: true})
		assert.ErrorContains(t, err, "report.global_ignore_file is not configured")
	})
}

func TestIgnoreCmd_SuppressesNextRun(t *testing.T) {
	dir := demoProject(t)
	cfgFile := createTempConfig(t, "report:\n  fail_on: warning\n")

	_, err := executeCommand(t, "--config", cfgFile, "validate", dir)
	require.ErrorIs(t, err, ErrFailThreshold)

	out, err := executeCommand(t, "--config", cfgFile, "ignore", "--all", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 entries")

	out, err = executeCommand(t, "--config", cfgFile, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "demo: 0 diagnostics: 0 errors, 0 warnings, 0 notes (2 suppressed)")
}

func TestIgnoreCmd_FlagConflict(t *testing.T) {
	cfgFile := createTempConfig(t, "")
	_, err := executeCommand(t, "--config", cfgFile, "ignore", "--all", "--pattern", "--source", "X", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}
