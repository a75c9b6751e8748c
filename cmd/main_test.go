package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
	"github.com/xkilldash9x/layerlint/internal/observability"
)

// resetForTest installs a silent global logger. The root command's own
// initialization is a no-op afterwards.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"}, zapcore.AddSync(io.Discard))
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a fresh command tree and returns everything it printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)
	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes a config file with schema validation off and
// content appended.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layerlint.yaml")
	body := "logger:\n  level: fatal\nschema:\n  enabled: false\n" + content
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// -- Project fixtures --

const (
	eventsFile  = `{"events": [{"id": "e", "trigger": {"type": "init"}, "actions": [{"type": "event-next", "param": {"event": "ghost"}}]}]}`
	stringsFile = `{"strings": [{"id": "s", "value": "v"}]}`
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo")
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// demoProject yields one CallNonExistingEvents error and one
// RedundantStrings warning.
func demoProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"events.jsonc":  eventsFile,
		"strings.jsonc": stringsFile,
	})
}

func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.ProjectCfg.Name = "demo"
	cfg.SchemaCfg.Enabled = false
	return cfg
}

func lastReport(t *testing.T, dir string) []diagnostics.ReportItem {
	t.Helper()
	items, err := diagnostics.LoadItems(engine.StatePath(dir, ".layerlint", engine.ReportFileName))
	require.NoError(t, err)
	return items
}

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
