package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/project"
)

func TestRunWatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := demoProject(t)
	cfg := newTestConfig()
	cfg.WatchCfg.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, &out, zap.NewNop(), cfg, dir, nil)
	}()

	runs := func() int { return strings.Count(out.String(), "demo: ") }
	require.Eventually(t, func() bool { return runs() == 1 }, 5*time.Second, 10*time.Millisecond, "initial validation")
	assert.Contains(t, out.String(), "1 errors, 1 warnings")

	// Fix the dangling call; the edit must trigger exactly one more run.
	fixed := `{"events": [{"id": "e", "trigger": {"type": "init"}, "actions": [{"type": "event-next", "param": {"event": "e"}}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonc"), []byte(fixed), 0o644))
	require.Eventually(t, func() bool { return runs() == 2 }, 5*time.Second, 10*time.Millisecond, "re-validation after change")
	assert.Contains(t, out.String(), "0 errors, 1 warnings")

	// Writes of the state directory do not re-trigger.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, runs())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestRunWatch_MissingProject(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	missing := filepath.Join(t.TempDir(), "nope")
	go func() {
		done <- runWatch(ctx, &out, zap.NewNop(), newTestConfig(), missing, nil)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, project.ErrProjectRoot)
	case <-time.After(5 * time.Second):
		cancel()
		<-done
		t.Fatal("watch of a missing directory should fail")
	}
}

func TestAddWatchRecursive(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"events.jsonc":           eventsFile,
		"pages/a/main.jsonc":     "{}",
		".layerlint/report.json": "[]",
	})
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, addWatchRecursive(w, dir, filepath.Join(dir, ".layerlint")))
	assert.ElementsMatch(t, []string{dir, filepath.Join(dir, "pages"), filepath.Join(dir, "pages", "a")}, w.WatchList())
}

func TestIsUnder(t *testing.T) {
	assert.True(t, isUnder("/p/.layerlint", "/p/.layerlint"))
	assert.True(t, isUnder("/p/.layerlint/report.json", "/p/.layerlint"))
	assert.False(t, isUnder("/p/.layerlintx", "/p/.layerlint"))
	assert.False(t, isUnder("/p/events.jsonc", "/p/.layerlint"))
}
