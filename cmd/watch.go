package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
	"github.com/xkilldash9x/layerlint/internal/observability"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd(provider storeProvider) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch [project-dir]",
		Short: "Re-validates a project whenever one of its files changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(ctx, cmd.OutOrStdout(), observability.GetLogger(), cfg, dir, provider)
		},
	}
	watchCmd.Flags().Duration("debounce", 0, "quiet period after a change before re-validating")
	bindKey(watchCmd.Flags(), "debounce", "watch.debounce")
	return watchCmd
}

// runWatch validates dir once, then again after every burst of changes,
// until ctx is done.
func runWatch(ctx context.Context, out io.Writer, logger *zap.Logger, cfg config.Interface, dir string, provider storeProvider) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", project.ErrProjectRoot, root)
	}
	eng, cleanup, err := newEngine(ctx, cfg, logger, provider)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer watcher.Close()

	stateDir := filepath.Dir(engine.StatePath(root, cfg.Report().StateDir, engine.ReportFileName))
	if err := addWatchRecursive(watcher, root, stateDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	validate := func() {
		report, err := eng.Run(ctx, root)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Validation failed", zap.String("project_dir", root), zap.Error(err))
			}
			return
		}
		if err := writeReports(out, logger, eng, "text", "", []*diagnostics.Report{report}, false); err != nil {
			logger.Error("Failed to print report", zap.Error(err))
		}
	}

	debounce := cfg.Watch().Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	logger.Info("Watching project", zap.String("project_dir", root), zap.Duration("debounce", debounce))
	validate()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped", zap.String("project_dir", root))
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isUnder(ev.Name, stateDir) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, ev.Name, stateDir); err != nil {
						logger.Warn("Failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}
			logger.Debug("Change detected", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error", zap.Error(err))
		case <-timer.C:
			validate()
		}
	}
}

// addWatchRecursive watches root and every directory below it except skip.
func addWatchRecursive(w *fsnotify.Watcher, root, skip string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if isUnder(path, skip) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isUnder(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
