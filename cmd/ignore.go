package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
	"github.com/xkilldash9x/layerlint/internal/observability"
)

// ignoreOptions select which diagnostics of the last report get suppressed.
type ignoreOptions struct {
	source         string
	severity       string
	validationType string
	files          []string
	path           string
	all            bool
	pattern        bool
	global         bool
	dryRun         bool
}

func (o ignoreOptions) hasSelector() bool {
	return o.source != "" || o.severity != "" || o.validationType != "" || len(o.files) > 0 || o.path != ""
}

// newIgnoreCmd creates and configures the `ignore` command.
func newIgnoreCmd() *cobra.Command {
	var opts ignoreOptions

	ignoreCmd := &cobra.Command{
		Use:   "ignore [project-dir]",
		Short: "Suppresses diagnostics of the last validation in later runs",
		Long: `Copies diagnostics from the last report of a project into its ignore list,
or into the global ignore list with --global. Selectors narrow the copied
diagnostics; --all copies every one. With --pattern the selectors themselves
are stored as a pattern, which also matches diagnostics that do not exist yet.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runIgnore(cmd.OutOrStdout(), observability.GetLogger(), cfg, dir, opts)
		},
	}

	flags := ignoreCmd.Flags()
	flags.StringVar(&opts.source, "source", "", "rule that produced the diagnostic")
	flags.StringVar(&opts.severity, "severity", "", "severity (Error, Warning, Note)")
	flags.StringVar(&opts.validationType, "type", "", "validation type (Scheme, File, Logic)")
	flags.StringSliceVar(&opts.files, "file", nil,
		"file of the diagnostic, relative to the project; repeat it to name both files of a two-file diagnostic, in report order")
	flags.StringVar(&opts.path, "path", "", "JSON path of the diagnostic")
	flags.BoolVar(&opts.all, "all", false, "ignore every diagnostic of the last report")
	flags.BoolVar(&opts.pattern, "pattern", false, "store the selectors as a pattern instead of the matching diagnostics")
	flags.BoolVar(&opts.global, "global", false, "write to report.global_ignore_file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the entries without saving them")
	ignoreCmd.MarkFlagsMutuallyExclusive("all", "pattern")

	return ignoreCmd
}

func runIgnore(out io.Writer, logger *zap.Logger, cfg config.Interface, dir string, opts ignoreOptions) error {
	if !opts.hasSelector() && !opts.all {
		return errors.New("no selector given; use --all to ignore every diagnostic")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	selector, err := buildSelector(root, opts)
	if err != nil {
		return err
	}

	var entries []diagnostics.ReportItem
	if opts.pattern {
		entries = []diagnostics.ReportItem{selector}
	} else {
		reportPath := engine.StatePath(root, cfg.Report().StateDir, engine.ReportFileName)
		last, err := diagnostics.LoadItems(reportPath)
		if err != nil {
			return fmt.Errorf("failed to load last report: %w", err)
		}
		for _, item := range last {
			if selects(selector, item) {
				item.Line = 0
				entries = append(entries, item)
			}
		}
	}

	target := engine.StatePath(root, cfg.Report().StateDir, engine.IgnoreFileName)
	if opts.global {
		target = cfg.Report().GlobalIgnoreFile
		if target == "" {
			return errors.New("report.global_ignore_file is not configured")
		}
	}

	if opts.dryRun {
		for _, e := range entries {
			fmt.Fprintln(out, e.String())
		}
		fmt.Fprintf(out, "%d entries would be added to %s\n", len(entries), target)
		return nil
	}

	list, err := diagnostics.LoadIgnoreList(target)
	if err != nil {
		return fmt.Errorf("failed to load ignore list: %w", err)
	}
	before := len(list)
	list = list.Add(entries...)
	if err := diagnostics.SaveIgnoreList(target, list); err != nil {
		return fmt.Errorf("failed to save ignore list: %w", err)
	}

	added := len(list) - before
	logger.Info("Ignore list updated", zap.String("path", target), zap.Int("added", added))
	fmt.Fprintf(out, "Added %d entries to %s\n", added, target)
	return nil
}

// buildSelector turns the selector flags into a pattern item.
func buildSelector(root string, opts ignoreOptions) (diagnostics.ReportItem, error) {
	sel := diagnostics.ReportItem{
		Source:   opts.source,
		JsonPath: opts.path,
	}
	if opts.severity != "" {
		sev, err := diagnostics.ParseSeverity(opts.severity)
		if err != nil {
			return sel, err
		}
		sel.Severity = sev
	}
	if opts.validationType != "" {
		vt, err := diagnostics.ParseValidationType(opts.validationType)
		if err != nil {
			return sel, err
		}
		sel.ValidationType = vt
	}
	if len(opts.files) > 2 {
		return sel, errors.New("--file accepts at most two files")
	}
	for _, file := range opts.files {
		if !filepath.IsAbs(file) {
			file = filepath.Join(root, file)
		}
		sel.FullFileName = diagnostics.JoinFiles(sel.FullFileName, filepath.Clean(file))
	}
	return sel, nil
}

// selects reports whether item carries every value set in sel. Each selector
// file must be one of the files of the diagnostic, so a single file matches
// either side of a two-file diagnostic.
func selects(sel, item diagnostics.ReportItem) bool {
	if sel.FullFileName != "" {
		files := strings.Split(item.FullFileName, diagnostics.FileSeparator)
		for _, want := range strings.Split(sel.FullFileName, diagnostics.FileSeparator) {
			if !slices.Contains(files, want) {
				return false
			}
		}
	}
	if sel.Source != "" && item.Source != sel.Source ||
		sel.JsonPath != "" && item.JsonPath != sel.JsonPath ||
		sel.Severity != diagnostics.SeverityUnset && item.Severity != sel.Severity ||
		sel.ValidationType != diagnostics.ValidationUnset && item.ValidationType != sel.ValidationType {
		return false
	}
	return true
}
