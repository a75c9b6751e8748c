package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/engine"
	"github.com/xkilldash9x/layerlint/internal/jsonc"
	"github.com/xkilldash9x/layerlint/internal/observability"
	"github.com/xkilldash9x/layerlint/internal/reporting"
	"github.com/xkilldash9x/layerlint/internal/schema"
	"github.com/xkilldash9x/layerlint/internal/store"
)

// storeProvider creates the run archive. Tests inject a mock instead of a
// live database.
type storeProvider interface {
	// Create returns the archive and a cleanup function. A nil store means
	// archiving is off.
	Create(ctx context.Context, cfg config.Interface) (engine.Store, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the provider that connects to database.url.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (engine.Store, func(), error) {
	if cfg.Database().URL == "" {
		return nil, nil, nil
	}
	s, cleanup, err := store.Open(ctx, cfg.Database().URL, observability.GetLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run archive: %w", err)
	}
	return s, cleanup, nil
}

// validateOptions are the flags of validate that do not map to config keys.
type validateOptions struct {
	jobs    int
	noColor bool
}

// newValidateCmd creates and configures the `validate` command.
func newValidateCmd(provider storeProvider) *cobra.Command {
	var opts validateOptions

	validateCmd := &cobra.Command{
		Use:   "validate [project-dirs...]",
		Short: "Validates one or more layer projects",
		Long: `Builds the project graph of every directory given (the current directory by
default), runs the enabled rules and prints the remaining diagnostics. The
command fails when a diagnostic at or above report.fail_on is left.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			return runValidate(ctx, cmd.OutOrStdout(), observability.GetLogger(), cfg, args, opts, provider)
		},
	}

	flags := validateCmd.Flags()
	flags.StringP("format", "f", "", "output format (text, json, sarif)")
	bindKey(flags, "format", "report.format")
	flags.StringP("output", "o", "", "write the report to this file instead of stdout")
	bindKey(flags, "output", "report.output")
	flags.String("fail-on", "", "lowest severity that fails the command (error, warning, note, never)")
	bindKey(flags, "fail-on", "report.fail_on")
	flags.StringSlice("disable", nil, "rules to skip (repeatable)")
	bindKey(flags, "disable", "rules.disabled")
	flags.Bool("offline", false, "use cached schemas only")
	bindKey(flags, "offline", "schema.offline")
	flags.Int("concurrency", 0, "rules evaluated in parallel (0 = number of CPUs)")
	bindKey(flags, "concurrency", "rules.concurrency")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "projects validated in parallel")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored text output")

	return validateCmd
}

// runValidate contains the testable core of the validate command.
func runValidate(
	ctx context.Context,
	out io.Writer,
	logger *zap.Logger,
	cfg config.Interface,
	dirs []string,
	opts validateOptions,
	provider storeProvider,
) error {
	eng, cleanup, err := newEngine(ctx, cfg, logger, provider)
	if err != nil {
		return err
	}
	defer cleanup()

	var results []engine.Result
	if len(dirs) == 1 {
		report, err := eng.Run(ctx, dirs[0])
		results = []engine.Result{{ProjectDir: dirs[0], Report: report, Err: err}}
	} else {
		results = eng.RunAll(ctx, dirs, opts.jobs)
	}

	var reports []*diagnostics.Report
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.ProjectDir, res.Err))
			continue
		}
		reports = append(reports, res.Report)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if len(reports) > 0 {
		color := !opts.noColor && os.Getenv("NO_COLOR") == "" && writesToTerminal(out, cfg.Report().Output)
		if err := writeReports(out, logger, eng, cfg.Report().Format, cfg.Report().Output, reports, color); err != nil {
			return err
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return checkThreshold(cfg.Report().FailOn, reports)
}

// newEngine wires the schema source and the archive into an engine. The
// returned cleanup releases both.
func newEngine(ctx context.Context, cfg config.Interface, logger *zap.Logger, provider storeProvider) (*engine.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var engineOpts []engine.Option
	if sc := cfg.Schema(); sc.Enabled {
		source, err := schema.NewCachedSource(schema.Options{
			CacheDir:          sc.CacheDir,
			Offline:           sc.Offline,
			Timeout:           sc.Timeout,
			RetryCount:        sc.RetryCount,
			RequestsPerSecond: sc.RequestsPerSecond,
			LRUSize:           sc.LRUSize,
			Scan: jsonc.Options{
				RootName:    cfg.Project().RootName,
				PathDivider: cfg.Project().PathDivider,
			},
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize schema source: %w", err)
		}
		closers = append(closers, source.Close)
		engineOpts = append(engineOpts, engine.WithSchemaSource(source))
	}

	if provider != nil {
		archive, closeArchive, err := provider.Create(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if closeArchive != nil {
			closers = append(closers, closeArchive)
		}
		if archive != nil {
			engineOpts = append(engineOpts, engine.WithStore(archive))
		}
	}

	eng, err := engine.New(cfg, logger, engineOpts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return eng, cleanup, nil
}

// writeReports renders reports in format to outputPath, or to out when no
// output file is set.
func writeReports(out io.Writer, logger *zap.Logger, eng *engine.Engine, format, outputPath string, reports []*diagnostics.Report, color bool) error {
	ropts := reporting.Options{
		ToolVersion:      Version,
		RuleDescriptions: ruleDescriptions(eng),
		Color:            color,
		Logger:           logger,
	}

	var reporter reporting.Reporter
	var err error
	if outputPath == "" || outputPath == "stdout" {
		reporter, err = reporting.NewWithWriter(format, reporting.NopCloser(out), ropts)
	} else {
		reporter, err = reporting.New(format, outputPath, ropts)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}

	for _, report := range reports {
		if err := reporter.Write(report); err != nil {
			_ = reporter.Close()
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	if outputPath != "" && outputPath != "stdout" {
		logger.Info("Report successfully written to file", zap.String("path", outputPath))
	}
	return nil
}

func ruleDescriptions(eng *engine.Engine) map[string]string {
	all := eng.Registry().All()
	descriptions := make(map[string]string, len(all))
	for _, r := range all {
		descriptions[r.Name()] = r.Description()
	}
	return descriptions
}

// checkThreshold returns ErrFailThreshold when any report holds a diagnostic
// at or above failOn.
func checkThreshold(failOn string, reports []*diagnostics.Report) error {
	if strings.EqualFold(failOn, "never") || failOn == "" {
		return nil
	}
	min, err := diagnostics.ParseSeverity(failOn)
	if err != nil {
		return fmt.Errorf("invalid fail_on level: %w", err)
	}
	for _, report := range reports {
		if report.HasAtLeast(min) {
			return ErrFailThreshold
		}
	}
	return nil
}

// writesToTerminal reports whether text goes straight to an interactive
// stdout.
func writesToTerminal(out io.Writer, outputPath string) bool {
	if outputPath != "" && outputPath != "stdout" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && isTerminal(f)
}
