// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// viperKeyAnnotation maps a flag to the configuration key it overrides.
const viperKeyAnnotation = "layerlint/viper-key"

// ErrFailThreshold is returned when diagnostics at or above report.fail_on
// remain after filtering.
var ErrFailThreshold = errors.New("diagnostics at or above the fail_on level were found")

// NewRootCommand builds the command tree. Every call returns an independent
// tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "layerlint",
		Short:         "layerlint statically validates ERP layer projects written in JSONC.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "layerlint"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "layerlint"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting layerlint", zap.String("version", Version), zap.String("command", cmd.Name()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./layerlint.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	bindKey(flags, "log-level", "logger.level")
	flags.String("project-name", "", "project name used in diagnostics (default is the directory name)")
	bindKey(flags, "project-name", "project.project_name")

	rootCmd.AddCommand(
		newValidateCmd(NewStoreProvider()),
		newWatchCmd(NewStoreProvider()),
		newInspectCmd(),
		newFindCmd(),
		newIgnoreCmd(),
		newRulesCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Process exit statuses.
const (
	ExitOK        = 0
	ExitThreshold = 1
	ExitError     = 2
	ExitCancelled = 130
)

// ExitCode maps the error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFailThreshold):
		return ExitThreshold
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return ExitError
	}
}

// Execute runs the command tree with ctx and flushes the logger.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrFailThreshold) {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted")
		} else {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment and binds the
// annotated flags of cmd so they override both.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("layerlint")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LAYERLINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var bindErr error
	visit := func(f *pflag.Flag) {
		keys := f.Annotations[viperKeyAnnotation]
		if len(keys) == 0 || !f.Changed || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	}
	cmd.Flags().VisitAll(visit)
	return bindErr
}

// bindKey marks flag name as an override of the configuration key.
func bindKey(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, viperKeyAnnotation, []string{key})
}

// getConfigFromContext returns the configuration loaded by the root command.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
