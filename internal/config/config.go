// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Project() ProjectConfig
	Rules() RulesConfig
	Schema() SchemaConfig
	Services() ServicesConfig
	Report() ReportConfig
	Database() DatabaseConfig
	Watch() WatchConfig
}

// Config holds the entire application configuration. Sections are exported
// for viper and read through the Interface getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	ProjectCfg  ProjectConfig  `mapstructure:"project" yaml:"project"`
	RulesCfg    RulesConfig    `mapstructure:"rules" yaml:"rules"`
	SchemaCfg   SchemaConfig   `mapstructure:"schema" yaml:"schema"`
	ServicesCfg ServicesConfig `mapstructure:"services" yaml:"services"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	WatchCfg    WatchConfig    `mapstructure:"watch" yaml:"watch"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Project() ProjectConfig   { return c.ProjectCfg }
func (c *Config) Rules() RulesConfig       { return c.RulesCfg }
func (c *Config) Schema() SchemaConfig     { return c.SchemaCfg }
func (c *Config) Services() ServicesConfig { return c.ServicesCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) Watch() WatchConfig       { return c.WatchCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ProjectConfig describes how project files are found and addressed.
type ProjectConfig struct {
	// Name overrides the project name, which defaults to the directory name.
	Name        string   `mapstructure:"project_name" yaml:"project_name"`
	RootName    string   `mapstructure:"root_name" yaml:"root_name"`
	PathDivider string   `mapstructure:"path_divider" yaml:"path_divider"`
	ImportTag   string   `mapstructure:"import_tag" yaml:"import_tag"`
	PagesGlob   string   `mapstructure:"pages_glob" yaml:"pages_glob"`
	Manifest    []string `mapstructure:"manifest" yaml:"manifest"`
}

// RulesConfig selects and tunes the rule set.
type RulesConfig struct {
	Disabled        []string `mapstructure:"disabled" yaml:"disabled"`
	Concurrency     int      `mapstructure:"concurrency" yaml:"concurrency"`
	SystemMacros    []string `mapstructure:"system_macros" yaml:"system_macros"`
	SystemDataViews []string `mapstructure:"system_dataviews" yaml:"system_dataviews"`
}

// SchemaConfig configures $schema validation and the schema fetcher.
type SchemaConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	CacheDir          string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	Offline           bool          `mapstructure:"offline" yaml:"offline"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryCount        int           `mapstructure:"retry_count" yaml:"retry_count"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	LRUSize           int           `mapstructure:"lru_size" yaml:"lru_size"`
}

// ServicesConfig points at the ERP service directory.
type ServicesConfig struct {
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
}

// ReportConfig controls output, exit status and persisted state.
type ReportConfig struct {
	Output           string `mapstructure:"output" yaml:"output"`
	Format           string `mapstructure:"format" yaml:"format"`
	FailOn           string `mapstructure:"fail_on" yaml:"fail_on"`
	GlobalIgnoreFile string `mapstructure:"global_ignore_file" yaml:"global_ignore_file"`
	StateDir         string `mapstructure:"state_dir" yaml:"state_dir"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Report formats and fail thresholds accepted by Validate.
var (
	ReportFormats = []string{"text", "json", "sarif"}
	FailLevels    = []string{"error", "warning", "note", "never"}
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "layerlint")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Project --
	v.SetDefault("project.project_name", "")
	v.SetDefault("project.root_name", "root")
	v.SetDefault("project.path_divider", ".")
	v.SetDefault("project.import_tag", "$ref")
	v.SetDefault("project.pages_glob", "pages/**/*.jsonc")
	v.SetDefault("project.manifest", []string{
		"events.jsonc",
		"dataviews.jsonc",
		"rules.jsonc",
		"search.jsonc",
		"combo.jsonc",
		"tools.jsonc",
		"strings.jsonc",
		"patch.jsonc",
		"layout.jsonc",
	})

	// -- Rules --
	v.SetDefault("rules.disabled", []string{})
	v.SetDefault("rules.concurrency", 0)
	v.SetDefault("rules.system_macros", []string{})
	v.SetDefault("rules.system_dataviews", []string{})

	// -- Schema --
	v.SetDefault("schema.enabled", true)
	v.SetDefault("schema.cache_dir", defaultCacheDir())
	v.SetDefault("schema.offline", false)
	v.SetDefault("schema.timeout", "15s")
	v.SetDefault("schema.retry_count", 2)
	v.SetDefault("schema.requests_per_second", 5.0)
	v.SetDefault("schema.lru_size", 64)

	// -- Services --
	v.SetDefault("services.manifest", "")

	// -- Report --
	v.SetDefault("report.output", "")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.fail_on", "error")
	v.SetDefault("report.global_ignore_file", "")
	v.SetDefault("report.state_dir", ".layerlint")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Watch --
	v.SetDefault("watch.debounce", "300ms")
}

// defaultCacheDir places fetched schemas in the user cache directory, or
// leaves caching off when there is none.
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return dir + string(os.PathSeparator) + "layerlint" + string(os.PathSeparator) + "schemas"
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The archive DSN usually carries a password, so it has a dedicated variable.
	_ = v.BindEnv("database.url", "LAYERLINT_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.ProjectCfg.RootName == "" {
		return fmt.Errorf("project.root_name must not be empty")
	}
	if c.ProjectCfg.PathDivider == "" {
		return fmt.Errorf("project.path_divider must not be empty")
	}
	if strings.ContainsAny(c.ProjectCfg.PathDivider, "[]") {
		return fmt.Errorf("project.path_divider must not contain brackets")
	}
	if c.ProjectCfg.ImportTag == "" {
		return fmt.Errorf("project.import_tag must not be empty")
	}
	if c.RulesCfg.Concurrency < 0 {
		return fmt.Errorf("rules.concurrency must not be negative")
	}
	if err := c.SchemaCfg.Validate(); err != nil {
		return fmt.Errorf("schema configuration invalid: %w", err)
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	if c.WatchCfg.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// Validate checks the schema fetcher settings.
func (s *SchemaConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative")
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if s.LRUSize <= 0 {
		return fmt.Errorf("lru_size must be a positive integer")
	}
	return nil
}

// Validate checks the report format and fail threshold.
func (r *ReportConfig) Validate() error {
	if !oneOf(r.Format, ReportFormats) {
		return fmt.Errorf("format must be one of %s, got %q", strings.Join(ReportFormats, ", "), r.Format)
	}
	if !oneOf(r.FailOn, FailLevels) {
		return fmt.Errorf("fail_on must be one of %s, got %q", strings.Join(FailLevels, ", "), r.FailOn)
	}
	if r.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
