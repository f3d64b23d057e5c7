// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Engine() EngineConfig
	Fingerprint() FingerprintConfig
	Source() SourceConfig
	History() HistoryConfig
	Aggregation() AggregationConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	EngineCfg      EngineConfig      `mapstructure:"engine" yaml:"engine"`
	FingerprintCfg FingerprintConfig `mapstructure:"fingerprint" yaml:"fingerprint"`
	SourceCfg      SourceConfig      `mapstructure:"source" yaml:"source"`
	HistoryCfg     HistoryConfig     `mapstructure:"history" yaml:"history"`
	AggregationCfg AggregationConfig `mapstructure:"aggregation" yaml:"aggregation"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig       { return c.DatabaseCfg }
func (c *Config) Engine() EngineConfig           { return c.EngineCfg }
func (c *Config) Fingerprint() FingerprintConfig { return c.FingerprintCfg }
func (c *Config) Source() SourceConfig           { return c.SourceCfg }
func (c *Config) History() HistoryConfig         { return c.HistoryCfg }
func (c *Config) Aggregation() AggregationConfig { return c.AggregationCfg }

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

// DatabaseConfig holds the database connection details. An empty URL keeps
// the build history on disk instead.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EngineConfig bounds the parallelism of report ingestion.
type EngineConfig struct {
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	// BuildConcurrency bounds how many builds are processed at once.
	BuildConcurrency int `mapstructure:"build_concurrency" yaml:"build_concurrency"`
}

// FingerprintConfig tunes the source context used for issue identity.
type FingerprintConfig struct {
	ContextLines  int           `mapstructure:"context_lines" yaml:"context_lines"`
	StripComments bool          `mapstructure:"strip_comments" yaml:"strip_comments"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// SourceConfig selects where analysed source files are read from. A git
// repository takes precedence over a plain directory root.
type SourceConfig struct {
	Root          string `mapstructure:"root" yaml:"root"`
	GitRepository string `mapstructure:"git_repository" yaml:"git_repository"`
	GitRevision   string `mapstructure:"git_revision" yaml:"git_revision"`
}

// HistoryConfig locates the on-disk build history.
type HistoryConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// AggregationConfig holds the matching and failure policy.
type AggregationConfig struct {
	StrictMatching bool `mapstructure:"strict_matching" yaml:"strict_matching"`
	AcceptPartial  bool `mapstructure:"accept_partial" yaml:"accept_partial"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
// Every key gets a default so that environment overrides are picked up by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "issuetrail")
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

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 8)
	v.SetDefault("engine.build_concurrency", 2)

	// -- Fingerprint --
	v.SetDefault("fingerprint.context_lines", 3)
	v.SetDefault("fingerprint.strip_comments", true)
	v.SetDefault("fingerprint.read_timeout", "5s")

	// -- Source --
	v.SetDefault("source.root", ".")
	v.SetDefault("source.git_repository", "")
	v.SetDefault("source.git_revision", "HEAD")

	// -- History --
	v.SetDefault("history.dir", "~/.issuetrail/history")

	// -- Aggregation --
	v.SetDefault("aggregation.strict_matching", false)
	v.SetDefault("aggregation.accept_partial", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
// Paths starting with ~ are expanded to the user's home directory.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.LoggerCfg.LogFile,
		&c.SourceCfg.Root,
		&c.SourceCfg.GitRepository,
		&c.HistoryCfg.Dir,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.EngineCfg.BuildConcurrency <= 0 {
		return fmt.Errorf("engine.build_concurrency must be a positive integer")
	}
	if err := c.FingerprintCfg.Validate(); err != nil {
		return fmt.Errorf("fingerprint configuration invalid: %w", err)
	}
	if c.DatabaseCfg.URL == "" && c.HistoryCfg.Dir == "" {
		return fmt.Errorf("either database.url or history.dir is required")
	}
	return nil
}

// Validate checks the fingerprint settings.
func (f *FingerprintConfig) Validate() error {
	if f.ContextLines < 0 {
		return fmt.Errorf("context_lines must not be negative")
	}
	if f.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be a positive duration")
	}
	return nil
}
