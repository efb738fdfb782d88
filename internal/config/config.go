package config

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Input         InputConfig                   `mapstructure:"input"`
	Monitor       MonitorConfig                 `mapstructure:"monitor"`
	Sensitivities map[string]models.Sensitivity `mapstructure:"sensitivities"`
	Trend         TrendConfig                   `mapstructure:"trend"`
	Output        OutputConfig                  `mapstructure:"output"`
	Telegram      TelegramConfig                `mapstructure:"telegram"`
	Metrics       MetricsConfig                 `mapstructure:"metrics"`
	Schedule      ScheduleConfig                `mapstructure:"schedule"`
	Logging       LoggingConfig                 `mapstructure:"logging"`
}

// InputConfig describes where volume observations are loaded from
type InputConfig struct {
	Path       string `mapstructure:"path"`
	Format     string `mapstructure:"format"` // "csv" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// MonitorConfig holds analysis and alerting behaviour
type MonitorConfig struct {
	Sensitivity     string `mapstructure:"sensitivity"`
	TotalPeriods    int    `mapstructure:"total_periods"`
	PeriodDays      int    `mapstructure:"period_days"`
	RecentPeriods   int    `mapstructure:"recent_periods"`
	TrailingPeriods int    `mapstructure:"trailing_periods"`
	Workers         int    `mapstructure:"workers"`
	Classifier      string `mapstructure:"classifier"` // "gap" or "rate"
	PatternAware    bool   `mapstructure:"pattern_aware"`
}

// TrendConfig lists the lookback windows used by the trend analyzer
type TrendConfig struct {
	Windows []models.TrendWindow `mapstructure:"windows"`
}

// OutputConfig controls the written reports
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	YAML       bool   `mapstructure:"yaml"`
	RecordRuns bool   `mapstructure:"record_runs"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig holds Prometheus export configuration
type MetricsConfig struct {
	Textfile   string `mapstructure:"textfile"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ScheduleConfig holds the cron expression used by serve mode
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Analysis is the immutable per-run configuration handed to the pipeline.
type Analysis struct {
	Sensitivity     models.Sensitivity
	TotalPeriods    int
	PeriodDays      int
	RecentPeriods   int
	TrailingPeriods int
	Workers         int
	Classifier      string
	PatternAware    bool
	Windows         []models.TrendWindow
}

// Load reads configuration from file and environment variables.
// An empty path means defaults plus environment only.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so command-line flags
// bound to v take precedence over the file.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("VOLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, s := range cfg.Sensitivities {
		s.Name = name
		cfg.Sensitivities[name] = s
	}
	if len(cfg.Trend.Windows) == 0 {
		cfg.Trend.Windows = models.DefaultTrendWindows()
	}
	if cfg.Monitor.Workers <= 0 {
		cfg.Monitor.Workers = runtime.NumCPU()
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.path", "./data/volumes.csv")
	v.SetDefault("input.format", "csv")
	v.SetDefault("input.sqlite_path", "./data/volwatch.db")

	// Monitor defaults
	v.SetDefault("monitor.sensitivity", "medium")
	v.SetDefault("monitor.total_periods", 104)
	v.SetDefault("monitor.period_days", 7)
	v.SetDefault("monitor.recent_periods", 4)
	v.SetDefault("monitor.trailing_periods", 4)
	v.SetDefault("monitor.workers", 0)
	v.SetDefault("monitor.classifier", "gap")
	v.SetDefault("monitor.pattern_aware", false)

	// Sensitivity table
	for name, s := range models.DefaultSensitivities() {
		v.SetDefault("sensitivities."+name+".z_score", s.ZScore)
		v.SetDefault("sensitivities."+name+".percentile", s.Percentile)
		v.SetDefault("sensitivities."+name+".min_weeks", s.MinWeeks)
		v.SetDefault("sensitivities."+name+".description", s.Description)
	}

	// Output defaults
	v.SetDefault("output.dir", "./analysis_output")
	v.SetDefault("output.yaml", false)
	v.SetDefault("output.record_runs", false)
	v.SetDefault("output.sqlite_path", "./data/volwatch.db")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.listen_addr", ":9464")

	// Every Monday 08:00
	v.SetDefault("schedule.cron", "0 0 8 * * 1")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Input config
	switch c.Input.Format {
	case "csv":
		if c.Input.Path == "" {
			return errors.New("input.path is required for csv input")
		}
	case "sqlite":
		if c.Input.SQLitePath == "" {
			return errors.New("input.sqlite_path is required for sqlite input")
		}
	default:
		return errors.New("input.format must be one of: csv, sqlite")
	}

	// Validate Monitor config
	if _, ok := c.Sensitivities[c.Monitor.Sensitivity]; !ok {
		return fmt.Errorf("monitor.sensitivity must be one of: %s", strings.Join(c.SensitivityNames(), ", "))
	}
	if c.Monitor.TotalPeriods < 1 {
		return errors.New("monitor.total_periods must be at least 1")
	}
	if c.Monitor.PeriodDays < 1 {
		return errors.New("monitor.period_days must be at least 1")
	}
	if c.Monitor.RecentPeriods < 1 {
		return errors.New("monitor.recent_periods must be at least 1")
	}
	if c.Monitor.TrailingPeriods < 1 {
		return errors.New("monitor.trailing_periods must be at least 1")
	}
	if c.Monitor.Classifier != "gap" && c.Monitor.Classifier != "rate" {
		return errors.New("monitor.classifier must be one of: gap, rate")
	}

	for _, s := range c.Sensitivities {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	// Validate Trend config
	seen := make(map[string]bool, len(c.Trend.Windows))
	for _, w := range c.Trend.Windows {
		if w.Name == "" {
			return errors.New("trend.windows entries must have a name")
		}
		if w.Periods < 1 {
			return fmt.Errorf("trend window %s: periods must be at least 1", w.Name)
		}
		if seen[w.Name] {
			return fmt.Errorf("trend window %s is defined twice", w.Name)
		}
		seen[w.Name] = true
	}

	// Validate Output config
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	if c.Output.RecordRuns && c.Output.SQLitePath == "" {
		return errors.New("output.sqlite_path is required when output.record_runs is enabled")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return errors.New("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return errors.New("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return errors.New("logging.format must be one of: json, text")
	}

	return nil
}

// SensitivityNames returns the configured sensitivity names, sorted.
func (c *Config) SensitivityNames() []string {
	names := make([]string, 0, len(c.Sensitivities))
	for name := range c.Sensitivities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AnalysisFor builds the per-run analysis settings for the named sensitivity.
// An empty name selects monitor.sensitivity.
func (c *Config) AnalysisFor(name string) (Analysis, error) {
	if name == "" {
		name = c.Monitor.Sensitivity
	}
	s, ok := c.Sensitivities[name]
	if !ok {
		return Analysis{}, fmt.Errorf("unknown sensitivity %q (want one of: %s)", name, strings.Join(c.SensitivityNames(), ", "))
	}
	windows := make([]models.TrendWindow, len(c.Trend.Windows))
	copy(windows, c.Trend.Windows)
	return Analysis{
		Sensitivity:     s,
		TotalPeriods:    c.Monitor.TotalPeriods,
		PeriodDays:      c.Monitor.PeriodDays,
		RecentPeriods:   c.Monitor.RecentPeriods,
		TrailingPeriods: c.Monitor.TrailingPeriods,
		Workers:         c.Monitor.Workers,
		Classifier:      c.Monitor.Classifier,
		PatternAware:    c.Monitor.PatternAware,
		Windows:         windows,
	}, nil
}
