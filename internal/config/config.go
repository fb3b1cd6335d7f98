// Package config loads application configuration from config.yaml, .env and
// WATER_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig               `yaml:"log" mapstructure:"log"`
	Output  Output                  `yaml:"output" mapstructure:"output"`
	HTTP    HTTPConfig              `yaml:"http" mapstructure:"http"`
	Sources map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	ST2     ST2Config               `yaml:"st2" mapstructure:"st2"`
	Store   StoreConfig             `yaml:"store" mapstructure:"store"`
	Metrics MetricsConfig           `yaml:"metrics" mapstructure:"metrics"`
}

// HTTPConfig configures the shared provider fetcher.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	// A host whose requests fail BreakerThreshold times in a row is skipped
	// for BreakerResetSecs.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// SourceConfig overrides a provider's endpoint or disables it.
type SourceConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Disabled bool   `yaml:"disabled" mapstructure:"disabled"`
	// Resource names a provider dataset, such as a CKAN datastore resource id.
	Resource string `yaml:"resource" mapstructure:"resource"`
}

// ST2Config holds the SensorThings service used by the st2 output format.
type ST2Config struct {
	URL      string `yaml:"url" mapstructure:"url"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// StoreConfig configures the database output formats.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	TablePrefix string `yaml:"table_prefix" mapstructure:"table_prefix"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Source returns the override block for a provider, keyed by its lower-case
// name with "/" replaced by "_" (e.g. "st2_pvacd").
func (c *Config) Source(name string) SourceConfig {
	return c.Sources[SourceKey(name)]
}

// SourceKey converts a provider name to its config key.
func SourceKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "/", "_"))
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// .env is optional; values already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WATER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("output.horizontal_datum", "WGS84")
	v.SetDefault("output.elevation_unit", "ft")
	v.SetDefault("output.well_depth_unit", "ft")
	v.SetDefault("output.bbox", "")
	v.SetDefault("output.wkt", "")
	v.SetDefault("output.summary", false)
	v.SetDefault("output.latest_only", false)
	v.SetDefault("output.analyte", "TDS")
	v.SetDefault("http.user_agent", "water-unifier/1.0")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.breaker_threshold", 5)
	v.SetDefault("http.breaker_reset_secs", 30)
	v.SetDefault("st2.url", "https://st2.newmexicowaterdata.org/FROST-Server/v1.0")
	v.SetDefault("store.sqlite_path", "water.db")
	v.SetDefault("store.table_prefix", "unified")
	v.SetDefault("metrics.textfile_path", "")

	// Credentials commonly live in .env under their historical names.
	_ = v.BindEnv("st2.user", "WATER_ST2_USER", "ST2_USER")
	_ = v.BindEnv("st2.password", "WATER_ST2_PASSWORD", "ST2_PASSWORD")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
