// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	MaxMind MaxMindConfig `yaml:"maxmind" mapstructure:"maxmind"`
	Build   BuildConfig   `yaml:"build" mapstructure:"build"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// MaxMindConfig holds the source feed credentials and edition.
type MaxMindConfig struct {
	LicenseKey string `yaml:"license_key" mapstructure:"license_key"`
	Edition    string `yaml:"edition" mapstructure:"edition"`
}

// BuildConfig configures the table build.
type BuildConfig struct {
	Output   string   `yaml:"output" mapstructure:"output"`
	TempDir  string   `yaml:"temp_dir" mapstructure:"temp_dir"`
	KeepTemp bool     `yaml:"keep_temp" mapstructure:"keep_temp"`
	Workers  int      `yaml:"workers" mapstructure:"workers"`
	Locales  []string `yaml:"locales" mapstructure:"locales"`
	AuditDB  string   `yaml:"audit_db" mapstructure:"audit_db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a meaningful default still need one registered
	// so AutomaticEnv can surface them through Unmarshal.
	v.SetDefault("maxmind.license_key", "")
	v.SetDefault("maxmind.edition", "GeoLite2-Country-CSV")
	v.SetDefault("build.output", "database.json")
	v.SetDefault("build.temp_dir", "")
	v.SetDefault("build.keep_temp", false)
	v.SetDefault("build.audit_db", "")
	v.SetDefault("build.workers", 4)
	v.SetDefault("build.locales", []string{"en"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
