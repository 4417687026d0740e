// Package config loads and validates sourcer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Portal   PortalConfig   `mapstructure:"portal"`
	Sourcing SourcingConfig `mapstructure:"sourcing"`
	DB       DBConfig       `mapstructure:"db"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PortalConfig points at the register portal and controls browser behavior.
type PortalConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	Headless      bool   `mapstructure:"headless"`
	UserAgent     string `mapstructure:"user_agent"`
}

// SourcingConfig governs the worker pool and the retry policy.
type SourcingConfig struct {
	WorkerCount       int   `mapstructure:"worker_count"`
	MaxRetries        int   `mapstructure:"max_retries"`
	ErrorSleepSeconds int   `mapstructure:"error_sleep_seconds"`
	MaxSequence       int64 `mapstructure:"max_sequence"`
	Resume            bool  `mapstructure:"resume"`
}

// DBConfig controls access to the record store.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int32  `mapstructure:"max_conns"`
	MinConns           int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
}

// MetricsConfig toggles the ops HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOURCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://przegladarka-ekw.ms.gov.pl/eukw_prz/KsiegiWieczyste/wyszukiwanieKW")
	v.SetDefault("portal.nav_timeout_seconds", 30)
	v.SetDefault("portal.headless", true)
	v.SetDefault("portal.user_agent", "")
	v.SetDefault("sourcing.worker_count", 4)
	v.SetDefault("sourcing.max_retries", 3)
	v.SetDefault("sourcing.error_sleep_seconds", 300)
	v.SetDefault("sourcing.max_sequence", 99999999)
	v.SetDefault("sourcing.resume", true)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if c.Portal.NavTimeoutSec <= 0 {
		return fmt.Errorf("portal.nav_timeout_seconds must be > 0")
	}
	if c.Sourcing.WorkerCount <= 0 {
		return fmt.Errorf("sourcing.worker_count must be > 0")
	}
	if c.Sourcing.MaxRetries <= 0 {
		return fmt.Errorf("sourcing.max_retries must be > 0")
	}
	if c.Sourcing.ErrorSleepSeconds < 0 {
		return fmt.Errorf("sourcing.error_sleep_seconds must be >= 0")
	}
	if c.Sourcing.MaxSequence <= 0 || c.Sourcing.MaxSequence > 99999999 {
		return fmt.Errorf("sourcing.max_sequence must be between 1 and 99999999")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}

// NavTimeout converts the per-attempt navigation budget into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Portal.NavTimeoutSec) * time.Second
}

// ErrorSleep converts the retry pause into a duration.
func (c Config) ErrorSleep() time.Duration {
	return time.Duration(c.Sourcing.ErrorSleepSeconds) * time.Second
}

// MaxConnLifetime converts the pool lifetime knob into a duration.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeMin) * time.Minute
}
