// Package config loads settings shared by the server and client commands.
//
// Values come from the environment (optionally seeded from a .env file)
// and may be overridden by command line flags afterwards.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go-simpler.org/env"
)

// Config - holds all settings.
type Config struct {
	Addr      string `env:"SYNCHAT_ADDR" default:"127.0.0.1:5000"`
	LogLevel  string `env:"SYNCHAT_LOG_LEVEL" default:"info"`
	LogFormat string `env:"SYNCHAT_LOG_FORMAT" default:"text"`
	// MetricsAddr - enables prometheus endpoint when non-empty.
	MetricsAddr string `env:"SYNCHAT_METRICS_ADDR"`

	WriteTimeout    time.Duration `env:"SYNCHAT_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `env:"SYNCHAT_SHUTDOWN_TIMEOUT" default:"5s"`

	Username     string        `env:"SYNCHAT_USERNAME" default:"user"`
	SyncPeriod   time.Duration `env:"SYNCHAT_SYNC_PERIOD" default:"5s"`
	SyncTimeout  time.Duration `env:"SYNCHAT_SYNC_TIMEOUT" default:"1s"`
	DriftRate    float64       `env:"SYNCHAT_DRIFT_RATE" default:"0"`
	ClockRefresh time.Duration `env:"SYNCHAT_CLOCK_REFRESH" default:"1s"`
}

// Load - reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, errors.Wrap(err, "load environment variables failed")
	}
	return &cfg, nil
}

// Validate - checks settings, it must be called after flags are applied.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Addr == "":
		return errors.New("address is required")
	case cfg.WriteTimeout <= 0:
		return errors.Errorf("write timeout must be positive, got %v", cfg.WriteTimeout)
	case cfg.ShutdownTimeout <= 0:
		return errors.Errorf("shutdown timeout must be positive, got %v", cfg.ShutdownTimeout)
	case cfg.SyncPeriod <= 0:
		return errors.Errorf("sync period must be positive, got %v", cfg.SyncPeriod)
	case cfg.SyncTimeout <= 0:
		return errors.Errorf("sync timeout must be positive, got %v", cfg.SyncTimeout)
	case cfg.SyncTimeout >= cfg.SyncPeriod:
		return errors.Errorf("sync timeout (%v) must be less than sync period (%v)", cfg.SyncTimeout, cfg.SyncPeriod)
	case cfg.DriftRate <= -1:
		return errors.Errorf("drift rate must be greater than -1, got %v", cfg.DriftRate)
	case cfg.ClockRefresh < 0:
		return errors.Errorf("clock refresh must not be negative, got %v", cfg.ClockRefresh)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return nil
}
