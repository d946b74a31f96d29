package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5000", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "user", cfg.Username)
	assert.Equal(t, 5*time.Second, cfg.SyncPeriod)
	assert.Equal(t, time.Second, cfg.SyncTimeout)
	assert.Zero(t, cfg.DriftRate)
	assert.Equal(t, time.Second, cfg.ClockRefresh)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SYNCHAT_ADDR", "0.0.0.0:6000")
	t.Setenv("SYNCHAT_LOG_FORMAT", "json")
	t.Setenv("SYNCHAT_SYNC_PERIOD", "2s")
	t.Setenv("SYNCHAT_SYNC_TIMEOUT", "250ms")
	t.Setenv("SYNCHAT_DRIFT_RATE", "0.002")
	t.Setenv("SYNCHAT_USERNAME", "carol")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:6000", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2*time.Second, cfg.SyncPeriod)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncTimeout)
	assert.Equal(t, 0.002, cfg.DriftRate)
	assert.Equal(t, "carol", cfg.Username)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("SYNCHAT_SYNC_PERIOD", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Addr:            "127.0.0.1:5000",
			LogFormat:       "text",
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			SyncPeriod:      5 * time.Second,
			SyncTimeout:     time.Second,
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"empty addr":             func(c *Config) { c.Addr = "" },
		"zero write timeout":     func(c *Config) { c.WriteTimeout = 0 },
		"zero shutdown timeout":  func(c *Config) { c.ShutdownTimeout = 0 },
		"zero sync period":       func(c *Config) { c.SyncPeriod = 0 },
		"negative sync timeout":  func(c *Config) { c.SyncTimeout = -time.Second },
		"timeout exceeds period": func(c *Config) { c.SyncTimeout = c.SyncPeriod },
		"clock runs backwards":   func(c *Config) { c.DriftRate = -1 },
		"negative clock refresh": func(c *Config) { c.ClockRefresh = -time.Second },
		"unsupported log format": func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
