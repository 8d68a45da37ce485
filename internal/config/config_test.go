package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 30*time.Minute, cfg.DefaultValidity())
	assert.Equal(t, GeneratorRandom, cfg.CodeGenerator)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, "url_counter", cfg.RedisCounterKey)
	assert.Equal(t, "@every 10m", cfg.SweepSchedule)
	assert.Equal(t, 24*time.Hour, cfg.SweepRetention)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.LogSinkURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "SERVER_ADDRESS=:9090\nDEFAULT_VALIDITY_MINUTES=5\nLOG_FORMAT=json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	t.Setenv("DEFAULT_VALIDITY_MINUTES", "45")
	t.Setenv("SWEEP_RETENTION", "90m")

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, 45, cfg.DefaultValidityMinutes, "env overrides the file")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 90*time.Minute, cfg.SweepRetention)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(viper.New(), t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero validity", mutate: func(c *Config) { c.DefaultValidityMinutes = 0 }, wantErr: "DEFAULT_VALIDITY_MINUTES"},
		{name: "short code length", mutate: func(c *Config) { c.CodeLength = 3 }, wantErr: "CODE_LENGTH"},
		{name: "counter without redis", mutate: func(c *Config) { c.CodeGenerator = GeneratorCounter }, wantErr: "REDIS_URL"},
		{name: "counter with redis", mutate: func(c *Config) {
			c.CodeGenerator = GeneratorCounter
			c.RedisURL = "redis://localhost:6379/0"
		}},
		{name: "snowflake node", mutate: func(c *Config) {
			c.CodeGenerator = GeneratorSnowflake
			c.SnowflakeNodeID = 4096
		}, wantErr: "SNOWFLAKE_NODE_ID"},
		{name: "unknown generator", mutate: func(c *Config) { c.CodeGenerator = "uuid" }, wantErr: "CODE_GENERATOR"},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "zero retention", mutate: func(c *Config) { c.SweepRetention = 0 }, wantErr: "SWEEP_RETENTION"},
		{name: "retention below minimum", mutate: func(c *Config) { c.SweepRetention = 30 * time.Second }, wantErr: "SWEEP_RETENTION"},
		{name: "zero retention without sweeper", mutate: func(c *Config) {
			c.SweepSchedule = ""
			c.SweepRetention = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("CODE_GENERATOR", "nope")

	_, err := Load(viper.New(), t.TempDir())
	assert.ErrorContains(t, err, "CODE_GENERATOR")
}

func TestLoad_ZeroRetentionWithSweeper(t *testing.T) {
	t.Setenv("SWEEP_RETENTION", "0s")

	_, err := Load(viper.New(), t.TempDir())
	assert.ErrorContains(t, err, "SWEEP_RETENTION")
}
