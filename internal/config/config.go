package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/Siddarth2230/shortlink/pkg/idgen"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	BaseURL         string        `mapstructure:"BASE_URL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORSOrigin      string        `mapstructure:"CORS_ALLOWED_ORIGIN"`

	DefaultValidityMinutes int    `mapstructure:"DEFAULT_VALIDITY_MINUTES"`
	CodeGenerator          string `mapstructure:"CODE_GENERATOR"`
	CodeLength             int    `mapstructure:"CODE_LENGTH"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisCounterKey        string `mapstructure:"REDIS_COUNTER_KEY"`
	SnowflakeNodeID        uint64 `mapstructure:"SNOWFLAKE_NODE_ID"`

	SweepSchedule  string        `mapstructure:"SWEEP_SCHEDULE"`
	SweepRetention time.Duration `mapstructure:"SWEEP_RETENTION"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`

	LogLevel     string `mapstructure:"LOG_LEVEL"`
	LogFormat    string `mapstructure:"LOG_FORMAT"`
	LogSinkURL   string `mapstructure:"LOG_SINK_URL"`
	LogSinkToken string `mapstructure:"LOG_SINK_TOKEN"`
	LogSinkLevel string `mapstructure:"LOG_SINK_LEVEL"`
}

// MinSweepRetention keeps freshly expired links readable as expired.
const MinSweepRetention = time.Minute

const (
	GeneratorRandom    = "random"
	GeneratorCounter   = "counter"
	GeneratorSnowflake = "snowflake"
)

var defaults = map[string]any{
	"SERVER_ADDRESS":           ":8080",
	"BASE_URL":                 "",
	"SHUTDOWN_TIMEOUT":         "15s",
	"CORS_ALLOWED_ORIGIN":      "*",
	"DEFAULT_VALIDITY_MINUTES": 30,
	"CODE_GENERATOR":           GeneratorRandom,
	"CODE_LENGTH":              idgen.DefaultRandomLength,
	"REDIS_URL":                "",
	"REDIS_COUNTER_KEY":        idgen.DefaultCounterKey,
	"SNOWFLAKE_NODE_ID":        1,
	"SWEEP_SCHEDULE":           "@every 10m",
	"SWEEP_RETENTION":          "24h",
	"DATABASE_URL":             "",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "text",
	"LOG_SINK_URL":             "",
	"LOG_SINK_TOKEN":           "",
	"LOG_SINK_LEVEL":           "info",
}

// LoadConfig reads configuration from app.env in path, if present, and from
// environment variables, which take precedence.
func LoadConfig(path string) (config Config, err error) {
	return Load(viper.GetViper(), path)
}

// Load is LoadConfig against a caller-owned viper instance.
func Load(v *viper.Viper, path string) (config Config, err error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("SERVER_ADDRESS must not be empty"))
	}
	if c.DefaultValidityMinutes < 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_VALIDITY_MINUTES must be positive, got %d", c.DefaultValidityMinutes))
	}
	switch c.CodeGenerator {
	case GeneratorRandom:
		if c.CodeLength < idgen.MinRandomLength || c.CodeLength > idgen.MaxRandomLength {
			errs = append(errs, fmt.Errorf("CODE_LENGTH must be between %d and %d, got %d",
				idgen.MinRandomLength, idgen.MaxRandomLength, c.CodeLength))
		}
	case GeneratorCounter:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the counter generator"))
		}
	case GeneratorSnowflake:
		if c.SnowflakeNodeID > idgen.MaxNodeID {
			errs = append(errs, fmt.Errorf("SNOWFLAKE_NODE_ID must be at most %d", idgen.MaxNodeID))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CODE_GENERATOR %q", c.CodeGenerator))
	}
	if c.SweepSchedule != "" && c.SweepRetention < MinSweepRetention {
		errs = append(errs, fmt.Errorf("SWEEP_RETENTION must be at least %s when sweeping is enabled, got %s",
			MinSweepRetention, c.SweepRetention))
	}
	if !lo.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c Config) DefaultValidity() time.Duration {
	return time.Duration(c.DefaultValidityMinutes) * time.Minute
}
