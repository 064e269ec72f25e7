// Package config loads phasebook settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rogers-f/phasebook/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. PHASEBOOK_DB_PATH.
const EnvPrefix = "PHASEBOOK"

// ProviderConfig selects the generation backend.
type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GenerationConfig limits generation calls.
type GenerationConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config holds phasebook's runtime configuration.
type Config struct {
	DBPath     string           `mapstructure:"db_path"`
	StateKey   string           `mapstructure:"state_key"`
	ExportDir  string           `mapstructure:"export_dir"`
	ListenAddr string           `mapstructure:"listen_addr"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
	Ephemeral  bool             `mapstructure:"ephemeral"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Generation GenerationConfig `mapstructure:"generation"`
	Tracing    TracingConfig    `mapstructure:"tracing"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "phasebook.db")
	v.SetDefault("state_key", "softwareWorkflowProgress")
	v.SetDefault("export_dir", ".")
	v.SetDefault("listen_addr", ":9800")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("ephemeral", false)
	v.SetDefault("provider.name", string(domain.ProviderGoogleAI))
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "gemini-2.5-flash")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("generation.rate_limit_per_minute", 10)
	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration. An explicit path must exist; otherwise
// PHASEBOOK_CONFIG, then phasebook.{yaml,json} in the working directory or
// $HOME/.phasebook are tried, and a missing file just means defaults.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("provider.api_key", EnvPrefix+"_PROVIDER_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("phasebook")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".phasebook"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StateKey == "" {
		c.StateKey = "softwareWorkflowProgress"
	}
	if c.ExportDir == "" {
		c.ExportDir = "."
	}
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	c.LogFormat = strings.ToLower(c.LogFormat)
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" && !c.Ephemeral {
		problems = append(problems, "db_path is required unless ephemeral")
	}
	if c.ListenAddr == "" {
		problems = append(problems, "listen_addr is required")
	}
	switch domain.Provider(c.Provider.Name) {
	case domain.ProviderOpenAI, domain.ProviderGoogleAI:
	default:
		problems = append(problems, fmt.Sprintf("provider.name %q is not one of openai, googleai", c.Provider.Name))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log_format %q is not one of text, json", c.LogFormat))
	}
	if c.Generation.RateLimitPerMinute < 0 {
		problems = append(problems, "generation.rate_limit_per_minute must not be negative")
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}
