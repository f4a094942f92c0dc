// Package config loads startup configuration from config.yaml and
// HYPOFORGE_* environment variables. Malformed configuration prevents boot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
)

// Config aggregates every startup setting of the service.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Demos    []Demo         `mapstructure:"demos"`
}

// AppConfig identifies the service.
type AppConfig struct {
	Title   string `mapstructure:"title"`
	Version string `mapstructure:"version"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr renders the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionsConfig controls the age-based sweep default.
type SessionsConfig struct {
	MaxAgeHours float64 `mapstructure:"max_age_hours"`
}

// MaxAge returns the default sweep age as a duration.
func (c SessionsConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours * float64(time.Hour))
}

// SandboxConfig bounds analysis-code execution.
type SandboxConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the execution deadline for one sandbox run.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMConfig holds completion-service credentials.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Enabled reports whether the completion gateway can be initialized.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// Demo is a named sample dataset URL offered to clients.
type Demo struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Load reads config.yaml (optional) and environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("HYPOFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.title", "Hypothesis Forge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("sessions.max_age_hours", 24.0)
	v.SetDefault("sandbox.timeout_seconds", 30)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	// Registered so AutomaticEnv can supply it; never set in config files.
	v.SetDefault("llm.api_key", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperr.Wrap(apperr.KindConfig, err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, err, "failed to parse configuration")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperr.New(apperr.KindConfig, "invalid server port %d", c.Server.Port)
	}
	if c.Sessions.MaxAgeHours < 0 {
		return apperr.New(apperr.KindConfig, "sessions.max_age_hours must not be negative")
	}
	if c.Sandbox.TimeoutSeconds <= 0 {
		return apperr.New(apperr.KindConfig, "sandbox.timeout_seconds must be positive")
	}
	for _, demo := range c.Demos {
		if demo.Name == "" || demo.URL == "" {
			return apperr.New(apperr.KindConfig, "demo entries require both name and url")
		}
	}
	return nil
}
