package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/warp/residency-engine/residency"
)

// EnvPrefix namespaces environment overrides: RESIDENCY_AI_API_KEY -> ai.api_key.
const EnvPrefix = "RESIDENCY"

// Config represents application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
	AI        AIConfig        `mapstructure:"ai"`
	Residency ResidencyConfig `mapstructure:"residency"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig represents trip persistence configuration
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"` // ":memory:" for a throwaway database
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty: stderr only
}

// AIConfig represents the Gemini collaborators' configuration
type AIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Endpoint        string        `mapstructure:"endpoint"`
	ExtractionModel string        `mapstructure:"extraction_model"`
	ChatModel       string        `mapstructure:"chat_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
}

// Enabled reports whether an API key was supplied.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// RequestBudget bounds one AI-backed request: every attempt the retry policy
// allows, each capped at Timeout.
func (c AIConfig) RequestBudget() time.Duration {
	return time.Duration(c.MaxRetries+1) * c.Timeout
}

// ResidencyConfig represents accounting rules configuration
type ResidencyConfig struct {
	Country string `mapstructure:"country"`
	Overlap string `mapstructure:"overlap"` // "merge" or "sum"
}

// OverlapPolicy returns the parsed overlap policy. Validate has already
// rejected unknown values.
func (c ResidencyConfig) OverlapPolicy() residency.OverlapPolicy {
	p, _ := residency.ParseOverlapPolicy(c.Overlap)
	return p
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("store.db_path", "./data/residency.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.extraction_model", "gemini-2.5-flash")
	v.SetDefault("ai.chat_model", "gemini-2.5-flash-lite")
	v.SetDefault("ai.timeout", 45*time.Second)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.max_concurrency", 4)
	v.SetDefault("residency.country", "Georgia")
	v.SetDefault("residency.overlap", string(residency.OverlapMerge))
}

// Load loads configuration from file and environment.
// With an empty configPath a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.residency")
		v.AddConfigPath("/etc/residency")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative")
	}
	if c.AI.MaxConcurrency <= 0 {
		return fmt.Errorf("ai.max_concurrency must be positive")
	}

	if c.Residency.Country == "" {
		return fmt.Errorf("residency.country is required")
	}
	if _, ok := residency.ParseOverlapPolicy(c.Residency.Overlap); !ok {
		return fmt.Errorf("residency.overlap must be %q or %q", residency.OverlapMerge, residency.OverlapSum)
	}

	return nil
}
