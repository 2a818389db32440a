package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides: PHISHGUARD_HTTP_ADDR overrides http.addr
const EnvPrefix = "PHISHGUARD"

// ProviderGemini is the only delegate provider wired so far
const ProviderGemini = "gemini"

// Config is the runtime configuration of the CLI and HTTP server
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Delegate DelegateConfig `mapstructure:"delegate"`
}

// HTTPConfig configures the analysis API listener
type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig points at the rule catalog store. An empty URL means the
// built-in catalog is used.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// DelegateConfig selects the external classifier and whether the heuristic backs it up
type DelegateConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Fallback bool          `mapstructure:"fallback"`
}

// Load reads configuration from path (YAML, JSON or TOML by extension), then
// applies PHISHGUARD_* environment overrides. With an empty path a
// "phishguard" config file in the working directory is used if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("phishguard")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Delegate.APIKey == "" {
		cfg.Delegate.APIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_upload_bytes", 10<<20)
	v.SetDefault("http.request_timeout", "60s")

	v.SetDefault("database.url", "")

	v.SetDefault("delegate.enabled", false)
	v.SetDefault("delegate.provider", ProviderGemini)
	v.SetDefault("delegate.api_key", "")
	v.SetDefault("delegate.model", "gemini-2.5-flash")
	v.SetDefault("delegate.base_url", "")
	v.SetDefault("delegate.timeout", "20s")
	v.SetDefault("delegate.fallback", true)
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("http.max_upload_bytes must be positive, got %d", c.HTTP.MaxUploadBytes)
	}
	if !c.Delegate.Enabled {
		return nil
	}
	if c.Delegate.Provider != ProviderGemini {
		return fmt.Errorf("unknown delegate provider %q", c.Delegate.Provider)
	}
	if c.Delegate.APIKey == "" {
		return errors.New("delegate is enabled but no API key is configured (set delegate.api_key or GOOGLE_API_KEY)")
	}
	if c.Delegate.Timeout <= 0 {
		return fmt.Errorf("delegate.timeout must be positive, got %s", c.Delegate.Timeout)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
