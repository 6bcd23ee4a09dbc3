// Package config provides layered configuration loading for the CLI.
// Precedence: flags > env > .env file > global config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	tradestation "github.com/quantpulse/tradestation-go"
)

// Config holds the resolved configuration.
type Config struct {
	// OAuth application credentials
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	Scope        string `yaml:"scope"`

	// API settings
	BaseURL   string `yaml:"base_url"`
	SigninURL string `yaml:"signin_url"`

	// Named token profile under the token store
	Profile string `yaml:"profile"`

	// RefreshMargin is how long before expiry a token is refreshed,
	// as a Go duration string in files and env.
	RefreshMargin time.Duration `yaml:"refresh_margin"`

	// Trace enables request/stream tracing to stderr.
	Trace bool `yaml:"trace"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `yaml:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceDotenv  Source = "dotenv"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	ClientID string
	Profile  string
	BaseURL  string
	Trace    bool
	TraceSet bool
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RedirectURI:   tradestation.DefaultRedirectURI,
		Scope:         "openid offline_access MarketData ReadAccount Trade",
		BaseURL:       tradestation.DefaultBaseURL,
		SigninURL:     tradestation.DefaultSigninURL,
		Profile:       "default",
		RefreshMargin: tradestation.MinRefreshMargin,
		Sources:       make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(cfg, globalConfigPath()); err != nil {
		return nil, err
	}

	// A .env in the working directory seeds the process environment
	// without overriding variables already set.
	if vars, err := godotenv.Read(".env"); err == nil {
		for k, v := range vars {
			if _, set := os.LookupEnv(k); !set {
				os.Setenv(k, v)
				cfg.Sources[k] = string(SourceDotenv)
			}
		}
	}

	loadFromEnv(cfg)
	applyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // File doesn't exist, skip
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("malformed config at %s: %w", path, err)
	}

	set := func(dst *string, v, name string) {
		if v != "" {
			*dst = v
			cfg.Sources[name] = string(SourceGlobal)
		}
	}
	set(&cfg.ClientID, fileCfg.ClientID, "client_id")
	set(&cfg.ClientSecret, fileCfg.ClientSecret, "client_secret")
	set(&cfg.RedirectURI, fileCfg.RedirectURI, "redirect_uri")
	set(&cfg.Scope, fileCfg.Scope, "scope")
	set(&cfg.BaseURL, fileCfg.BaseURL, "base_url")
	set(&cfg.SigninURL, fileCfg.SigninURL, "signin_url")
	set(&cfg.Profile, fileCfg.Profile, "profile")
	if fileCfg.RefreshMargin > 0 {
		cfg.RefreshMargin = fileCfg.RefreshMargin
		cfg.Sources["refresh_margin"] = string(SourceGlobal)
	}
	if fileCfg.Trace {
		cfg.Trace = true
		cfg.Sources["trace"] = string(SourceGlobal)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	set := func(dst *string, key, name string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
			cfg.Sources[name] = string(SourceEnv)
		}
	}
	set(&cfg.ClientID, "TS_CLIENT_ID", "client_id")
	set(&cfg.ClientSecret, "TS_CLIENT_SECRET", "client_secret")
	set(&cfg.RedirectURI, "TS_REDIRECT_URI", "redirect_uri")
	set(&cfg.Scope, "TS_SCOPE", "scope")
	set(&cfg.BaseURL, "TS_BASE_URL", "base_url")
	set(&cfg.SigninURL, "TS_SIGNIN_URL", "signin_url")
	set(&cfg.Profile, "TS_PROFILE", "profile")
	if v := os.Getenv("TS_REFRESH_MARGIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshMargin = d
			cfg.Sources["refresh_margin"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("TS_TRACE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trace = b
			cfg.Sources["trace"] = string(SourceEnv)
		}
	}
}

func applyOverrides(cfg *Config, o FlagOverrides) {
	if o.ClientID != "" {
		cfg.ClientID = o.ClientID
		cfg.Sources["client_id"] = string(SourceFlag)
	}
	if o.Profile != "" {
		cfg.Profile = o.Profile
		cfg.Sources["profile"] = string(SourceFlag)
	}
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.TraceSet {
		cfg.Trace = o.Trace
		cfg.Sources["trace"] = string(SourceFlag)
	}
}

// Scopes parses the configured scope string.
func (cfg *Config) Scopes() ([]tradestation.Scope, error) {
	return tradestation.ParseScopes(cfg.Scope)
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.yaml")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "tscli")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
