// Package config loads the front-end configuration from flags, environment
// variables, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingBaseURL is returned when no API base URL is configured.
var ErrMissingBaseURL = errors.New("api.base_url is required (set TEMPMAIL_API_BASE_URL or API_BASE_URL)")

// APIConfig configures the remote mail API client.
type APIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	RateLimit  float64 // requests per second, 0 means unlimited
}

// DomainsConfig configures the domain list cache.
type DomainsConfig struct {
	CacheTTL time.Duration
}

// PollingConfig configures the mailbox polling loop.
type PollingConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// NameConfig configures random local-parts.
type NameConfig struct {
	Length int
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// WebConfig configures the web front-end.
type WebConfig struct {
	Addr           string
	AllowedOrigins []string
	SessionIdle    time.Duration
	Metrics        bool
}

// Config is the root configuration.
type Config struct {
	API     APIConfig
	Domains DomainsConfig
	Polling PollingConfig
	Name    NameConfig
	Log     LogConfig
	Web     WebConfig
}

// Flag names registered by RegisterFlags.
const (
	FlagConfig   = "config"
	FlagBaseURL  = "api-url"
	FlagTimeout  = "timeout"
	FlagLogLevel = "log-level"
	FlagAddr     = "addr"
)

var flagKeys = map[string]string{
	FlagBaseURL:  "api.base_url",
	FlagTimeout:  "api.timeout",
	FlagLogLevel: "log.level",
	FlagAddr:     "web.addr",
}

// RegisterFlags adds the configuration flags to fs. Flags that are set take
// precedence over every other source.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to a config file (yaml, toml or json)")
	fs.String(FlagBaseURL, "", "base URL of the temp-mail API")
	fs.Duration(FlagTimeout, 10*time.Second, "timeout for each API request")
	fs.String(FlagLogLevel, "info", "log level: debug, info, warn, error")
	fs.String(FlagAddr, ":8501", "listen address of the web front-end")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.retries", 0)
	v.SetDefault("api.retry_delay", "1s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("domains.cache_ttl", "1h")
	v.SetDefault("polling.max_attempts", 6)
	v.SetDefault("polling.interval", "5s")
	v.SetDefault("name.length", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("web.addr", ":8501")
	v.SetDefault("web.allowed_origins", "*")
	v.SetDefault("web.session_idle", "1h")
	v.SetDefault("web.metrics", true)
}

// Load builds the configuration.
//
// Sources, highest priority first:
//  1. flags in fs that were set explicitly (fs may be nil)
//  2. environment variables with the TEMPMAIL_ prefix, e.g.
//     TEMPMAIL_API_BASE_URL; API_BASE_URL is accepted for the base URL
//  3. the config file named by --config
//  4. a .env file in the working directory or its parent
//  5. defaults
func Load(fs *pflag.FlagSet) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("tempmail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.base_url", "TEMPMAIL_API_BASE_URL", "API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	baseURL := strings.TrimSpace(v.GetString("api.base_url"))
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	timeout, err := duration(v, "api.timeout")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("api.timeout must be positive, got %s", timeout)
	}
	retryDelay, err := duration(v, "api.retry_delay")
	if err != nil {
		return nil, err
	}
	if retryDelay <= 0 {
		return nil, fmt.Errorf("api.retry_delay must be positive, got %s", retryDelay)
	}
	cacheTTL, err := duration(v, "domains.cache_ttl")
	if err != nil {
		return nil, err
	}
	interval, err := duration(v, "polling.interval")
	if err != nil {
		return nil, err
	}
	if interval < 0 {
		return nil, fmt.Errorf("polling.interval must not be negative, got %s", interval)
	}
	sessionIdle, err := duration(v, "web.session_idle")
	if err != nil {
		return nil, err
	}

	retries := v.GetInt("api.retries")
	if retries < 0 {
		retries = 0
	}
	maxAttempts := v.GetInt("polling.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 6
	}

	origins := parseList(v.GetString("web.allowed_origins"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		API: APIConfig{
			BaseURL:    baseURL,
			Timeout:    timeout,
			Retries:    retries,
			RetryDelay: retryDelay,
			RateLimit:  v.GetFloat64("api.rate_limit"),
		},
		Domains: DomainsConfig{
			CacheTTL: cacheTTL,
		},
		Polling: PollingConfig{
			MaxAttempts: maxAttempts,
			Interval:    interval,
		},
		Name: NameConfig{
			Length: v.GetInt("name.length"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
		Web: WebConfig{
			Addr:           v.GetString("web.addr"),
			AllowedOrigins: origins,
			SessionIdle:    sessionIdle,
			Metrics:        v.GetBool("web.metrics"),
		},
	}, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.Get(key)
	if d, ok := raw.(time.Duration); ok {
		return d, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(fmt.Sprint(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseList splits a comma separated value, dropping blanks.
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile loads .env from the working directory, or from its parent.
// Existing environment variables win; a missing file is not an error.
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
