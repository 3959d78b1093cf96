package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete paperctl configuration
type Config struct {
	API          APIConfig         `yaml:"api"`
	Supabase     SupabaseConfig    `yaml:"supabase"`
	HTTP         HTTPConfig        `yaml:"http"`
	Cache        CacheConfig       `yaml:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency"`
	Output       OutputConfig      `yaml:"output"`
}

// APIConfig addresses the paper-processing API
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SupabaseConfig holds the auth endpoint and user credentials
type SupabaseConfig struct {
	URL      string `yaml:"url"`
	AnonKey  string `yaml:"anon_key"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// HTTPConfig controls the shared HTTP client behavior
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`        // auth and extracts calls
	UploadTimeout time.Duration `yaml:"upload_timeout"` // larger, PDF bodies can be big
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"` // cap on response bodies read
	MaxRetries    int           `yaml:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy"`
}

// CacheConfig controls the layered cache (tokens, upload ledger, extracts)
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Dir         string        `yaml:"dir"`
	TokenSlack  time.Duration `yaml:"token_slack"`  // subtracted from expires_in
	ExtractsTTL time.Duration `yaml:"extracts_ttl"` // papers finish processing async, keep short
}

// RateLimitConfig controls pacing of API calls
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	UploadDelay       time.Duration `yaml:"upload_delay"` // extra wait between batch uploads
}

// ConcurrencyConfig controls batch worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls console and file output
type OutputConfig struct {
	Verbose      bool   `yaml:"verbose"`
	ExtractsPath string `yaml:"extracts_path"`
}

// DefaultConfig returns the built-in defaults. Flags, env vars and the
// config file override these.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		HTTP: HTTPConfig{
			Timeout:       60 * time.Second,
			UploadTimeout: 2 * time.Minute,
			UserAgent:     "paperctl/0.2 (+https://github.com/oshima-labs/paperctl)",
			MaxBodyBytes:  8_000_000,
			MaxRetries:    4,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Dir:         DefaultCacheDir(),
			TokenSlack:  60 * time.Second,
			ExtractsTTL: 5 * time.Minute,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
			UploadDelay:       time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		Output: OutputConfig{
			ExtractsPath: "paper_extracts.json",
		},
	}
}

// DefaultCacheDir returns ~/.paperctl/cache, or a relative fallback when
// the home directory cannot be determined.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paperctl-cache"
	}
	return filepath.Join(home, ".paperctl", "cache")
}

// MissingSettingsError reports required settings that were not provided
// through any source. Settings are named by their environment variable.
type MissingSettingsError struct {
	Names []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Names, ", "))
}

// ValidateAuth checks that everything needed to sign in is present.
// The env var names mirror the .env contract of the original tooling.
func (c *Config) ValidateAuth() error {
	var missing []string
	if c.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if c.Supabase.Email == "" {
		missing = append(missing, "OSHIMA_EMAIL")
	}
	if c.Supabase.Password == "" {
		missing = append(missing, "OSHIMA_PASSWORD")
	}
	if len(missing) > 0 {
		return &MissingSettingsError{Names: missing}
	}
	return nil
}
