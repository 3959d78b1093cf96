// Package cli wires the paperctl commands: authenticate against the
// paper-processing API, upload PDFs singly or in batches, and fetch
// extracted claims and evidence.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshima-labs/paperctl/internal/auth"
	"github.com/oshima-labs/paperctl/internal/cache"
	"github.com/oshima-labs/paperctl/internal/client"
	"github.com/oshima-labs/paperctl/internal/model"
)

var (
	cfgFile     string
	verbose     bool
	httpTimeout time.Duration
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Client for the Oshima research-paper processing API",
	Long: `paperctl uploads research papers to the Oshima API and retrieves the
claims and evidence its pipeline extracts from them.

It signs in with your Supabase credentials, attaches the resulting JWT
to every call, and handles upload pacing and duplicate detection when
pushing whole directories of PDFs.

Credentials and endpoints come from flags, PAPERCTL_* environment
variables, a .env file in the working directory, or
~/.paperctl/config.yaml.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("paperctl v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.paperctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "timeout", 0, "HTTP timeout override for API calls")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	rootCmd.PersistentFlags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	rootCmd.PersistentFlags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads the .env file, config file and environment variables
func initConfig() {
	// .env in the working directory, matching the original tooling's
	// contract. Absence is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".paperctl"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PAPERCTL")
	viper.AutomaticEnv()

	// Legacy env names from the original .env contract
	_ = viper.BindEnv("api.base_url", "OSHIMA_API_URL")
	_ = viper.BindEnv("supabase.url", "SUPABASE_URL")
	_ = viper.BindEnv("supabase.anon_key", "SUPABASE_ANON_KEY")
	_ = viper.BindEnv("supabase.email", "OSHIMA_EMAIL")
	_ = viper.BindEnv("supabase.password", "OSHIMA_PASSWORD")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, env vars and global flags
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("api.base_url"); v != "" {
		cfg.API.BaseURL = v
	}
	cfg.Supabase.URL = viper.GetString("supabase.url")
	cfg.Supabase.AnonKey = viper.GetString("supabase.anon_key")
	cfg.Supabase.Email = viper.GetString("supabase.email")
	cfg.Supabase.Password = viper.GetString("supabase.password")

	if viper.IsSet("http.timeout") {
		cfg.HTTP.Timeout = viper.GetDuration("http.timeout")
	}
	if viper.IsSet("http.upload_timeout") {
		cfg.HTTP.UploadTimeout = viper.GetDuration("http.upload_timeout")
	}
	if v := viper.GetString("http.user_agent"); v != "" {
		cfg.HTTP.UserAgent = v
	}
	if viper.IsSet("http.max_body_bytes") {
		cfg.HTTP.MaxBodyBytes = viper.GetInt64("http.max_body_bytes")
	}
	if viper.IsSet("http.max_retries") {
		cfg.HTTP.MaxRetries = viper.GetInt("http.max_retries")
	}
	if viper.IsSet("http.insecure_tls") {
		cfg.HTTP.InsecureTLS = viper.GetBool("http.insecure_tls")
	}
	if v := viper.GetString("http.http_proxy"); v != "" {
		cfg.HTTP.HTTPProxy = v
	}
	if v := viper.GetString("http.https_proxy"); v != "" {
		cfg.HTTP.HTTPSProxy = v
	}

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("cache.token_slack") {
		cfg.Cache.TokenSlack = viper.GetDuration("cache.token_slack")
	}
	if viper.IsSet("cache.extracts_ttl") {
		cfg.Cache.ExtractsTTL = viper.GetDuration("cache.extracts_ttl")
	}
	if viper.IsSet("rate_limiting.requests_per_second") {
		cfg.RateLimiting.RequestsPerSecond = viper.GetFloat64("rate_limiting.requests_per_second")
	}
	if viper.IsSet("rate_limiting.burst_size") {
		cfg.RateLimiting.BurstSize = viper.GetInt("rate_limiting.burst_size")
	}
	if viper.IsSet("rate_limiting.upload_delay") {
		cfg.RateLimiting.UploadDelay = viper.GetDuration("rate_limiting.upload_delay")
	}
	if viper.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = viper.GetInt("concurrency.workers")
	}
	if v := viper.GetString("output.extracts_path"); v != "" {
		cfg.Output.ExtractsPath = v
	}
	if viper.IsSet("output.verbose") {
		cfg.Output.Verbose = viper.GetBool("output.verbose")
	}

	// Flags win, but only when actually given; a zero-value flag must
	// not mask a config-file setting.
	if httpTimeout > 0 {
		cfg.HTTP.Timeout = httpTimeout
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	return cfg
}

// newStore creates the layered cache, or nil when caching is disabled
func newStore(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.NewLayeredCache(10*time.Minute, cfg.Cache.Dir, 24*time.Hour)
}

// newAPIClient builds the token source and API client. It fails fast
// when required auth settings are missing.
func newAPIClient(cfg *model.Config) (*client.Client, *auth.TokenSource, error) {
	if err := cfg.ValidateAuth(); err != nil {
		return nil, nil, err
	}

	store := newStore(cfg)
	authClient := auth.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.HTTP.Timeout)
	tokens := auth.NewTokenSource(authClient, store, cfg.Supabase.Email, cfg.Supabase.Password, cfg.Cache.TokenSlack)

	return client.New(cfg.API.BaseURL, tokens, cfg.HTTP), tokens, nil
}
