// Package config builds the monitor configuration from built-in defaults, an
// optional YAML file, an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when configuration cannot be loaded or fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the fully resolved runtime configuration.
type Config struct {
	// Endpoints and credentials
	DatabaseURL   string `yaml:"database_url"`
	GoPlusAPIKey  string `yaml:"goplus_api_key"`
	RPCURL        string `yaml:"rpc_url"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`

	// Sources
	TargetChain        string `yaml:"target_chain"`
	GoPlusChainID      string `yaml:"goplus_chain_id"`
	DexScreenerBaseURL string `yaml:"dexscreener_base_url"`
	DiscoveryQuery     string `yaml:"discovery_query"`
	GoPlusBaseURL      string `yaml:"goplus_base_url"`

	// Lifecycle policy
	MaxPairAge                 time.Duration   `yaml:"max_pair_age"`
	LiquidityDeathThresholdUSD decimal.Decimal `yaml:"liquidity_death_threshold_usd"`
	VolumeDeathThresholdUSD    decimal.Decimal `yaml:"volume_death_threshold_usd"`
	CycleInterval              time.Duration   `yaml:"cycle_interval"`
	FailureCooldown            time.Duration   `yaml:"failure_cooldown"`
	CallPacing                 time.Duration   `yaml:"call_pacing"`

	// Adapter timeouts
	FeedTimeout     time.Duration `yaml:"feed_timeout"`
	OracleTimeout   time.Duration `yaml:"oracle_timeout"`
	HolderTimeout   time.Duration `yaml:"holder_timeout"`
	SnapshotTimeout time.Duration `yaml:"snapshot_timeout"`

	// Runtime
	HealthAddr string `yaml:"health_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// UseMemory selects in-memory storage; set from the command line only.
	UseMemory bool `yaml:"-"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		TargetChain:                "solana",
		GoPlusChainID:              "solana_mainnet",
		DexScreenerBaseURL:         "https://api.dexscreener.com",
		DiscoveryQuery:             "new",
		GoPlusBaseURL:              "https://api.gopluslabs.io",
		MaxPairAge:                 4 * time.Hour,
		LiquidityDeathThresholdUSD: decimal.NewFromInt(2000),
		VolumeDeathThresholdUSD:    decimal.NewFromInt(1000),
		CycleInterval:              15 * time.Minute,
		FailureCooldown:            time.Minute,
		CallPacing:                 time.Second,
		FeedTimeout:                15 * time.Second,
		OracleTimeout:              10 * time.Second,
		HolderTimeout:              15 * time.Second,
		SnapshotTimeout:            10 * time.Second,
		HealthAddr:                 ":8000",
		LogLevel:                   "info",
		LogFormat:                  "json",
	}
}

// Options selects the optional configuration sources.
type Options struct {
	// File is an optional YAML file. Empty skips it.
	File string
	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string
	// LookupEnv reads the process environment. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves configuration with precedence
// defaults < YAML file < .env file < process environment.
// The result is not validated; call Validate after applying flag overrides.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("%w: read config file: %w", ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config file %s: %w", ErrInvalidConfig, opts.File, err)
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: read env file %s: %w", ErrInvalidConfig, opts.EnvFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(cfg, get); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATABASE_URL":         &cfg.DatabaseURL,
		"GOPLUS_API_KEY":       &cfg.GoPlusAPIKey,
		"RPC_URL":              &cfg.RPCURL,
		"CLICKHOUSE_DSN":       &cfg.ClickHouseDSN,
		"TARGET_CHAIN":         &cfg.TargetChain,
		"GOPLUS_CHAIN_ID":      &cfg.GoPlusChainID,
		"DEXSCREENER_BASE_URL": &cfg.DexScreenerBaseURL,
		"DISCOVERY_QUERY":      &cfg.DiscoveryQuery,
		"GOPLUS_BASE_URL":      &cfg.GoPlusBaseURL,
		"HEALTH_ADDR":          &cfg.HealthAddr,
		"LOG_LEVEL":            &cfg.LogLevel,
		"LOG_FORMAT":           &cfg.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"MAX_PAIR_AGE":     &cfg.MaxPairAge,
		"CYCLE_INTERVAL":   &cfg.CycleInterval,
		"FAILURE_COOLDOWN": &cfg.FailureCooldown,
		"CALL_PACING":      &cfg.CallPacing,
		"FEED_TIMEOUT":     &cfg.FeedTimeout,
		"ORACLE_TIMEOUT":   &cfg.OracleTimeout,
		"HOLDER_TIMEOUT":   &cfg.HolderTimeout,
		"SNAPSHOT_TIMEOUT": &cfg.SnapshotTimeout,
	}
	for key, dst := range durations {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = d
	}

	decimals := map[string]*decimal.Decimal{
		"LIQUIDITY_DEATH_THRESHOLD_USD": &cfg.LiquidityDeathThresholdUSD,
		"VOLUME_DEATH_THRESHOLD_USD":    &cfg.VolumeDeathThresholdUSD,
	}
	for key, dst := range decimals {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		*dst = d
	}

	return nil
}

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks required fields and value ranges. All problems are reported
// together; the returned error matches ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.GoPlusAPIKey == "" {
		add("GOPLUS_API_KEY is required")
	}
	if c.RPCURL == "" {
		add("RPC_URL is required")
	}
	if c.DatabaseURL == "" && !c.UseMemory {
		add("DATABASE_URL is required unless in-memory storage is used")
	}
	if c.TargetChain == "" {
		add("TARGET_CHAIN must not be empty")
	}

	for name, d := range map[string]time.Duration{
		"MAX_PAIR_AGE":     c.MaxPairAge,
		"CYCLE_INTERVAL":   c.CycleInterval,
		"FAILURE_COOLDOWN": c.FailureCooldown,
		"FEED_TIMEOUT":     c.FeedTimeout,
		"ORACLE_TIMEOUT":   c.OracleTimeout,
		"HOLDER_TIMEOUT":   c.HolderTimeout,
		"SNAPSHOT_TIMEOUT": c.SnapshotTimeout,
	} {
		if d <= 0 {
			add("%s must be positive, got %s", name, d)
		}
	}
	if c.CallPacing < 0 {
		add("CALL_PACING must not be negative, got %s", c.CallPacing)
	}

	if !c.LiquidityDeathThresholdUSD.IsPositive() {
		add("LIQUIDITY_DEATH_THRESHOLD_USD must be positive")
	}
	if !c.VolumeDeathThresholdUSD.IsPositive() {
		add("VOLUME_DEATH_THRESHOLD_USD must be positive")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		add("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

// ValidateStorage checks only what commands that touch storage but no
// upstream need: a database URL unless in-memory, and a known log format.
func (c *Config) ValidateStorage() error {
	var problems []error
	if c.DatabaseURL == "" && !c.UseMemory {
		problems = append(problems, errors.New("DATABASE_URL is required unless in-memory storage is used"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		problems = append(problems, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.GoPlusAPIKey != "" {
		out.GoPlusAPIKey = "***"
	}
	out.DatabaseURL = redactURL(out.DatabaseURL)
	out.RPCURL = redactURL(out.RPCURL)
	out.ClickHouseDSN = redactURL(out.ClickHouseDSN)
	return out
}

// redactURL hides credentials and query strings (RPC providers put API keys there).
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[:i] + "?***"
	}
	if scheme := strings.Index(raw, "://"); scheme >= 0 {
		rest := raw[scheme+3:]
		if at := strings.Index(rest, "@"); at >= 0 && at < strings.IndexAny(rest+"/", "/?") {
			return raw[:scheme+3] + "***@" + rest[at+1:]
		}
	}
	return raw
}
