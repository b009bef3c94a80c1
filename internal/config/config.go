// Package config builds the process configuration once at startup.
// Components receive the values they need by injection and never read the
// environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Well-known mints.
const (
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// Config is the full process configuration.
type Config struct {
	Environment          string        `yaml:"environment"`
	ListenAddr           string        `yaml:"listen_addr"`
	AllowDevWalletHeader bool          `yaml:"allow_dev_wallet_header"`
	UseMemory            bool          `yaml:"use_memory"`
	PostgresDSN          string        `yaml:"postgres_dsn"`
	ClickHouseDSN        string        `yaml:"clickhouse_dsn"`
	HTTPTimeout          time.Duration `yaml:"http_timeout"`

	Jupiter JupiterConfig `yaml:"jupiter"`
	Solana  SolanaConfig  `yaml:"solana"`
	Assets  AssetsConfig  `yaml:"assets"`
	Log     LogConfig     `yaml:"log"`
}

// JupiterConfig configures the swap aggregator.
type JupiterConfig struct {
	// APIKey selects the metered API generation when set.
	APIKey                 string  `yaml:"api_key"`
	MeteredBaseURL         string  `yaml:"metered_base_url"`
	LegacyBaseURL          string  `yaml:"legacy_base_url"`
	MaxPriorityFeeLamports int64   `yaml:"max_priority_fee_lamports"`
	DefaultSlippageBps     int     `yaml:"default_slippage_bps"`
	MaxPriceImpactPercent  float64 `yaml:"max_price_impact_percent"`
}

// SolanaConfig configures on-chain settlement checks.
type SolanaConfig struct {
	// RPCEndpoint enables the settlement reconciler when set.
	RPCEndpoint       string        `yaml:"rpc_endpoint"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// AssetsConfig holds the decimal counts used to convert human amounts.
type AssetsConfig struct {
	StableMint      string           `yaml:"stable_mint"`
	DefaultDecimals int32            `yaml:"default_decimals"`
	Decimals        map[string]int32 `yaml:"decimals"` // mint -> decimals
}

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		ListenAddr:  ":8080",
		HTTPTimeout: 10 * time.Second,
		Jupiter: JupiterConfig{
			MeteredBaseURL:         "https://api.jup.ag/swap/v1",
			LegacyBaseURL:          "https://quote-api.jup.ag/v6",
			MaxPriorityFeeLamports: 1_000_000,
			DefaultSlippageBps:     50,
			MaxPriceImpactPercent:  1,
		},
		Solana: SolanaConfig{
			ReconcileInterval: 30 * time.Second,
		},
		Assets: AssetsConfig{
			StableMint:      USDCMint,
			DefaultDecimals: 8,
			Decimals: map[string]int32{
				USDCMint: 6,
			},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     LogFormatText,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and the environment,
// in that order of precedence (later wins).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays variables returned by getenv. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int64) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("APP_ENV", &c.Environment)
	str("LISTEN_ADDR", &c.ListenAddr)
	boolean("ALLOW_DEV_WALLET_HEADER", &c.AllowDevWalletHeader)
	boolean("USE_MEMORY", &c.UseMemory)
	str("POSTGRES_DSN", &c.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.ClickHouseDSN)
	duration("HTTP_TIMEOUT", &c.HTTPTimeout)

	str("JUPITER_API_KEY", &c.Jupiter.APIKey)
	str("JUPITER_METERED_URL", &c.Jupiter.MeteredBaseURL)
	str("JUPITER_LEGACY_URL", &c.Jupiter.LegacyBaseURL)
	integer("JUPITER_MAX_PRIORITY_FEE_LAMPORTS", &c.Jupiter.MaxPriorityFeeLamports)
	slippage := int64(c.Jupiter.DefaultSlippageBps)
	integer("DEFAULT_SLIPPAGE_BPS", &slippage)
	c.Jupiter.DefaultSlippageBps = int(slippage)
	if v := strings.TrimSpace(getenv("MAX_PRICE_IMPACT_PCT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_PRICE_IMPACT_PCT: %w", err))
		} else {
			c.Jupiter.MaxPriceImpactPercent = f
		}
	}

	str("SOLANA_RPC_ENDPOINT", &c.Solana.RPCEndpoint)
	duration("RECONCILE_INTERVAL", &c.Solana.ReconcileInterval)

	str("STABLE_MINT", &c.Assets.StableMint)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	return errors.Join(errs...)
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DecimalsFor returns the configured decimal count for mint.
func (c *Config) DecimalsFor(mint string) int32 {
	if d, ok := c.Assets.Decimals[mint]; ok {
		return d
	}
	return c.Assets.DefaultDecimals
}

// Validate checks the configuration is safe to start with.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.IsProduction() && c.AllowDevWalletHeader {
		return errors.New("allow_dev_wallet_header must not be enabled in production")
	}
	if c.IsProduction() && c.UseMemory {
		return errors.New("in-memory storage is not allowed in production")
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("postgres dsn is required (set use_memory for in-memory storage)")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	if c.Jupiter.DefaultSlippageBps <= 0 || c.Jupiter.DefaultSlippageBps > 10_000 {
		return fmt.Errorf("default slippage %d bps out of range", c.Jupiter.DefaultSlippageBps)
	}
	if c.Jupiter.MaxPriorityFeeLamports <= 0 {
		return errors.New("max priority fee must be positive")
	}
	if c.Jupiter.MaxPriceImpactPercent <= 0 {
		return errors.New("max price impact must be positive")
	}
	if c.Solana.RPCEndpoint != "" && c.Solana.ReconcileInterval <= 0 {
		return errors.New("reconcile interval must be positive")
	}
	if c.Assets.StableMint == "" {
		return errors.New("stable mint is required")
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
