package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fundflow       FundflowConfig       `yaml:"fundflow"`
	Reader         ReaderConfig         `yaml:"reader"`
	Source         SourceConfig         `yaml:"source"`
	Classification ClassificationConfig `yaml:"classification"`
	Adapter        AdapterConfig        `yaml:"adapter"`
	Storage        StorageConfig        `yaml:"storage"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Logging        LoggingConfig        `yaml:"logging"`
}

type FundflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ReaderConfig struct {
	Timeout      time.Duration   `yaml:"timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	LookbackDays int             `yaml:"lookback_days"`
	LedgerLimit  int             `yaml:"ledger_limit"`
	TradesLimit  int             `yaml:"trades_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type SourceConfig struct {
	Bitfinex BitfinexSourceConfig `yaml:"bitfinex"`
}

type BitfinexSourceConfig struct {
	URL       string `yaml:"url"`
	Symbol    string `yaml:"symbol"`
	Currency  string `yaml:"currency"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// ClassificationConfig drives the ledger rule cascade. The keyword lists and
// thresholds changed repeatedly in the tool this replaces, so they are
// deployment configuration, not code.
type ClassificationConfig struct {
	IncomeKeywords      []string `yaml:"income_keywords"`
	ExclusionKeywords   []string `yaml:"exclusion_keywords"`
	IncomeRateCeiling   float64  `yaml:"income_rate_ceiling"`
	AbsoluteIncomeFloor float64  `yaml:"absolute_income_floor"`
	DefaultPeriodDays   int      `yaml:"default_period_days"`
	RecentFillsLimit    int      `yaml:"recent_fills_limit"`
	WindowDays          int      `yaml:"window_days"`
}

// AdapterConfig overrides the positional-offset tables used for
// sequence-shaped records. The upstream array layout is undocumented and has
// shifted across API revisions, so the built-in tables must be replaceable
// per deployment. Keys are record classes, then field names.
type AdapterConfig struct {
	Offsets map[string]map[string]int `yaml:"offsets"`
}

type StorageConfig struct {
	Snapshot SnapshotConfig `yaml:"snapshot"`
	S3       S3Config       `yaml:"s3"`
}

type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DefaultClassification returns the thresholds and keyword sets observed in
// the account history this tool was built against.
func DefaultClassification() ClassificationConfig {
	return ClassificationConfig{
		IncomeKeywords: []string{
			"funding", "payment", "interest", "payout", "margin funding payment",
		},
		ExclusionKeywords: []string{
			"transfer", "deposit", "withdrawal", "exchange", "trading fee",
			"affiliate", "settlement", "claim",
		},
		IncomeRateCeiling:   0.005,
		AbsoluteIncomeFloor: 10,
		DefaultPeriodDays:   2,
		RecentFillsLimit:    200,
		WindowDays:          30,
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Reader: ReaderConfig{
			Timeout:      30 * time.Second,
			RateLimit:    RateLimitConfig{RequestsPerSecond: 2, BurstSize: 4},
			LookbackDays: 365,
			LedgerLimit:  2500,
			TradesLimit:  50,
		},
		Classification: DefaultClassification(),
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets the environment supply everything secret. Keys never
// live in the YAML file in production-like environments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BFX_API_KEY"); v != "" {
		cfg.Source.Bitfinex.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("BFX_API_SECRET"); v != "" {
		cfg.Source.Bitfinex.APISecret = strings.TrimSpace(v)
	}
	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Fundflow.Name == "" {
		return fmt.Errorf("fundflow.name is required")
	}
	if cfg.Fundflow.Version == "" {
		return fmt.Errorf("fundflow.version is required")
	}

	if cfg.Source.Bitfinex.Symbol == "" {
		return fmt.Errorf("source.bitfinex.symbol is required")
	}
	if cfg.Source.Bitfinex.Currency == "" {
		return fmt.Errorf("source.bitfinex.currency is required")
	}

	if cfg.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}
	if cfg.Reader.LookbackDays <= 0 {
		return fmt.Errorf("reader.lookback_days must be greater than 0")
	}
	if cfg.Reader.LedgerLimit <= 0 {
		return fmt.Errorf("reader.ledger_limit must be greater than 0")
	}

	cls := &cfg.Classification
	if len(cls.IncomeKeywords) == 0 {
		return fmt.Errorf("classification.income_keywords must not be empty")
	}
	if len(cls.ExclusionKeywords) == 0 {
		return fmt.Errorf("classification.exclusion_keywords must not be empty")
	}
	if cls.IncomeRateCeiling <= 0 {
		return fmt.Errorf("classification.income_rate_ceiling must be greater than 0")
	}
	if cls.AbsoluteIncomeFloor < 0 {
		return fmt.Errorf("classification.absolute_income_floor must not be negative")
	}
	if cls.DefaultPeriodDays < 1 {
		return fmt.Errorf("classification.default_period_days must be at least 1")
	}
	if cls.RecentFillsLimit <= 0 {
		return fmt.Errorf("classification.recent_fills_limit must be greater than 0")
	}
	if cls.WindowDays <= 0 {
		return fmt.Errorf("classification.window_days must be greater than 0")
	}

	for class, fields := range cfg.Adapter.Offsets {
		switch class {
		case "wallet_entry", "ledger_entry", "funding_position", "funding_offer", "funding_trade":
		default:
			return fmt.Errorf("adapter.offsets: unknown record class %q", class)
		}
		for field, off := range fields {
			if off < 0 {
				return fmt.Errorf("adapter.offsets.%s.%s must not be negative", class, field)
			}
		}
	}

	if cfg.Storage.S3.Enabled {
		cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
	}
	if cfg.Storage.Snapshot.Enabled && cfg.Storage.Snapshot.Dir == "" && !cfg.Storage.S3.Enabled {
		return fmt.Errorf("storage.snapshot.dir is required when snapshots are enabled without S3")
	}

	return nil
}
