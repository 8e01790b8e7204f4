package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when required configuration is missing
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime configuration passed to the pipelines
type Config struct {
	Table       TableConfig       `yaml:"table" mapstructure:"table"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	SECAPI      SECAPIConfig      `yaml:"secapi" mapstructure:"secapi"`
	FMP         FMPConfig         `yaml:"fmp" mapstructure:"fmp"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Consolidate ConsolidateConfig `yaml:"consolidate" mapstructure:"consolidate"`
	Match       MatchConfig       `yaml:"match" mapstructure:"match"`
	Pairing     PairingConfig     `yaml:"pairing" mapstructure:"pairing"`
	Archive     ArchiveConfig     `yaml:"archive" mapstructure:"archive"`
}

// TableConfig names the DynamoDB table holding fraud records
type TableConfig struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Region string `yaml:"region,omitempty" mapstructure:"region"`
}

// StorageConfig selects where extracted filings are written
type StorageConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"` // s3, gcs, local
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	LocalDir        string `yaml:"local_dir,omitempty" mapstructure:"local_dir"`
	Encoding        string `yaml:"encoding" mapstructure:"encoding"` // json, yaml
	CredentialsFile string `yaml:"credentials_file,omitempty" mapstructure:"credentials_file"`
}

// SECAPIConfig configures the sec-api.io query, extractor and mapping APIs
type SECAPIConfig struct {
	APIKey  string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FMPConfig configures the Financial Modeling Prep profile API
type FMPConfig struct {
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls caching of company profile lookups
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty keeps the cache in memory only
}

// ConsolidateConfig controls how fraud records collapse into ranges
type ConsolidateConfig struct {
	// WidenEndYear takes the max end year across records instead of the min.
	// Off by default so archives stay comparable with earlier runs.
	WidenEndYear bool `yaml:"widen_end_year" mapstructure:"widen_end_year"`
}

// MatchConfig controls peer selection
type MatchConfig struct {
	// ClosestFirst ranks peers by ascending capitalization difference.
	// Off by default: peers are ranked by descending difference.
	ClosestFirst bool `yaml:"closest_first" mapstructure:"closest_first"`
	MinSameSIC   int  `yaml:"min_same_sic" mapstructure:"min_same_sic"`
}

// PairingConfig controls how many non-fraud peers are sampled per company
type PairingConfig struct {
	PeersPerFraud int `yaml:"peers_per_fraud" mapstructure:"peers_per_fraud"`
}

// ArchiveConfig controls section extraction
type ArchiveConfig struct {
	Sections []string `yaml:"sections" mapstructure:"sections"`
	Workers  int      `yaml:"workers" mapstructure:"workers"` // Concurrent extractor calls per filing

	// StripHTML converts sections that come back with markup to plain text
	StripHTML bool `yaml:"strip_html" mapstructure:"strip_html"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:  "s3",
			LocalDir: "./fraudscrape-archive",
			Encoding: "json",
		},
		SECAPI: SECAPIConfig{
			BaseURL: "https://api.sec-api.io",
		},
		FMP: FMPConfig{
			BaseURL:           "https://financialmodelingprep.com",
			RequestsPerSecond: 5,
		},
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "fraudscrape/0.1",
			MaxBodyBytes: 50_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Match: MatchConfig{
			MinSameSIC: 3,
		},
		Pairing: PairingConfig{
			PeersPerFraud: 2,
		},
		Archive: ArchiveConfig{
			Sections:  DefaultSections(),
			Workers:   1,
			StripHTML: true,
		},
	}
}

// Validate reports every missing required field at once
func (c *Config) Validate() error {
	var missing []string
	if c.Table.Name == "" {
		missing = append(missing, "table.name (DYNAMO_TABLE)")
	}
	if c.SECAPI.APIKey == "" {
		missing = append(missing, "secapi.api_key (SEC_API_KEY)")
	}
	switch c.Storage.Backend {
	case "s3", "gcs":
		if c.Storage.Bucket == "" {
			missing = append(missing, "storage.bucket (S3_BUCKET)")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			missing = append(missing, "storage.local_dir")
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q (supported: s3, gcs, local)", ErrInvalidConfig, c.Storage.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateMatching checks the extra settings needed by the peer matcher
func (c *Config) ValidateMatching() error {
	if c.FMP.APIKey == "" {
		return fmt.Errorf("%w: missing fmp.api_key (FMP_API_KEY)", ErrInvalidConfig)
	}
	if c.FMP.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: fmp.requests_per_second must be positive", ErrInvalidConfig)
	}
	return nil
}
