package config

import (
	"fmt"
	"math"
)

// Config holds the simdex server configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Adaptation AdaptationConfig `yaml:"adaptation"`
	Search     SearchConfig     `yaml:"search"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int     `yaml:"port"`
	ReadTimeoutSec  int     `yaml:"read_timeout_sec"`
	WriteTimeoutSec int     `yaml:"write_timeout_sec"`
	ShutdownSec     int     `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int     `yaml:"max_upload_mb"`       // single-file requests
	MaxBatchMB      int     `yaml:"max_batch_upload_mb"` // multi-file requests
	SearchRPS       float64 `yaml:"search_rps"`          // 0 disables the limiter
	SearchBurst     int     `yaml:"search_burst"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	BatchSize        int      `yaml:"batch_size"` // pipeline size for bulk reads and deletes
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ExtractorConfig points at the remote descriptor services.
type ExtractorConfig struct {
	ImageURL   string `yaml:"image_url"`
	MeshURL    string `yaml:"mesh_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Retries    int    `yaml:"retries"`
	Cache      bool   `yaml:"cache"` // reuse features of byte-identical uploads
}

// AdaptationConfig holds the relevance feedback coefficients.
// Unset coefficients take the defaults α=1, β=γ=0.001.
type AdaptationConfig struct {
	Alpha  *float64 `yaml:"alpha"`
	Beta   *float64 `yaml:"beta"`
	Gamma  *float64 `yaml:"gamma"`
	Policy string   `yaml:"policy"` // none, normalize
}

// SearchConfig holds query limits.
type SearchConfig struct {
	DefaultTopN    int `yaml:"default_top_n"`
	MaxTopN        int `yaml:"max_top_n"`
	MaxCASAttempts int `yaml:"max_cas_attempts"`
	MaxBatchSize   int `yaml:"max_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 16
	}
	if c.HTTP.MaxBatchMB <= 0 {
		c.HTTP.MaxBatchMB = 128
	}
	if c.HTTP.SearchRPS > 0 && c.HTTP.SearchBurst <= 0 {
		c.HTTP.SearchBurst = int(math.Ceil(c.HTTP.SearchRPS))
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Extractor.TimeoutSec <= 0 {
		c.Extractor.TimeoutSec = 60
	}
	if c.Adaptation.Alpha == nil {
		c.Adaptation.Alpha = ptr(1.0)
	}
	if c.Adaptation.Beta == nil {
		c.Adaptation.Beta = ptr(0.001)
	}
	if c.Adaptation.Gamma == nil {
		c.Adaptation.Gamma = ptr(0.001)
	}
	if c.Adaptation.Policy == "" {
		c.Adaptation.Policy = "none"
	}
	if c.Search.DefaultTopN <= 0 {
		c.Search.DefaultTopN = 5
	}
	if c.Search.MaxTopN <= 0 {
		c.Search.MaxTopN = 100
	}
	if c.Search.MaxCASAttempts <= 0 {
		c.Search.MaxCASAttempts = 3
	}
	if c.Search.MaxBatchSize <= 0 {
		c.Search.MaxBatchSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "simdex:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.SearchRPS < 0 {
		return fmt.Errorf("http.search_rps must not be negative, got %v", c.HTTP.SearchRPS)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
		if c.Database.DB < 0 || c.Database.BatchSize < 0 {
			return fmt.Errorf("database.db and database.batch_size must not be negative")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\", \"valkey\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Extractor.ImageURL == "" && c.Extractor.MeshURL == "" {
		return fmt.Errorf("extractor.image_url or extractor.mesh_url is required")
	}
	if c.Extractor.Retries < 0 {
		return fmt.Errorf("extractor.retries must not be negative, got %d", c.Extractor.Retries)
	}
	for name, v := range map[string]*float64{
		"alpha": c.Adaptation.Alpha, "beta": c.Adaptation.Beta, "gamma": c.Adaptation.Gamma,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return fmt.Errorf("adaptation.%s must be a finite non-negative number, got %v", name, *v)
		}
	}
	switch c.Adaptation.Policy {
	case "", "none", "normalize":
	default:
		return fmt.Errorf("adaptation.policy must be \"none\" or \"normalize\", got %q", c.Adaptation.Policy)
	}
	if c.Search.DefaultTopN > c.Search.MaxTopN {
		return fmt.Errorf("search.default_top_n (%d) exceeds search.max_top_n (%d)",
			c.Search.DefaultTopN, c.Search.MaxTopN)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
