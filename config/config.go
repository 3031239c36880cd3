package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Propflow PropflowConfig `yaml:"propflow"`
	API      APIConfig      `yaml:"api"`
	Sports   []string       `yaml:"sports"`
	Markets  []string       `yaml:"markets"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PropflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type APIConfig struct {
	BaseURL      string          `yaml:"base_url"`
	Key          string          `yaml:"key"`
	Regions      string          `yaml:"regions"`
	OddsFormat   string          `yaml:"odds_format"`
	Bookmakers   []string        `yaml:"bookmakers"`
	SelectedBook string          `yaml:"selected_book"`
	UserAgent    string          `yaml:"user_agent"`
	Timeout      time.Duration   `yaml:"timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type AnalysisConfig struct {
	MinProbDelta      float64 `yaml:"min_prob_delta"`
	MaxReferencePrice float64 `yaml:"max_reference_price"`
	Timezone          string  `yaml:"timezone"`
}

type OutputConfig struct {
	HTMLPath  string `yaml:"html_path"`
	ExcelPath string `yaml:"excel_path"`
}

type DatabaseConfig struct {
	Path           string `yaml:"path"`
	PruneCommenced bool   `yaml:"prune_commenced"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads the yaml configuration file and applies environment
// overrides. THE_ODDS_API_KEY always wins over the file so CI can inject
// the credential without touching the repository.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		API: APIConfig{
			BaseURL:    "https://api.the-odds-api.com/v4",
			Regions:    "us",
			OddsFormat: "american",
			Timeout:    30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 2,
				BurstSize:         1,
			},
		},
		Analysis: AnalysisConfig{
			MinProbDelta:      0.01,
			MaxReferencePrice: 300,
			Timezone:          "America/New_York",
		},
		Output: OutputConfig{
			HTMLPath:  "index.html",
			ExcelPath: "player_props.xlsx",
		},
		Database: DatabaseConfig{
			Path: "odds.db",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("THE_ODDS_API_KEY"); v != "" {
		config.API.Key = strings.TrimSpace(v)
	}
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Propflow.Name == "" {
		return fmt.Errorf("propflow.name is required")
	}

	if cfg.Propflow.Version == "" {
		return fmt.Errorf("propflow.version is required")
	}

	if cfg.API.Key == "" {
		return fmt.Errorf("api key is required, set THE_ODDS_API_KEY")
	}

	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}

	if len(cfg.Sports) == 0 {
		return fmt.Errorf("at least one sport is required")
	}

	if len(cfg.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}

	if cfg.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be greater than 0")
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if cfg.Archive.Enabled && cfg.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required when archive is enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
	}

	return nil
}
