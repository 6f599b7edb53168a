package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// Excel serial date handling
	ExcelSerialMin = 1
	ExcelSerialMax = 73000
	MinPaymentYear = 1900
	MaxPaymentYear = 2100

	// Duplicate detection policy defaults. Empirically chosen; overridable
	// from the YAML app config.
	DefaultDuplicateWindowDays = 2
	DefaultAmountTolerance     = 0.05
	ExactAmountEpsilon         = 0.01

	// Import pipeline
	MaxUploadBytes  = 32 << 20
	ImportBatchSize = 500

	// Review sessions created by the duplicate check endpoint
	DefaultSessionTTLMinutes = 30

	// Exchange rate fallbacks
	DefaultUSDTRYRate       = 30.0
	RateFallbackMaxAttempts = 5

	DefaultRateRefreshSchedule = "0 9 * * *"
	DefaultMaintenanceSchedule = "*/30 * * * *"
)

type ServerConfig struct {
	Port int `yaml:"port"`
}

type RatesConfig struct {
	EURToUSD      float64 `yaml:"eur_to_usd"`
	DefaultUSDTRY float64 `yaml:"default_usd_try"`
}

type DuplicatesConfig struct {
	WindowDays      int     `yaml:"window_days"`
	AmountTolerance float64 `yaml:"amount_tolerance"`
}

type LoggingConfig struct {
	FolderPath    string `yaml:"folder_path"`
	MaxFileMB     int    `yaml:"max_file_mb"`
	RetentionDays int    `yaml:"retention_days"`
}

type JobsConfig struct {
	RateRefreshSchedule string `yaml:"rate_refresh_schedule"`
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// AppConfig is loaded once at startup and injected into handler constructors.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Rates      RatesConfig      `yaml:"rates"`
	Duplicates DuplicatesConfig `yaml:"duplicates"`
	Logging    LoggingConfig    `yaml:"logging"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Server.Port = 8080
	cfg.Rates.EURToUSD = 1.08
	cfg.Rates.DefaultUSDTRY = DefaultUSDTRYRate
	cfg.Duplicates.WindowDays = DefaultDuplicateWindowDays
	cfg.Duplicates.AmountTolerance = DefaultAmountTolerance
	cfg.Logging.FolderPath = "./logs"
	cfg.Logging.MaxFileMB = 50
	cfg.Logging.RetentionDays = 14
	cfg.Jobs.RateRefreshSchedule = DefaultRateRefreshSchedule
	cfg.Jobs.MaintenanceSchedule = DefaultMaintenanceSchedule
	return cfg
}

// Load reads the YAML app config at path, falling back to defaults for any
// section left unset. A missing file is not an error: defaults apply.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Duplicates.WindowDays <= 0 {
		cfg.Duplicates.WindowDays = DefaultDuplicateWindowDays
	}
	if cfg.Duplicates.AmountTolerance <= 0 {
		cfg.Duplicates.AmountTolerance = DefaultAmountTolerance
	}
	return cfg, nil
}
