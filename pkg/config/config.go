package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Environment string `koanf:"environment"`

	ServerHost string `koanf:"server_host"`
	ServerPort int    `koanf:"server_port"`

	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`

	OpenLibraryBaseURL string        `koanf:"openlibrary_base_url"`
	GoogleBooksBaseURL string        `koanf:"googlebooks_base_url"`
	UPCItemDBBaseURL   string        `koanf:"upcitemdb_base_url"`
	ProviderTimeout    time.Duration `koanf:"provider_timeout"`
	ProviderRetryDelay time.Duration `koanf:"provider_retry_delay"`

	WorkerPollInterval time.Duration `koanf:"worker_poll_interval"`

	ScannerIdleTimeout time.Duration `koanf:"scanner_idle_timeout"`
	ScanInputEnabled   bool          `koanf:"scan_input_enabled"`

	KeywordLimit int `koanf:"keyword_limit"`
}

const (
	environmentENV = "ENVIRONMENT"
	configFileENV  = "SHELFSCAN_CONFIG"
	envPrefix      = "SHELFSCAN_"
)

// New builds the configuration in three layers: environment-specific
// defaults, then an optional YAML config file, then SHELFSCAN_-prefixed
// environment variables. Later layers win.
func New() (*Config, error) {
	cfg := &Config{
		ServerPort:                6684,
		DatabaseMaxRetries:        5,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,

		OpenLibraryBaseURL: "https://openlibrary.org",
		GoogleBooksBaseURL: "https://www.googleapis.com",
		UPCItemDBBaseURL:   "https://api.upcitemdb.com",
		ProviderTimeout:    5 * time.Second,
		ProviderRetryDelay: 500 * time.Millisecond,

		WorkerPollInterval: time.Second,

		ScannerIdleTimeout: 2 * time.Second,

		KeywordLimit: 10,
	}

	cfg.Environment = os.Getenv(environmentENV)
	switch cfg.Environment {
	case "development", "":
		cfg.Environment = "development"
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	k := koanf.New(".")

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(configFileENV); path != "" {
		return path
	}
	if _, err := os.Stat("shelfscan.yaml"); err == nil {
		return "shelfscan.yaml"
	}
	return ""
}
