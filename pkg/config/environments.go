package config

import "time"

func loadDevelopmentConfig(cfg *Config) {
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.ServerHost = "127.0.0.1"
	cfg.ScanInputEnabled = true
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.WorkerPollInterval = 10 * time.Millisecond
}

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseFilePath = "/data/shelfscan.sqlite"
	cfg.ServerHost = "0.0.0.0"
	cfg.ScanInputEnabled = true
}
