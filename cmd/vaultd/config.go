package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/iov-one/vault/app"
	"github.com/iov-one/vault/store"
	"github.com/tendermint/tendermint/libs/log"
)

// Config is read from the environment.
type Config struct {
	// Home is the directory holding the database.
	Home string `env:"VAULT_HOME" envDefault:".vault"`
	// LogLevel is one of debug, info, error or none.
	LogLevel string `env:"VAULT_LOG_LEVEL" envDefault:"error"`
	// ChainID, when set, must match the chain id of the database.
	ChainID string `env:"VAULT_CHAIN_ID"`
	// Debug exposes internal error messages.
	Debug bool `env:"VAULT_DEBUG"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// dbPath returns the location of the bolt database.
func (c *Config) dbPath() string {
	return filepath.Join(c.Home, "vault.db")
}

func newLogger(cfg *Config) (log.Logger, error) {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stderr))
	opt, err := log.AllowLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %s", err)
	}
	return log.NewFilter(logger, opt).With("module", "vaultd"), nil
}

// openApp opens the database and returns the application working on it.
// The returned function must be called to release the database.
func openApp(cfg *Config) (*app.Application, func(), error) {
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return nil, nil, fmt.Errorf("cannot create home directory: %s", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenBolt(cfg.dbPath())
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("cannot close database", "err", err)
		}
	}

	a, err := app.New(db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	a = a.WithLogger(logger).WithDebug(cfg.Debug)

	if cfg.ChainID != "" && a.ChainID() != "" && cfg.ChainID != a.ChainID() {
		closeDB()
		return nil, nil, fmt.Errorf("database belongs to chain %q, not %q", a.ChainID(), cfg.ChainID)
	}
	return a, closeDB, nil
}
