package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	storePostgres = "postgres"
	storeBunt     = "bunt"
)

type config struct {
	Debug  bool `env:"DEBUG"`
	Syslog bool `env:"SYSLOG"`

	Store       string `env:"STORE" envDefault:"postgres"`
	PostgresDsn string `env:"POSTGRES_DSN"`
	BuntPath    string `env:"BUNT_PATH" envDefault:"appsrv.db"`
	DbVerbose   bool   `env:"DB_VERBOSE"`

	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":2137"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"*"`

	CreateSchema bool `env:"CREATE_SCHEMA" envDefault:"true"`
	Seed         bool `env:"SEED"`
}

func loadConfig() (config, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Store {
	case storePostgres:
		if cfg.PostgresDsn == "" {
			return config{}, fmt.Errorf("POSTGRES_DSN is required for store %q", cfg.Store)
		}
	case storeBunt:
	default:
		return config{}, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	return cfg, nil
}
