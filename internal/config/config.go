// Package config loads the protocol parameter file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	Protocol struct {
		GenesisMs int64 `yaml:"genesis_ms"` // epoch clock anchor, Unix ms
	} `yaml:"protocol"`
	Sinks struct {
		Debt          string `yaml:"debt"`
		LPPairs       string `yaml:"lp_pairs"`
		StabilityPool string `yaml:"stability_pool"`
		Eco           string `yaml:"eco"`
	} `yaml:"sinks"`
	Staking struct {
		CapAmount   string `yaml:"cap_amount"` // base units, decimal string
		MinLockDays int    `yaml:"min_lock_days"`
	} `yaml:"staking"`
	Schedule struct {
		RouteCron string `yaml:"route_cron"` // when to route due periods
	} `yaml:"schedule"`
	Server struct {
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"server"`
	Database struct {
		PostgresURL   string `yaml:"postgres_url"`
		ClickHouseURL string `yaml:"clickhouse_url"`
	} `yaml:"database"`
	Authority struct {
		Governance string `yaml:"governance"` // may adjust params, sinks, roots
	} `yaml:"authority"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; everything can
// come from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if v := os.Getenv("CLICKHOUSE_URL"); v != "" {
		cfg.Database.ClickHouseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("GENESIS_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Protocol.GenesisMs = ms
		}
	}
	if v := os.Getenv("GOVERNANCE_AUTHORITY"); v != "" {
		cfg.Authority.Governance = v
	}

	// Defaults
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if cfg.Staking.CapAmount == "" {
		cfg.Staking.CapAmount = "1000000000000000000000000" // 1,000,000 tokens
	}
	if cfg.Staking.MinLockDays == 0 {
		cfg.Staking.MinLockDays = 7
	}
	if cfg.Schedule.RouteCron == "" {
		cfg.Schedule.RouteCron = "0 5 0 * * *" // daily, five past midnight
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Protocol.GenesisMs <= 0 {
		return fmt.Errorf("protocol.genesis_ms is required")
	}
	if c.Sinks.Debt == "" || c.Sinks.LPPairs == "" || c.Sinks.StabilityPool == "" || c.Sinks.Eco == "" {
		return fmt.Errorf("all four sink accounts are required")
	}
	if c.Staking.MinLockDays < 0 {
		return fmt.Errorf("staking.min_lock_days must not be negative")
	}
	if c.Authority.Governance == "" {
		return fmt.Errorf("authority.governance is required")
	}
	return nil
}
