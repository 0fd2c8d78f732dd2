// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Market describes the market-data provider the trader polls for quotes and history.
type Market struct {
	Provider         string   `yaml:"provider"` // "yahoo" or "stub"
	Symbols          []string `yaml:"symbols"`
	BaseURL          string   `yaml:"base_url"`
	HistoryPeriod    string   `yaml:"history_period"`   // e.g. "1y", "6mo"
	HistoryInterval  string   `yaml:"history_interval"` // e.g. "1d", "1h"
	RequestTimeoutMs int      `yaml:"request_timeout_ms"`
	IgnoreMarketHrs  bool     `yaml:"ignore_market_hours"`
}

// Strategy groups tunable knobs for the momentum signal.
type Strategy struct {
	LookbackPeriods    int    `yaml:"lookback_periods"`
	TopK               int    `yaml:"top_k"` // 0 selects every eligible symbol
	RebalanceFrequency string `yaml:"rebalance_frequency"` // daily, weekly, monthly
}

// Portfolio captures paper-account settings.
type Portfolio struct {
	InitialCapital float64 `yaml:"initial_capital"`
}

// Risk encodes guard-rails for how much size a single order may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Store points at the durable artifacts the trader writes between runs.
type Store struct {
	StatePath    string `yaml:"state_path"`
	TradesDBPath string `yaml:"trades_db_path"`
}

// Schedule controls how often the trading cycle fires.
type Schedule struct {
	CheckIntervalMinutes int `yaml:"check_interval_minutes"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Market    Market    `yaml:"market"`
	Strategy  Strategy  `yaml:"strategy"`
	Portfolio Portfolio `yaml:"portfolio"`
	Risk      Risk      `yaml:"risk"`
	Store     Store     `yaml:"store"`
	Schedule  Schedule  `yaml:"schedule"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "yahoo"
	}
	if c.Market.HistoryPeriod == "" {
		c.Market.HistoryPeriod = "1y"
	}
	if c.Market.HistoryInterval == "" {
		c.Market.HistoryInterval = "1d"
	}
	if c.Market.RequestTimeoutMs <= 0 {
		c.Market.RequestTimeoutMs = 10000
	}
	if c.Strategy.LookbackPeriods <= 0 {
		c.Strategy.LookbackPeriods = 63
	}
	if c.Strategy.RebalanceFrequency == "" {
		c.Strategy.RebalanceFrequency = "monthly"
	}
	if c.Portfolio.InitialCapital <= 0 {
		c.Portfolio.InitialCapital = 100000
	}
	if c.Store.StatePath == "" {
		c.Store.StatePath = "data/portfolio_state.json"
	}
	if c.Schedule.CheckIntervalMinutes <= 0 {
		c.Schedule.CheckIntervalMinutes = 60
	}
}
