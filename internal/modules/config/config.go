package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"momentum_bot/internal/backtest"
	"momentum_bot/internal/runner"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Service struct {
		Name              string        `yaml:"name"`
		LogLevel          string        `yaml:"log_level"`
		HealthAddr        string        `yaml:"health_addr"`
		TickInterval      time.Duration `yaml:"tick_interval"`
		QuoteChunkSize    int           `yaml:"quote_chunk_size"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	} `yaml:"service"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Tracing tracing.Config `yaml:"tracing"`

	Feed struct {
		URL          string        `yaml:"url"`
		ReconnectMin time.Duration `yaml:"reconnect_min"`
		ReconnectMax time.Duration `yaml:"reconnect_max"`
		StaleAfter   time.Duration `yaml:"stale_after"`
	} `yaml:"feed"`

	Data struct {
		BarDir      string `yaml:"bar_dir"`
		WarmupDays  int    `yaml:"warmup_days"`
		WarmupLimit int    `yaml:"warmup_concurrency"`
	} `yaml:"data"`

	Alerts struct {
		Enabled     bool          `yaml:"enabled"`
		MinInterval time.Duration `yaml:"min_interval"`
	} `yaml:"alerts"`

	RiskGuard runner.RiskGuard `yaml:"risk_guard"`

	Strategy strategy.Config `yaml:"strategy"`
	Backtest backtest.Config `yaml:"backtest"`
}

func defaults() Config {
	var c Config
	c.Service.Name = "momentum_bot"
	c.Service.LogLevel = "info"
	c.Service.HealthAddr = ":8080"
	c.Service.TickInterval = 10 * time.Second
	c.Service.QuoteChunkSize = runner.DefaultChunkSize
	c.Service.HeartbeatInterval = 30 * time.Minute

	c.Feed.ReconnectMin = time.Second
	c.Feed.ReconnectMax = 30 * time.Second
	c.Feed.StaleAfter = time.Minute

	c.Data.BarDir = "data/bars"
	c.Data.WarmupDays = 5
	c.Data.WarmupLimit = 8

	c.Alerts.Enabled = true
	c.Alerts.MinInterval = 5 * time.Minute

	c.RiskGuard = runner.RiskGuard{MaxOrderAmount: 1_000_000, MaxOrdersPerBatch: 10}

	c.Strategy = strategy.DefaultConfig()
	c.Backtest = backtest.DefaultConfig()
	return c
}

// NewConfig читает configs/$CONFIG_FILE (по умолчанию values_local.yaml) и накладывает env.
func NewConfig() (*Config, error) {
	name := getenvDefault(configFilePathENV, "values_local.yaml")
	dir := getenvDefault(configDirENV, "configs")
	return Load(filepath.Join(dir, name))
}

// Load decodes path over the defaults, applies env overrides and validates.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer func() {
		_ = file.Close()
	}()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Telegram.Token = getenvDefault(tokenTelegramENV, c.Telegram.Token)
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)
	c.DB = getenvDefault(databaseDSN, c.DB)

	c.Service.LogLevel = getenvDefault("LOG_LEVEL", c.Service.LogLevel)
	c.Service.HealthAddr = getenvDefault("HEALTH_ADDR", c.Service.HealthAddr)
	c.Service.TickInterval = durationFromEnv("TICK_INTERVAL", c.Service.TickInterval)
	c.Service.QuoteChunkSize = intFromEnv("QUOTE_CHUNK_SIZE", c.Service.QuoteChunkSize)

	c.Feed.URL = getenvDefault("FEED_URL", c.Feed.URL)
	c.Data.BarDir = getenvDefault("BAR_DIR", c.Data.BarDir)
	c.Alerts.Enabled = boolFromEnv("ALERTS_ENABLED", c.Alerts.Enabled)

	c.Strategy.SeedMoney = int64FromEnv("SEED_MONEY", c.Strategy.SeedMoney)
	c.Strategy.PerStockAmount = int64FromEnv("PER_STOCK_AMOUNT", c.Strategy.PerStockAmount)
	c.Strategy.TakeProfitPct = floatFromEnv("TAKE_PROFIT_PCT", c.Strategy.TakeProfitPct)
	c.Strategy.InverseEnabled = boolFromEnv("INVERSE_ENABLED", c.Strategy.InverseEnabled)
}

// Validate normalises the strategy section once so bad values fail at startup.
func (c *Config) Validate() error {
	if c.Service.TickInterval <= 0 {
		return errors.Errorf("service.tick_interval must be positive, got %s", c.Service.TickInterval)
	}
	if c.Alerts.MinInterval < 0 {
		return errors.Errorf("alerts.min_interval must not be negative, got %s", c.Alerts.MinInterval)
	}
	if err := c.Strategy.Normalize(); err != nil {
		return errors.Wrap(err, "strategy")
	}
	return nil
}

// RunnerConfig собирает настройки live-цикла из секций service и risk_guard.
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		TickInterval:      c.Service.TickInterval,
		ChunkSize:         c.Service.QuoteChunkSize,
		HeartbeatInterval: c.Service.HeartbeatInterval,
		Guard:             c.RiskGuard,
	}
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
