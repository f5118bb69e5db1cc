package strategy

import (
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"

	"momentum_bot/internal/models"
)

type BearMode string

const (
	// BearAggressive keeps trading longs in a bearish regime.
	BearAggressive BearMode = "A"
	// BearConservative blocks new longs while the regime score is >= 1.
	BearConservative BearMode = "B"
)

// DefaultWatchlist - 30 крупнейших бумаг KRX.
var DefaultWatchlist = []string{
	"005930", "000660", "373220", "207940", "005490", "006400",
	"051910", "035420", "000270", "005380", "035720", "105560",
	"055550", "012330", "066570", "003670", "028260", "032830",
	"003550", "086790", "034730", "015760", "017670", "009150",
	"010130", "033780", "018260", "011200", "138930", "024110",
}

// DefaultInverseETFs - инверсные ETF для хеджа.
var DefaultInverseETFs = []string{"114800", "123310", "251340", "464930"}

// Config - параметры momentum-движка. Деньги в целых единицах валюты, проценты как 1.5 = 1.5%.
type Config struct {
	SeedMoney         int64 `yaml:"seed_money"`
	MaxPositions      int   `yaml:"max_positions"`
	PerStockAmount    int64 `yaml:"per_stock_amount"`
	MaxPerStockAmount int64 `yaml:"max_per_stock_amount"`

	Pyramiding          bool    `yaml:"pyramiding"`
	ScaleInMinProfitPct float64 `yaml:"scale_in_min_profit_pct"`
	ScaleInScoreBonus   float64 `yaml:"scale_in_score_bonus"`

	DailyProfitTarget int64 `yaml:"daily_profit_target"`
	DailyLossLimit    int64 `yaml:"daily_loss_limit"`
	UnrealizedGuard   bool  `yaml:"unrealized_guard"`
	TotalLossLimit    int64 `yaml:"total_loss_limit"` // 0 => DailyLossLimit

	StopLossAmount  int64   `yaml:"stop_loss_amount"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	TrailingStopPct float64 `yaml:"trailing_stop_pct"`

	BearMode BearMode `yaml:"bear_mode"`

	Costs models.CostModel `yaml:"costs"`

	Watchlist       []string      `yaml:"watchlist"`
	DynamicPoolSize int           `yaml:"dynamic_pool_size"`
	PoolRefresh     time.Duration `yaml:"pool_refresh"`
	MaxWatchlist    int           `yaml:"max_watchlist"`

	MinChangeRate float64 `yaml:"min_change_rate"`
	MaxChangeRate float64 `yaml:"max_change_rate"`
	MinVolume     int64   `yaml:"min_volume"`
	MinPrice      int64   `yaml:"min_price"`

	MinMomentumScore float64       `yaml:"min_momentum_score"`
	Cooldown         time.Duration `yaml:"cooldown"`

	InverseEnabled       bool          `yaml:"inverse_enabled"`
	InverseSymbols       []string      `yaml:"inverse_symbols"`
	InverseMaxPositions  int           `yaml:"inverse_max_positions"`
	InverseTakeProfitPct float64       `yaml:"inverse_take_profit_pct"`
	InverseStopLossPct   float64       `yaml:"inverse_stop_loss_pct"`
	InverseTrailingPct   float64       `yaml:"inverse_trailing_pct"`
	InverseMaxHold       time.Duration `yaml:"inverse_max_hold"`
	BearishThreshold     int           `yaml:"bearish_threshold"`
	InverseMinScore      float64       `yaml:"inverse_min_score"`

	// SessionCutoff "15:15" - в live-режиме после этого времени всё закрываем.
	SessionCutoff string         `yaml:"session_cutoff"`
	Timezone      string         `yaml:"timezone"`
	Location      *time.Location `yaml:"-"`
	IndexCode     string         `yaml:"index_code"`
	IndexLookback time.Duration  `yaml:"index_lookback"`

	OrderType models.OrderType `yaml:"order_type"`

	// derived by Normalize
	inverse      map[string]struct{}
	cutoffMinute int
}

func DefaultConfig() Config {
	return Config{
		SeedMoney:         1_000_000,
		MaxPositions:      5,
		PerStockAmount:    200_000,
		MaxPerStockAmount: 400_000,

		Pyramiding:          true,
		ScaleInMinProfitPct: 0.3,
		ScaleInScoreBonus:   0.8,

		DailyProfitTarget: 10_000,
		DailyLossLimit:    -5_000,
		UnrealizedGuard:   true,

		StopLossAmount:  -5_000,
		TakeProfitPct:   1.5,
		TrailingStopPct: -0.7,

		BearMode: BearAggressive,

		Costs: models.CostModel{CommissionRate: 0.00015, TaxRate: 0.002},

		Watchlist:       append([]string(nil), DefaultWatchlist...),
		DynamicPoolSize: 20,
		PoolRefresh:     300 * time.Second,
		MaxWatchlist:    55,

		MinChangeRate: 0.5,
		MaxChangeRate: 10,
		MinVolume:     100_000,
		MinPrice:      1_000,

		MinMomentumScore: 2.0,
		Cooldown:         600 * time.Second,

		InverseEnabled:       true,
		InverseSymbols:       append([]string(nil), DefaultInverseETFs...),
		InverseMaxPositions:  2,
		InverseTakeProfitPct: 1.0,
		InverseStopLossPct:   -0.5,
		InverseTrailingPct:   -0.3,
		InverseMaxHold:       120 * time.Minute,
		BearishThreshold:     2,
		InverseMinScore:      1.5,

		SessionCutoff: "15:15",
		Timezone:      "Asia/Seoul",
		IndexCode:     "0001",
		IndexLookback: 45 * 24 * time.Hour,

		OrderType: models.OrderMarket,
	}
}

// Normalize проверяет конфиг и считает производные поля. Вызывается один раз при создании движка.
func (c *Config) Normalize() error {
	if c.SeedMoney <= 0 {
		return errors.Errorf("seed_money must be positive, got %d", c.SeedMoney)
	}
	if c.PerStockAmount <= 0 {
		return errors.Errorf("per_stock_amount must be positive, got %d", c.PerStockAmount)
	}
	if c.MaxPositions <= 0 {
		return errors.Errorf("max_positions must be positive, got %d", c.MaxPositions)
	}
	if c.MaxPerStockAmount < c.PerStockAmount {
		c.MaxPerStockAmount = c.PerStockAmount
	}
	if c.DailyProfitTarget <= 0 {
		return errors.Errorf("daily_profit_target must be positive, got %d", c.DailyProfitTarget)
	}
	if c.Costs.CommissionRate < 0 || c.Costs.TaxRate < 0 || c.Costs.SlippageRate < 0 {
		return errors.New("cost rates must not be negative")
	}

	// 0 => стоп на первом же тике
	if c.DailyLossLimit == 0 {
		return errors.New("daily_loss_limit must not be zero")
	}
	if c.StopLossAmount == 0 {
		return errors.New("stop_loss_amount must not be zero")
	}

	// loss-type thresholds are always compared as <= negative numbers
	c.DailyLossLimit = -absInt(c.DailyLossLimit)
	c.StopLossAmount = -absInt(c.StopLossAmount)
	c.TotalLossLimit = -absInt(c.TotalLossLimit)
	if c.TotalLossLimit == 0 {
		c.TotalLossLimit = c.DailyLossLimit
	}
	c.TrailingStopPct = -math.Abs(c.TrailingStopPct)
	c.InverseStopLossPct = -math.Abs(c.InverseStopLossPct)
	c.InverseTrailingPct = -math.Abs(c.InverseTrailingPct)

	if c.ScaleInScoreBonus < 0 {
		c.ScaleInScoreBonus = 0
	}
	if c.MinMomentumScore < 0 || c.MinMomentumScore > MaxMomentumScore {
		return errors.Errorf("min_momentum_score out of range: %.2f", c.MinMomentumScore)
	}
	if c.BearishThreshold < 0 || c.BearishThreshold > MaxRegimeScore {
		return errors.Errorf("bearish_threshold out of range: %d", c.BearishThreshold)
	}

	switch BearMode(strings.ToUpper(string(c.BearMode))) {
	case "", BearAggressive:
		c.BearMode = BearAggressive
	case BearConservative:
		c.BearMode = BearConservative
	default:
		return errors.Errorf("unknown bear_mode %q", c.BearMode)
	}

	if c.MaxWatchlist <= 0 {
		c.MaxWatchlist = 55
	}
	if c.OrderType == "" {
		c.OrderType = models.OrderMarket
	}
	if c.Location == nil {
		c.Location = time.Local
		if c.Timezone != "" {
			loc, err := time.LoadLocation(c.Timezone)
			if err != nil {
				return errors.Wrapf(err, "load timezone %q", c.Timezone)
			}
			c.Location = loc
		}
	}
	if c.IndexLookback <= 0 {
		c.IndexLookback = 45 * 24 * time.Hour
	}

	c.cutoffMinute = -1
	if c.SessionCutoff != "" {
		t, err := time.Parse("15:04", c.SessionCutoff)
		if err != nil {
			return errors.Wrapf(err, "parse session_cutoff %q", c.SessionCutoff)
		}
		c.cutoffMinute = t.Hour()*60 + t.Minute()
	}

	c.inverse = make(map[string]struct{}, len(c.InverseSymbols))
	for _, s := range c.InverseSymbols {
		c.inverse[s] = struct{}{}
	}
	return nil
}

// IsInverse reports whether symbol belongs to the hedge universe.
func (c *Config) IsInverse(symbol string) bool {
	_, ok := c.inverse[symbol]
	return ok
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
