package backtest

import (
	"time"

	"github.com/pkg/errors"

	"momentum_bot/internal/models"
)

// TicksPerDay - open, первый экстремум, второй экстремум, close.
const TicksPerDay = 4

type Config struct {
	InitialCapital int64    `yaml:"initial_capital"`
	CommissionRate float64  `yaml:"commission_rate"`
	TaxRate        float64  `yaml:"tax_rate"`
	SlippageBps    int      `yaml:"slippage_bps"`
	TickTimes      []string `yaml:"tick_times"`
	Timezone       string   `yaml:"timezone"`
	AvgVolumeDays  int      `yaml:"avg_volume_days"`

	Location *time.Location `yaml:"-"`

	offsets [TicksPerDay]time.Duration
}

func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		CommissionRate: 0.00015,
		TaxRate:        0.002,
		TickTimes:      []string{"09:00", "10:30", "13:00", "15:20"},
		AvgVolumeDays:  5,
		Location:       time.FixedZone("KST", 9*3600),
	}
}

func (c *Config) normalize() error {
	if c.InitialCapital <= 0 {
		return errors.Errorf("initial_capital must be positive, got %d", c.InitialCapital)
	}
	if c.SlippageBps < 0 {
		return errors.Errorf("slippage_bps must not be negative, got %d", c.SlippageBps)
	}
	if len(c.TickTimes) == 0 {
		c.TickTimes = DefaultConfig().TickTimes
	}
	if len(c.TickTimes) != TicksPerDay {
		return errors.Errorf("tick_times needs %d entries, got %d", TicksPerDay, len(c.TickTimes))
	}
	for i, s := range c.TickTimes {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return errors.Wrapf(err, "parse tick time %q", s)
		}
		c.offsets[i] = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		if i > 0 && c.offsets[i] <= c.offsets[i-1] {
			return errors.Errorf("tick_times must be increasing: %v", c.TickTimes)
		}
	}
	if c.Location == nil {
		c.Location = DefaultConfig().Location
		if c.Timezone != "" {
			loc, err := time.LoadLocation(c.Timezone)
			if err != nil {
				return errors.Wrapf(err, "load timezone %q", c.Timezone)
			}
			c.Location = loc
		}
	}
	if c.AvgVolumeDays <= 0 {
		c.AvgVolumeDays = 5
	}
	return nil
}

// Costs - та же модель издержек, что и у движка.
func (c Config) Costs() models.CostModel {
	return models.CostModel{
		CommissionRate: c.CommissionRate,
		TaxRate:        c.TaxRate,
		SlippageRate:   float64(c.SlippageBps) / 10_000,
	}
}

// TickTimesFor returns the four tick timestamps of a calendar day.
func (c Config) TickTimesFor(day time.Time) [TicksPerDay]time.Time {
	y, m, d := day.Date()
	base := time.Date(y, m, d, 0, 0, 0, 0, c.Location)
	var out [TicksPerDay]time.Time
	for i, off := range c.offsets {
		out[i] = base.Add(off)
	}
	return out
}
