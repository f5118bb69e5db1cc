package strategy

import (
	"context"
	"time"

	"momentum_bot/internal/models"
)

// Strategy - контракт, который дергают и live-раннер, и симулятор.
// Вызовы должны быть сериализованы; реализации внутри держат один мьютекс.
type Strategy interface {
	// Initialize сбрасывает дневное состояние при смене даты, пересобирает watchlist
	// и обновляет режим рынка.
	Initialize(ctx context.Context)
	Watchlist(ctx context.Context) []string
	OnBatchTick(quotes []models.Quote) []models.Order
	OnOrderFilled(res models.OrderResult)
	// ShouldContinue is false only once halted with no open positions left.
	ShouldContinue() bool
}

// VolumeAware strategies take 5-day average volumes from the driver.
type VolumeAware interface {
	LoadAvgVolumes(avg map[string]int64)
}

type Mode int

const (
	ModeLive Mode = iota
	ModeBacktest
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeBacktest:
		return "backtest"
	default:
		return "unknown"
	}
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a func to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// IndexSource отдаёт дневные закрытия индекса, старые первыми.
type IndexSource interface {
	DailySeries(ctx context.Context, indexCode string, start, end time.Time) ([]float64, error)
}

type RankingFilter struct {
	Count         int
	MinChangeRate float64
	MaxChangeRate float64
	MinPrice      int64
	MinVolume     int64
}

type RankingSource interface {
	TopMovers(ctx context.Context, f RankingFilter) ([]string, error)
}
