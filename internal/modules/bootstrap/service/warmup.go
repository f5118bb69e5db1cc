package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
)

type BarSource interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// Warmuper считает средние дневные объёмы до открытия сессии.
type Warmuper struct {
	bars BarSource
	days int
	now  func() time.Time

	// ограничитель параллелизма, чтобы не забить диск/API
	sem chan struct{}
}

func NewWarmuper(bars BarSource, days, concurrency int) *Warmuper {
	if days <= 0 {
		days = 5
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Warmuper{
		bars: bars,
		days: days,
		now:  time.Now,
		sem:  make(chan struct{}, concurrency),
	}
}

// AvgVolumes averages the last `days` bars strictly before today.
// Symbols without history are left out; the first load error is returned with the partial map.
func (w *Warmuper) AvgVolumes(ctx context.Context, symbols []string) (map[string]int64, error) {
	today := w.now()
	end := today.AddDate(0, 0, -1)
	start := today.AddDate(0, 0, -(w.days*2 + 10))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		out      = make(map[string]int64, len(symbols))
	)

	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			bars, err := w.bars.Bars(ctx, sym, start, end)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup %s: %w", sym, err)
				}
				mu.Unlock()
				return
			}
			if len(bars) > w.days {
				bars = bars[len(bars)-w.days:]
			}
			avg := models.AvgVolume(bars)
			if avg <= 0 {
				return
			}
			mu.Lock()
			out[sym] = avg
			mu.Unlock()
		}()
	}

	wg.Wait()
	return out, firstErr
}

// Warmup грузит объёмы в движок; ошибка не фатальна, скоринг просто без бонуса за объём.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string, target strategy.VolumeAware) int {
	avg, err := w.AvgVolumes(ctx, symbols)
	if err != nil {
		logger.Warn("bootstrap: warmup finished with error: %v", err)
	}
	target.LoadAvgVolumes(avg)
	logger.Info("bootstrap: avg volumes for %d/%d symbols", len(avg), len(symbols))
	return len(avg)
}
