package backtest

import (
	"sort"
	"time"

	"momentum_bot/internal/models"
)

// GenerateDayTicks превращает дневные свечи в 4 синтетических тика.
// Растущий день (close >= open): O -> L -> H -> C, падающий: O -> H -> L -> C.
// prevCloses fills in Bar.PrevClose when it is zero; the open is the last fallback.
func (c Config) GenerateDayTicks(day time.Time, bars []models.Bar, prevCloses map[string]int64) [TicksPerDay][]models.Quote {
	var ticks [TicksPerDay][]models.Quote
	times := c.TickTimesFor(day)

	sorted := append([]models.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	for _, b := range sorted {
		if b.Open <= 0 || b.Close <= 0 {
			continue
		}
		prev := b.PrevClose
		if prev <= 0 {
			prev = prevCloses[b.Symbol]
		}
		if prev <= 0 {
			prev = b.Open
		}

		path := [TicksPerDay]int64{b.Open, b.Low, b.High, b.Close}
		if b.Close < b.Open {
			path = [TicksPerDay]int64{b.Open, b.High, b.Low, b.Close}
		}

		for i, price := range path {
			high, low := b.High, b.Low
			// до второго экстремума известен только путь от open
			if i < 2 {
				high, low = max(b.Open, price), min(b.Open, price)
			}
			change := price - prev
			ticks[i] = append(ticks[i], models.Quote{
				Symbol:     b.Symbol,
				Name:       b.Symbol,
				Price:      price,
				Change:     change,
				ChangeRate: float64(change) / float64(prev) * 100,
				Open:       b.Open,
				High:       high,
				Low:        low,
				Volume:     b.Volume * int64(i+1) / TicksPerDay,
				Timestamp:  times[i],
			})
		}
	}
	return ticks
}
