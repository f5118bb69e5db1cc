package backtest

import (
	"context"
	"time"

	"momentum_bot/internal/models"
)

var testLoc = time.FixedZone("KST", 9*3600)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, testLoc)
}

type memBars map[string][]models.Bar

func (m memBars) Bars(_ context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range m[symbol] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func bar(sym string, d int, o, h, l, c, v int64) models.Bar {
	return models.Bar{Symbol: sym, Date: day(d), Open: o, High: h, Low: l, Close: c, Volume: v}
}

// scripted emits a fixed plan keyed by tick index within the day.
type scripted struct {
	plan    map[int][]models.Order
	symbols []string

	tick    int
	inits   int
	results []models.OrderResult
	avgVol  []map[string]int64
	batches [][]models.Quote
}

func (s *scripted) Initialize(context.Context) {
	s.inits++
	s.tick = 0
}

func (s *scripted) Watchlist(context.Context) []string { return s.symbols }

func (s *scripted) OnBatchTick(q []models.Quote) []models.Order {
	s.batches = append(s.batches, q)
	orders := s.plan[s.tick]
	s.tick++
	return orders
}

func (s *scripted) OnOrderFilled(r models.OrderResult) { s.results = append(s.results, r) }

func (s *scripted) ShouldContinue() bool { return true }

func (s *scripted) LoadAvgVolumes(avg map[string]int64) { s.avgVol = append(s.avgVol, avg) }

func buy(sym string, qty int64) models.Order {
	return models.Order{Symbol: sym, Side: models.SideBuy, Type: models.OrderMarket, Quantity: qty}
}

func sell(sym string, qty int64) models.Order {
	return models.Order{Symbol: sym, Side: models.SideSell, Type: models.OrderMarket, Quantity: qty}
}
