package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"momentum_bot/internal/models"
)

var kst = time.FixedZone("KST", 9*3600)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = kst
	cfg.Watchlist = []string{"A", "B", "C"}
	return cfg
}

func newEngine(t *testing.T, cfg Config, mode Mode, opts ...Option) (*Momentum, *testClock) {
	t.Helper()

	clk := &testClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, kst)}
	opts = append([]Option{WithClock(clk)}, opts...)
	m, err := New(cfg, mode, opts...)
	require.NoError(t, err)
	m.Initialize(context.Background())
	return m, clk
}

// strong scores 3.5: +3% vs open, changeRate 2.5, price at session high.
func strong(sym string, price int64) models.Quote {
	open := price * 100 / 103
	return models.Quote{
		Symbol:     sym,
		Price:      price,
		Open:       open,
		High:       price,
		Low:        open,
		ChangeRate: 2.5,
		Volume:     1_000_000,
	}
}

// flat scores 0.
func flat(sym string, price int64) models.Quote {
	return models.Quote{Symbol: sym, Price: price, Open: price, High: price, Low: price}
}

func falling(sym string, price int64) models.Quote {
	q := flat(sym, price)
	q.ChangeRate = -3
	return q
}

func fill(m *Momentum, sym string, side models.Side, qty, price int64) {
	m.OnOrderFilled(models.OrderResult{
		Success:     true,
		Symbol:      sym,
		Side:        side,
		FilledQty:   qty,
		FilledPrice: price,
	})
}

func position(t *testing.T, m *Momentum, sym string) models.PositionState {
	t.Helper()
	for _, p := range m.Positions() {
		if p.Symbol == sym {
			return p
		}
	}
	t.Fatalf("no position for %s", sym)
	return models.PositionState{}
}

func sides(orders []models.Order) []models.Side {
	out := make([]models.Side, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Side)
	}
	return out
}
