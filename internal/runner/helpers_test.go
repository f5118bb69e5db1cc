package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
)

var kst = time.FixedZone("KST", 9*3600)

// fakeEngine отдаёт заранее заданные ордера по номеру батча.
type fakeEngine struct {
	watch    []string
	plan     map[int][]models.Order
	haltAt   int // batch index that flips Halted, -1 = never
	stopAt   int // ShouldContinue false after this batch, -1 = never
	batches  int
	inits    int
	results  []models.OrderResult
	received [][]models.Quote
}

func newFakeEngine(watch ...string) *fakeEngine {
	return &fakeEngine{watch: watch, plan: map[int][]models.Order{}, haltAt: -1, stopAt: -1}
}

func (f *fakeEngine) Initialize(context.Context)          { f.inits++ }
func (f *fakeEngine) Watchlist(context.Context) []string { return f.watch }
func (f *fakeEngine) OnBatchTick(q []models.Quote) []models.Order {
	f.received = append(f.received, q)
	out := f.plan[f.batches]
	f.batches++
	return out
}
func (f *fakeEngine) OnOrderFilled(r models.OrderResult) { f.results = append(f.results, r) }
func (f *fakeEngine) ShouldContinue() bool {
	return f.stopAt < 0 || f.batches <= f.stopAt
}
func (f *fakeEngine) Halted() bool { return f.haltAt >= 0 && f.batches > f.haltAt }
func (f *fakeEngine) HaltReason() strategy.HaltReason {
	if f.Halted() {
		return strategy.HaltLossLimit
	}
	return strategy.HaltNone
}
func (f *fakeEngine) Positions() []models.PositionState { return nil }
func (f *fakeEngine) Daily() models.DailyRiskState {
	return models.DailyRiskState{Day: "20240304", Halted: f.Halted()}
}
func (f *fakeEngine) RegimeScore() int { return 1 }

type fakeQuotes struct {
	prices map[string]int64
	calls  [][]string
	err    error
}

func (f *fakeQuotes) BatchQuotes(_ context.Context, symbols []string) ([]models.Quote, error) {
	f.calls = append(f.calls, append([]string(nil), symbols...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		p, ok := f.prices[s]
		if !ok {
			p = 10_000
		}
		out = append(out, models.Quote{Symbol: s, Price: p, Open: p, High: p, Low: p})
	}
	return out, nil
}

// fakeGateway заполняет всё по LimitPrice, либо по цене из prices.
type fakeGateway struct {
	prices    map[string]int64
	submitted []models.Order
	failWith  error
}

func (g *fakeGateway) Submit(_ context.Context, o models.Order) (models.OrderResult, error) {
	g.submitted = append(g.submitted, o)
	if g.failWith != nil {
		return models.OrderResult{}, g.failWith
	}
	price := o.LimitPrice
	if price == 0 {
		price = g.prices[o.Symbol]
	}
	return models.OrderResult{
		Success:     true,
		Symbol:      o.Symbol,
		Side:        o.Side,
		FilledQty:   o.Quantity,
		FilledPrice: price,
		OrderRef:    fmt.Sprintf("ref-%d", len(g.submitted)),
	}, nil
}

type recAlerts struct {
	mu    sync.Mutex
	sent  []string
	keys  []string
	muted map[string]bool
}

func (a *recAlerts) Send(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, msg)
}

func (a *recAlerts) Alert(key, msg string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	if a.muted[key] {
		return false
	}
	a.sent = append(a.sent, msg)
	return true
}

type recJournal struct {
	runIDs []string
	orders []models.Order
	fail   bool
}

func (j *recJournal) SaveFill(_ context.Context, runID string, o models.Order, _ models.OrderResult) error {
	j.runIDs = append(j.runIDs, runID)
	j.orders = append(j.orders, o)
	if j.fail {
		return errors.New("db down")
	}
	return nil
}

type recHealth struct {
	ready    bool
	readyLog []bool
	ticks    int
	halted   bool
	open     int
}

func (h *recHealth) SetReady(v bool)        { h.ready = v; h.readyLog = append(h.readyLog, v) }
func (h *recHealth) TouchTick(time.Time)    { h.ticks++ }
func (h *recHealth) SetHalted(v bool)       { h.halted = v }
func (h *recHealth) SetOpenPositions(n int) { h.open = n }

func fixedNow() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, kst) }
