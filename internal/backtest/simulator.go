package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
)

// BarSource отдаёт дневные свечи символа в диапазоне [start, end], старые первыми.
type BarSource interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

type simPosition struct {
	qty     int64
	cost    int64 // fill price * qty, summed over buys
	buyComm int64
}

// Simulator прогоняет стратегию по дневным свечам через тот же контракт, что и live.
type Simulator struct {
	cfg     Config
	costs   models.CostModel
	strat   strategy.Strategy
	bars    BarSource
	clock   *SimClock
	symbols []string

	capital   int64
	positions map[string]*simPosition
	pending   []models.Order
	lastPrice map[string]int64
	dayPnL    int64
	dayTrades int
	result    *Result
}

// NewSimulator: clock should be the same instance the strategy reads time from.
// Empty symbols means the strategy's watchlist after the first Initialize.
func NewSimulator(cfg Config, strat strategy.Strategy, bars BarSource, clock *SimClock, symbols []string) (*Simulator, error) {
	if err := cfg.normalize(); err != nil {
		return nil, errors.Wrap(err, "backtest config")
	}
	if strat == nil || bars == nil {
		return nil, errors.New("backtest: strategy and bar source are required")
	}
	if clock == nil {
		clock = NewSimClock(time.Time{})
	}
	return &Simulator{
		cfg:     cfg,
		costs:   cfg.Costs(),
		strat:   strat,
		bars:    bars,
		clock:   clock,
		symbols: append([]string(nil), symbols...),
	}, nil
}

func (s *Simulator) Run(ctx context.Context, start, end time.Time) (result *Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Simulator.Run: %w", err)
		}
	}()

	start, end = start.In(s.cfg.Location), end.In(s.cfg.Location)
	s.capital = s.cfg.InitialCapital
	s.positions = make(map[string]*simPosition)
	s.pending = nil
	s.lastPrice = make(map[string]int64)
	s.result = &Result{
		RunID:          uuid.New().String(),
		Start:          start,
		End:            end,
		InitialCapital: s.cfg.InitialCapital,
		FinalCapital:   s.cfg.InitialCapital,
	}

	symbols := s.symbols
	if len(symbols) == 0 {
		s.clock.Set(s.cfg.TickTimesFor(start)[0])
		s.strat.Initialize(ctx)
		symbols = s.strat.Watchlist(ctx)
	}

	history, err := s.loadBars(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}
	days := tradingDays(history, start, end)
	logger.Info("backtest %s: %s..%s, %d symbols, %d trading days",
		s.result.RunID, models.DayKey(start), models.DayKey(end), len(symbols), len(days))

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return s.result, err
		}
		s.runDay(ctx, day, history)
	}

	s.result.FinalCapital = s.capital
	logger.Info("backtest %s done: final=%d return=%.2f%% trades=%d",
		s.result.RunID, s.result.FinalCapital, s.result.TotalReturnPct(), s.result.TotalTrades)
	return s.result, nil
}

func (s *Simulator) runDay(ctx context.Context, day string, history map[string][]models.Bar) {
	s.dayPnL, s.dayTrades = 0, 0

	bars, prevCloses, avgVol := s.dayInputs(day, history)
	date := bars[0].Date
	ticks := s.cfg.GenerateDayTicks(date, bars, prevCloses)
	times := s.cfg.TickTimesFor(date)

	s.clock.Set(times[0])
	s.strat.Initialize(ctx)
	if va, ok := s.strat.(strategy.VolumeAware); ok {
		va.LoadAvgVolumes(avgVol)
	}

	s.pending = nil
	for i, quotes := range ticks {
		if len(quotes) == 0 {
			continue
		}
		s.clock.Set(times[i])
		for _, q := range quotes {
			s.lastPrice[q.Symbol] = q.Price
		}
		// заявки прошлого тика исполняются по цене текущего
		s.fillPending(day, quotes)
		s.pending = s.strat.OnBatchTick(quotes)
	}

	closeQuotes := ticks[TicksPerDay-1]
	if len(s.pending) > 0 {
		s.fillPending(day, closeQuotes)
	}
	s.liquidate(day, closeQuotes)

	rec := DailyRecord{
		Date:          day,
		Capital:       s.capital,
		RealizedPnL:   s.dayPnL,
		TradeCount:    s.dayTrades,
		PositionsHeld: len(s.positions),
	}
	if h, ok := s.strat.(interface{ Halted() bool }); ok {
		rec.Halted = h.Halted()
	}
	s.result.Days = append(s.result.Days, rec)
}

func (s *Simulator) fillPending(day string, quotes []models.Quote) {
	bySymbol := make(map[string]models.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	orders := s.pending
	s.pending = nil
	for _, o := range orders {
		q, ok := bySymbol[o.Symbol]
		if !ok || q.Price <= 0 || o.Quantity <= 0 {
			s.reject(o, "no quote")
			continue
		}
		switch o.Side {
		case models.SideBuy:
			s.fillBuy(day, o, q)
		case models.SideSell:
			s.fillSell(day, o, q.Price, q.Timestamp, false)
		}
	}
}

func (s *Simulator) fillBuy(day string, o models.Order, q models.Quote) {
	price := s.costs.BuyFillPrice(q.Price)
	gross := price * o.Quantity
	comm := s.costs.Commission(gross)
	if gross+comm > s.capital {
		s.reject(o, fmt.Sprintf("insufficient capital: need %d, have %d", gross+comm, s.capital))
		return
	}

	s.capital -= gross + comm
	pos, ok := s.positions[o.Symbol]
	if !ok {
		pos = &simPosition{}
		s.positions[o.Symbol] = pos
	}
	pos.qty += o.Quantity
	pos.cost += gross
	pos.buyComm += comm

	s.record(TradeRecord{
		Date: day, Time: q.Timestamp, Symbol: o.Symbol, Side: models.SideBuy,
		Quantity: o.Quantity, Price: price, Commission: comm, Reason: o.Reason,
	})
	s.strat.OnOrderFilled(models.OrderResult{
		Success: true, Symbol: o.Symbol, Side: models.SideBuy,
		FilledQty: o.Quantity, FilledPrice: price, OrderRef: s.ref(), Timestamp: q.Timestamp,
	})
}

func (s *Simulator) fillSell(day string, o models.Order, quotePrice int64, at time.Time, forced bool) {
	pos, ok := s.positions[o.Symbol]
	if !ok {
		s.reject(o, "no position")
		return
	}
	qty := o.Quantity
	if qty <= 0 || qty > pos.qty {
		qty = pos.qty
	}

	price := s.costs.SellFillPrice(quotePrice)
	gross := price * qty
	comm := s.costs.Commission(gross)
	tax := s.costs.SellTax(gross)
	proceeds := gross - comm - tax

	// доля себестоимости и комиссии покупки, приходящаяся на проданное
	basis, buyComm := pos.cost, pos.buyComm
	if qty < pos.qty {
		basis = pos.cost * qty / pos.qty
		buyComm = pos.buyComm * qty / pos.qty
		pos.qty -= qty
		pos.cost -= basis
		pos.buyComm -= buyComm
	} else {
		delete(s.positions, o.Symbol)
	}
	pnl := proceeds - (basis + buyComm)

	s.capital += proceeds
	s.dayPnL += pnl
	switch {
	case pnl > 0:
		s.result.WinningTrades++
	case pnl < 0:
		s.result.LosingTrades++
	}

	s.record(TradeRecord{
		Date: day, Time: at, Symbol: o.Symbol, Side: models.SideSell,
		Quantity: qty, Price: price, Commission: comm, Tax: tax, PnL: pnl,
		Reason: o.Reason, Forced: forced,
	})
	s.strat.OnOrderFilled(models.OrderResult{
		Success: true, Symbol: o.Symbol, Side: models.SideSell,
		FilledQty: qty, FilledPrice: price, OrderRef: s.ref(), Timestamp: at,
	})
}

// liquidate закрывает всё по close: позиции через ночь не переносятся.
// A symbol missing from the close tick is sold at its last seen price.
func (s *Simulator) liquidate(day string, closeQuotes []models.Quote) {
	if len(s.positions) == 0 {
		return
	}
	closes := make(map[string]models.Quote, len(closeQuotes))
	for _, q := range closeQuotes {
		closes[q.Symbol] = q
	}
	at := s.clock.Now()

	syms := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	for _, sym := range syms {
		pos := s.positions[sym]
		price := closes[sym].Price
		if price <= 0 {
			price = s.lastPrice[sym]
		}
		if price <= 0 {
			price = pos.cost / pos.qty
		}
		logger.Info("backtest: forced close %s %d @ %d", sym, pos.qty, price)
		s.fillSell(day, models.Order{
			Symbol: sym, Side: models.SideSell, Type: models.OrderMarket,
			Quantity: pos.qty, Reason: "eod_liquidation",
		}, price, at, true)
	}
}

func (s *Simulator) reject(o models.Order, msg string) {
	s.strat.OnOrderFilled(models.OrderResult{
		Success: false, Symbol: o.Symbol, Side: o.Side, Message: msg, Timestamp: s.clock.Now(),
	})
}

func (s *Simulator) record(t TradeRecord) {
	s.result.Trades = append(s.result.Trades, t)
	s.result.TotalTrades++
	s.dayTrades++
}

func (s *Simulator) ref() string {
	return "bt-" + uuid.New().String()
}

func (s *Simulator) loadBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]models.Bar, error) {
	// запас календарных дней под средний объём
	from := start.AddDate(0, 0, -(s.cfg.AvgVolumeDays*2 + 10))

	out := make(map[string][]models.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := s.bars.Bars(ctx, sym, from, end)
		if err != nil {
			return nil, errors.Wrapf(err, "load bars %s", sym)
		}
		if len(bars) == 0 {
			logger.Warn("backtest: no bars for %s", sym)
			continue
		}
		// день свечи считаем в часовом поясе симуляции, как и BarSource
		for i := range bars {
			bars[i].Symbol = sym
			bars[i].Date = bars[i].Date.In(s.cfg.Location)
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		out[sym] = bars
	}
	return out, nil
}

// dayInputs returns the day's bars, prior closes and average volume over the
// AvgVolumeDays bars strictly before the day.
func (s *Simulator) dayInputs(day string, history map[string][]models.Bar) ([]models.Bar, map[string]int64, map[string]int64) {
	var bars []models.Bar
	prevCloses := make(map[string]int64)
	avgVol := make(map[string]int64)

	for sym, series := range history {
		idx := sort.Search(len(series), func(i int) bool { return models.DayKey(series[i].Date) >= day })
		if idx >= len(series) || models.DayKey(series[idx].Date) != day {
			continue
		}
		bars = append(bars, series[idx])
		if idx > 0 {
			prevCloses[sym] = series[idx-1].Close
			avgVol[sym] = models.AvgVolume(series[max(0, idx-s.cfg.AvgVolumeDays):idx])
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Symbol < bars[j].Symbol })
	return bars, prevCloses, avgVol
}

// tradingDays - объединение дат свечей в [start, end].
func tradingDays(history map[string][]models.Bar, start, end time.Time) []string {
	from, to := models.DayKey(start), models.DayKey(end)
	set := make(map[string]struct{})
	for _, series := range history {
		for _, b := range series {
			if k := models.DayKey(b.Date); k >= from && k <= to {
				set[k] = struct{}{}
			}
		}
	}
	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}
