package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

type HaltReason string

const (
	HaltNone           HaltReason = ""
	HaltProfitTarget   HaltReason = "profit_target"
	HaltLossLimit      HaltReason = "loss_limit"
	HaltTotalLossGuard HaltReason = "total_loss_guard"
	HaltSessionClose   HaltReason = "session_close"
)

type orderKey struct {
	symbol string
	side   models.Side
}

// Momentum - интрадей momentum-движок: скоринг, пирамидинг, хедж инверсными ETF,
// дневные предохранители. Один и тот же код для live и бэктеста.
type Momentum struct {
	cfg     Config
	mode    Mode
	clock   Clock
	regime  RegimeEstimator
	ranking RankingSource

	poolOverride []string

	mu              sync.Mutex
	positions       map[string]*models.PositionState
	daily           models.DailyRiskState
	haltReason      HaltReason
	pool            []string
	lastPoolRefresh time.Time
	avgVolumes      map[string]int64
	quotes          map[string]models.Quote
	cooldownTil     map[string]time.Time
	bearScore       int
	lastQty         map[orderKey]int64
}

var _ Strategy = (*Momentum)(nil)
var _ VolumeAware = (*Momentum)(nil)

type Option func(*Momentum)

func WithClock(c Clock) Option {
	return func(m *Momentum) { m.clock = c }
}

func WithRegime(r RegimeEstimator) Option {
	return func(m *Momentum) { m.regime = r }
}

func WithRanking(r RankingSource) Option {
	return func(m *Momentum) { m.ranking = r }
}

// WithPoolOverride replaces the static+dynamic universe (inverse ETFs are still appended).
func WithPoolOverride(symbols []string) Option {
	return func(m *Momentum) { m.poolOverride = append([]string(nil), symbols...) }
}

func New(cfg Config, mode Mode, opts ...Option) (*Momentum, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, errors.Wrap(err, "strategy config")
	}
	m := &Momentum{
		cfg:         cfg,
		mode:        mode,
		clock:       SystemClock{},
		positions:   make(map[string]*models.PositionState),
		avgVolumes:  make(map[string]int64),
		quotes:      make(map[string]models.Quote),
		cooldownTil: make(map[string]time.Time),
		lastQty:     make(map[orderKey]int64),
	}
	for _, o := range opts {
		o(m)
	}
	if m.regime == nil {
		if mode == ModeBacktest {
			m.regime = QuoteRegime{}
		} else {
			m.regime = NewIndexRegime(nil, cfg.IndexCode, cfg.IndexLookback)
		}
	}
	return m, nil
}

func (m *Momentum) Initialize(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.rollover(now)
	m.buildPool(ctx, now)
	m.bearScore = clampRegime(m.regime.Refresh(ctx, now))

	if m.daily.Halted {
		logger.Info("momentum: day %s halted (%s), no new trades", m.daily.Day, m.haltReason)
	}
	logger.Info("momentum: init mode=%s day=%s seed=%d per_stock=%d tp=%.2f%% stop=%d trail=%.2f%% target=%d loss=%d guard=%v/%d",
		m.mode, m.daily.Day, m.cfg.SeedMoney, m.cfg.PerStockAmount, m.cfg.TakeProfitPct, m.cfg.StopLossAmount,
		m.cfg.TrailingStopPct, m.cfg.DailyProfitTarget, m.cfg.DailyLossLimit, m.cfg.UnrealizedGuard, m.cfg.TotalLossLimit)
	logger.Info("momentum: regime=%d bear_mode=%s inverse=%v pool=%d", m.bearScore, m.cfg.BearMode, m.cfg.InverseEnabled, len(m.pool))
}

func (m *Momentum) Watchlist(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if !m.lastPoolRefresh.IsZero() && now.Sub(m.lastPoolRefresh) >= m.cfg.PoolRefresh {
		m.buildPool(ctx, now)
	}
	return append([]string(nil), m.pool...)
}

func (m *Momentum) LoadAvgVolumes(avg map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.avgVolumes = make(map[string]int64, len(avg))
	for k, v := range avg {
		m.avgVolumes[k] = v
	}
}

func (m *Momentum) OnBatchTick(quotes []models.Quote) []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.rollover(now)

	for _, q := range quotes {
		m.quotes[q.Symbol] = q
	}

	if m.daily.Halted {
		return m.remember(m.liquidateAll())
	}

	for sym, pos := range m.positions {
		if q, ok := m.quotes[sym]; ok && q.Price > 0 {
			pos.Mark(q.Price)
		}
	}

	if orders, tripped := m.checkBreakers(now); tripped {
		return m.remember(orders)
	}

	if score, ok := m.regime.Observe(quotes, m.cfg.IsInverse); ok {
		m.bearScore = clampRegime(score)
	}

	orders := make([]models.Order, 0, 4)
	selling := make(map[string]struct{})

	// 1) выходы всегда раньше входов
	for _, q := range quotes {
		pos, ok := m.positions[q.Symbol]
		if !ok {
			continue
		}
		var (
			o    models.Order
			sell bool
		)
		if m.cfg.IsInverse(q.Symbol) {
			o, sell = m.evaluateInverseSell(q, pos, now)
		} else {
			o, sell = m.evaluateSell(q, pos)
		}
		if sell {
			orders = append(orders, o)
			selling[q.Symbol] = struct{}{}
		}
	}

	// 2) лонги
	for _, q := range quotes {
		if m.cfg.IsInverse(q.Symbol) {
			continue
		}
		if _, ok := selling[q.Symbol]; ok {
			continue
		}
		_, held := m.positions[q.Symbol]
		if !held && m.longCount()+m.pendingNew(orders, false) >= m.cfg.MaxPositions {
			continue
		}
		if o, ok := m.evaluateBuy(q, orders, selling, now); ok {
			orders = append(orders, o)
		}
	}

	// 3) инверсные ETF только при медвежьем режиме
	if m.cfg.InverseEnabled && m.bearScore >= m.cfg.BearishThreshold {
		for _, q := range quotes {
			if !m.cfg.IsInverse(q.Symbol) {
				continue
			}
			if m.inverseCount()+m.pendingNew(orders, true) >= m.cfg.InverseMaxPositions {
				break
			}
			if _, held := m.positions[q.Symbol]; held {
				continue
			}
			if o, ok := m.evaluateInverseBuy(q, orders, selling, now); ok {
				orders = append(orders, o)
			}
		}
	}

	return m.remember(orders)
}

func (m *Momentum) ShouldContinue() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !(m.daily.Halted && len(m.positions) == 0)
}

// Positions returns copies sorted by symbol.
func (m *Momentum) Positions() []models.PositionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PositionState, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (m *Momentum) Daily() models.DailyRiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.daily
}

func (m *Momentum) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.daily.Halted
}

func (m *Momentum) HaltReason() HaltReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.haltReason
}

func (m *Momentum) RegimeScore() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bearScore
}

func (m *Momentum) Mode() Mode { return m.mode }

// Config returns the normalized configuration.
func (m *Momentum) Config() Config { return m.cfg }

// rollover сбрасывает дневное состояние ровно один раз при смене даты.
func (m *Momentum) rollover(now time.Time) {
	day := models.DayKey(now.In(m.cfg.Location))
	if day == m.daily.Day {
		return
	}
	if m.daily.Day != "" {
		logger.Info("momentum: day rollover %s -> %s (net=%d trades=%d)",
			m.daily.Day, day, m.daily.RealizedNetPnL, m.daily.TradeCount)
	}
	m.daily = models.DailyRiskState{Day: day}
	m.haltReason = HaltNone
	m.cooldownTil = make(map[string]time.Time)
}

func (m *Momentum) buildPool(ctx context.Context, now time.Time) {
	seen := make(map[string]struct{})
	pool := make([]string, 0, m.cfg.MaxWatchlist)
	add := func(sym string) {
		if sym == "" {
			return
		}
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		pool = append(pool, sym)
	}

	if len(m.poolOverride) > 0 {
		for _, s := range m.poolOverride {
			add(s)
		}
		if m.cfg.InverseEnabled {
			for _, s := range m.cfg.InverseSymbols {
				add(s)
			}
		}
		m.pool = pool
		m.lastPoolRefresh = now
		return
	}

	for _, s := range m.cfg.Watchlist {
		add(s)
	}
	if m.cfg.InverseEnabled {
		for _, s := range m.cfg.InverseSymbols {
			add(s)
		}
	}
	if m.ranking != nil && m.cfg.DynamicPoolSize > 0 {
		movers, err := m.ranking.TopMovers(ctx, RankingFilter{
			Count:         m.cfg.DynamicPoolSize,
			MinChangeRate: m.cfg.MinChangeRate,
			MaxChangeRate: m.cfg.MaxChangeRate,
			MinPrice:      m.cfg.MinPrice,
			MinVolume:     m.cfg.MinVolume,
		})
		if err != nil {
			logger.Warn("momentum: top movers failed, static pool only: %v", err)
		} else {
			for _, s := range movers {
				add(s)
			}
			logger.Info("momentum: dynamic pool +%d movers (total %d)", len(movers), len(pool))
		}
	}

	if len(pool) > m.cfg.MaxWatchlist {
		pool = pool[:m.cfg.MaxWatchlist]
	}
	m.pool = pool
	m.lastPoolRefresh = now
}

func (m *Momentum) longCount() int {
	n := 0
	for sym := range m.positions {
		if !m.cfg.IsInverse(sym) {
			n++
		}
	}
	return n
}

func (m *Momentum) inverseCount() int {
	return len(m.positions) - m.longCount()
}

// pendingNew counts same-batch BUY orders that would open a new position.
func (m *Momentum) pendingNew(orders []models.Order, inverse bool) int {
	n := 0
	for _, o := range orders {
		if o.Side != models.SideBuy || m.cfg.IsInverse(o.Symbol) != inverse {
			continue
		}
		if _, held := m.positions[o.Symbol]; held {
			continue
		}
		n++
	}
	return n
}

// remember keeps the last emitted quantity per symbol/side for fill fallback.
func (m *Momentum) remember(orders []models.Order) []models.Order {
	for _, o := range orders {
		m.lastQty[orderKey{o.Symbol, o.Side}] = o.Quantity
	}
	return orders
}

func clampRegime(s int) int {
	if s < 0 {
		return 0
	}
	if s > MaxRegimeScore {
		return MaxRegimeScore
	}
	return s
}
