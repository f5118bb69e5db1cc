package strategy

import (
	"sort"
	"time"

	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

// checkBreakers проверяет дневные предохранители. При срабатывании день останавливается,
// а все позиции (лонги и хеджи) закрываются.
func (m *Momentum) checkBreakers(now time.Time) ([]models.Order, bool) {
	if m.mode == ModeLive && m.cfg.cutoffMinute >= 0 {
		local := now.In(m.cfg.Location)
		if local.Hour()*60+local.Minute() >= m.cfg.cutoffMinute {
			m.halt(HaltSessionClose)
			if len(m.positions) > 0 {
				logger.Info("momentum: session cutoff %s, liquidating %d positions", m.cfg.SessionCutoff, len(m.positions))
			}
			return m.liquidateAll(), true
		}
	}

	realized := m.daily.RealizedNetPnL

	if realized <= m.cfg.DailyLossLimit {
		logger.Warn("momentum: daily loss limit hit (net %d <= %d), liquidating", realized, m.cfg.DailyLossLimit)
		m.halt(HaltLossLimit)
		return m.liquidateAll(), true
	}

	if realized >= m.cfg.DailyProfitTarget {
		logger.Info("momentum: daily profit target hit (net %d >= %d), liquidating", realized, m.cfg.DailyProfitTarget)
		m.halt(HaltProfitTarget)
		return m.liquidateAll(), true
	}

	if m.cfg.UnrealizedGuard {
		unrealized := m.estimateUnrealizedNet()
		if total := realized + unrealized; total <= m.cfg.TotalLossLimit {
			logger.Warn("momentum: total loss guard hit (realized %d + unrealized %d = %d <= %d), liquidating",
				realized, unrealized, total, m.cfg.TotalLossLimit)
			m.halt(HaltTotalLossGuard)
			return m.liquidateAll(), true
		}
	}

	return nil, false
}

func (m *Momentum) halt(reason HaltReason) {
	m.daily.Halted = true
	m.daily.HaltDate = m.daily.Day
	m.haltReason = reason
}

// estimateUnrealizedNet: mark-to-market минус издержки выхода по последним котировкам.
func (m *Momentum) estimateUnrealizedNet() int64 {
	var total int64
	for sym, pos := range m.positions {
		q, ok := m.quotes[sym]
		if !ok || q.Price <= 0 {
			continue
		}
		gross := pos.PnLAmount(q.Price)
		total += gross - m.cfg.Costs.ExitCost(q.Price*pos.Quantity)
	}
	return total
}

// liquidateAll emits market sells for every open position in symbol order.
func (m *Momentum) liquidateAll() []models.Order {
	if len(m.positions) == 0 {
		return nil
	}
	syms := make([]string, 0, len(m.positions))
	for s := range m.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	orders := make([]models.Order, 0, len(syms))
	for _, s := range syms {
		orders = append(orders, sellOrder(m.positions[s], "liquidate:"+string(m.haltReason)))
	}
	return orders
}
