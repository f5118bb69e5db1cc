package strategy

import (
	"fmt"
	"time"

	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

// evaluateSell: take-profit, затем стоп по сумме, затем трейлинг. Первое совпадение.
func (m *Momentum) evaluateSell(q models.Quote, pos *models.PositionState) (models.Order, bool) {
	if q.Price <= 0 || pos.BuyPrice <= 0 {
		return models.Order{}, false
	}
	pnlPct := pos.PnLPct(q.Price)
	pnlAmount := pos.PnLAmount(q.Price)

	if pnlPct >= m.cfg.TakeProfitPct {
		logger.Info("momentum: take profit %s %.2f%% (%d)", q.Symbol, pnlPct, pnlAmount)
		return sellOrder(pos, "take_profit"), true
	}
	if pnlAmount <= m.cfg.StopLossAmount {
		logger.Info("momentum: stop loss %s %d (limit %d)", q.Symbol, pnlAmount, m.cfg.StopLossAmount)
		return sellOrder(pos, "stop_loss"), true
	}
	if pos.HighSinceBuy > pos.BuyPrice {
		if drop := pos.DrawdownFromHighPct(q.Price); drop <= m.cfg.TrailingStopPct {
			logger.Info("momentum: trailing stop %s high=%d now=%d (%.2f%%)", q.Symbol, pos.HighSinceBuy, q.Price, drop)
			return sellOrder(pos, "trailing_stop"), true
		}
	}
	return models.Order{}, false
}

// evaluateInverseSell - для хеджа правила жёстче: TP, SL в %, максимум удержания,
// разворот режима, трейлинг.
func (m *Momentum) evaluateInverseSell(q models.Quote, pos *models.PositionState, now time.Time) (models.Order, bool) {
	if q.Price <= 0 || pos.BuyPrice <= 0 {
		return models.Order{}, false
	}
	pnlPct := pos.PnLPct(q.Price)

	switch {
	case pnlPct >= m.cfg.InverseTakeProfitPct:
		logger.Info("momentum: [inv] take profit %s %.2f%%", q.Symbol, pnlPct)
		return sellOrder(pos, "inv_take_profit"), true
	case pnlPct <= m.cfg.InverseStopLossPct:
		logger.Info("momentum: [inv] stop loss %s %.2f%%", q.Symbol, pnlPct)
		return sellOrder(pos, "inv_stop_loss"), true
	case m.cfg.InverseMaxHold > 0 && now.Sub(pos.BuyTime) >= m.cfg.InverseMaxHold:
		logger.Info("momentum: [inv] max hold %s (%s)", q.Symbol, now.Sub(pos.BuyTime).Round(time.Minute))
		return sellOrder(pos, "inv_max_hold"), true
	case m.bearScore < m.cfg.BearishThreshold:
		logger.Info("momentum: [inv] regime reversal %s (score %d)", q.Symbol, m.bearScore)
		return sellOrder(pos, "inv_regime_reversal"), true
	}

	if pos.HighSinceBuy > pos.BuyPrice {
		if drop := pos.DrawdownFromHighPct(q.Price); drop <= m.cfg.InverseTrailingPct {
			logger.Info("momentum: [inv] trailing stop %s high=%d now=%d (%.2f%%)", q.Symbol, pos.HighSinceBuy, q.Price, drop)
			return sellOrder(pos, "inv_trailing_stop"), true
		}
	}
	return models.Order{}, false
}

func (m *Momentum) evaluateBuy(q models.Quote, pending []models.Order, selling map[string]struct{}, now time.Time) (models.Order, bool) {
	if m.cfg.IsInverse(q.Symbol) {
		return models.Order{}, false
	}
	if q.Price <= 0 || q.Open <= 0 || q.Price < m.cfg.MinPrice {
		return models.Order{}, false
	}
	if m.inCooldown(q.Symbol, now) {
		return models.Order{}, false
	}

	pos, scaleIn := m.positions[q.Symbol]
	if !scaleIn && m.cfg.BearMode == BearConservative && m.bearScore >= 1 {
		return models.Order{}, false
	}

	score := MomentumScore(q, m.avgVolumes[q.Symbol])
	if scaleIn {
		if !m.cfg.Pyramiding {
			return models.Order{}, false
		}
		if pos.PnLPct(q.Price) < m.cfg.ScaleInMinProfitPct {
			return models.Order{}, false
		}
		if score < m.cfg.MinMomentumScore+m.cfg.ScaleInScoreBonus {
			return models.Order{}, false
		}
	} else if score < m.cfg.MinMomentumScore {
		return models.Order{}, false
	}

	alloc := m.allocation(q.Symbol, pending, selling)
	qty := alloc / q.Price
	if qty <= 0 {
		return models.Order{}, false
	}

	reason := "entry"
	if scaleIn {
		reason = "scale_in"
	}
	logger.Info("momentum: %s signal %s(%s) score=%.1f qty=%d @ %d alloc=%d", reason, q.Name, q.Symbol, score, qty, q.Price, alloc)
	return m.buyOrder(q, qty, fmt.Sprintf("%s score=%.1f", reason, score)), true
}

func (m *Momentum) evaluateInverseBuy(q models.Quote, pending []models.Order, selling map[string]struct{}, now time.Time) (models.Order, bool) {
	if q.Price <= 0 || q.Open <= 0 {
		return models.Order{}, false
	}
	if m.bearScore < m.cfg.BearishThreshold {
		return models.Order{}, false
	}
	if m.inCooldown(q.Symbol, now) {
		return models.Order{}, false
	}

	score := MomentumScore(q, m.avgVolumes[q.Symbol])
	if score < m.cfg.InverseMinScore {
		return models.Order{}, false
	}

	alloc := m.allocation(q.Symbol, pending, selling)
	qty := alloc / q.Price
	if qty <= 0 {
		return models.Order{}, false
	}

	logger.Info("momentum: [inv] entry signal %s regime=%d score=%.1f qty=%d @ %d", q.Symbol, m.bearScore, score, qty, q.Price)
	return m.buyOrder(q, qty, fmt.Sprintf("inverse regime=%d score=%.1f", m.bearScore, score)), true
}

// allocation = min(perStock, seed - (exposure + pendingTotal), maxPerStock - (stockExposure + pendingStock)).
// Pending buys are valued at the cached quote price. Positions being sold in the same batch
// do not count toward exposure.
//
// Only same-batch orders are reserved: buys submitted on an earlier batch whose fills have not
// been reported yet are invisible here.
func (m *Momentum) allocation(symbol string, pending []models.Order, selling map[string]struct{}) int64 {
	var exposure, stockExposure int64
	for sym, pos := range m.positions {
		if _, ok := selling[sym]; ok {
			continue
		}
		exposure += pos.Exposure()
		if sym == symbol {
			stockExposure = pos.Exposure()
		}
	}

	// Резервируем только покупки этого батча. Неподтверждённая покупка с прошлого тика
	// здесь не учитывается и может удвоить аллокацию в live; оставлено как есть до решения владельца.
	var pendingTotal, pendingStock int64
	for _, o := range pending {
		if o.Side != models.SideBuy {
			continue
		}
		q, ok := m.quotes[o.Symbol]
		if !ok || q.Price <= 0 {
			continue
		}
		amount := q.Price * o.Quantity
		pendingTotal += amount
		if o.Symbol == symbol {
			pendingStock += amount
		}
	}

	totalRoom := m.cfg.SeedMoney - (exposure + pendingTotal)
	stockRoom := m.cfg.MaxPerStockAmount - (stockExposure + pendingStock)
	alloc := min(m.cfg.PerStockAmount, totalRoom, stockRoom)
	if alloc <= 0 {
		return 0
	}
	return alloc
}

func (m *Momentum) inCooldown(symbol string, now time.Time) bool {
	until, ok := m.cooldownTil[symbol]
	return ok && now.Before(until)
}

func (m *Momentum) buyOrder(q models.Quote, qty int64, reason string) models.Order {
	o := models.Order{
		Symbol:   q.Symbol,
		Side:     models.SideBuy,
		Type:     m.cfg.OrderType,
		Quantity: qty,
		Reason:   reason,
	}
	if o.Type != models.OrderMarket {
		o.LimitPrice = q.Price
	}
	return o
}

// sellOrder always closes the whole position at market.
func sellOrder(pos *models.PositionState, reason string) models.Order {
	return models.Order{
		Symbol:   pos.Symbol,
		Side:     models.SideSell,
		Type:     models.OrderMarket,
		Quantity: pos.Quantity,
		Reason:   reason,
	}
}
