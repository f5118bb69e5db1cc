package strategy

import (
	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

// OnOrderFilled применяет результат исполнения. Неуспешная продажа позицию не трогает:
// у брокера она всё ещё есть.
func (m *Momentum) OnOrderFilled(res models.OrderResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch res.Side {
	case models.SideBuy:
		m.applyBuy(res)
	case models.SideSell:
		m.applySell(res)
	default:
		logger.Warn("momentum: fill with unknown side %q for %s", res.Side, res.Symbol)
	}
}

func (m *Momentum) applyBuy(res models.OrderResult) {
	if !res.Success {
		logger.Info("momentum: buy rejected %s: %s", res.Symbol, res.Message)
		return
	}

	price := res.FilledPrice
	if price <= 0 {
		price = m.quotes[res.Symbol].Price
	}
	qty := res.FilledQty
	if qty <= 0 {
		qty = m.lastQty[orderKey{res.Symbol, models.SideBuy}]
	}
	if price <= 0 || qty <= 0 {
		logger.Warn("momentum: buy fill %s without usable price/qty, ignored", res.Symbol)
		return
	}

	// комиссия на покупку списывается сразу
	fee := m.cfg.Costs.Commission(price * qty)
	m.daily.FeesPaid += fee
	m.daily.RealizedNetPnL -= fee

	if pos, ok := m.positions[res.Symbol]; ok {
		pos.Quantity += qty
		pos.InvestedAmount += price * qty
		pos.BuyPrice = roundDiv(pos.InvestedAmount, pos.Quantity)
		pos.Mark(price)
		logger.Info("momentum: scale-in filled %s +%d @ %d (avg %d, total %d)", res.Symbol, qty, price, pos.BuyPrice, pos.Quantity)
		return
	}

	m.positions[res.Symbol] = models.NewPosition(res.Symbol, price, qty, m.clock.Now(), m.cfg.IsInverse(res.Symbol))
	logger.Info("momentum: buy filled %s %d @ %d fee=%d", res.Symbol, qty, price, fee)
}

func (m *Momentum) applySell(res models.OrderResult) {
	if !res.Success {
		logger.Warn("momentum: sell failed, position kept: %s %s", res.Symbol, res.Message)
		return
	}
	pos, ok := m.positions[res.Symbol]
	if !ok {
		logger.Warn("momentum: sell fill for unknown position %s", res.Symbol)
		return
	}

	price := res.FilledPrice
	if price <= 0 {
		price = m.quotes[res.Symbol].Price
	}
	if price <= 0 {
		price = pos.BuyPrice
	}
	qty := res.FilledQty
	if qty <= 0 {
		qty = m.lastQty[orderKey{res.Symbol, models.SideSell}]
	}
	if qty <= 0 || qty > pos.Quantity {
		qty = pos.Quantity
	}

	notional := price * qty
	gross := (price - pos.BuyPrice) * qty
	fee := m.cfg.Costs.Commission(notional)
	tax := m.cfg.Costs.SellTax(notional)
	net := gross - fee - tax

	m.daily.RealizedGrossPnL += gross
	m.daily.RealizedNetPnL += net
	m.daily.FeesPaid += fee
	m.daily.TaxesPaid += tax
	m.daily.TradeCount++

	if qty < pos.Quantity {
		pos.Quantity -= qty
		pos.InvestedAmount = pos.BuyPrice * pos.Quantity
	} else {
		delete(m.positions, res.Symbol)
	}
	m.cooldownTil[res.Symbol] = m.clock.Now().Add(m.cfg.Cooldown)

	tag := ""
	if pos.Hedge {
		tag = "[inv] "
	}
	logger.Info("momentum: %ssell filled %s %d @ %d gross=%d net=%d day_net=%d",
		tag, res.Symbol, qty, price, gross, net, m.daily.RealizedNetPnL)
}

func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
