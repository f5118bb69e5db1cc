package models

import "math"

// CostModel - комиссии, налог и проскальзывание. Общая для движка и симулятора,
// чтобы оба считали издержки одинаково.
type CostModel struct {
	CommissionRate float64 `yaml:"commission_rate"` // 0.00015 => 0.015%, обе стороны
	TaxRate        float64 `yaml:"tax_rate"`        // только продажа
	SlippageRate   float64 `yaml:"slippage_rate"`   // 0.001 => 10bps
}

func (c CostModel) Commission(notional int64) int64 {
	return applyRate(notional, c.CommissionRate)
}

func (c CostModel) SellTax(notional int64) int64 {
	return applyRate(notional, c.TaxRate)
}

// ExitCost is the commission plus tax paid when selling notional.
func (c CostModel) ExitCost(notional int64) int64 {
	return c.Commission(notional) + c.SellTax(notional)
}

func (c CostModel) BuyFillPrice(price int64) int64 {
	if c.SlippageRate == 0 {
		return price
	}
	return int64(math.Round(float64(price) * (1 + c.SlippageRate)))
}

func (c CostModel) SellFillPrice(price int64) int64 {
	if c.SlippageRate == 0 {
		return price
	}
	return int64(math.Round(float64(price) * (1 - c.SlippageRate)))
}

func applyRate(notional int64, rate float64) int64 {
	if notional <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Round(float64(notional) * rate))
}
