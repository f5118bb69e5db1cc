package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCostModel_RoundsToNearestUnit(t *testing.T) {
	c := CostModel{CommissionRate: 0.00015, TaxRate: 0.002}

	assert.Equal(t, int64(15), c.Commission(100_000))
	assert.Equal(t, int64(18), c.Commission(120_000))
	assert.Equal(t, int64(240), c.SellTax(120_000))
	assert.Equal(t, int64(258), c.ExitCost(120_000))
	assert.Equal(t, int64(150), c.Commission(1_000_000))
	assert.Zero(t, c.Commission(0))
	assert.Zero(t, c.SellTax(-10))
}

func TestCostModel_Slippage(t *testing.T) {
	c := CostModel{SlippageRate: 0.001}
	assert.Equal(t, int64(10_010), c.BuyFillPrice(10_000))
	assert.Equal(t, int64(9_990), c.SellFillPrice(10_000))

	none := CostModel{}
	assert.Equal(t, int64(10_000), none.BuyFillPrice(10_000))
}

func TestPositionState(t *testing.T) {
	p := NewPosition("A", 10_000, 20, time.Now(), false)
	assert.Equal(t, int64(200_000), p.InvestedAmount)
	assert.Equal(t, int64(200_000), p.Exposure())
	assert.Equal(t, int64(10_000), p.HighSinceBuy)

	p.Mark(9_000)
	assert.Equal(t, int64(10_000), p.HighSinceBuy, "high never decreases")
	p.Mark(10_500)
	assert.Equal(t, int64(10_500), p.HighSinceBuy)

	assert.InDelta(t, 2.0, p.PnLPct(10_200), 1e-9)
	assert.Equal(t, int64(4_000), p.PnLAmount(10_200))
	assert.InDelta(t, -200.0/10_500*100, p.DrawdownFromHighPct(10_300), 1e-9)
}

func TestAvgVolume(t *testing.T) {
	assert.Equal(t, int64(0), AvgVolume(nil))
	assert.Equal(t, int64(200), AvgVolume([]Bar{{Volume: 100}, {Volume: 300}}))
	assert.Equal(t, int64(133), AvgVolume([]Bar{{Volume: 100}, {Volume: 100}, {Volume: 200}}))
}
