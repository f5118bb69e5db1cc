package runner

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum_bot/internal/models"
)

func TestRiskGuard_Check(t *testing.T) {
	g := RiskGuard{MaxOrderAmount: 1_000_000}

	assert.True(t, errors.Is(g.Check(models.Order{Symbol: "A", Side: models.SideBuy}), ErrZeroQuantity))
	assert.True(t, errors.Is(g.Check(models.Order{Symbol: "A", Side: models.SideBuy, Quantity: 101, LimitPrice: 10_000}), ErrOrderTooLarge))
	assert.NoError(t, g.Check(models.Order{Symbol: "A", Side: models.SideBuy, Quantity: 100, LimitPrice: 10_000}))
	assert.NoError(t, g.Check(models.Order{Symbol: "A", Side: models.SideBuy, Quantity: 500, Type: models.OrderMarket}),
		"market orders carry no limit notional")
	assert.NoError(t, g.Check(models.Order{Symbol: "A", Side: models.SideSell, Quantity: 500, LimitPrice: 10_000}))
}

func TestRiskGuard_BatchCapKeepsSells(t *testing.T) {
	g := RiskGuard{MaxOrdersPerBatch: 1}
	orders := []models.Order{
		{Symbol: "A", Side: models.SideSell, Quantity: 1},
		{Symbol: "B", Side: models.SideSell, Quantity: 1},
		{Symbol: "C", Side: models.SideBuy, Quantity: 1},
	}

	accepted, rejected := g.Filter(orders)

	require.Len(t, accepted, 2)
	require.Len(t, rejected, 1)
	assert.Equal(t, "C", rejected[0].Order.Symbol)
	assert.ErrorIs(t, rejected[0].Err, ErrTooManyInBatch)
}
