package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum_bot/internal/models"
)

type prices map[string]int64

func (p prices) LastPrice(s string) (int64, bool) {
	v, ok := p[s]
	return v, ok
}

func TestPaper_Submit(t *testing.T) {
	p := NewPaper(prices{"A": 10_150})
	ctx := context.Background()

	res, err := p.Submit(ctx, models.Order{Symbol: "A", Side: models.SideBuy, Type: models.OrderMarket, Quantity: 7})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(10_150), res.FilledPrice)
	assert.Equal(t, int64(7), res.FilledQty)
	assert.True(t, strings.HasPrefix(res.OrderRef, "paper-"))

	res, err = p.Submit(ctx, models.Order{Symbol: "B", Side: models.SideBuy, Type: models.OrderLimit, Quantity: 3, LimitPrice: 5_000})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(5_000), res.FilledPrice, "limit orders fill at their limit")

	res, err = p.Submit(ctx, models.Order{Symbol: "Z", Side: models.SideSell, Type: models.OrderMarket, Quantity: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "no price")

	assert.Len(t, p.Filled(), 2)
}

func TestPaper_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPaper(prices{}).Submit(ctx, models.Order{Symbol: "A", Quantity: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
