package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"momentum_bot/internal/models"
)

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, "entry", ReasonLabel("entry score=3.50"))
	assert.Equal(t, "liquidate:loss_limit", ReasonLabel("liquidate:loss_limit"))
	assert.Equal(t, "unknown", ReasonLabel(""))
}

func TestObserveOrdersAndResults(t *testing.T) {
	buys := testutil.ToFloat64(Orders.WithLabelValues("BUY"))
	sells := testutil.ToFloat64(Orders.WithLabelValues("SELL"))
	tp := testutil.ToFloat64(ExitReasons.WithLabelValues("take_profit"))

	ObserveOrders([]models.Order{
		{Symbol: "A", Side: models.SideBuy, Reason: "entry score=3.50"},
		{Symbol: "B", Side: models.SideSell, Reason: "take_profit"},
	})

	assert.Equal(t, buys+1, testutil.ToFloat64(Orders.WithLabelValues("BUY")))
	assert.Equal(t, sells+1, testutil.ToFloat64(Orders.WithLabelValues("SELL")))
	assert.Equal(t, tp+1, testutil.ToFloat64(ExitReasons.WithLabelValues("take_profit")))

	failed := testutil.ToFloat64(Fills.WithLabelValues("BUY", "failed"))
	ObserveResult(models.OrderResult{Side: models.SideBuy})
	assert.Equal(t, failed+1, testutil.ToFloat64(Fills.WithLabelValues("BUY", "failed")))
}
