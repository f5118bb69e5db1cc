// Package metrics holds the prometheus collectors of the trading loop.
// Registered in init(), served at /metrics by the health module.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"momentum_bot/internal/models"
)

var (
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_orders_total",
			Help: "Orders emitted by the strategy",
		},
		[]string{"side"},
	)

	Fills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_fills_total",
			Help: "Order results by side and outcome",
		},
		[]string{"side", "result"}, // result: filled|failed
	)

	// exit reason без числовых хвостов (score=..)
	ExitReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_exit_reasons_total",
			Help: "Sell orders split by reason",
		},
		[]string{"reason"},
	)

	Rejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "momentum_orders_rejected_total",
			Help: "Orders dropped by the pre-submit risk guard",
		},
	)

	RealizedNet = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "momentum_realized_net_pnl",
			Help: "Realized net P&L of the current trading day",
		},
	)

	Halts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_halts_total",
			Help: "Trading halts by reason",
		},
		[]string{"reason"},
	)

	Regime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "momentum_regime_score",
			Help: "Current market regime score (-3..3)",
		},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "momentum_open_positions",
			Help: "Open positions held by the engine",
		},
	)
)

func init() {
	prometheus.MustRegister(Orders, Fills, ExitReasons, Rejected, RealizedNet, Halts, Regime, OpenPositions)
}

// ObserveOrders counts a batch of emitted orders.
func ObserveOrders(orders []models.Order) {
	for _, o := range orders {
		Orders.WithLabelValues(string(o.Side)).Inc()
		if o.Side == models.SideSell {
			ExitReasons.WithLabelValues(ReasonLabel(o.Reason)).Inc()
		}
	}
}

func ObserveResult(r models.OrderResult) {
	result := "failed"
	if r.Success {
		result = "filled"
	}
	Fills.WithLabelValues(string(r.Side), result).Inc()
}

// ReasonLabel cuts "entry score=3.5" to "entry" so label cardinality stays bounded.
func ReasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ' '); i >= 0 {
		reason = reason[:i]
	}
	if reason == "" {
		return "unknown"
	}
	return reason
}
