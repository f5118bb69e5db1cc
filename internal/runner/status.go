package runner

import (
	"fmt"
	"strings"
)

// Status - короткая сводка для /status и heartbeat, без запросов наружу.
func (r *Runner) Status() string {
	d := r.Engine.Daily()
	positions := r.Engine.Positions()

	var b strings.Builder
	fmt.Fprintf(&b, "day %s | net %d | fees %d | tax %d | trades %d | regime %d",
		d.Day, d.RealizedNetPnL, d.FeesPaid, d.TaxesPaid, d.TradeCount, r.Engine.RegimeScore())
	if d.Halted {
		fmt.Fprintf(&b, " | HALTED (%s)", r.Engine.HaltReason())
	}
	if len(positions) == 0 {
		b.WriteString("\nno open positions")
		return b.String()
	}
	for _, p := range positions {
		kind := ""
		if p.Hedge {
			kind = " [inv]"
		}
		fmt.Fprintf(&b, "\n%s%s x%d @ %d high %d", p.Symbol, kind, p.Quantity, p.BuyPrice, p.HighSinceBuy)
	}
	return b.String()
}
