package backtest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteReport печатает сводку прогона в текстовом виде.
func WriteReport(w io.Writer, r *Result, target, limit int64) error {
	var b strings.Builder
	line := strings.Repeat("=", 55)

	fmt.Fprintf(&b, "%s\n  backtest report %s\n%s\n", line, r.RunID, line)
	fmt.Fprintf(&b, "  period:          %s .. %s\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	fmt.Fprintf(&b, "  initial capital: %15s\n", money(r.InitialCapital))
	fmt.Fprintf(&b, "  final capital:   %15s\n", money(r.FinalCapital))
	fmt.Fprintf(&b, "  total return:    %14.2f%%\n", r.TotalReturnPct())
	fmt.Fprintf(&b, "  max drawdown:    %14.2f%%\n", r.MaxDrawdownPct())

	fmt.Fprintf(&b, "\n  trades:          %15d\n", r.TotalTrades)
	fmt.Fprintf(&b, "  wins:            %15d\n", r.WinningTrades)
	fmt.Fprintf(&b, "  losses:          %15d\n", r.LosingTrades)
	fmt.Fprintf(&b, "  win rate:        %14.1f%%\n", r.WinRate())

	if r.AvgWin() > 0 || r.AvgLoss() < 0 {
		fmt.Fprintf(&b, "\n  avg win:         %15s\n", money(int64(r.AvgWin())))
		fmt.Fprintf(&b, "  avg loss:        %15s\n", money(int64(r.AvgLoss())))
		fmt.Fprintf(&b, "  win/loss ratio:  %15.2f\n", r.WinLossRatio())
	}

	if n := len(r.Days); n > 0 {
		hit, lost := r.DaysTargetHit(target), r.DaysLossLimitHit(limit)
		fmt.Fprintf(&b, "\n  trading days:    %15d\n", n)
		fmt.Fprintf(&b, "  target hit:      %15d (%.1f%%)\n", hit, float64(hit)/float64(n)*100)
		fmt.Fprintf(&b, "  loss limit hit:  %15d (%.1f%%)\n", lost, float64(lost)/float64(n)*100)
		fmt.Fprintf(&b, "  avg daily pnl:   %15s\n", money(int64(r.AvgDailyPnL())))

		fmt.Fprintf(&b, "\n  %-10s %15s %12s %7s\n", "date", "capital", "pnl", "trades")
		for _, d := range r.Days {
			fmt.Fprintf(&b, "  %-10s %15s %12s %7d\n", d.Date, money(d.Capital), money(d.RealizedPnL), d.TradeCount)
		}
	}
	fmt.Fprintf(&b, "%s\n", line)

	_, err := io.WriteString(w, b.String())
	return err
}

// money formats 1234567 as 1,234,567.
func money(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
