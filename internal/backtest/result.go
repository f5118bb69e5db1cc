package backtest

import (
	"time"

	"momentum_bot/internal/models"
)

type TradeRecord struct {
	Date       string      `json:"date"`
	Time       time.Time   `json:"time"`
	Symbol     string      `json:"symbol"`
	Side       models.Side `json:"side"`
	Quantity   int64       `json:"quantity"`
	Price      int64       `json:"price"`
	Commission int64       `json:"commission"`
	Tax        int64       `json:"tax"`
	PnL        int64       `json:"pnl"` // net, sells only
	Reason     string      `json:"reason,omitempty"`
	Forced     bool        `json:"forced,omitempty"`
}

type DailyRecord struct {
	Date          string `json:"date"`
	Capital       int64  `json:"capital"`
	RealizedPnL   int64  `json:"realized_pnl"`
	TradeCount    int    `json:"trade_count"`
	PositionsHeld int    `json:"positions_held"`
	Halted        bool   `json:"halted"`
}

// Result - итог прогона. FinalCapital = InitialCapital + сумма PnL по продажам.
type Result struct {
	RunID          string        `json:"run_id"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	InitialCapital int64         `json:"initial_capital"`
	FinalCapital   int64         `json:"final_capital"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	Trades         []TradeRecord `json:"trades"`
	Days           []DailyRecord `json:"days"`
}

func (r *Result) TotalReturnPct() float64 {
	if r.InitialCapital == 0 {
		return 0
	}
	return float64(r.FinalCapital-r.InitialCapital) / float64(r.InitialCapital) * 100
}

func (r *Result) WinRate() float64 {
	total := r.WinningTrades + r.LosingTrades
	if total == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(total) * 100
}

// AvgWin is the mean net P&L of winning sells.
func (r *Result) AvgWin() float64 {
	var sum int64
	n := 0
	for _, t := range r.Trades {
		if t.Side == models.SideSell && t.PnL > 0 {
			sum += t.PnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// AvgLoss is negative (or 0 without losing sells).
func (r *Result) AvgLoss() float64 {
	var sum int64
	n := 0
	for _, t := range r.Trades {
		if t.Side == models.SideSell && t.PnL < 0 {
			sum += t.PnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// WinLossRatio - |avg win / avg loss|, 0 без убыточных сделок.
func (r *Result) WinLossRatio() float64 {
	loss := r.AvgLoss()
	if loss == 0 {
		return 0
	}
	pf := r.AvgWin() / loss
	if pf < 0 {
		pf = -pf
	}
	return pf
}

// MaxDrawdownPct - максимальная просадка по дневному капиталу, пик стартует с начального капитала.
func (r *Result) MaxDrawdownPct() float64 {
	peak := r.InitialCapital
	maxDD := 0.0
	for _, d := range r.Days {
		if d.Capital > peak {
			peak = d.Capital
		}
		if peak <= 0 {
			continue
		}
		if dd := float64(peak-d.Capital) / float64(peak) * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func (r *Result) DaysTargetHit(target int64) int {
	n := 0
	for _, d := range r.Days {
		if d.RealizedPnL >= target {
			n++
		}
	}
	return n
}

func (r *Result) DaysLossLimitHit(limit int64) int {
	n := 0
	for _, d := range r.Days {
		if d.RealizedPnL <= limit {
			n++
		}
	}
	return n
}

func (r *Result) AvgDailyPnL() float64 {
	if len(r.Days) == 0 {
		return 0
	}
	var sum int64
	for _, d := range r.Days {
		sum += d.RealizedPnL
	}
	return float64(sum) / float64(len(r.Days))
}
