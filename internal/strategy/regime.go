package strategy

import (
	"context"
	"time"

	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

// RegimeEstimator выдаёт оценку медвежьего рынка 0..3.
type RegimeEstimator interface {
	// Refresh is called once per Initialize.
	Refresh(ctx context.Context, now time.Time) int
	// Observe is called on every batch; ok=false keeps the previous score.
	Observe(quotes []models.Quote, isHedge func(string) bool) (score int, ok bool)
}

// minIndexCloses - меньше этого по индексу не считаем.
const minIndexCloses = 20

// IndexRegime scores the market from daily index closes (live mode).
type IndexRegime struct {
	Source    IndexSource
	IndexCode string
	Lookback  time.Duration
}

func NewIndexRegime(src IndexSource, indexCode string, lookback time.Duration) *IndexRegime {
	return &IndexRegime{Source: src, IndexCode: indexCode, Lookback: lookback}
}

func (r *IndexRegime) Refresh(ctx context.Context, now time.Time) int {
	if r.Source == nil {
		return 0
	}
	closes, err := r.Source.DailySeries(ctx, r.IndexCode, now.Add(-r.Lookback), now)
	if err != nil {
		logger.Error("regime: index %s series: %v", r.IndexCode, err)
		return 0
	}
	score := IndexRegimeScore(closes)
	logger.Info("regime: index=%s closes=%d score=%d", r.IndexCode, len(closes), score)
	return score
}

func (r *IndexRegime) Observe([]models.Quote, func(string) bool) (int, bool) {
	return 0, false
}

// IndexRegimeScore: +1 close < MA20, +1 MA5 < MA20, +1 три закрытия подряд ниже предыдущих.
// Fewer than 20 closes yield 0.
func IndexRegimeScore(closes []float64) int {
	n := len(closes)
	if n < minIndexCloses {
		return 0
	}
	ma20 := mean(closes[n-20:])
	ma5 := mean(closes[n-5:])

	score := 0
	if closes[n-1] < ma20 {
		score++
	}
	if ma5 < ma20 {
		score++
	}
	falling := true
	for i := n - 3; i < n; i++ {
		if closes[i] >= closes[i-1] {
			falling = false
			break
		}
	}
	if falling {
		score++
	}
	return score
}

// QuoteRegime approximates the regime from the batch itself (backtest mode).
type QuoteRegime struct{}

func (QuoteRegime) Refresh(context.Context, time.Time) int { return 0 }

func (QuoteRegime) Observe(quotes []models.Quote, isHedge func(string) bool) (int, bool) {
	return BatchRegimeScore(quotes, isHedge)
}

// BatchRegimeScore считает по не-хедж бумагам: средний changeRate < -0.5 (+1), < -1.0 (+1),
// доля падающих > 70% (+1). Пустая выборка => ok=false.
func BatchRegimeScore(quotes []models.Quote, isHedge func(string) bool) (int, bool) {
	var (
		total     int
		declining int
		sum       float64
	)
	for _, q := range quotes {
		if isHedge != nil && isHedge(q.Symbol) {
			continue
		}
		total++
		sum += q.ChangeRate
		if q.ChangeRate < 0 {
			declining++
		}
	}
	if total == 0 {
		return 0, false
	}

	avg := sum / float64(total)
	score := 0
	if avg < -0.5 {
		score++
	}
	if avg < -1.0 {
		score++
	}
	if float64(declining)/float64(total) > 0.7 {
		score++
	}
	return score, true
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
