package strategy

import "momentum_bot/internal/models"

const (
	MaxMomentumScore = 5.0
	MaxRegimeScore   = 3
)

type tier struct {
	min, points float64
}

var (
	vsOpenTiers     = []tier{{2.0, 1.5}, {1.0, 1.0}, {0.5, 0.5}}
	changeRateTiers = []tier{{2.0, 1.0}, {1.0, 0.6}, {0.5, 0.3}}
	proximityTiers  = []tier{{0.9, 1.0}, {0.7, 0.5}}
	volumeTiers     = []tier{{3.0, 1.5}, {2.0, 1.0}, {1.5, 0.5}}
)

// first matching tier wins, tiers are sorted by min desc
func tierPoints(v float64, tiers []tier) float64 {
	for _, t := range tiers {
		if v >= t.min {
			return t.points
		}
	}
	return 0
}

// MomentumScore суммирует четыре под-оценки, результат всегда в [0, 5].
// avgVolume <= 0 означает, что средний объём неизвестен: объёмная часть = 0.
func MomentumScore(q models.Quote, avgVolume int64) float64 {
	if q.Price <= 0 {
		return 0
	}
	score := 0.0

	if q.Open > 0 {
		vsOpen := float64(q.Price-q.Open) / float64(q.Open) * 100
		score += tierPoints(vsOpen, vsOpenTiers)
	}

	score += tierPoints(q.ChangeRate, changeRateTiers)

	if rng := q.High - q.Low; rng > 0 {
		proximity := float64(q.Price-q.Low) / float64(rng)
		score += tierPoints(proximity, proximityTiers)
	}

	if avgVolume > 0 {
		ratio := float64(q.Volume) / float64(avgVolume)
		score += tierPoints(ratio, volumeTiers)
	}

	return score
}
