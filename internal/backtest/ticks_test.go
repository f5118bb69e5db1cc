package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum_bot/internal/models"
)

func prices(quotes [TicksPerDay][]models.Quote, sym string) []int64 {
	var out []int64
	for _, tick := range quotes {
		for _, q := range tick {
			if q.Symbol == sym {
				out = append(out, q.Price)
			}
		}
	}
	return out
}

func TestGenerateDayTicks_UpDay(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.normalize())

	ticks := cfg.GenerateDayTicks(day(4), []models.Bar{bar("X", 4, 100, 110, 95, 105, 1000)}, nil)
	assert.Equal(t, []int64{100, 95, 110, 105}, prices(ticks, "X"))

	vols := []int64{250, 500, 750, 1000}
	for i, tick := range ticks {
		require.Len(t, tick, 1)
		assert.Equal(t, vols[i], tick[0].Volume)
		assert.Equal(t, int64(100), tick[0].Open)
	}

	// first two ticks only know the path from the open
	assert.Equal(t, int64(100), ticks[1][0].High)
	assert.Equal(t, int64(95), ticks[1][0].Low)
	assert.Equal(t, int64(110), ticks[2][0].High)
	assert.Equal(t, int64(95), ticks[2][0].Low)

	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, cfg.Location), ticks[0][0].Timestamp)
	assert.Equal(t, time.Date(2024, 3, 4, 15, 20, 0, 0, cfg.Location), ticks[3][0].Timestamp)
}

func TestGenerateDayTicks_DownDayAndPrevClose(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.normalize())

	b := bar("Y", 4, 200, 210, 180, 190, 400)
	ticks := cfg.GenerateDayTicks(day(4), []models.Bar{b}, map[string]int64{"Y": 190})
	assert.Equal(t, []int64{200, 210, 180, 190}, prices(ticks, "Y"))

	assert.Equal(t, int64(10), ticks[0][0].Change)
	assert.InDelta(t, 10.0/190*100, ticks[0][0].ChangeRate, 1e-9)
	assert.InDelta(t, 0.0, ticks[3][0].ChangeRate, 1e-9)

	// explicit PrevClose wins
	b.PrevClose = 200
	ticks = cfg.GenerateDayTicks(day(4), []models.Bar{b}, map[string]int64{"Y": 190})
	assert.Zero(t, ticks[0][0].Change)
}

func TestGenerateDayTicks_SkipsInvalidBars(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.normalize())

	ticks := cfg.GenerateDayTicks(day(4), []models.Bar{
		bar("B", 4, 0, 10, 5, 8, 1),
		bar("A", 4, 10, 12, 9, 11, 1),
	}, nil)
	for _, tick := range ticks {
		require.Len(t, tick, 1)
		assert.Equal(t, "A", tick[0].Symbol)
	}
}

func TestConfig_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickTimes = []string{"09:00", "10:30", "13:00"}
	assert.Error(t, cfg.normalize())

	cfg = DefaultConfig()
	cfg.TickTimes = []string{"09:00", "13:00", "10:30", "15:20"}
	assert.Error(t, cfg.normalize())

	cfg = DefaultConfig()
	cfg.InitialCapital = 0
	assert.Error(t, cfg.normalize())
}
