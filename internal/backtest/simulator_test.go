package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
)

func TestSimulator_EndToEndNetPnL(t *testing.T) {
	bars := memBars{"X": {bar("X", 4, 10_000, 12_000, 10_000, 12_000, 1_000)}}
	strat := &scripted{plan: map[int][]models.Order{
		0: {buy("X", 10)},
		2: {sell("X", 10)},
	}}

	sim, err := NewSimulator(DefaultConfig(), strat, bars, nil, []string{"X"})
	require.NoError(t, err)

	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000), res.InitialCapital)
	assert.Equal(t, int64(1_019_727), res.FinalCapital)
	require.Len(t, res.Trades, 2)

	b, s := res.Trades[0], res.Trades[1]
	assert.Equal(t, models.SideBuy, b.Side)
	assert.Equal(t, int64(10_000), b.Price)
	assert.Equal(t, int64(15), b.Commission)
	assert.Equal(t, models.SideSell, s.Side)
	assert.Equal(t, int64(12_000), s.Price)
	assert.Equal(t, int64(18), s.Commission)
	assert.Equal(t, int64(240), s.Tax)
	assert.Equal(t, int64(19_727), s.PnL)
	assert.False(t, s.Forced)

	require.Len(t, res.Days, 1)
	assert.Equal(t, int64(19_727), res.Days[0].RealizedPnL)
	assert.Equal(t, 2, res.Days[0].TradeCount)
	assert.Equal(t, 1, res.WinningTrades)
	assert.InDelta(t, 1.9727, res.TotalReturnPct(), 1e-9)

	require.Len(t, strat.results, 2)
	assert.True(t, strat.results[0].Success)
	assert.Equal(t, int64(12_000), strat.results[1].FilledPrice)
}

func TestSimulator_OneTickFillDelay(t *testing.T) {
	bars := memBars{"X": {bar("X", 4, 100, 110, 95, 105, 1_000)}}
	strat := &scripted{plan: map[int][]models.Order{0: {buy("X", 1)}}}

	sim, err := NewSimulator(DefaultConfig(), strat, bars, nil, []string{"X"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, int64(95), res.Trades[0].Price, "decided at open, filled at the next tick")
	assert.Equal(t, int64(105), res.Trades[1].Price)
	assert.True(t, res.Trades[1].Forced)
}

func TestSimulator_ForcedLiquidationEmptiesPositions(t *testing.T) {
	bars := memBars{
		"X": {bar("X", 4, 1_000, 1_100, 950, 1_050, 10), bar("X", 5, 1_050, 1_060, 900, 950, 10)},
		"Y": {bar("Y", 4, 2_000, 2_100, 1_900, 2_050, 10)},
	}
	strat := &scripted{plan: map[int][]models.Order{0: {buy("X", 5), buy("Y", 3)}}}

	sim, err := NewSimulator(DefaultConfig(), strat, bars, nil, []string{"X", "Y"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(5))
	require.NoError(t, err)

	require.Len(t, res.Days, 2)
	for _, d := range res.Days {
		assert.Zero(t, d.PositionsHeld)
	}

	var sum int64
	sells := 0
	for _, tr := range res.Trades {
		if tr.Side == models.SideSell {
			sells++
			sum += tr.PnL
			assert.True(t, tr.Forced)
		}
	}
	assert.Equal(t, 3, sells)
	assert.Equal(t, res.InitialCapital+sum, res.FinalCapital)
	assert.Equal(t, 2, strat.inits)
}

func TestSimulator_PendingAtCloseFillsAtClose(t *testing.T) {
	bars := memBars{"X": {bar("X", 4, 10_000, 10_500, 9_900, 10_200, 1_000)}}
	strat := &scripted{plan: map[int][]models.Order{3: {buy("X", 10)}}}

	sim, err := NewSimulator(DefaultConfig(), strat, bars, nil, nil)
	require.NoError(t, err)
	strat.symbols = []string{"X"}

	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, int64(10_200), res.Trades[0].Price)
	// round-trip at the same price costs both commissions and tax
	assert.Equal(t, -int64(15+15+204), res.Trades[1].PnL)
}

func TestSimulator_RejectsUnaffordableBuy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCapital = 50_000
	bars := memBars{"X": {bar("X", 4, 10_000, 10_000, 10_000, 10_000, 1)}}
	strat := &scripted{plan: map[int][]models.Order{0: {buy("X", 10)}, 2: {sell("X", 10)}}}

	sim, err := NewSimulator(cfg, strat, bars, nil, []string{"X"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, int64(50_000), res.FinalCapital)
	require.Len(t, strat.results, 2)
	assert.False(t, strat.results[0].Success)
	assert.Equal(t, models.SideBuy, strat.results[0].Side)
	assert.False(t, strat.results[1].Success, "sell without a position")
}

func TestSimulator_SlippageAdjustsFills(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageBps = 10
	bars := memBars{"X": {bar("X", 4, 10_000, 10_000, 10_000, 10_000, 1)}}
	strat := &scripted{plan: map[int][]models.Order{0: {buy("X", 1)}}}

	sim, err := NewSimulator(cfg, strat, bars, nil, []string{"X"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, int64(10_010), res.Trades[0].Price)
	assert.Equal(t, int64(9_990), res.Trades[1].Price)
}

func TestSimulator_AvgVolumesFromPriorBars(t *testing.T) {
	bars := memBars{"X": {
		bar("X", 1, 100, 100, 100, 100, 100),
		bar("X", 4, 100, 100, 100, 100, 300),
		bar("X", 5, 100, 100, 100, 100, 900),
	}}
	strat := &scripted{}

	sim, err := NewSimulator(DefaultConfig(), strat, bars, nil, []string{"X"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(5))
	require.NoError(t, err)

	require.Len(t, res.Days, 2, "warmup bars are not traded")
	require.Len(t, strat.avgVol, 2)
	assert.Equal(t, int64(100), strat.avgVol[0]["X"])
	assert.Equal(t, int64(200), strat.avgVol[1]["X"])

	// prior close feeds the change rate
	assert.InDelta(t, 0.0, strat.batches[0][0].ChangeRate, 1e-9)
}

func TestSimulator_BarDayInSimulationZone(t *testing.T) {
	// полночь KST, записанная в UTC: 2024-03-03T15:00Z
	b := bar("X", 4, 100, 110, 95, 105, 1_000)
	b.Date = b.Date.UTC()
	strat := &scripted{}

	sim, err := NewSimulator(DefaultConfig(), strat, memBars{"X": {b}}, nil, []string{"X"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(4))
	require.NoError(t, err)

	require.Len(t, res.Days, 1)
	assert.Equal(t, "20240304", res.Days[0].Date)
	require.Len(t, strat.batches, 4)
	assert.Equal(t, int64(100), strat.batches[0][0].Price)
}

func TestSimulator_CancelledBetweenDays(t *testing.T) {
	bars := memBars{"X": {bar("X", 4, 100, 100, 100, 100, 1)}}
	sim, err := NewSimulator(DefaultConfig(), &scripted{}, bars, nil, []string{"X"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Run(ctx, day(4), day(4))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulator_WithMomentumEngine(t *testing.T) {
	bars := memBars{
		"A": {
			bar("A", 4, 10_000, 10_500, 9_900, 10_400, 1_000_000),
			bar("A", 5, 10_400, 10_900, 10_300, 10_800, 1_000_000),
			bar("A", 6, 10_800, 10_850, 10_100, 10_200, 1_000_000),
		},
		"B": {
			bar("B", 4, 5_000, 5_050, 4_950, 5_000, 200_000),
			bar("B", 5, 5_000, 5_100, 4_900, 4_950, 200_000),
		},
	}

	bcfg := DefaultConfig()
	clock := NewSimClock(day(4))

	scfg := strategy.DefaultConfig()
	scfg.Location = bcfg.Location
	engine, err := strategy.New(scfg, strategy.ModeBacktest,
		strategy.WithClock(clock),
		strategy.WithPoolOverride([]string{"A", "B"}),
	)
	require.NoError(t, err)

	sim, err := NewSimulator(bcfg, engine, bars, clock, []string{"A", "B"})
	require.NoError(t, err)
	res, err := sim.Run(context.Background(), day(4), day(6))
	require.NoError(t, err)

	require.Len(t, res.Days, 3)
	assert.NotEmpty(t, res.Trades)

	var sum int64
	for _, tr := range res.Trades {
		if tr.Side == models.SideSell {
			sum += tr.PnL
		}
	}
	for _, d := range res.Days {
		assert.Zero(t, d.PositionsHeld)
	}
	assert.Empty(t, engine.Positions(), "engine saw the forced liquidation fills")
	assert.Equal(t, res.InitialCapital+sum, res.FinalCapital)
}
