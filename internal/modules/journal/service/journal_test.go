package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"momentum_bot/internal/backtest"
	"momentum_bot/internal/models"
	"momentum_bot/pkg/db"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("journal"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	j := New(db.NewPgTxManager(pool))
	require.NoError(t, j.EnsureSchema(ctx))
	require.NoError(t, j.EnsureSchema(ctx), "schema is idempotent")
	return j
}

func TestJournal_Fills(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)

	buy := models.Order{Symbol: "005930", Side: models.SideBuy, Type: models.OrderMarket, Quantity: 3, Reason: "entry score=3.50"}
	require.NoError(t, j.SaveFill(ctx, "run-1", buy, models.OrderResult{
		Success: true, Symbol: "005930", Side: models.SideBuy, FilledQty: 3, FilledPrice: 71_000, OrderRef: "paper-1", Timestamp: at,
	}))
	sell := models.Order{Symbol: "005930", Side: models.SideSell, Type: models.OrderMarket, Quantity: 3, Reason: "take_profit"}
	require.NoError(t, j.SaveFill(ctx, "run-1", sell, models.OrderResult{Symbol: "005930", Side: models.SideSell, Message: "rejected", Timestamp: at}))
	require.NoError(t, j.SaveFill(ctx, "run-2", buy, models.OrderResult{Success: true, Timestamp: at}))

	fills, err := j.Fills(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, buy, fills[0].Order)
	assert.True(t, fills[0].Result.Success)
	assert.Equal(t, int64(71_000), fills[0].Result.FilledPrice)
	assert.True(t, fills[0].Result.Timestamp.Equal(at))
	assert.False(t, fills[1].Result.Success)
	assert.Equal(t, "rejected", fills[1].Result.Message)
}

func TestJournal_Backtest(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	kst := time.FixedZone("KST", 9*3600)

	r := &backtest.Result{
		RunID:          "bt-run",
		Start:          time.Date(2024, 3, 4, 0, 0, 0, 0, kst),
		End:            time.Date(2024, 3, 5, 0, 0, 0, 0, kst),
		InitialCapital: 1_000_000,
		FinalCapital:   1_019_727,
		TotalTrades:    1,
		WinningTrades:  1,
		Trades: []backtest.TradeRecord{
			{Date: "20240304", Time: time.Date(2024, 3, 4, 10, 30, 0, 0, kst), Symbol: "A", Side: models.SideBuy, Quantity: 100, Price: 10_000, Commission: 150},
			{Date: "20240304", Time: time.Date(2024, 3, 4, 13, 0, 0, 0, kst), Symbol: "A", Side: models.SideSell, Quantity: 100, Price: 10_200, Commission: 153, Tax: 2_040, PnL: 19_727},
		},
		Days: []backtest.DailyRecord{{Date: "20240304", Capital: 1_019_727, RealizedPnL: 19_727, TradeCount: 2}},
	}
	require.NoError(t, j.SaveBacktest(ctx, r))
	assert.Error(t, j.SaveBacktest(ctx, r), "run id is unique")

	got, err := j.Backtest(ctx, "bt-run")
	require.NoError(t, err)
	assert.Equal(t, r.FinalCapital, got.FinalCapital)
	require.Len(t, got.Trades, 2)
	assert.Equal(t, int64(19_727), got.Trades[1].PnL)
	assert.Equal(t, r.Days, got.Days)

	_, err = j.Backtest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
