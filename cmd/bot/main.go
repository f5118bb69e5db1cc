package main

import (
	"context"

	"go.uber.org/fx"

	"momentum_bot/internal/modules/alerts"
	"momentum_bot/internal/modules/bars"
	"momentum_bot/internal/modules/bootstrap"
	"momentum_bot/internal/modules/broker"
	"momentum_bot/internal/modules/config"
	"momentum_bot/internal/modules/feed"
	"momentum_bot/internal/modules/health"
	"momentum_bot/internal/modules/journal"
	"momentum_bot/internal/modules/postgres"
	"momentum_bot/internal/modules/strategy"
	"momentum_bot/pkg/logger"
	"momentum_bot/pkg/tracing"
)

// initObservability поднимает логгер и (если задан host) jaeger до остальных модулей.
func initObservability(lc fx.Lifecycle, cfg *config.Config) error {
	if err := logger.Init(cfg.Service.LogLevel, cfg.Service.Name); err != nil {
		return err
	}
	closer, err := tracing.Init(cfg.Service.Name, cfg.Tracing)
	if err != nil {
		logger.Warn("tracing disabled: %v", err)
		closer = func() {}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			logger.Sync()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Module("observability", fx.Invoke(initObservability)),
		health.Module(),
		postgres.Module(),
		journal.Module(),
		bars.Module(),
		bootstrap.Module(),
		feed.Module(),
		broker.Module(),
		alerts.Module(),
		strategy.Module(),
	)
	app.Run()
}
