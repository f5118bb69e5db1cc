package feed

import (
	"context"

	"go.uber.org/fx"

	"momentum_bot/internal/modules/config"
	"momentum_bot/internal/modules/feed/service"
	healthsvc "momentum_bot/internal/modules/health/service"
	"momentum_bot/pkg/logger"
)

// Module поднимает WS-фид котировок; он же источник рейтинга движений.
func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(
			func(cfg *config.Config, state *healthsvc.State) *service.Client {
				return service.NewClient(service.Config{
					URL:          cfg.Feed.URL,
					ReconnectMin: cfg.Feed.ReconnectMin,
					ReconnectMax: cfg.Feed.ReconnectMax,
					StaleAfter:   cfg.Feed.StaleAfter,
				}, state)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, cfg *config.Config) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if cfg.Feed.URL == "" {
						logger.Warn("feed: url is empty, quotes will not arrive")
						return nil
					}
					c.Subscribe(cfg.Strategy.Watchlist)
					c.Subscribe(cfg.Strategy.InverseSymbols)
					go c.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
