package alerts

import (
	"context"

	"go.uber.org/fx"

	"momentum_bot/internal/modules/config"
	"momentum_bot/internal/notify"
	"momentum_bot/pkg/logger"
)

// Module: Telegram при наличии токена, иначе всё в лог; сверху троттлинг по ключу события.
func Module() fx.Option {
	return fx.Module("alerts",
		fx.Provide(
			func(cfg *config.Config) (*notify.Telegram, error) {
				if cfg.Telegram.Token == "" || !cfg.Alerts.Enabled {
					return nil, nil
				}
				return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			func(cfg *config.Config, tg *notify.Telegram) *notify.Throttled {
				var base notify.Notifier = notify.NewStdout()
				if tg != nil {
					base = tg
				}
				return notify.NewThrottled(base, cfg.Alerts.MinInterval)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, tg *notify.Telegram) {
			if tg == nil {
				logger.Info("alerts: telegram disabled, using log output")
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return tg.Start(ctx)
				},
				OnStop: func(context.Context) error {
					cancel()
					tg.Stop()
					return nil
				},
			})
		}),
	)
}
