package journal

import (
	"context"

	"go.uber.org/fx"

	"momentum_bot/internal/modules/journal/service"
	"momentum_bot/pkg/db"
	"momentum_bot/pkg/logger"
)

// Module - журнал сделок; nil, если postgres не настроен.
func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			func(tm *db.PgTxManager) *service.Journal {
				if tm == nil {
					return nil
				}
				return service.New(tm)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, j *service.Journal) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if j == nil {
						return nil
					}
					if err := j.EnsureSchema(ctx); err != nil {
						return err
					}
					logger.Info("journal: schema ready")
					return nil
				},
			})
		}),
	)
}
