package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"momentum_bot/internal/modules/config"
	"momentum_bot/pkg/db"
	"momentum_bot/pkg/logger"
)

// Module поднимает пул только при заданном db_dsn; без него журнал отключён (nil).
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Warn("postgres: db_dsn is empty, journal disabled")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB,
					MaxConns: 4,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err = poolMaster.Ping(ctx); err != nil {
					poolMaster.Close()
					return nil, err
				}

				tm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						tm.Close()
						return nil
					},
				})
				return tm, nil
			},
		),
	)
}
