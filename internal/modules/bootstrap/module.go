package bootstrap

import (
	"go.uber.org/fx"

	bars "momentum_bot/internal/modules/bars/service"
	bootstrap "momentum_bot/internal/modules/bootstrap/service"
	"momentum_bot/internal/modules/config"
)

// Module отдаёт Warmuper; сам прогрев запускает strategy-модуль перед сессией,
// когда watchlist уже известен.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(cfg *config.Config, store *bars.Store) *bootstrap.Warmuper {
				return bootstrap.NewWarmuper(store, cfg.Data.WarmupDays, cfg.Data.WarmupLimit)
			},
		),
	)
}

// compile-time: стор годится как источник свечей
var _ bootstrap.BarSource = (*bars.Store)(nil)
