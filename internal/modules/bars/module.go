package bars

import (
	"go.uber.org/fx"

	"momentum_bot/internal/modules/bars/service"
	"momentum_bot/internal/modules/config"
)

// Module - файловое хранилище дневных свечей (бэктест, прогрев объёмов, индекс для режима рынка).
func Module() fx.Option {
	return fx.Module("bars",
		fx.Provide(
			func(cfg *config.Config) *service.Store {
				return service.NewStore(cfg.Data.BarDir)
			},
		),
	)
}
