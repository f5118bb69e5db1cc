package broker

import (
	"context"

	"go.uber.org/fx"

	"momentum_bot/internal/models"
	"momentum_bot/internal/modules/broker/service"
	feed "momentum_bot/internal/modules/feed/service"
	"momentum_bot/pkg/logger"
)

// Module отдаёт бумажный шлюз поверх цен фида; на остановке пишет итог по исполнениям.
func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			func(c *feed.Client) *service.Paper {
				return service.NewPaper(c)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, p *service.Paper) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					var buys, sells int
					var turnover int64
					for _, f := range p.Filled() {
						if f.Side == models.SideBuy {
							buys++
						} else {
							sells++
						}
						turnover += f.FilledPrice * f.FilledQty
					}
					logger.Info("broker: paper session closed: %d buys, %d sells, turnover %d", buys, sells, turnover)
					return nil
				},
			})
		}),
	)
}
