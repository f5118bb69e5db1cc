package strategy

import (
	"context"

	"go.uber.org/fx"

	bars "momentum_bot/internal/modules/bars/service"
	bootstrap "momentum_bot/internal/modules/bootstrap/service"
	broker "momentum_bot/internal/modules/broker/service"
	feed "momentum_bot/internal/modules/feed/service"
	health "momentum_bot/internal/modules/health/service"
	journal "momentum_bot/internal/modules/journal/service"
	"momentum_bot/internal/notify"
	"momentum_bot/internal/runner"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
)

func newEngine(scfg strategy.Config, quotes *feed.Client, store *bars.Store) (*strategy.Momentum, error) {
	regime := strategy.NewIndexRegime(store, scfg.IndexCode, scfg.IndexLookback)
	return strategy.New(scfg, strategy.ModeLive,
		strategy.WithRegime(regime),
		strategy.WithRanking(quotes),
	)
}

func newRunner(
	rcfg runner.Config,
	eng *strategy.Momentum,
	quotes *feed.Client,
	gw *broker.Paper,
	alerts *notify.Throttled,
	j *journal.Journal,
	state *health.State,
) (*runner.Runner, error) {
	d := runner.Deps{
		Engine:  eng,
		Quotes:  quotes,
		Gateway: gw,
		Alerts:  alerts,
		Health:  state,
	}
	if j != nil {
		d.Journal = j
	}
	return runner.New(rcfg, d)
}

// Module собирает движок и крутит live-сессию; по её завершении гасит приложение.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newEngine,
			newRunner,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			sh fx.Shutdowner,
			scfg strategy.Config,
			eng *strategy.Momentum,
			r *runner.Runner,
			wu *bootstrap.Warmuper,
			tg *notify.Telegram,
		) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if tg != nil {
						tg.SetStatusFunc(r.Status)
					}
					go func() {
						defer close(done)

						syms := append(append([]string(nil), scfg.Watchlist...), scfg.InverseSymbols...)
						wu.Warmup(ctx, syms, eng)

						if err := r.RunSession(ctx); err != nil {
							logger.Error("strategy: session: %v", err)
						}
						if ctx.Err() == nil {
							_ = sh.Shutdown()
						}
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
						logger.Warn("strategy: session did not stop in time")
					}
					return nil
				},
			})
		}),
	)
}
