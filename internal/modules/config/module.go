package config

import (
	"go.uber.org/fx"

	"momentum_bot/internal/runner"
	"momentum_bot/internal/strategy"
)

// Module отдаёт *Config и производные секции, чтобы модули не лезли в чужие поля.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			func(c *Config) runner.Config { return c.RunnerConfig() },
			func(c *Config) strategy.Config { return c.Strategy },
		),
	)
}
