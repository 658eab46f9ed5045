package config

import "go.uber.org/fx"

// Конфиг собирается один раз и раздаётся остальным модулям через fx.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
