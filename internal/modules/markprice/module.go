package markprice

import (
	"context"

	"go.uber.org/fx"

	"aster_bot/internal/modules/markprice/service"
)

// Module — стрим mark price с биржи, живёт весь срок приложения.
func Module() fx.Option {
	return fx.Module("markprice",
		fx.Provide(
			service.NewStream,
		),
		fx.Invoke(func(lc fx.Lifecycle, stream *service.Stream) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					stream.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					stream.Stop()
					return nil
				},
			})
		}),
	)
}
