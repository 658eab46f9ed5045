package trading

import (
	"context"

	"go.uber.org/fx"

	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
	journalservice "aster_bot/internal/modules/journal/service"
	markprice "aster_bot/internal/modules/markprice/service"
	"aster_bot/internal/modules/trading/service"
	"aster_bot/internal/notify"
)

// Module — резолвер сигналов и исполнение ордеров.
func Module() fx.Option {
	return fx.Module("trading",
		fx.Provide(
			func(cfg *config.Config) (*notify.Telegram, error) {
				return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
			func(client *asterdex.Client, stream *markprice.Stream) *service.Positions {
				return service.NewPositions(client, stream)
			},
			service.NewAccount,
			func(client *asterdex.Client, positions *service.Positions, tg *notify.Telegram, journal *journalservice.Journal) *service.Trading {
				return service.NewTrading(client, positions, tg, journal)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, tg *notify.Telegram, positions *service.Positions, account *service.Account) {
			tg.SetSources(positions, account)
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return tg.Start(context.Background())
				},
				OnStop: func(ctx context.Context) error {
					tg.Stop()
					return nil
				},
			})
		}),
	)
}
