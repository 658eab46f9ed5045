package asterdex

import (
	"aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"

	"go.uber.org/fx"
)

// Module поднимает подписанта и REST-клиент биржи.
// Несовпадение ключа и signer-адреса валит приложение на старте.
func Module() fx.Option {
	return fx.Module("asterdex",
		fx.Provide(
			func(cfg *config.Config) (*service.Signer, error) {
				return service.NewSigner(
					cfg.Aster.UserAddress,
					cfg.Aster.SignerAddress,
					cfg.Aster.PrivateKey,
				)
			},
			service.NewClient,
		),
	)
}
