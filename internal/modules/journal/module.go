package journal

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"aster_bot/internal/modules/config"
	"aster_bot/internal/modules/journal/service"
	"aster_bot/pkg/db"
	"aster_bot/pkg/logger"
)

// Module — журнал исполнений. Без DSN работает как no-op.
func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*service.Journal, error) {
				if cfg.DB == "" {
					logger.Info("journal disabled: no database DSN configured")
					return service.NewJournal(nil), nil
				}

				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create journal pool: %w", err)
				}
				if err := pool.Ping(ctx); err != nil {
					return nil, err
				}

				return service.NewJournal(db.NewPgTxManager(pool)), nil
			},
		),
	)
}
