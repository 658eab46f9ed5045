package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"aster_bot/internal/modules/asterdex"
	"aster_bot/internal/modules/config"
	"aster_bot/internal/modules/health"
	"aster_bot/internal/modules/journal"
	"aster_bot/internal/modules/markprice"
	"aster_bot/internal/modules/trading"
	"aster_bot/internal/modules/webhook"
	"aster_bot/pkg/logger"
	"aster_bot/pkg/tracing"
)

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(func(cfg *config.Config) error {
			if err := logger.Init(cfg.LogLevel); err != nil {
				return err
			}
			logger.SetServiceName("aster_bot")
			logger.Info("configuration loaded: base_url=%s webhook_secret_configured=%t default_leverage=%d default_margin_type=%s",
				cfg.Aster.BaseURL, cfg.WebhookSecretConfigured(), cfg.Trading.DefaultLeverage, cfg.Trading.DefaultMarginType)
			if cfg.Jaeger.Host != "" {
				tracing.SetServiceName("aster_bot")
				if _, _, err := tracing.InitTracer(tracing.Config{Host: cfg.Jaeger.Host, Port: cfg.Jaeger.Port}); err != nil {
					logger.Error("tracer init failed: %v", err)
				}
			}
			return nil
		}),
		asterdex.Module(),
		markprice.Module(),
		journal.Module(),
		trading.Module(),
		webhook.Module(),
		health.Module(),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
	logger.Sync()
}
