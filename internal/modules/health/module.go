package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
	"aster_bot/internal/modules/health/service"
	markprice "aster_bot/internal/modules/markprice/service"
	"aster_bot/pkg/logger"
)

func newAdminMux(cfg *config.Config, state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: сервис готов обслуживать трафик
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		resp := map[string]any{
			"ready":             state.Ready(),
			"streamConnected":   state.StreamConnected(),
			"exchangeReachable": state.ExchangeReachable(r.Context()),
			"uptimeSec":         int64(state.Uptime().Seconds()),
			"config": map[string]any{
				"base_url":                  cfg.Aster.BaseURL,
				"webhook_secret_configured": cfg.WebhookSecretConfigured(),
				"api_key_configured":        cfg.APIKeyConfigured(),
				"default_leverage":          cfg.Trading.DefaultLeverage,
				"default_margin_type":       cfg.Trading.DefaultMarginType,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		data, _ := sonic.Marshal(resp)
		_, _ = w.Write(data)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func run(lc fx.Lifecycle, cfg *config.Config, state *service.State, stream *markprice.Stream, client *asterdex.Client) {
	state.SetProbes(stream.Connected, client.Ping)

	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newAdminMux(cfg, state),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("admin server listening on %s", addr)
			go func() { _ = srv.Serve(ln) }()
			state.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
		),
		fx.Invoke(run),
	)
}
