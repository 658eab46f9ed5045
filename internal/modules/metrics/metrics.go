// Package metrics holds the Prometheus collectors the bot updates during
// operation:
//   - bot_webhook_requests_total{endpoint,outcome} – webhook calls by result
//   - bot_orders_total{action,side}                – orders submitted
//   - bot_exchange_requests_total{endpoint,status} – exchange HTTP calls
//   - bot_exchange_retries_total{endpoint}         – retry attempts
//   - bot_balance_cache_hits_total{result}         – balance cache hit/miss
//
// Served by the admin HTTP server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_webhook_requests_total",
			Help: "Webhook requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders submitted to the exchange",
		},
		[]string{"action", "side"},
	)

	ExchangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exchange_requests_total",
			Help: "Exchange HTTP calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	ExchangeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exchange_retries_total",
			Help: "Retried exchange calls",
		},
		[]string{"endpoint"},
	)

	BalanceCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_balance_cache_hits_total",
			Help: "Balance cache lookups",
		},
		[]string{"result"}, // hit|miss|bypass
	)
)

func init() {
	prometheus.MustRegister(
		WebhookRequests,
		Orders,
		ExchangeRequests,
		ExchangeRetries,
		BalanceCache,
	)
}
