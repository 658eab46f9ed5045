package service

import (
	"context"
	"sync"
	"time"

	"aster_bot/internal/models"
	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
	"aster_bot/internal/modules/metrics"
)

// Account serves account balances and info. Balances are cached for a short
// TTL, concurrent refreshes are allowed and the last writer wins.
type Account struct {
	client *asterdex.Client
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cached   []models.BalanceView
	cachedAt time.Time
}

func NewAccount(cfg *config.Config, client *asterdex.Client) *Account {
	return &Account{client: client, ttl: cfg.BalanceCacheTTL, now: time.Now}
}

// Balance returns the asset balances. With useCache a result younger than the
// TTL is served without touching the exchange.
func (a *Account) Balance(ctx context.Context, useCache bool) ([]models.BalanceView, error) {
	if useCache {
		a.mu.RLock()
		cached, at := a.cached, a.cachedAt
		a.mu.RUnlock()
		if cached != nil && a.now().Sub(at) < a.ttl {
			metrics.BalanceCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.BalanceCache.WithLabelValues("miss").Inc()
	} else {
		metrics.BalanceCache.WithLabelValues("bypass").Inc()
	}

	balances, err := a.client.AccountBalance(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.BalanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, b.View())
	}

	a.mu.Lock()
	a.cached = views
	a.cachedAt = a.now()
	a.mu.Unlock()
	return views, nil
}

// Info returns the full account state, never cached.
func (a *Account) Info(ctx context.Context) (asterdex.Account, error) {
	return a.client.AccountInfo(ctx)
}

// ClearCache drops the cached balances, the next read hits the exchange.
func (a *Account) ClearCache() {
	a.mu.Lock()
	a.cached = nil
	a.cachedAt = time.Time{}
	a.mu.Unlock()
}
