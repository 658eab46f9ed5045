package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/config"
)

func newAccountFixture(t *testing.T) (*Account, *int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v3/balance" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		calls++
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"asset":"USDT","balance":"1000","availableBalance":"900","crossWalletBalance":"1000","crossUnPnl":"0"}]`))
	}))
	t.Cleanup(srv.Close)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	signer, err := asterdex.NewSigner(addr, addr, hexKey(key))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	cfg := &config.Config{}
	cfg.Aster.BaseURL = srv.URL
	cfg.HTTP.RequestTimeout = 5 * time.Second
	cfg.HTTP.MaxAttempts = 1
	cfg.HTTP.RetryBaseDelay = time.Millisecond
	cfg.HTTP.RecvWindow = 5000
	cfg.BalanceCacheTTL = 5 * time.Second

	return NewAccount(cfg, asterdex.NewClient(cfg, signer)), &calls
}

func TestBalanceCacheServesWithinTTL(t *testing.T) {
	a, calls := newAccountFixture(t)
	now := time.Now()
	a.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := a.Balance(ctx, true)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if len(first) != 1 || first[0].Asset != "USDT" {
		t.Fatalf("unexpected balances: %+v", first)
	}
	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("exchange calls = %d, want 1 (second read cached)", *calls)
	}
}

func TestBalanceCacheExpires(t *testing.T) {
	a, calls := newAccountFixture(t)
	now := time.Now()
	a.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	now = now.Add(6 * time.Second)
	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("exchange calls = %d, want 2 after TTL expiry", *calls)
	}
}

func TestBalanceCacheBypass(t *testing.T) {
	a, calls := newAccountFixture(t)
	ctx := context.Background()

	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if _, err := a.Balance(ctx, false); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("exchange calls = %d, want 2 (bypass must skip the cache)", *calls)
	}
}

func TestBalanceCacheClear(t *testing.T) {
	a, calls := newAccountFixture(t)
	ctx := context.Background()

	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	a.ClearCache()
	if _, err := a.Balance(ctx, true); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("exchange calls = %d, want 2 after clearing the cache", *calls)
	}
}
