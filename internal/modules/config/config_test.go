package config

import (
	"testing"
	"time"

	"aster_bot/internal/apperr"
)

func TestLoadValid(t *testing.T) {
	cfg, err := Load("testdata/values_valid.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Aster.BaseURL != "https://fapi.asterdex.com" {
		t.Fatalf("base url default = %s", cfg.Aster.BaseURL)
	}
	// addresses are normalized to lowercase
	if cfg.Aster.UserAddress != "0xa1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0" {
		t.Fatalf("user address not lowercased: %s", cfg.Aster.UserAddress)
	}
	if cfg.Service.PublicPort != 8100 || cfg.Service.AdminPort != 9100 {
		t.Fatalf("ports = %d/%d", cfg.Service.PublicPort, cfg.Service.AdminPort)
	}
	if cfg.Trading.DefaultLeverage != 25 {
		t.Fatalf("leverage = %d, want 25", cfg.Trading.DefaultLeverage)
	}
	if cfg.Trading.DefaultMarginType != "ISOLATED" {
		t.Fatalf("margin type not normalized: %s", cfg.Trading.DefaultMarginType)
	}
	if !cfg.WebhookSecretConfigured() || cfg.WebhookSecret != "top-secret" {
		t.Fatalf("webhook secret = %q", cfg.WebhookSecret)
	}
	if cfg.HTTP.MaxAttempts != 3 || cfg.HTTP.RetryBaseDelay != 2*time.Second {
		t.Fatalf("retry defaults = %d/%s", cfg.HTTP.MaxAttempts, cfg.HTTP.RetryBaseDelay)
	}
	if cfg.BalanceCacheTTL != 5*time.Second {
		t.Fatalf("balance cache ttl = %s, want 5s", cfg.BalanceCacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %s", cfg.LogLevel)
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "env-secret")
	t.Setenv("API_KEY", "env-key")

	cfg, err := Load("testdata/values_valid.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebhookSecret != "env-secret" {
		t.Fatalf("webhook secret = %q, want env override", cfg.WebhookSecret)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env override", cfg.APIKey)
	}
}

func TestLoadEnvTuning(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "500ms")
	t.Setenv("BALANCE_CACHE_TTL", "10s")

	cfg, err := Load("testdata/values_valid.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d, want 5", cfg.HTTP.MaxAttempts)
	}
	if cfg.HTTP.RetryBaseDelay != 500*time.Millisecond {
		t.Fatalf("retry base delay = %s, want 500ms", cfg.HTTP.RetryBaseDelay)
	}
	if cfg.BalanceCacheTTL != 10*time.Second {
		t.Fatalf("balance cache ttl = %s, want 10s", cfg.BalanceCacheTTL)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	_, err := Load("testdata/values_bad_address.yaml")
	if err == nil {
		t.Fatal("expected error for malformed user address")
	}
	if !apperr.IsKind(err, apperr.KindConfiguration) {
		t.Fatalf("kind = %v, want configuration", apperr.KindOf(err))
	}
}

func TestLoadRejectsBadLeverage(t *testing.T) {
	// the minimal config has no trading section, so the env default applies
	t.Setenv("DEFAULT_LEVERAGE", "200")

	_, err := Load("testdata/values_minimal.yaml")
	if err == nil {
		t.Fatal("expected error for leverage out of range")
	}
	if !apperr.IsKind(err, apperr.KindConfiguration) {
		t.Fatalf("kind = %v, want configuration", apperr.KindOf(err))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
