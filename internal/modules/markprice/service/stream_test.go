package service

import (
	"testing"
	"time"

	"aster_bot/internal/modules/config"
)

func newCacheOnlyStream() *Stream {
	cfg := &config.Config{}
	cfg.Aster.StreamURL = "wss://example.invalid"
	return NewStream(cfg)
}

func TestApplyUpdatesCache(t *testing.T) {
	s := newCacheOnlyStream()
	s.apply([]markPriceEvent{
		{Event: "markPriceUpdate", Symbol: "BTCUSDT", Price: "50123.45"},
		{Event: "markPriceUpdate", Symbol: "ETHUSDT", Price: "3010.1"},
		{Event: "otherEvent", Symbol: "XRPUSDT", Price: "1"},
		{Event: "markPriceUpdate", Symbol: "DOGEUSDT", Price: "not-a-number"},
	})

	price, ok := s.MarkPrice("btcusdt")
	if !ok {
		t.Fatal("expected cached price for BTCUSDT (lookup is case-insensitive)")
	}
	if price.String() != "50123.45" {
		t.Fatalf("price = %s, want 50123.45", price)
	}

	if _, ok := s.MarkPrice("XRPUSDT"); ok {
		t.Fatal("non mark-price events must be ignored")
	}
	if _, ok := s.MarkPrice("DOGEUSDT"); ok {
		t.Fatal("unparseable prices must be dropped")
	}
	if _, ok := s.MarkPrice("SOLUSDT"); ok {
		t.Fatal("unknown symbol must miss")
	}
}

func TestStalePricesAreNotServed(t *testing.T) {
	s := newCacheOnlyStream()
	s.apply([]markPriceEvent{{Event: "markPriceUpdate", Symbol: "BTCUSDT", Price: "50000"}})

	s.mu.Lock()
	p := s.prices["BTCUSDT"]
	p.at = time.Now().Add(-staleCacheCutoff - time.Minute)
	s.prices["BTCUSDT"] = p
	s.mu.Unlock()

	if _, ok := s.MarkPrice("BTCUSDT"); ok {
		t.Fatal("stale prices must not be served")
	}
}

func TestStreamURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Aster.StreamURL = "wss://fstream.asterdex.com/"
	s := NewStream(cfg)
	want := "wss://fstream.asterdex.com/ws/!markPrice@arr"
	if s.url != want {
		t.Fatalf("url = %s, want %s", s.url, want)
	}
}
