package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"aster_bot/internal/modules/config"
	"aster_bot/pkg/logger"
)

const (
	readTimeout      = 3 * time.Minute
	reconnectMin     = time.Second
	reconnectMax     = 30 * time.Second
	staleCacheCutoff = 5 * time.Minute
)

// Stream keeps a live mark price cache off the exchange's combined
// mark-price stream. Read side is lock-cheap, the single writer is the
// websocket read loop. Prices older than the staleness cutoff are not served.
type Stream struct {
	url    string
	dialer *websocket.Dialer

	mu      sync.RWMutex
	prices  map[string]pricePoint
	isConn  bool
	lastMsg time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

type pricePoint struct {
	price decimal.Decimal
	at    time.Time
}

func NewStream(cfg *config.Config) *Stream {
	return &Stream{
		url:    strings.TrimRight(cfg.Aster.StreamURL, "/") + "/ws/!markPrice@arr",
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		prices: make(map[string]pricePoint),
	}
}

// Start launches the read loop. Non-blocking, reconnects until Stop.
func (s *Stream) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *Stream) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// MarkPrice returns the last streamed mark price for symbol.
func (s *Stream) MarkPrice(symbol string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[strings.ToUpper(symbol)]
	if !ok || time.Since(p.at) > staleCacheCutoff {
		return decimal.Decimal{}, false
	}
	return p.price, true
}

// Connected reports whether the stream currently has a live connection.
func (s *Stream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConn
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	delay := reconnectMin
	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			logger.Error("markprice dial %s: %v", s.url, err)
			if !sleepReconnect(ctx, delay) {
				return
			}
			delay = min(delay*2, reconnectMax)
			continue
		}
		delay = reconnectMin
		s.setConnected(true)
		logger.Info("markprice stream connected: %s", s.url)

		s.readLoop(ctx, conn)
		s.setConnected(false)
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
			if !sleepReconnect(ctx, delay) {
				return
			}
		}
	}
}

// markPriceEvent is the per-symbol entry of the combined stream frame.
type markPriceEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Time   int64  `json:"E"`
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// the exchange pings periodically, replying keeps the connection alive
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("markprice read: %v", err)
			}
			return
		}

		var events []markPriceEvent
		if err := sonic.Unmarshal(msg, &events); err != nil {
			continue
		}
		s.apply(events)
	}
}

func (s *Stream) apply(events []markPriceEvent) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMsg = now
	for _, e := range events {
		if e.Event != "markPriceUpdate" || e.Symbol == "" {
			continue
		}
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			continue
		}
		s.prices[e.Symbol] = pricePoint{price: price, at: now}
	}
}

func (s *Stream) setConnected(v bool) {
	s.mu.Lock()
	s.isConn = v
	s.mu.Unlock()
}

func sleepReconnect(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
