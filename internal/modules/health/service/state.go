package service

import (
	"context"
	"sync/atomic"
	"time"
)

// State tracks process health for the admin endpoints. Probes are injected
// after construction: stream connectivity comes from the mark-price stream,
// exchange reachability from the REST client's ping.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	streamConnected func() bool
	exchangePing    func(ctx context.Context) error
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetProbes(streamConnected func() bool, exchangePing func(ctx context.Context) error) {
	s.streamConnected = streamConnected
	s.exchangePing = exchangePing
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) StreamConnected() bool {
	if s.streamConnected == nil {
		return false
	}
	return s.streamConnected()
}

// ExchangeReachable pings the exchange with a short deadline.
func (s *State) ExchangeReachable(ctx context.Context) bool {
	if s.exchangePing == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.exchangePing(ctx) == nil
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
