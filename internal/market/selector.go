package market

import (
	"context"
	"errors"
	"sync"

	"trdb-estimator/internal/pricing"
)

// ErrSuperseded reports that another Switch started while this one was
// in flight; its result was discarded.
var ErrSuperseded = errors.New("market switch superseded")

// Selector holds the active market selection. The market value is always
// replaced wholesale, never partially mutated, and a failed or stale
// switch leaves the previously loaded market active.
type Selector struct {
	loader *Loader

	mu      sync.Mutex
	token   uint64
	current *pricing.Market
}

func NewSelector(loader *Loader) *Selector {
	return &Selector{loader: loader}
}

// Current returns the active market, or nil before the first successful
// Switch.
func (s *Selector) Current() *pricing.Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Switch loads a market and makes it active. Each call invalidates any
// switch still in flight: a fetch that completes after a newer Switch
// has started is discarded with ErrSuperseded instead of clobbering the
// newer selection.
func (s *Selector) Switch(ctx context.Context, id string) (*pricing.Market, error) {
	s.mu.Lock()
	s.token++
	token := s.token
	s.mu.Unlock()

	m, err := s.loader.Load(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	s.current = m
	return m, nil
}
