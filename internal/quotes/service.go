package quotes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service fronts a Provider with logging and an optional minimum interval
// between upstream calls. With minInterval zero every request goes upstream,
// which is the default: downloads serve live quotes and a provider failure is
// terminal for the request.
type Service struct {
	provider    Provider
	minInterval time.Duration

	mu        sync.Mutex
	lastFetch time.Time
	cache     map[string]Asset
}

func NewService(provider Provider, minInterval time.Duration) *Service {
	if minInterval < 0 {
		minInterval = 0
	}
	return &Service{
		provider:    provider,
		minInterval: minInterval,
		cache:       make(map[string]Asset),
	}
}

func (s *Service) FetchQuotes(ctx context.Context, symbols []string) ([]Asset, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("quote provider not configured")
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols is empty")
	}

	if s.minInterval > 0 {
		s.mu.Lock()
		if time.Since(s.lastFetch) < s.minInterval {
			cached, err := s.fromCacheLocked(symbols)
			s.mu.Unlock()
			if err == nil {
				log.WithField("symbols", symbols).Debug("serving quotes from cache")
				return cached, nil
			}
		} else {
			s.mu.Unlock()
		}
	}

	log.WithField("symbols", strings.Join(symbols, ",")).Info("fetching crypto quotes")
	assets, err := s.provider.FetchQuotes(ctx, symbols)
	if err != nil {
		log.WithError(err).Error("quote fetch failed")
		return nil, err
	}

	s.mu.Lock()
	for _, a := range assets {
		s.cache[strings.ToUpper(a.Symbol)] = a
	}
	s.lastFetch = time.Now()
	s.mu.Unlock()
	return assets, nil
}

func (s *Service) fromCacheLocked(symbols []string) ([]Asset, error) {
	out := make([]Asset, 0, len(symbols))
	for _, sym := range symbols {
		a, ok := s.cache[strings.ToUpper(strings.TrimSpace(sym))]
		if !ok {
			return nil, fmt.Errorf("cache miss for symbol: %s", sym)
		}
		out = append(out, a)
	}
	return out, nil
}
