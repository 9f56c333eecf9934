// Package marketcap resolves a company's market capitalization ($mm) with
// provenance metadata. Providers are tried in order; results are cached
// through an injected cache so repeated job submissions for the same
// ticker do not burn API quota.
package marketcap

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrUnavailable means the provider responded but had no usable market
// cap for the ticker. Chains treat it as "try the next provider".
var ErrUnavailable = eris.New("marketcap: no market cap available")

// Result is a resolved market cap with provenance.
type Result struct {
	MarketCapMM float64   `json:"market_cap_mm"`
	Source      string    `json:"source"`
	Currency    string    `json:"currency"`
	AsOfUTC     time.Time `json:"as_of_utc"`
	Details     string    `json:"details"`
}

// Provider resolves a ticker to a market cap.
type Provider interface {
	Name() string
	Query(ctx context.Context, ticker string) (*Result, error)
}

// Chain tries each provider in order and returns the first success.
type Chain struct {
	providers []Provider
}

// NewChain builds a provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name identifies the chain by its member names.
func (c *Chain) Name() string {
	name := "chain"
	for _, p := range c.providers {
		name += ":" + p.Name()
	}
	return name
}

// Query walks the chain. Provider errors are collected; if every provider
// fails the combined error is returned, preferring ErrUnavailable when no
// provider had data.
func (c *Chain) Query(ctx context.Context, ticker string) (*Result, error) {
	if len(c.providers) == 0 {
		return nil, ErrUnavailable
	}

	var lastErr error
	allUnavailable := true
	for _, p := range c.providers {
		res, err := p.Query(ctx, ticker)
		if err == nil {
			return res, nil
		}
		if !eris.Is(err, ErrUnavailable) {
			allUnavailable = false
		}
		lastErr = eris.Wrapf(err, "marketcap: provider %s", p.Name())
	}
	if allUnavailable {
		return nil, ErrUnavailable
	}
	return nil, lastErr
}

// Cache stores resolved market caps. Implementations include the
// in-memory TTL cache and the persistent job store.
type Cache interface {
	GetMarketCap(ctx context.Context, ticker string) (*Result, bool)
	SetMarketCap(ctx context.Context, ticker string, res *Result, ttl time.Duration) error
}

// Service resolves tickers through a provider with caching in front.
type Service struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
}

// NewService wires a provider to a cache. A nil cache disables caching.
func NewService(provider Provider, c Cache, ttl time.Duration) *Service {
	return &Service{provider: provider, cache: c, ttl: ttl}
}

// Lookup resolves a ticker, serving from cache when possible.
func (s *Service) Lookup(ctx context.Context, ticker string) (*Result, error) {
	if s.cache != nil {
		if res, ok := s.cache.GetMarketCap(ctx, ticker); ok {
			return res, nil
		}
	}

	res, err := s.provider.Query(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetMarketCap(ctx, ticker, res, s.ttl); err != nil {
			// Cache writes are best-effort; the lookup already succeeded.
			return res, nil
		}
	}
	return res, nil
}
