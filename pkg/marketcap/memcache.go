package marketcap

import (
	"context"
	"time"

	"github.com/sells-group/capstruct/internal/cache"
)

// MemoryCache is an in-process Cache backed by a TTL map. Suitable for a
// single server instance; use the store-backed cache for anything shared.
type MemoryCache struct {
	ttl *cache.TTL[Result]
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{ttl: cache.NewTTL[Result]()}
}

// GetMarketCap implements Cache.
func (m *MemoryCache) GetMarketCap(_ context.Context, ticker string) (*Result, bool) {
	res, ok := m.ttl.Get(ticker)
	if !ok {
		return nil, false
	}
	return &res, true
}

// SetMarketCap implements Cache.
func (m *MemoryCache) SetMarketCap(_ context.Context, ticker string, res *Result, ttl time.Duration) error {
	m.ttl.Set(ticker, *res, ttl)
	return nil
}
