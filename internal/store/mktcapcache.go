package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/capstruct/pkg/marketcap"
)

// MarketCapCache adapts a Store to the marketcap.Cache interface so the
// lookup service can persist results across restarts. Store errors on
// reads are treated as misses; the lookup falls through to the provider.
type MarketCapCache struct {
	store Store
}

// NewMarketCapCache wraps a Store as a marketcap.Cache.
func NewMarketCapCache(s Store) *MarketCapCache {
	return &MarketCapCache{store: s}
}

func (c *MarketCapCache) GetMarketCap(ctx context.Context, ticker string) (*marketcap.Result, bool) {
	res, err := c.store.GetCachedMarketCap(ctx, ticker)
	if err != nil {
		zap.L().Warn("market cap cache read failed",
			zap.String("ticker", ticker),
			zap.Error(err))
		return nil, false
	}
	if res == nil {
		return nil, false
	}
	return res, true
}

func (c *MarketCapCache) SetMarketCap(ctx context.Context, ticker string, res *marketcap.Result, ttl time.Duration) error {
	return c.store.SetCachedMarketCap(ctx, ticker, res, ttl)
}
