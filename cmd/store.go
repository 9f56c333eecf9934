package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/capstruct/internal/store"
	"github.com/sells-group/capstruct/pkg/marketcap"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "capstruct.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initMarketCap builds the lookup service: FMP behind the store-backed
// cache. Returns nil when no API key is configured; callers then require
// an explicit --market-cap-mm.
func initMarketCap(st store.Store) *marketcap.Service {
	if cfg.MarketCap.FMPKey == "" {
		return nil
	}
	opts := []marketcap.FMPOption{}
	if cfg.MarketCap.FMPBaseURL != "" {
		opts = append(opts, marketcap.WithBaseURL(cfg.MarketCap.FMPBaseURL))
	}
	provider := marketcap.NewFMP(cfg.MarketCap.FMPKey, opts...)
	ttl := time.Duration(cfg.MarketCap.CacheTTLHours) * time.Hour
	return marketcap.NewService(provider, store.NewMarketCapCache(st), ttl)
}
