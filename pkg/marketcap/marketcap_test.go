package marketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/capstruct/internal/resilience"
)

func newTestFMP(t *testing.T, handler http.HandlerFunc) *FMP {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFMP("test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestFMPQuery(t *testing.T) {
	t.Parallel()

	t.Run("market cap in millions", func(t *testing.T) {
		t.Parallel()
		p := newTestFMP(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stable/profile", r.URL.Path)
			assert.Equal(t, "AAP", r.URL.Query().Get("symbol"))
			assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
			w.Write([]byte(`[{"marketCap": 2592000000, "currency": "USD"}]`))
		})

		res, err := p.Query(context.Background(), "aap")
		require.NoError(t, err)
		assert.InDelta(t, 2592.0, res.MarketCapMM, 1e-9)
		assert.Equal(t, "fmp_stable_profile", res.Source)
		assert.Equal(t, "USD", res.Currency)
		assert.False(t, res.AsOfUTC.IsZero())
	})

	t.Run("legacy mktCap field", func(t *testing.T) {
		t.Parallel()
		p := newTestFMP(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`[{"mktCap": 1000000000}]`))
		})
		res, err := p.Query(context.Background(), "AAP")
		require.NoError(t, err)
		assert.InDelta(t, 1000.0, res.MarketCapMM, 1e-9)
		assert.Equal(t, "USD", res.Currency)
	})

	t.Run("empty profile is unavailable", func(t *testing.T) {
		t.Parallel()
		p := newTestFMP(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`[]`))
		})
		_, err := p.Query(context.Background(), "ZZZZ")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("non-positive market cap is unavailable", func(t *testing.T) {
		t.Parallel()
		p := newTestFMP(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`[{"marketCap": 0}]`))
		})
		_, err := p.Query(context.Background(), "AAP")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("missing api key short-circuits", func(t *testing.T) {
		t.Parallel()
		p := NewFMP("")
		_, err := p.Query(context.Background(), "AAP")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("server error surfaces", func(t *testing.T) {
		t.Parallel()
		p := newTestFMP(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := p.Query(context.Background(), "AAP")
		require.Error(t, err)
		assert.False(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("retries transient statuses", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`[{"marketCap": 2592000000}]`))
		}))
		t.Cleanup(srv.Close)

		p := NewFMP("test-key",
			WithBaseURL(srv.URL),
			WithHTTPClient(srv.Client()),
			WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
			WithRetryConfig(resilience.RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: time.Millisecond,
				JitterFraction: -1, // negative normalizes to no jitter
			}),
		)

		res, err := p.Query(context.Background(), "AAP")
		require.NoError(t, err)
		assert.InDelta(t, 2592.0, res.MarketCapMM, 1e-9)
		assert.Equal(t, int32(3), calls.Load())
	})
}

type fakeProvider struct {
	name string
	res  *Result
	err  error
	hits int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Query(context.Context, string) (*Result, error) {
	f.hits++
	return f.res, f.err
}

func TestChain(t *testing.T) {
	t.Parallel()

	t.Run("first success wins", func(t *testing.T) {
		t.Parallel()
		a := &fakeProvider{name: "a", err: ErrUnavailable}
		b := &fakeProvider{name: "b", res: &Result{MarketCapMM: 10, Source: "b"}}
		c := &fakeProvider{name: "c", res: &Result{MarketCapMM: 99, Source: "c"}}

		res, err := NewChain(a, b, c).Query(context.Background(), "AAP")
		require.NoError(t, err)
		assert.Equal(t, "b", res.Source)
		assert.Equal(t, 1, a.hits)
		assert.Equal(t, 1, b.hits)
		assert.Zero(t, c.hits)
	})

	t.Run("all unavailable", func(t *testing.T) {
		t.Parallel()
		chain := NewChain(
			&fakeProvider{name: "a", err: ErrUnavailable},
			&fakeProvider{name: "b", err: ErrUnavailable},
		)
		_, err := chain.Query(context.Background(), "AAP")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("hard failure preserved", func(t *testing.T) {
		t.Parallel()
		chain := NewChain(
			&fakeProvider{name: "a", err: ErrUnavailable},
			&fakeProvider{name: "b", err: eris.New("boom")},
		)
		_, err := chain.Query(context.Background(), "AAP")
		require.Error(t, err)
		assert.False(t, eris.Is(err, ErrUnavailable))
	})

	t.Run("empty chain", func(t *testing.T) {
		t.Parallel()
		_, err := NewChain().Query(context.Background(), "AAP")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})
}

func TestService(t *testing.T) {
	t.Parallel()

	t.Run("caches lookups", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{name: "p", res: &Result{MarketCapMM: 2592, Source: "p"}}
		svc := NewService(p, NewMemoryCache(), time.Hour)

		for i := 0; i < 3; i++ {
			res, err := svc.Lookup(context.Background(), "AAP")
			require.NoError(t, err)
			assert.InDelta(t, 2592.0, res.MarketCapMM, 1e-9)
		}
		assert.Equal(t, 1, p.hits)
	})

	t.Run("expired entries refetch", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{name: "p", res: &Result{MarketCapMM: 1, Source: "p"}}
		svc := NewService(p, NewMemoryCache(), -time.Second)

		_, err := svc.Lookup(context.Background(), "AAP")
		require.NoError(t, err)
		_, err = svc.Lookup(context.Background(), "AAP")
		require.NoError(t, err)
		assert.Equal(t, 2, p.hits)
	})

	t.Run("nil cache", func(t *testing.T) {
		t.Parallel()
		p := &fakeProvider{name: "p", res: &Result{MarketCapMM: 1}}
		svc := NewService(p, nil, time.Hour)
		_, err := svc.Lookup(context.Background(), "AAP")
		require.NoError(t, err)
		_, err = svc.Lookup(context.Background(), "AAP")
		require.NoError(t, err)
		assert.Equal(t, 2, p.hits)
	})

	t.Run("provider error propagates", func(t *testing.T) {
		t.Parallel()
		svc := NewService(&fakeProvider{name: "p", err: ErrUnavailable}, NewMemoryCache(), time.Hour)
		_, err := svc.Lookup(context.Background(), "AAP")
		assert.True(t, eris.Is(err, ErrUnavailable))
	})
}
