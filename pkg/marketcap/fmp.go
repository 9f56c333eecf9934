package marketcap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/capstruct/internal/resilience"
)

// FMPOption configures the FMP provider.
type FMPOption func(*FMP)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(baseURL string) FMPOption {
	return func(p *FMP) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FMPOption {
	return func(p *FMP) {
		p.http = hc
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(l *rate.Limiter) FMPOption {
	return func(p *FMP) {
		p.limiter = l
	}
}

// WithRetryConfig overrides the retry policy for profile requests.
func WithRetryConfig(cfg resilience.RetryConfig) FMPOption {
	return func(p *FMP) {
		p.retry = cfg
	}
}

// FMP resolves market caps from the Financial Modeling Prep stable
// profile endpoint.
type FMP struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	now     func() time.Time
}

// NewFMP creates an FMP provider.
func NewFMP(apiKey string, opts ...FMPOption) *FMP {
	p := &FMP{
		apiKey:  apiKey,
		baseURL: "https://financialmodelingprep.com",
		http: &http.Client{
			Timeout: 12 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			OnRetry:        resilience.RetryLogger("fmp", "profile"),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *FMP) Name() string { return "fmp_stable_profile" }

// profileEntry is one element of the stable/profile response array. The
// endpoint historically used both marketCap and mktCap field names.
type profileEntry struct {
	MarketCap *float64 `json:"marketCap"`
	MktCap    *float64 `json:"mktCap"`
	Currency  string   `json:"currency"`
}

// Query implements Provider. A missing API key, unknown ticker, or
// non-positive market cap all map to ErrUnavailable.
func (p *FMP) Query(ctx context.Context, ticker string) (*Result, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if p.apiKey == "" || symbol == "" {
		return nil, ErrUnavailable
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fmp: rate limit wait")
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("apikey", p.apiKey)
	reqURL := p.baseURL + "/stable/profile?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fmp: create request")
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := p.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "fmp: request failed")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("fmp: unexpected status %d: %s", status, string(body))
	}

	var entries []profileEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, eris.Wrap(err, "fmp: unmarshal profile")
	}
	if len(entries) == 0 {
		return nil, ErrUnavailable
	}

	entry := entries[0]
	mc := entry.MarketCap
	if mc == nil {
		mc = entry.MktCap
	}
	if mc == nil || *mc <= 0 {
		return nil, ErrUnavailable
	}

	currency := entry.Currency
	if currency == "" {
		currency = "USD"
	}

	return &Result{
		MarketCapMM: *mc / 1e6,
		Source:      p.Name(),
		Currency:    currency,
		AsOfUTC:     p.now().UTC(),
		Details:     "stable/profile: marketCap",
	}, nil
}

// retryDo executes a request with exponential backoff on transient
// failures (429, 5xx, network timeouts). Non-transient responses are
// returned to the caller as-is.
func (p *FMP) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	type response struct {
		body   []byte
		status int
	}

	res, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (response, error) {
		resp, err := p.http.Do(req.Clone(ctx))
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return response{}, eris.Wrap(err, "fmp: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return response{}, resilience.NewTransientError(
				eris.Errorf("fmp: status %d: %s", resp.StatusCode, string(body)),
				resp.StatusCode,
			)
		}
		return response{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.status, nil
}
