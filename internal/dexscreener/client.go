// Package dexscreener fetches token pairs from the DexScreener public API.
package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/0xsamyy/fibwatch/internal/market"
	"github.com/0xsamyy/fibwatch/internal/metrics"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.dexscreener.com"

// Client implements the engine's PairSource against DexScreener.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per minute. Zero or negative disables the cap.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 2)
	}
}

// WithRetry sets the attempt count and backoff bounds for temporary failures.
func WithRetry(attempts int, minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = max(attempts, 1)
		c.backoffMin, c.backoffMax = minWait, maxWait
	}
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "dexscreener").Logger() }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a Client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(1), 2),
		maxAttempts: 3,
		backoffMin:  500 * time.Millisecond,
		backoffMax:  5 * time.Second,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPairs returns the valid Solana pairs DexScreener reports for token.
// Non-Solana and malformed pairs are dropped. Temporary failures (network,
// 429, 5xx) are retried with backoff; any final failure is a *ProviderError.
func (c *Client) FetchPairs(ctx context.Context, token string) ([]market.Pair, error) {
	start := time.Now()
	raw, err := c.fetchWithRetry(ctx, token)
	if err != nil {
		var pe *ProviderError
		reason := ReasonNetwork
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		c.metrics.RecordFetch(time.Since(start), reason)
		return nil, err
	}
	c.metrics.RecordFetch(time.Since(start), "")

	sol := lo.Filter(raw, func(rp rawPair, _ int) bool { return isSolana(rp) })
	pairs := make([]market.Pair, 0, len(sol))
	for _, rp := range sol {
		p, err := toPair(rp)
		if err != nil {
			c.log.Debug().Err(err).Str("token", token).Str("pair", rp.PairAddress).Msg("dropping malformed pair")
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, token string) ([]rawPair, error) {
	bo := &backoff.Backoff{Min: c.backoffMin, Max: c.backoffMax, Factor: 2, Jitter: true}
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Token: token, Reason: ReasonCanceled, Err: err}
		}

		raw, err := fetchTokenPairs(ctx, c.httpClient, c.baseURL, token)
		if err == nil {
			return raw, nil
		}

		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Temporary() || attempt >= c.maxAttempts {
			return nil, err
		}

		wait := bo.Duration()
		c.log.Debug().Err(err).Str("token", token).Int("attempt", attempt).Dur("wait", wait).Msg("retrying fetch")
		select {
		case <-ctx.Done():
			return nil, &ProviderError{Token: token, Reason: ReasonCanceled, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
}
