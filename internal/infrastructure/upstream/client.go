package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

const maxBodyBytes = 16 << 20

// Client is the rate-limited HTTP access shared by all providers. Every call
// first consults the cross-process provider lock; a 429 installs the lock for
// the advertised retry window so sibling processes stop hammering too.
type Client struct {
	http    *http.Client
	limiter ports.RateLimiter
	metrics *metrics.Metrics
	cfg     config.UpstreamConfig
}

func NewClient(cfg config.UpstreamConfig, limiter ports.RateLimiter, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter: limiter,
		metrics: m,
		cfg:     cfg,
	}
}

// GetJSON fetches url and decodes the response body into out.
//
// 429 responses set the provider-wide lock and fail without retrying: the
// block applies to the whole provider, not this one call. 5xx and transport
// errors retry with exponential backoff up to the configured attempt budget.
func (c *Client) GetJSON(ctx context.Context, source park.Source, url string, header http.Header, out any) error {
	blocked, until, err := c.limiter.CheckBlocked(ctx, source)
	if err != nil {
		return errs.Wrap(err, "check provider lock")
	}
	if blocked {
		c.metrics.RateLimitBlocks.WithLabelValues(string(source)).Inc()
		return errs.Wrapf(ports.ErrProviderBlocked, "%s blocked until %s", source, until.UTC().Format(time.RFC3339))
	}

	operation := func() ([]byte, error) {
		body, opErr := c.doOnce(ctx, source, url, header)
		if opErr != nil {
			return nil, opErr
		}
		return body, nil
	}

	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(attempts)),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errs.Wrapf(err, "decode %s response", source)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, source park.Source, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(errs.Wrap(err, "build request"))
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(string(source), "network_error").Inc()
		return nil, errs.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.UpstreamRequests.WithLabelValues(string(source), "rate_limited").Inc()
		block := retryAfter(resp, c.cfg.DefaultBlock)
		if recordErr := c.limiter.RecordBlock(ctx, source, block); recordErr != nil {
			logging.Warn(ctx, "record provider block failed",
				slog.String("provider", string(source)),
				slog.Any("err", errs.Loggable(recordErr)),
			)
		}
		return nil, backoff.Permanent(errs.Wrapf(ports.ErrProviderBlocked, "%s returned 429, blocked for %s", source, block))

	case resp.StatusCode >= 500:
		c.metrics.UpstreamRequests.WithLabelValues(string(source), "server_error").Inc()
		return nil, fmt.Errorf("%s returned %d", source, resp.StatusCode)

	case resp.StatusCode >= 400:
		c.metrics.UpstreamRequests.WithLabelValues(string(source), "client_error").Inc()
		return nil, backoff.Permanent(fmt.Errorf("%s returned %d", source, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(string(source), "read_error").Inc()
		return nil, errs.Wrap(err, "read response body")
	}

	c.metrics.UpstreamRequests.WithLabelValues(string(source), "ok").Inc()
	return body, nil
}

// retryAfter honors the provider-advertised window, falling back to the
// configured default when the header is absent or unparsable.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return fallback
}
