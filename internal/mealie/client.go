// Package mealie talks to a Mealie server over HTTP. It speaks both the
// pre-1.0 API and the 1.x API and picks one per request from the accepted
// server version.
package mealie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/mmcdole/ladle/internal/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	maxRetries       = 3
	baseRetryDelay   = 500 * time.Millisecond
	maxErrorBodySize = 512
)

// Client implements domain.RecipeSource and domain.VersionSource.
type Client struct {
	server     domain.ServerURLProvider
	tokens     domain.TokenProvider
	httpClient *http.Client
	logger     *slog.Logger

	retries    uint64
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how often a 5xx response is retried and the first delay.
func WithRetry(retries uint64, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = initialDelay
	}
}

// NewClient creates a Mealie client. Recipe calls resolve the base URL and
// dialect through server on every request, so a base URL change takes
// effect immediately.
func NewClient(server domain.ServerURLProvider, tokens domain.TokenProvider, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		server: server,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:     logger,
		retries:    maxRetries,
		retryDelay: baseRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call.
type request struct {
	baseURL string
	method  string
	path    string
	query   url.Values
	auth    bool // Send the bearer token
	probe   bool // Unclassified failures mean the URL itself is bad
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryDelay
	bo.MaxElapsedTime = 0 // Bounded by the retry count instead
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)
}

// do performs a request and returns the response body of a 2xx response.
// 5xx responses are retried with exponential backoff; everything else fails fast.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	reqURL := strings.TrimRight(r.baseURL, "/") + r.path
	if len(r.query) > 0 {
		reqURL = reqURL + "?" + r.query.Encode()
	}

	var token string
	if r.auth && c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}
		token = t
	}

	reqID := uuid.New().String()
	attempt := 0
	body, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, r.method, reqURL, nil)
		if err != nil {
			return nil, backoff.Permanent(domain.NewNetworkError(domain.KindMalformedURL, err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", reqID)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		c.logger.Debug("mealie request", "method", r.method, "url", reqURL, "request_id", reqID, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("mealie request failed", "url", reqURL, "request_id", reqID, "error", err)
			return nil, backoff.Permanent(classifyTransport(err, r.probe))
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, backoff.Permanent(classifyTransport(err, r.probe))
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, backoff.Permanent(domain.NewNetworkError(domain.KindUnauthorized, statusError(resp.StatusCode, body)))
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			c.logger.Warn("mealie server error, will retry",
				"status", resp.StatusCode,
				"request_id", reqID,
				"attempt", attempt,
				"path", r.path,
				"query", r.query.Encode(),
			)
			return nil, domain.NewNetworkError(domain.KindNotMealie, statusError(resp.StatusCode, body))
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			c.logger.Error("mealie request error", "status", resp.StatusCode, "request_id", reqID, "path", r.path)
			return nil, backoff.Permanent(domain.NewNetworkError(domain.KindNotMealie, statusError(resp.StatusCode, body)))
		}
		return body, nil
	}, c.newBackOff(ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// get performs a request and decodes the JSON body into v.
// A body that is not the expected JSON means the server is not Mealie.
func (c *Client) get(ctx context.Context, r request, v any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewNetworkError(domain.KindNotMealie, fmt.Errorf("failed to parse %s: %w", r.path, err))
	}
	return nil
}

// classifyTransport maps a failure below HTTP to a network error kind.
func classifyTransport(err error, probe bool) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &netErr) && netErr.Timeout():
		return domain.NewNetworkError(domain.KindNoServerConnection, err)
	case probe && errors.As(err, &dnsErr):
		// An unknown host is a typo in the URL, not an outage
		return domain.NewNetworkError(domain.KindMalformedURL, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return domain.NewNetworkError(domain.KindNoServerConnection, err)
	case probe:
		return domain.NewNetworkError(domain.KindMalformedURL, err)
	default:
		return fmt.Errorf("request failed: %w", err)
	}
}

func statusError(code int, body []byte) error {
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}
	return fmt.Errorf("unexpected status code: %d - %s", code, strings.TrimSpace(string(body)))
}

// target resolves the accepted base URL and its dialect.
func (c *Client) target(ctx context.Context) (string, domain.Dialect, error) {
	baseURL, ok, err := c.server.GetURL(ctx)
	if err != nil {
		return "", domain.DialectUnknown, err
	}
	if !ok {
		return "", domain.DialectUnknown, domain.ErrNoBaseURL
	}
	major, err := c.server.GetVersion(ctx)
	if err != nil {
		return "", domain.DialectUnknown, err
	}
	dialect := domain.DialectForMajor(major)
	if dialect == domain.DialectUnknown {
		return "", domain.DialectUnknown, domain.ErrVersionUnavailable
	}
	return baseURL, dialect, nil
}
