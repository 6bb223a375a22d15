// Package httpclient performs provider GET requests with retries and a circuit
// breaker. Every failure it returns wraps domain.ErrNetwork.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/weather-clock-service/internal/domain"
	"github.com/sony/gobreaker"
)

// maxBodyBytes bounds a forecast body. Open-Meteo with past_days=1 is ~20 KB.
const maxBodyBytes = 8 << 20

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Config controls timeouts and retries.
type Config struct {
	Name            string        // breaker name, also used in logs
	Timeout         time.Duration // per attempt, transport level
	MaxRetries      int           // attempts after the first
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client fetches bodies over HTTP.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	cfg     Config
	logger  *slog.Logger
}

// New creates a Client. Zero intervals default to 500ms and 5s.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		cfg:    cfg,
		logger: logger,
	}
}

// Get returns the body of a 2xx response to url. 429 and 5xx responses and
// transport errors are retried with exponential backoff; other statuses and an
// open breaker fail immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.once(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%w: %v", errCircuitOpen, err))
			}
			if errors.Is(err, errUnexpected) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Debug("request attempt failed", "client", c.cfg.Name, "attempt", attempt, "error", err)
			return err
		}
		body = result.([]byte)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.cfg.MaxRetries, 0))), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%w: %s GET after %d attempt(s): %w", domain.ErrNetwork, c.cfg.Name, attempt, err)
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", errUnexpected, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
