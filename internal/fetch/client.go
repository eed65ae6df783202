package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrFetchFailed means every retry was exhausted for one URL. Callers treat
// it as "this item could not be obtained" and keep going; it is never fatal
// to the run.
var ErrFetchFailed = errors.New("fetch failed")

type Config struct {
	ProxyEndpoint string // e.g. http://proxy.example.com:8080
	ProxyUsername string
	ProxyPassword string
	MaxRetries    int
	Timeout       time.Duration
	HostReqPerSec float64
	HostBurst     int
}

type Client struct {
	hc      *http.Client
	limiter *HostLimiter
	retries int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HostReqPerSec <= 0 {
		cfg.HostReqPerSec = 0.5
	}
	if cfg.HostBurst <= 0 {
		cfg.HostBurst = 1
	}

	transport := &http.Transport{}
	if cfg.ProxyEndpoint != "" {
		pu, err := url.Parse(cfg.ProxyEndpoint)
		if err != nil {
			return nil, fmt.Errorf("parse proxy endpoint: %w", err)
		}
		if cfg.ProxyUsername != "" {
			pu.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(pu)
	}

	return &Client{
		hc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: NewHostLimiter(cfg.HostReqPerSec, cfg.HostBurst),
		retries: cfg.MaxRetries,
	}, nil
}

// Get fetches one page through the proxy. Transient failures (connection
// errors, timeouts, 5xx, 429) retry with exponential backoff plus jitter;
// a 429 honors Retry-After when present. Any other 4xx fails immediately.
func (c *Client) Get(ctx context.Context, rawURL string) (body string, status int, err error) {
	var lastErr error
	skipBackoff := false

	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 && !skipBackoff {
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return "", 0, err
			}
		}
		skipBackoff = false

		if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
			return "", 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		req.Header.Set("User-Agent", "LeadGen/1.0 (+local)")

		res, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("[fetch] attempt %d/%d network error url=%s err=%v", attempt+1, c.retries, rawURL, err)
			continue
		}

		b, readErr := io.ReadAll(res.Body)
		_ = res.Body.Close()

		switch {
		case res.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return string(b), res.StatusCode, nil

		case res.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("status %d", res.StatusCode)
			if attempt+1 >= c.retries {
				// no attempt left to spend the wait on
				continue
			}
			wait := retryAfter(res)
			if wait <= 0 {
				wait = backoffDelay(attempt + 1)
			}
			log.Printf("[fetch] attempt %d/%d rate limited url=%s wait=%s", attempt+1, c.retries, rawURL, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return "", res.StatusCode, err
			}
			// this wait replaces the next attempt's backoff
			skipBackoff = true

		case res.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", res.StatusCode)
			log.Printf("[fetch] attempt %d/%d server error url=%s status=%d", attempt+1, c.retries, rawURL, res.StatusCode)

		default:
			// Non-retryable 4xx: the page is gone or forbidden, retrying won't help.
			return "", res.StatusCode, fmt.Errorf("%w: status %d for %s", ErrFetchFailed, res.StatusCode, rawURL)
		}
	}

	return "", 0, fmt.Errorf("%w: %s after %d attempts: %v", ErrFetchFailed, rawURL, c.retries, lastErr)
}

func retryAfter(res *http.Response) time.Duration {
	v := res.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func backoffDelay(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
