package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HeaderProfile selects the request-header shape for the archive.
type HeaderProfile string

const (
	// BrowserProfile uses browser-like headers; some archive mirrors
	// return 406 to anything else.
	BrowserProfile HeaderProfile = "browser"

	// PlainProfile uses curl-like headers; the Cloudflare-fronted
	// mirrors block browser User-Agents but allow simple tools.
	PlainProfile HeaderProfile = "plain"
)

// FetchError carries the transport failure taxonomy the engine cares
// about: permanent failures (no such document) must not be retried with
// other candidates, transient ones may.
type FetchError struct {
	URL       string
	Status    int
	Permanent bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s failure: %v", e.URL, kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure: status %d", e.URL, kind, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a FetchError marked permanent.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Permanent
}

// Config tunes the archive client.
type Config struct {
	Profile      HeaderProfile
	MaxRetries   int           // retries per URL on rate limiting
	RetryDelay   time.Duration // base delay, grows linearly per attempt
	RequestsPerS float64       // sustained request rate, 0 disables throttling
	Timeout      time.Duration
}

// DefaultConfig matches the archive's published rate expectations.
func DefaultConfig() Config {
	return Config{
		Profile:      PlainProfile,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		RequestsPerS: 2,
		Timeout:      30 * time.Second,
	}
}

// Client fetches documents from the remote archive. It is the only
// component that performs network I/O; callers see bytes or a FetchError.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an archive client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerS), 1)
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch retrieves one URL, retrying on rate limiting with linear backoff.
// wantType, when non-empty, is matched against the response Content-Type;
// a mismatch (e.g. an HTML error page where XML was expected) is a
// transient FetchError so the caller can try the next candidate URL.
func (c *Client) Fetch(ctx context.Context, url, wantType string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.cfg.RetryDelay
			c.logger.Debug("retrying fetch",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		body, retryable, err := c.fetchOnce(ctx, url, wantType)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, url, wantType string) (body []byte, retryable bool, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, &FetchError{URL: url, Permanent: true, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// handled below
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &FetchError{URL: url, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, &FetchError{URL: url, Status: resp.StatusCode, Permanent: true}
	case resp.StatusCode >= 500:
		return nil, false, &FetchError{URL: url, Status: resp.StatusCode}
	default:
		return nil, false, &FetchError{URL: url, Status: resp.StatusCode, Permanent: true}
	}

	if wantType != "" {
		got := resp.Header.Get("Content-Type")
		if got != "" && !strings.Contains(got, wantType) {
			return nil, false, &FetchError{
				URL: url,
				Err: fmt.Errorf("content-type %q does not match %q", got, wantType),
			}
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return b, false, nil
}

// FetchFirst tries candidate URLs in order and returns the first success.
// A permanent failure on every candidate is reported as permanent; any
// transient failure along the way keeps the overall error transient.
func (c *Client) FetchFirst(ctx context.Context, urls []string, wantType string) ([]byte, error) {
	if len(urls) == 0 {
		return nil, &FetchError{Permanent: true, Err: errors.New("no candidate URLs")}
	}
	allPermanent := true
	var lastErr error
	for _, u := range urls {
		b, err := c.Fetch(ctx, u, wantType)
		if err == nil {
			return b, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug("candidate failed", zap.String("url", u), zap.Error(err))
		lastErr = err
		if !IsPermanent(err) {
			allPermanent = false
		}
	}
	if allPermanent {
		return nil, lastErr
	}
	var fe *FetchError
	if errors.As(lastErr, &fe) && fe.Permanent {
		// Surface a transient error so the caller may resume later.
		return nil, &FetchError{URL: fe.URL, Status: fe.Status, Err: fe.Err}
	}
	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request) {
	switch c.cfg.Profile {
	case BrowserProfile:
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
		req.Header.Set("Connection", "keep-alive")
	case PlainProfile:
		req.Header.Set("User-Agent", "curl/8.7.1")
	}
}
