// Package fetch is the HTTP layer the ingestion core consumes: one
// client per run, carrying the run's proxy settings, retry policy and
// failure statistics. The adapter close hook reads the statistics to
// decide whether the proxy configuration was usable at all.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Proxy carries the uniform proxy entry parameters.
type Proxy struct {
	Host     string
	Port     string
	User     string
	Password string
}

// URL renders the proxy as an http URL, with credentials when present.
func (p *Proxy) URL() (*url.URL, error) {
	if p == nil || p.Host == "" {
		return nil, errors.New("proxy host is empty")
	}
	u := &url.URL{Scheme: "http", Host: p.Host}
	if p.Port != "" {
		u.Host = net.JoinHostPort(p.Host, p.Port)
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u, nil
}

// Options configures a client.
type Options struct {
	Proxy      *Proxy
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *slog.Logger
	// Transport overrides the HTTP transport; tests use this.
	Transport http.RoundTripper
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = "newsharvest/1.0 (news ingestion; +https://github.com/pevans/newsharvest)"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 250 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Response is one completed fetch.
type Response struct {
	URL         string
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string
}

// Document parses the response body as HTML.
func (r *Response) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
}

// Client fetches pages for one run.
type Client struct {
	http  *http.Client
	opts  Options
	stats Stats
}

// New builds a client from options. A configured proxy that cannot be
// rendered into a URL is an error: the run must not silently fall back
// to a direct connection.
func New(opts Options) (*Client, error) {
	opts.defaults()

	transport := opts.Transport
	if transport == nil {
		t := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			// Proxy tunnel probes should fail fast.
			TLSHandshakeTimeout: 5 * time.Second,
		}
		if opts.Proxy != nil {
			proxyURL, err := opts.Proxy.URL()
			if err != nil {
				return nil, fmt.Errorf("bad proxy configuration: %w", err)
			}
			t.Proxy = http.ProxyURL(proxyURL)
		}
		transport = t
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts: opts,
	}, nil
}

// Get fetches one URL with retries on transport errors, 5xx and 429.
// Every attempt is recorded in the client statistics.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.getOnce(ctx, rawURL)
		if err != nil {
			lastErr = err
			c.stats.record(0, err)
			continue
		}
		c.stats.record(resp.StatusCode, nil)

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusProxyAuthRequired {
			return nil, fmt.Errorf("proxy rejected request: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", rawURL, c.opts.MaxRetries+1, lastErr)
}

func (c *Client) getOnce(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.opts.Logger.Warn("failed to close response body", "url", rawURL, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// backoff is exponential from BackoffMin with ±25% jitter, capped at
// BackoffMax.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BackoffMin << uint(attempt-1)
	if d > c.opts.BackoffMax {
		d = c.opts.BackoffMax
	}
	jitter := time.Duration((rand.Float64() - 0.5) * 0.5 * float64(d))
	d += jitter
	if d < c.opts.BackoffMin {
		d = c.opts.BackoffMin
	}
	return d
}

// Stats returns a snapshot of the counters accumulated so far.
func (c *Client) Stats() Snapshot {
	return c.stats.snapshot()
}

// classify buckets a transport error for the statistics.
func classify(err error) failureClass {
	if err == nil {
		return failureNone
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return failureRefused
	}
	// CONNECT failures surface as opaque url.Errors mentioning the
	// proxy; count them against the tunnel.
	if strings.Contains(err.Error(), "proxyconnect") ||
		strings.Contains(err.Error(), "Proxy Authentication Required") {
		return failureTunnel
	}
	return failureOther
}
