package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig controls single-attempt behavior.
type ClientConfig struct {
	UserAgent string
	// ConnectTimeout bounds dialing; Timeout bounds the whole attempt.
	ConnectTimeout time.Duration
	Timeout        time.Duration
	// HostQPS paces requests per upstream host; zero disables pacing.
	HostQPS float64
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return c
}

// Client performs exactly one HTTP attempt per call via a Colly collector
// and maps transport and status outcomes onto the Outcome tri-state.
type Client struct {
	cfg           ClientConfig
	baseCollector *colly.Collector
	logger        *zap.Logger
	hostLimiters  limiterMap
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	return &Client{
		cfg:           cfg.withDefaults(),
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch performs a single attempt against rawURL. proxyURL may be empty for
// a direct connection. The returned Outcome always holds exactly one of a
// body or an error; Fetch itself never fails.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers http.Header, proxyURL string) Outcome {
	if err := c.hostLimiters.wait(ctx, rawURL, c.cfg.HostQPS); err != nil {
		return failureOutcome(0, fmt.Errorf("host pacing: %w", err), true, false)
	}

	transport, err := c.buildTransport(proxyURL)
	if err != nil {
		return failureOutcome(0, err, false, false)
	}

	viaProxy := proxyURL != ""
	var (
		status   int
		body     []byte
		fetchErr error
	)

	collector := c.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.UserAgent = c.cfg.UserAgent
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(transport)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.visit(ctx, collector, rawURL); err != nil {
		fetchErr = err
	}

	return c.classify(rawURL, status, body, fetchErr, viaProxy)
}

// visit runs the collector in a goroutine so the attempt honors context
// cancellation even though Colly itself is synchronous.
func (c *Client) visit(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (c *Client) buildTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   c.cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   c.cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	return transport, nil
}

func (c *Client) classify(rawURL string, status int, body []byte, fetchErr error, viaProxy bool) Outcome {
	switch {
	case status >= 200 && status < 300:
		if !json.Valid(body) {
			return failureOutcome(status, fmt.Errorf("malformed upstream response for %s", rawURL), false, false)
		}
		return successOutcome(status, body)
	case status == http.StatusNotFound:
		return goneOutcome(status)
	case status == http.StatusForbidden, status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		if fetchErr == nil {
			fetchErr = fmt.Errorf("blocked with status %d for %s", status, rawURL)
		}
		return failureOutcome(status, fetchErr, true, viaProxy)
	case status != 0:
		if fetchErr == nil {
			fetchErr = fmt.Errorf("unexpected status %d for %s", status, rawURL)
		}
		return failureOutcome(status, fetchErr, false, false)
	default:
		if fetchErr == nil {
			fetchErr = fmt.Errorf("no response for %s", rawURL)
		}
		return failureOutcome(0, fetchErr, true, viaProxy)
	}
}

// limiterMap lazily creates one rate limiter per upstream host.
type limiterMap struct {
	limiters sync.Map
}

func (m *limiterMap) wait(ctx context.Context, rawURL string, qps float64) error {
	if qps <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	val, _ := m.limiters.LoadOrStore(parsed.Host, rate.NewLimiter(rate.Limit(qps), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	return limiter.Wait(ctx)
}
