package fetch

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/metrics"
)

// Registry is the proxy-health feedback surface consumed by the retrier.
type Registry interface {
	Select() (string, bool)
	RecordSuccess(url string)
	RecordFailure(url string)
}

// Doer performs a single fetch attempt.
type Doer interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header, proxyURL string) Outcome
}

// RetrierConfig bounds attempts and shapes the jittered inter-attempt delay.
// The delay is always randomized inside [JitterMin, JitterMax] and scaled by
// JitterScale; a fixed interval would give the upstream a periodic signal to
// key on.
type RetrierConfig struct {
	MaxAttempts int
	JitterMin   time.Duration
	JitterMax   time.Duration
	JitterScale float64
}

func (c RetrierConfig) withDefaults() RetrierConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.JitterMin <= 0 {
		c.JitterMin = 500 * time.Millisecond
	}
	if c.JitterMax <= c.JitterMin {
		c.JitterMax = c.JitterMin + 2*time.Second
	}
	if c.JitterScale <= 0 {
		c.JitterScale = 1.0
	}
	return c
}

// Retrier wraps a Doer with bounded retries, jittered backoff and proxy
// health feedback.
type Retrier struct {
	cfg      RetrierConfig
	client   Doer
	registry Registry
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

// NewRetrier builds a Retrier.
func NewRetrier(cfg RetrierConfig, client Doer, registry Registry, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		cfg:      cfg.withDefaults(),
		client:   client,
		registry: registry,
		logger:   logger,
		sleep:    sleepWithContext,
	}
}

// FetchJSON fetches rawURL with browser-like headers, retrying transient
// failures through rotating proxies. It returns the parsed body and true on
// success, or nil and false when the resource does not exist or all
// attempts are exhausted. It never returns an error.
func (r *Retrier) FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, bool) {
	return r.FetchJSONWithHeaders(ctx, rawURL, BrowserHeaders(rawURL, ""))
}

// FetchJSONWithHeaders is FetchJSON with a caller-supplied header set.
func (r *Retrier) FetchJSONWithHeaders(ctx context.Context, rawURL string, headers http.Header) (json.RawMessage, bool) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		proxyURL, viaProxy := r.registry.Select()

		outcome := r.client.Fetch(ctx, rawURL, headers, proxyURL)
		switch outcome.Kind {
		case OutcomeSuccess:
			metrics.FetchAttempts.WithLabelValues("success").Inc()
			if viaProxy {
				r.registry.RecordSuccess(proxyURL)
			}
			return outcome.Body, true
		case OutcomeGone:
			// The resource legitimately does not exist; the proxy is not
			// at fault and remaining attempts would be wasted.
			metrics.FetchAttempts.WithLabelValues("gone").Inc()
			if viaProxy {
				r.registry.RecordSuccess(proxyURL)
			}
			return nil, false
		}

		if viaProxy && outcome.ProxyAtFault {
			r.registry.RecordFailure(proxyURL)
		}
		if !outcome.Retryable {
			metrics.FetchAttempts.WithLabelValues("failed").Inc()
			r.logger.Warn("fetch failed without retry",
				zap.String("url", rawURL),
				zap.Int("status", outcome.StatusCode),
				zap.Error(outcome.Err),
			)
			return nil, false
		}
		metrics.FetchAttempts.WithLabelValues("retryable").Inc()
		r.logger.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("status", outcome.StatusCode),
			zap.Bool("via_proxy", viaProxy),
			zap.Error(outcome.Err),
		)
		if attempt < r.cfg.MaxAttempts {
			r.sleep(ctx, r.jitteredDelay())
		}
		if ctx.Err() != nil {
			return nil, false
		}
	}

	r.logger.Warn("fetch attempts exhausted",
		zap.String("url", rawURL),
		zap.Int("attempts", r.cfg.MaxAttempts),
	)
	return nil, false
}

// jitteredDelay draws a random delay from [JitterMin, JitterMax] and scales
// it. The result is never zero and never a fixed interval.
func (r *Retrier) jitteredDelay() time.Duration {
	span := int64(r.cfg.JitterMax - r.cfg.JitterMin)
	delay := r.cfg.JitterMin
	if span > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err == nil {
			delay += time.Duration(n.Int64())
		} else {
			delay += time.Duration(span / 2)
		}
	}
	return time.Duration(float64(delay) * r.cfg.JitterScale)
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
