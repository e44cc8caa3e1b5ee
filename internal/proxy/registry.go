// Package proxy tracks per-endpoint health and selects a usable proxy for
// outbound requests. State is process-lifetime only.
package proxy

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls failure scoring and cooldown placement.
type Config struct {
	// FailureThreshold is the number of failures inside FailureWindow after
	// which an endpoint enters cooldown.
	FailureThreshold int
	// FailureWindow is the sliding window over which failures are counted.
	FailureWindow time.Duration
	// CooldownBase is the cooldown applied when the threshold is first
	// crossed; it doubles with each further failure inside the window.
	CooldownBase time.Duration
	// CooldownMax caps the exponential cooldown.
	CooldownMax time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = 2 * time.Minute
	}
	if c.CooldownBase <= 0 {
		c.CooldownBase = 30 * time.Second
	}
	if c.CooldownMax <= 0 {
		c.CooldownMax = 10 * time.Minute
	}
	return c
}

type endpointState struct {
	url           string
	failures      []time.Time
	successes     int
	lastUsed      time.Time
	cooldownUntil time.Time
}

// Registry scores proxy endpoints by observed success and failure and picks
// a usable one. Endpoints are never removed, only re-scored; a consistently
// blocked endpoint sits out its cooldown and comes back, because anti-bot
// blocks are usually transient IP-reputation decisions.
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	endpoints map[string]*endpointState
	order     []string
	now       func() time.Time
	logger    *zap.Logger
}

// NewRegistry builds a Registry over the configured endpoint URLs. An empty
// list is valid: Select then always reports "no proxy" and callers connect
// directly.
func NewRegistry(urls []string, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		cfg:       cfg.withDefaults(),
		endpoints: make(map[string]*endpointState, len(urls)),
		now:       time.Now,
		logger:    logger,
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := r.endpoints[u]; ok {
			continue
		}
		r.endpoints[u] = &endpointState{url: u}
		r.order = append(r.order, u)
	}
	return r
}

// Select picks uniformly among endpoints not currently in cooldown. The
// second return is false when no endpoint is usable; that is a direct
// connection, not an error.
func (r *Registry) Select() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	usable := make([]*endpointState, 0, len(r.order))
	for _, u := range r.order {
		st := r.endpoints[u]
		if st.cooldownUntil.After(now) {
			continue
		}
		usable = append(usable, st)
	}
	if len(usable) == 0 {
		return "", false
	}
	picked := usable[rand.IntN(len(usable))]
	picked.lastUsed = now
	return picked.url, true
}

// RecordSuccess clears the endpoint's failure streak.
func (r *Registry) RecordSuccess(url string) {
	if url == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(url)
	st.successes++
	st.failures = st.failures[:0]
	st.cooldownUntil = time.Time{}
}

// RecordFailure counts a failure against the endpoint and, once the count
// inside the sliding window crosses the threshold, places the endpoint in a
// cooldown that grows exponentially with the recent failure count.
func (r *Registry) RecordFailure(url string) {
	if url == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	st := r.state(url)
	st.failures = append(st.failures, now)
	st.failures = pruneOlderThan(st.failures, now.Add(-r.cfg.FailureWindow))

	recent := len(st.failures)
	if recent < r.cfg.FailureThreshold {
		return
	}

	cooldown := r.cfg.CooldownBase
	for i := r.cfg.FailureThreshold; i < recent; i++ {
		cooldown *= 2
		if cooldown >= r.cfg.CooldownMax {
			cooldown = r.cfg.CooldownMax
			break
		}
	}
	st.cooldownUntil = now.Add(cooldown)
	r.logger.Warn("proxy endpoint placed in cooldown",
		zap.String("proxy", url),
		zap.Int("recent_failures", recent),
		zap.Duration("cooldown", cooldown),
	)
}

// CooldownUntil reports the endpoint's cooldown expiry; the zero time means
// the endpoint is selectable.
func (r *Registry) CooldownUntil(url string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.endpoints[url]
	if !ok {
		return time.Time{}
	}
	return st.cooldownUntil
}

// state returns the endpoint record, creating it lazily on first observed
// use so feedback about endpoints outside the configured list is not lost.
func (r *Registry) state(url string) *endpointState {
	st, ok := r.endpoints[url]
	if !ok {
		st = &endpointState{url: url}
		r.endpoints[url] = st
		r.order = append(r.order, url)
	}
	return st
}

func pruneOlderThan(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
