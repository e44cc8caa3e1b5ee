// Package browser implements the headless-browser fallback tier. A session
// issues the JSON API call from inside the page's network context so it
// inherits the session cookies and TLS fingerprint; when that still fails,
// the rendered page's embedded state is scraped as a last resort.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/metrics"
)

// blockedResourcePatterns are heavy sub-resources the session never loads.
// Blocking them shrinks both the fingerprint surface and the bandwidth bill.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3", "*.m3u8",
}

// Config controls headless session behavior.
type Config struct {
	UserAgent   string
	NavTimeout  time.Duration
	Locale      string
	Timezone    string
	ViewportW   int64
	ViewportH   int64
	MaxParallel int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.Locale == "" {
		c.Locale = "en-US"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/London"
	}
	if c.ViewportW <= 0 {
		c.ViewportW = 1366
	}
	if c.ViewportH <= 0 {
		c.ViewportH = 768
	}
	return c
}

// Registry is the proxy-health feedback surface, identical to the one the
// lightweight retrier reports into.
type Registry interface {
	Select() (string, bool)
	RecordSuccess(url string)
	RecordFailure(url string)
}

// Fallback launches stealth-configured headless sessions.
type Fallback struct {
	cfg      Config
	registry Registry
	limiter  chan struct{}
	logger   *zap.Logger
}

// NewFallback builds a Fallback.
func NewFallback(cfg Config, registry Registry, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &Fallback{
		cfg:      cfg,
		registry: registry,
		limiter:  limiter,
		logger:   logger,
	}
}

// FetchJSON navigates to pageURL and issues the apiURL request from inside
// the page. It returns the parsed body and true on success; it never
// returns an error. The browser session is released on every exit path.
func (f *Fallback) FetchJSON(ctx context.Context, pageURL, apiURL string) (json.RawMessage, bool) {
	var body json.RawMessage
	ok := f.withSession(ctx, pageURL, func(taskCtx context.Context) error {
		var text string
		script := fmt.Sprintf(
			`fetch(%q, {headers: {"accept": "application/json"}}).then(r => { if (!r.ok) { throw new Error("status " + r.status); } return r.text(); })`,
			apiURL,
		)
		err := chromedp.Run(taskCtx,
			chromedp.Evaluate(script, &text, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
		)
		if err != nil {
			return fmt.Errorf("in-page fetch: %w", err)
		}
		if !json.Valid([]byte(text)) {
			return fmt.Errorf("in-page fetch returned non-JSON for %s", apiURL)
		}
		body = json.RawMessage(text)
		return nil
	})
	return body, ok
}

// ExtractMatchIDs renders pageURL and scrapes match identifiers out of the
// page's embedded hydration state or, failing that, its raw markup. This
// tier is inherently brittle; failures here are expected-rate, not
// exceptional, so the method only reports found/not-found.
func (f *Fallback) ExtractMatchIDs(ctx context.Context, pageURL string) ([]string, bool) {
	var ids []string
	ok := f.withSession(ctx, pageURL, func(taskCtx context.Context) error {
		var html string
		if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("outer html: %w", err)
		}
		ids = matchIDsFromHTML(html)
		if len(ids) == 0 {
			return fmt.Errorf("no match ids in rendered page %s", pageURL)
		}
		return nil
	})
	return ids, ok
}

// withSession launches an isolated browser, navigates to pageURL, runs
// extract, and tears everything down whatever happens. Proxy selection and
// health reporting mirror the lightweight path.
func (f *Fallback) withSession(ctx context.Context, pageURL string, extract func(taskCtx context.Context) error) bool {
	if err := f.acquire(ctx); err != nil {
		return false
	}
	defer f.release()

	proxyURL, viaProxy := f.registry.Select()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(f.cfg.UserAgent),
		chromedp.WindowSize(int(f.cfg.ViewportW), int(f.cfg.ViewportH)),
	)
	if viaProxy {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	taskCtx, taskCancel := context.WithTimeout(tabCtx, f.cfg.NavTimeout)
	defer taskCancel()

	err := chromedp.Run(taskCtx,
		f.sessionSetup(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	)
	if err == nil {
		err = extract(taskCtx)
	}

	if err != nil {
		metrics.BrowserSessions.WithLabelValues("failure").Inc()
		if viaProxy {
			f.registry.RecordFailure(proxyURL)
		}
		f.logger.Warn("browser session failed",
			zap.String("page_url", pageURL),
			zap.Bool("via_proxy", viaProxy),
			zap.Error(err),
		)
		return false
	}

	metrics.BrowserSessions.WithLabelValues("success").Inc()
	if viaProxy {
		f.registry.RecordSuccess(proxyURL)
	}
	return true
}

// sessionSetup applies the evasion countermeasures before any page script
// runs: scrubbed automation signals, realistic viewport, locale and
// timezone, browser-like headers, and blocked heavy sub-resources.
func (f *Fallback) sessionSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := network.SetBlockedURLs(blockedResourcePatterns).Do(ctx); err != nil {
			return fmt.Errorf("block resources: %w", err)
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).
			WithAcceptLanguage(f.cfg.Locale).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if err := emulation.SetDeviceMetricsOverride(f.cfg.ViewportW, f.cfg.ViewportH, 1, false).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if err := emulation.SetTimezoneOverride(f.cfg.Timezone).Do(ctx); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
		if err := emulation.SetLocaleOverride().WithLocale(f.cfg.Locale).Do(ctx); err != nil {
			return fmt.Errorf("set locale: %w", err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("install stealth script: %w", err)
		}
		return nil
	})
}

func (f *Fallback) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fallback) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
