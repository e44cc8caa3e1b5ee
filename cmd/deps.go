package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/archive"
	"github.com/ThalysDev/finalizabot-sub000/internal/browser"
	"github.com/ThalysDev/finalizabot-sub000/internal/clock/system"
	"github.com/ThalysDev/finalizabot-sub000/internal/config"
	"github.com/ThalysDev/finalizabot-sub000/internal/discover"
	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
	"github.com/ThalysDev/finalizabot-sub000/internal/fetch"
	"github.com/ThalysDev/finalizabot-sub000/internal/id/uuid"
	"github.com/ThalysDev/finalizabot-sub000/internal/ingest"
	"github.com/ThalysDev/finalizabot-sub000/internal/normalize"
	"github.com/ThalysDev/finalizabot-sub000/internal/proxy"
	"github.com/ThalysDev/finalizabot-sub000/internal/publish"
	"github.com/ThalysDev/finalizabot-sub000/internal/store"
)

// services bundles the wired collaborators for one command invocation.
type services struct {
	registry  *proxy.Registry
	retrier   *fetch.Retrier
	browser   *browser.Fallback
	discovery *discover.Service
	store     feed.Store
	archive   feed.Archive
	publisher feed.Publisher
	closers   []func()
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices wires the acquisition stack from config.
func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	svc := &services{}

	svc.registry = proxy.NewRegistry(cfg.Proxy.Endpoints, proxy.Config{
		FailureThreshold: cfg.Proxy.FailureThreshold,
		FailureWindow:    time.Duration(cfg.Proxy.FailureWindowSeconds) * time.Second,
		CooldownBase:     time.Duration(cfg.Proxy.CooldownBaseSeconds) * time.Second,
		CooldownMax:      time.Duration(cfg.Proxy.CooldownMaxSeconds) * time.Second,
	}, logger)

	client := fetch.NewClient(fetch.ClientConfig{
		UserAgent:      cfg.Fetch.UserAgent,
		ConnectTimeout: time.Duration(cfg.Fetch.ConnectTimeoutSeconds) * time.Second,
		Timeout:        time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		HostQPS:        cfg.Fetch.HostQPS,
	}, logger)

	jitterMin, jitterMax := cfg.JitterBounds()
	svc.retrier = fetch.NewRetrier(fetch.RetrierConfig{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		JitterMin:   jitterMin,
		JitterMax:   jitterMax,
		JitterScale: cfg.Fetch.JitterScale,
	}, client, svc.registry, logger)

	if cfg.Browser.Enabled {
		svc.browser = browser.NewFallback(browser.Config{
			UserAgent:   cfg.Fetch.UserAgent,
			NavTimeout:  time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
			Locale:      cfg.Browser.Locale,
			Timezone:    cfg.Browser.Timezone,
			MaxParallel: cfg.Browser.MaxParallel,
		}, svc.registry, logger)
	}

	var extractor discover.IDExtractor
	if svc.browser != nil {
		extractor = svc.browser
	}
	svc.discovery = discover.New(discover.Config{
		BaseURL:     cfg.Feed.BaseURL,
		DayOffsets:  cfg.Feed.DayOffsets,
		Timezone:    cfg.Feed.Timezone,
		Tournaments: allowedTournaments(cfg.Feed.Tournaments),
	}, svc.retrier, extractor, logger)

	if cfg.DB.DSN != "" {
		pgStore, err := store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		svc.store = pgStore
		svc.closers = append(svc.closers, pgStore.Close)
	} else {
		logger.Warn("db.dsn not set, using the in-memory store")
		svc.store = store.NewMemoryStore()
	}

	if err := buildArchive(ctx, cfg, svc); err != nil {
		svc.close()
		return nil, err
	}
	if err := buildPublisher(ctx, cfg, svc); err != nil {
		svc.close()
		return nil, err
	}
	return svc, nil
}

func buildArchive(ctx context.Context, cfg config.Config, svc *services) error {
	switch cfg.Archive.Backend {
	case "local":
		localArchive, err := archive.NewLocal(archive.LocalConfig{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			return fmt.Errorf("init local archive: %w", err)
		}
		svc.archive = localArchive
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		gcsArchive, err := archive.NewGCS(client, archive.GCSConfig{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		svc.archive = gcsArchive
		svc.closers = append(svc.closers, func() { _ = client.Close() })
	default:
		svc.archive = archive.NewMemory()
	}
	return nil
}

func buildPublisher(ctx context.Context, cfg config.Config, svc *services) error {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
		svc.publisher = publish.NewMemory()
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	pub, err := publish.NewPubSub(client)
	if err != nil {
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	svc.publisher = pub
	svc.closers = append(svc.closers, func() { _ = client.Close() })
	return nil
}

// allowedTournaments narrows the built-in tournament set to the
// configured names. An empty allow-list keeps the full set.
func allowedTournaments(names []string) []discover.Tournament {
	if len(names) == 0 {
		return nil
	}
	var kept []discover.Tournament
	for _, t := range discover.DefaultTournaments() {
		for _, name := range names {
			if normalize.EqualFold(t.Name, name) {
				kept = append(kept, t)
				break
			}
		}
	}
	return kept
}

// newOrchestrator assembles the ingest pipeline on top of the services.
func newOrchestrator(cfg config.Config, svc *services, matchIDs []string, logger *zap.Logger) *ingest.Orchestrator {
	var browserFetcher ingest.BrowserFetcher
	if svc.browser != nil {
		browserFetcher = svc.browser
	}
	return ingest.New(ingest.Config{
		BaseURL:         cfg.Feed.BaseURL,
		SiteURL:         cfg.Feed.SiteURL,
		Concurrency:     cfg.Ingest.Concurrency,
		InterItemDelay:  cfg.InterItemDelay(),
		LookbackDays:    cfg.Feed.LookbackDays,
		StaticMatchIDs:  matchIDs,
		AllowList:       cfg.Feed.Tournaments,
		PublishTopic:    cfg.PubSub.Topic,
		ArchivePayloads: cfg.Ingest.ArchivePayloads,
	},
		svc.discovery,
		svc.retrier,
		browserFetcher,
		normalize.New(logger),
		svc.store,
		svc.archive,
		svc.publisher,
		system.New(),
		uuid.New(),
		logger,
	)
}
