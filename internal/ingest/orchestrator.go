// Package ingest sequences the crawl phases: discovery, match metadata,
// shot events, and historical backfill, persisting through the store
// collaborator and auditing each run.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
	"github.com/ThalysDev/finalizabot-sub000/internal/hash/sha256"
	"github.com/ThalysDev/finalizabot-sub000/internal/metrics"
	"github.com/ThalysDev/finalizabot-sub000/internal/normalize"
)

// ErrBaseURLMissing is returned when no upstream base URL is configured.
// It is surfaced once, before any run record exists; there is nothing to
// retry.
var ErrBaseURLMissing = errors.New("upstream base URL is not configured")

// Config controls orchestration.
type Config struct {
	BaseURL string
	// SiteURL is the user-facing site used as the browser fallback's page
	// context; defaults to BaseURL.
	SiteURL string
	// Concurrency is the per-phase worker ceiling. Two concurrent requests
	// is the observed safe value against the upstream's rate heuristics.
	Concurrency int
	// InterItemDelay is the fixed pause after each handled item.
	InterItemDelay time.Duration
	LookbackDays   int
	// StaticMatchIDs bypasses discovery when set.
	StaticMatchIDs []string
	// AllowList holds the tournament names eligible for ingestion. Matches
	// outside it are dropped after metadata inspection.
	AllowList []string
	// PublishTopic names the run-summary topic; empty disables publishing.
	PublishTopic string
	// ArchivePayloads stores raw shotmap payloads through the archive.
	ArchivePayloads bool
}

func (c Config) withDefaults() Config {
	if c.SiteURL == "" {
		c.SiteURL = c.BaseURL
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.InterItemDelay <= 0 {
		c.InterItemDelay = 1500 * time.Millisecond
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 7
	}
	return c
}

// Discoverer yields candidate match IDs.
type Discoverer interface {
	CurrentWindowMatchIDs(ctx context.Context) []string
	FinishedMatchIDsSince(ctx context.Context, days int) []string
}

// JSONFetcher is the lightweight acquisition path.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, bool)
}

// BrowserFetcher is the headless fallback tier for shotmap payloads.
type BrowserFetcher interface {
	FetchJSON(ctx context.Context, pageURL, apiURL string) (json.RawMessage, bool)
}

// Orchestrator runs the four-phase ingestion state machine.
type Orchestrator struct {
	cfg        Config
	discovery  Discoverer
	fetcher    JSONFetcher
	browser    BrowserFetcher
	normalizer *normalize.Normalizer
	store      feed.Store
	archive    feed.Archive
	publisher  feed.Publisher
	clock      feed.Clock
	ids        feed.IDGenerator
	hasher     *sha256.Hasher
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration)
}

// New builds an Orchestrator. browser, archive and publisher may be nil.
func New(
	cfg Config,
	discovery Discoverer,
	fetcher JSONFetcher,
	browser BrowserFetcher,
	normalizer *normalize.Normalizer,
	store feed.Store,
	archive feed.Archive,
	publisher feed.Publisher,
	clock feed.Clock,
	ids feed.IDGenerator,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		discovery:  discovery,
		fetcher:    fetcher,
		browser:    browser,
		normalizer: normalizer,
		store:      store,
		archive:    archive,
		publisher:  publisher,
		clock:      clock,
		ids:        ids,
		hasher:     sha256.New(),
		logger:     logger,
		sleep:      sleepWithContext,
	}
}

// Run executes one full ingestion: discover, metadata crawl, shot crawl,
// historical backfill. The IngestRun audit record is created at entry and
// finalized on every exit path; a persistence failure while recording a
// run failure never masks the original error.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.cfg.BaseURL == "" {
		return ErrBaseURLMissing
	}

	runID, err := o.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	run := feed.IngestRun{
		ID:        runID,
		Status:    feed.RunStatusStarted,
		StartedAt: o.clock.Now(),
	}
	if err := o.store.CreateIngestRun(ctx, run); err != nil {
		return fmt.Errorf("create ingest run: %w", err)
	}
	o.logger.Info("ingest run started", zap.String("run_id", runID))

	counters, runErr := o.crawl(ctx, runID)
	status := feed.RunStatusSuccess
	errText := ""
	if runErr != nil {
		status = feed.RunStatusFailed
		errText = runErr.Error()
	}

	finishedAt := o.clock.Now()
	if updateErr := o.store.UpdateIngestRun(ctx, runID, status, finishedAt, errText); updateErr != nil {
		o.logger.Error("failed to record run status",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(updateErr),
		)
	}
	metrics.RunDuration.Observe(finishedAt.Sub(run.StartedAt).Seconds())
	o.publishSummary(ctx, runID, status, counters)

	if runErr != nil {
		return fmt.Errorf("ingest run %s failed: %w", runID, runErr)
	}
	o.logger.Info("ingest run finished",
		zap.String("run_id", runID),
		zap.Int("discovered", counters.Discovered),
		zap.Int("allowed", counters.Allowed),
		zap.Int("shot_events", counters.ShotEventsSaved),
		zap.Int("backfilled", counters.Backfilled),
		zap.Int("items_failed", counters.ItemsFailed),
	)
	return nil
}

func (o *Orchestrator) crawl(ctx context.Context, runID string) (feed.RunCounters, error) {
	counters := feed.RunCounters{}

	// Phase 1: discover.
	candidateIDs := o.cfg.StaticMatchIDs
	if len(candidateIDs) == 0 {
		candidateIDs = o.discovery.CurrentWindowMatchIDs(ctx)
	}
	counters.Discovered = len(candidateIDs)
	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("discovery interrupted: %w", err)
	}
	if len(candidateIDs) == 0 {
		o.logger.Warn("no candidate matches discovered", zap.String("run_id", runID))
		return counters, nil
	}

	// Phase 2: metadata crawl with tournament filtering.
	allowed, failed := o.crawlMetadata(ctx, "metadata", candidateIDs)
	counters.Allowed = len(allowed)
	counters.ItemsFailed += failed
	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("metadata crawl interrupted: %w", err)
	}
	if len(allowed) == 0 {
		o.logger.Warn("no matches passed the tournament allow-list", zap.String("run_id", runID))
	}

	// Phase 3: shot crawl for allowed matches only.
	saved, failed := o.crawlShots(ctx, "shots", runID, allowed)
	counters.ShotEventsSaved = saved
	counters.ItemsFailed += failed
	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("shot crawl interrupted: %w", err)
	}

	// Phase 4: historical backfill, excluding ids already processed.
	processed := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		processed[id] = struct{}{}
	}
	var backfillIDs []string
	for _, id := range o.discovery.FinishedMatchIDsSince(ctx, o.cfg.LookbackDays) {
		if _, done := processed[id]; done {
			continue
		}
		backfillIDs = append(backfillIDs, id)
	}
	if len(backfillIDs) > 0 {
		backfillAllowed, metaFailed := o.crawlMetadata(ctx, "backfill_metadata", backfillIDs)
		backfillSaved, shotFailed := o.crawlShots(ctx, "backfill_shots", runID, backfillAllowed)
		counters.Backfilled = backfillSaved
		counters.ItemsFailed += metaFailed + shotFailed
	}
	if err := ctx.Err(); err != nil {
		return counters, fmt.Errorf("backfill interrupted: %w", err)
	}
	return counters, nil
}

// crawlMetadata fetches match details for each id and keeps the matches
// whose tournament passes the allow-list. Persistence failures are logged
// and skipped per item so one bad record cannot abort the phase.
func (o *Orchestrator) crawlMetadata(ctx context.Context, phase string, ids []string) ([]feed.Match, int) {
	var (
		mu      sync.Mutex
		allowed []feed.Match
	)

	results := runPool(ctx, ids, o.cfg.Concurrency, o.cfg.InterItemDelay, o.sleep,
		func(ctx context.Context, id string) itemResult {
			payload, ok := o.fetcher.FetchJSON(ctx, o.matchURL(id))
			if !ok {
				return itemResult{ID: id, Status: itemFailed, Err: fmt.Errorf("match %s metadata unavailable", id)}
			}
			match, ok := normalize.ParseMatch(id, payload)
			if !ok {
				return itemResult{ID: id, Status: itemFailed, Err: fmt.Errorf("match %s metadata unrecognized", id)}
			}
			if !o.tournamentAllowed(match.Tournament) {
				o.logger.Debug("match dropped by tournament allow-list",
					zap.String("match_id", id),
					zap.String("tournament", match.Tournament),
				)
				return itemResult{ID: id, Status: itemSkipped}
			}
			if err := o.persistMatch(ctx, match); err != nil {
				o.logger.Warn("match persistence failed",
					zap.String("match_id", id),
					zap.Error(err),
				)
				return itemResult{ID: id, Status: itemFailed, Err: err}
			}
			mu.Lock()
			allowed = append(allowed, match)
			mu.Unlock()
			return itemResult{ID: id, Status: itemOK}
		})

	o.recordPhase(phase, results)
	return allowed, countByStatus(results, itemFailed)
}

// crawlShots fetches, normalizes and persists shot events for each allowed
// match. The headless fallback is tried when the lightweight path reports
// no result.
func (o *Orchestrator) crawlShots(ctx context.Context, phase, runID string, matches []feed.Match) (int, int) {
	byID := make(map[string]feed.Match, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	var savedTotal int
	var mu sync.Mutex

	results := runPool(ctx, ids, o.cfg.Concurrency, o.cfg.InterItemDelay, o.sleep,
		func(ctx context.Context, id string) itemResult {
			match := byID[id]
			payload, ok := o.fetcher.FetchJSON(ctx, o.shotmapURL(id))
			if !ok && o.browser != nil {
				payload, ok = o.browser.FetchJSON(ctx, o.matchPageURL(id), o.shotmapURL(id))
			}
			if !ok {
				return itemResult{ID: id, Status: itemFailed, Err: fmt.Errorf("match %s shotmap unavailable", id)}
			}

			o.archivePayload(ctx, runID, id, payload)

			events := o.normalizer.Normalize(id, payload, match.HomeTeam.ID, match.AwayTeam.ID)
			if len(events) == 0 {
				return itemResult{ID: id, Status: itemSkipped}
			}
			if err := o.persistShots(ctx, match, events); err != nil {
				o.logger.Warn("shot persistence failed",
					zap.String("match_id", id),
					zap.Error(err),
				)
				return itemResult{ID: id, Status: itemFailed, Err: err}
			}
			mu.Lock()
			savedTotal += len(events)
			mu.Unlock()
			return itemResult{ID: id, Status: itemOK}
		})

	o.recordPhase(phase, results)
	return savedTotal, countByStatus(results, itemFailed)
}

func (o *Orchestrator) persistMatch(ctx context.Context, match feed.Match) error {
	if match.HomeTeam.ID != "" {
		if err := o.store.UpsertTeam(ctx, match.HomeTeam); err != nil {
			return fmt.Errorf("upsert home team: %w", err)
		}
	}
	if match.AwayTeam.ID != "" {
		if err := o.store.UpsertTeam(ctx, match.AwayTeam); err != nil {
			return fmt.Errorf("upsert away team: %w", err)
		}
	}
	if err := o.store.UpsertMatch(ctx, match); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// persistShots writes players, match-player links and shot events for one
// match as a unit; an error leaves previously upserted rows valid because
// every write is idempotent by natural key.
func (o *Orchestrator) persistShots(ctx context.Context, match feed.Match, events []feed.ShotEvent) error {
	seenPlayers := map[string]struct{}{}
	for _, ev := range events {
		if ev.PlayerID == "" {
			continue
		}
		if _, done := seenPlayers[ev.PlayerID]; done {
			continue
		}
		seenPlayers[ev.PlayerID] = struct{}{}
		if err := o.store.UpsertPlayer(ctx, feed.Player{ID: ev.PlayerID, Name: ev.PlayerName}); err != nil {
			return fmt.Errorf("upsert player %s: %w", ev.PlayerID, err)
		}
		if ev.TeamID != "" {
			if err := o.store.AttachMatchPlayer(ctx, match.ID, ev.PlayerID, ev.TeamID); err != nil {
				return fmt.Errorf("attach player %s: %w", ev.PlayerID, err)
			}
		}
	}
	if err := o.store.InsertShotEvents(ctx, events); err != nil {
		return fmt.Errorf("insert shot events: %w", err)
	}
	return nil
}

func (o *Orchestrator) archivePayload(ctx context.Context, runID, matchID string, payload json.RawMessage) {
	if o.archive == nil || !o.cfg.ArchivePayloads {
		return
	}
	// The digest in the path keeps distinct payload revisions for the
	// same match addressable across runs.
	path := fmt.Sprintf("%s/%s-%s.json", runID, matchID, o.hasher.ShortHash(payload))
	if _, err := o.archive.PutObject(ctx, path, "application/json", payload); err != nil {
		o.logger.Warn("payload archive failed",
			zap.String("match_id", matchID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) publishSummary(ctx context.Context, runID string, status feed.RunStatus, counters feed.RunCounters) {
	if o.publisher == nil || o.cfg.PublishTopic == "" {
		return
	}
	payload := map[string]any{
		"run_id":       runID,
		"status":       string(status),
		"discovered":   counters.Discovered,
		"allowed":      counters.Allowed,
		"shot_events":  counters.ShotEventsSaved,
		"backfilled":   counters.Backfilled,
		"items_failed": counters.ItemsFailed,
		"finished_at":  o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.PublishTopic, payload); err != nil {
		o.logger.Warn("run summary publish failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (o *Orchestrator) recordPhase(phase string, results []itemResult) {
	for _, r := range results {
		metrics.ItemsProcessed.WithLabelValues(phase, string(r.Status)).Inc()
	}
}

func (o *Orchestrator) tournamentAllowed(name string) bool {
	if len(o.cfg.AllowList) == 0 {
		return true
	}
	for _, allowed := range o.cfg.AllowList {
		if normalize.EqualFold(allowed, name) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) matchURL(id string) string {
	return fmt.Sprintf("%s/api/v1/event/%s", o.cfg.BaseURL, id)
}

func (o *Orchestrator) shotmapURL(id string) string {
	return fmt.Sprintf("%s/api/v1/event/%s/shotmap", o.cfg.BaseURL, id)
}

func (o *Orchestrator) matchPageURL(id string) string {
	return fmt.Sprintf("%s/event/%s", o.cfg.SiteURL, id)
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
