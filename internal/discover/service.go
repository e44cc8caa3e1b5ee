// Package discover determines which upstream match identifiers are relevant
// for ingestion: the current date window plus a finished-match lookback.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
	"github.com/ThalysDev/finalizabot-sub000/internal/normalize"
)

// Tournament pairs an allow-listed competition name with the upstream
// identifiers needed to fetch its current season's events.
type Tournament struct {
	Name     string
	ID       string
	SeasonID string
}

// DefaultTournaments is the zero-config European competition set.
func DefaultTournaments() []Tournament {
	return []Tournament{
		{Name: "Premier League", ID: "17", SeasonID: "76986"},
		{Name: "LaLiga", ID: "8", SeasonID: "77559"},
		{Name: "Serie A", ID: "23", SeasonID: "76457"},
		{Name: "Bundesliga", ID: "35", SeasonID: "77333"},
		{Name: "Ligue 1", ID: "34", SeasonID: "77356"},
		{Name: "UEFA Champions League", ID: "7", SeasonID: "76953"},
	}
}

// Config controls the discovery window.
type Config struct {
	BaseURL     string
	DayOffsets  []int
	Timezone    string
	Tournaments []Tournament
}

func (c Config) withDefaults() Config {
	if len(c.DayOffsets) == 0 {
		c.DayOffsets = []int{0, 1}
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/London"
	}
	if len(c.Tournaments) == 0 {
		c.Tournaments = DefaultTournaments()
	}
	return c
}

// JSONFetcher is the lightweight acquisition path (the retrier).
type JSONFetcher interface {
	FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, bool)
}

// IDExtractor is the browser fallback used when the schedule endpoint
// yields nothing over the lightweight path.
type IDExtractor interface {
	ExtractMatchIDs(ctx context.Context, pageURL string) ([]string, bool)
}

// Service discovers candidate match IDs.
type Service struct {
	cfg       Config
	fetcher   JSONFetcher
	extractor IDExtractor
	logger    *zap.Logger
	now       func() time.Time
}

// New builds a Service. extractor may be nil to disable the browser tier.
func New(cfg Config, fetcher JSONFetcher, extractor IDExtractor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg.withDefaults(),
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// CurrentWindowMatchIDs returns the match IDs for the configured day
// offsets: allow-listed season events on those dates, unioned with the
// date-indexed schedule. When allow-list filtering would empty the result
// but the raw schedule still has candidates, the unfiltered schedule wins —
// availability over precision when the allow-list data looks stale.
func (s *Service) CurrentWindowMatchIDs(ctx context.Context) []string {
	dates := s.windowDates()
	dateSet := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		dateSet[d] = struct{}{}
	}

	var (
		ids          []string
		seen         = map[string]struct{}{}
		rawSchedule  []string
		scheduleMiss bool
	)
	add := func(id string) {
		if _, dup := seen[id]; dup || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, tournament := range s.cfg.Tournaments {
		payload, ok := s.fetcher.FetchJSON(ctx, s.seasonEventsURL(tournament))
		if !ok {
			continue
		}
		for _, ev := range normalize.ParseEventListing(payload) {
			if ev.Status == feed.MatchStatusCanceled {
				continue
			}
			if _, inWindow := dateSet[s.localDate(ev.StartAt)]; !inWindow {
				continue
			}
			add(ev.ID)
		}
	}

	for _, date := range dates {
		payload, ok := s.fetcher.FetchJSON(ctx, s.scheduleURL(date))
		if !ok {
			scheduleMiss = true
			continue
		}
		for _, ev := range normalize.ParseEventListing(payload) {
			if ev.Status == feed.MatchStatusCanceled {
				continue
			}
			rawSchedule = append(rawSchedule, ev.ID)
			if s.allowed(ev.Tournament) {
				add(ev.ID)
			}
		}
	}

	if len(ids) == 0 && len(rawSchedule) > 0 {
		s.logger.Warn("tournament filtering emptied the window, using unfiltered schedule",
			zap.Int("schedule_candidates", len(rawSchedule)),
		)
		for _, id := range rawSchedule {
			add(id)
		}
	}

	if len(ids) == 0 && scheduleMiss && s.extractor != nil {
		for _, date := range dates {
			extracted, ok := s.extractor.ExtractMatchIDs(ctx, s.schedulePageURL(date))
			if !ok {
				continue
			}
			s.logger.Info("match ids recovered via browser fallback",
				zap.String("date", date),
				zap.Int("count", len(extracted)),
			)
			for _, id := range extracted {
				add(id)
			}
		}
	}

	return ids
}

// FinishedMatchIDsSince scans the configured tournaments for finished
// events whose start time falls inside the lookback window. Used to
// backfill player history.
func (s *Service) FinishedMatchIDsSince(ctx context.Context, days int) []string {
	if days <= 0 {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -days)

	var ids []string
	seen := map[string]struct{}{}
	for _, tournament := range s.cfg.Tournaments {
		payload, ok := s.fetcher.FetchJSON(ctx, s.seasonEventsURL(tournament))
		if !ok {
			continue
		}
		for _, ev := range normalize.ParseEventListing(payload) {
			if ev.Status != feed.MatchStatusFinished {
				continue
			}
			if ev.StartAt.Before(cutoff) || ev.StartAt.After(s.now()) {
				continue
			}
			if !s.allowed(ev.Tournament) {
				continue
			}
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// windowDates evaluates the configured day offsets in the configured
// timezone, falling back to UTC when the zone cannot be loaded.
func (s *Service) windowDates() []string {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", s.cfg.Timezone))
		loc = time.UTC
	}
	now := s.now().In(loc)
	dates := make([]string, 0, len(s.cfg.DayOffsets))
	for _, offset := range s.cfg.DayOffsets {
		dates = append(dates, now.AddDate(0, 0, offset).Format("2006-01-02"))
	}
	return dates
}

func (s *Service) localDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

func (s *Service) allowed(tournament string) bool {
	for _, t := range s.cfg.Tournaments {
		if normalize.EqualFold(t.Name, tournament) {
			return true
		}
	}
	return false
}

func (s *Service) seasonEventsURL(t Tournament) string {
	return fmt.Sprintf("%s/api/v1/unique-tournament/%s/season/%s/events", s.cfg.BaseURL, t.ID, t.SeasonID)
}

func (s *Service) scheduleURL(date string) string {
	return fmt.Sprintf("%s/api/v1/sport/football/scheduled-events/%s", s.cfg.BaseURL, date)
}

func (s *Service) schedulePageURL(date string) string {
	return fmt.Sprintf("%s/football/%s", s.cfg.BaseURL, date)
}
