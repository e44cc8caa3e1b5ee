package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

// MemoryStore is an in-memory feed.Store for tests and local runs. All
// methods are safe for concurrent use.
type MemoryStore struct {
	mu           sync.Mutex
	teams        map[string]feed.Team
	players      map[string]feed.Player
	matches      map[string]feed.Match
	matchPlayers map[string]string
	events       map[string]feed.ShotEvent
	runs         map[string]feed.IngestRun
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:        map[string]feed.Team{},
		players:      map[string]feed.Player{},
		matches:      map[string]feed.Match{},
		matchPlayers: map[string]string{},
		events:       map[string]feed.ShotEvent{},
		runs:         map[string]feed.IngestRun{},
	}
}

func (s *MemoryStore) UpsertTeam(ctx context.Context, team feed.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = team
	return nil
}

func (s *MemoryStore) UpsertPlayer(ctx context.Context, player feed.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *MemoryStore) UpsertMatch(ctx context.Context, match feed.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = match
	return nil
}

func (s *MemoryStore) AttachMatchPlayer(ctx context.Context, matchID, playerID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchPlayers[matchID+"/"+playerID] = teamID
	return nil
}

func (s *MemoryStore) InsertShotEvents(ctx context.Context, events []feed.ShotEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.events[ev.ID] = ev
	}
	return nil
}

func (s *MemoryStore) CreateIngestRun(ctx context.Context, run feed.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) UpdateIngestRun(ctx context.Context, runID string, status feed.RunStatus, finishedAt time.Time, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	run.FinishedAt = &finishedAt
	run.ErrorText = errText
	s.runs[runID] = run
	return nil
}

func (s *MemoryStore) LatestIngestRun(ctx context.Context) (feed.IngestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return feed.IngestRun{}, ErrNotFound
	}
	runs := make([]feed.IngestRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs[0], nil
}

// ShotEvents returns the stored events sorted by id, for assertions.
func (s *MemoryStore) ShotEvents() []feed.ShotEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]feed.ShotEvent, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

// Match returns one stored match, for assertions.
func (s *MemoryStore) Match(id string) (feed.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	return m, ok
}
