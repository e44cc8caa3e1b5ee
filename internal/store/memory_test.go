package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

func TestMemoryStoreUpsertsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertTeam(ctx, feed.Team{ID: "t1", Name: "Old"}))
	require.NoError(t, s.UpsertTeam(ctx, feed.Team{ID: "t1", Name: "New"}))

	events := []feed.ShotEvent{
		{ID: "100:ev-1", MatchID: "100", Outcome: feed.ShotOutcomeOnTarget},
	}
	require.NoError(t, s.InsertShotEvents(ctx, events))
	events[0].Outcome = feed.ShotOutcomeGoal
	require.NoError(t, s.InsertShotEvents(ctx, events))

	stored := s.ShotEvents()
	require.Len(t, stored, 1)
	require.Equal(t, feed.ShotOutcomeGoal, stored[0].Outcome)
}

func TestMemoryStoreRunLifecycle(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	started := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	_, err := s.LatestIngestRun(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateIngestRun(ctx, feed.IngestRun{
		ID: "run-1", Status: feed.RunStatusStarted, StartedAt: started,
	}))
	require.NoError(t, s.CreateIngestRun(ctx, feed.IngestRun{
		ID: "run-2", Status: feed.RunStatusStarted, StartedAt: started.Add(time.Hour),
	}))
	require.NoError(t, s.UpdateIngestRun(ctx, "run-2", feed.RunStatusSuccess, started.Add(2*time.Hour), ""))

	latest, err := s.LatestIngestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.ID)
	require.Equal(t, feed.RunStatusSuccess, latest.Status)

	require.ErrorIs(t, s.UpdateIngestRun(ctx, "ghost", feed.RunStatusFailed, started, "x"), ErrNotFound)
}
