package feed

import (
	"context"
	"time"
)

// Store is the narrow persistence contract consumed by the pipeline. All
// upserts are idempotent by natural key; InsertShotEvents upserts per
// (match, event) key so items may be retried or reprocessed across runs.
type Store interface {
	UpsertTeam(ctx context.Context, team Team) error
	UpsertPlayer(ctx context.Context, player Player) error
	UpsertMatch(ctx context.Context, match Match) error
	AttachMatchPlayer(ctx context.Context, matchID, playerID, teamID string) error
	InsertShotEvents(ctx context.Context, events []ShotEvent) error
	CreateIngestRun(ctx context.Context, run IngestRun) error
	UpdateIngestRun(ctx context.Context, runID string, status RunStatus, finishedAt time.Time, errText string) error
	LatestIngestRun(ctx context.Context) (IngestRun, error)
}

// Archive stores raw upstream payloads for later inspection and returns a
// URI for the written blob.
type Archive interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion summaries to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces ingest run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
