// Package store provides persistence implementations for the feed
// pipeline: a Postgres-backed store for production and an in-memory
// store for tests and local runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements feed.Store on a pgx connection pool. Every
// write is an upsert keyed by the record's natural key so reprocessing a
// match across runs is safe.
type PostgresStore struct {
	pool dbtx
}

// NewPostgresStore connects a pool using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool dbtx) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertTeam inserts or refreshes one team row.
func (s *PostgresStore) UpsertTeam(ctx context.Context, team feed.Team) error {
	query := `
		INSERT INTO teams (id, name, image_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, image_url = EXCLUDED.image_url;
	`
	if _, err := s.pool.Exec(ctx, query, team.ID, team.Name, team.ImageURL); err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}
	return nil
}

// UpsertPlayer inserts or refreshes one player row.
func (s *PostgresStore) UpsertPlayer(ctx context.Context, player feed.Player) error {
	query := `
		INSERT INTO players (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name;
	`
	if _, err := s.pool.Exec(ctx, query, player.ID, player.Name); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// UpsertMatch inserts or refreshes one match row.
func (s *PostgresStore) UpsertMatch(ctx context.Context, match feed.Match) error {
	query := `
		INSERT INTO matches (
			id, tournament, season, status, start_at,
			home_team_id, away_team_id, home_score, away_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET tournament = EXCLUDED.tournament,
			season = EXCLUDED.season,
			status = EXCLUDED.status,
			start_at = EXCLUDED.start_at,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score;
	`
	_, err := s.pool.Exec(ctx, query,
		match.ID,
		match.Tournament,
		match.Season,
		string(match.Status),
		match.StartAt,
		nullableID(match.HomeTeam.ID),
		nullableID(match.AwayTeam.ID),
		match.HomeScore,
		match.AwayScore,
	)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

// AttachMatchPlayer records a player's participation in a match for one
// team. The link table's primary key is (match_id, player_id).
func (s *PostgresStore) AttachMatchPlayer(ctx context.Context, matchID, playerID, teamID string) error {
	query := `
		INSERT INTO match_players (match_id, player_id, team_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id, player_id) DO UPDATE
		SET team_id = EXCLUDED.team_id;
	`
	if _, err := s.pool.Exec(ctx, query, matchID, playerID, teamID); err != nil {
		return fmt.Errorf("attach match player: %w", err)
	}
	return nil
}

// InsertShotEvents upserts each event by its (match, upstream event) key.
func (s *PostgresStore) InsertShotEvents(ctx context.Context, events []feed.ShotEvent) error {
	query := `
		INSERT INTO shot_events (
			id, match_id, player_id, team_id, minute, second,
			outcome, xg, body_part, situation, x, y
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET outcome = EXCLUDED.outcome,
			xg = EXCLUDED.xg,
			body_part = EXCLUDED.body_part,
			situation = EXCLUDED.situation,
			x = EXCLUDED.x,
			y = EXCLUDED.y;
	`
	for _, ev := range events {
		_, err := s.pool.Exec(ctx, query,
			ev.ID,
			ev.MatchID,
			nullableID(ev.PlayerID),
			nullableID(ev.TeamID),
			ev.Minute,
			ev.Second,
			string(ev.Outcome),
			ev.XG,
			string(ev.BodyPart),
			string(ev.Situation),
			ev.X,
			ev.Y,
		)
		if err != nil {
			return fmt.Errorf("insert shot event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// CreateIngestRun inserts the audit row for a new run.
func (s *PostgresStore) CreateIngestRun(ctx context.Context, run feed.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (id, status, started_at)
		VALUES ($1, $2, $3);
	`
	if _, err := s.pool.Exec(ctx, query, run.ID, string(run.Status), run.StartedAt); err != nil {
		return fmt.Errorf("create ingest run: %w", err)
	}
	return nil
}

// UpdateIngestRun finalizes a run's status.
func (s *PostgresStore) UpdateIngestRun(ctx context.Context, runID string, status feed.RunStatus, finishedAt time.Time, errText string) error {
	query := `
		UPDATE ingest_runs
		SET status = $1, finished_at = $2, error_text = $3
		WHERE id = $4;
	`
	tag, err := s.pool.Exec(ctx, query, string(status), finishedAt, errText, runID)
	if err != nil {
		return fmt.Errorf("update ingest run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update ingest run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// LatestIngestRun loads the most recently started run.
func (s *PostgresStore) LatestIngestRun(ctx context.Context) (feed.IngestRun, error) {
	query := `
		SELECT id, status, started_at, finished_at, error_text
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT 1;
	`
	var (
		run    feed.IngestRun
		status string
	)
	err := s.pool.QueryRow(ctx, query).Scan(&run.ID, &status, &run.StartedAt, &run.FinishedAt, &run.ErrorText)
	if errors.Is(err, pgx.ErrNoRows) {
		return feed.IngestRun{}, ErrNotFound
	}
	if err != nil {
		return feed.IngestRun{}, fmt.Errorf("load latest ingest run: %w", err)
	}
	run.Status = feed.RunStatus(status)
	return run, nil
}

// nullableID maps an empty string id to NULL so foreign keys stay clean.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
