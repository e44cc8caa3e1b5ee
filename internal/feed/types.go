// Package feed defines the canonical domain types shared across the
// ingestion pipeline and the contracts of its downstream collaborators.
package feed

import (
	"fmt"
	"time"
)

// ShotOutcome is the closed set of results a shot attempt can have.
type ShotOutcome string

// Shot outcome values. Absence or an unrecognized upstream value maps to
// ShotOutcomeUnknown, never to an empty string.
const (
	ShotOutcomeGoal      ShotOutcome = "goal"
	ShotOutcomeOnTarget  ShotOutcome = "on_target"
	ShotOutcomeOffTarget ShotOutcome = "off_target"
	ShotOutcomeBlocked   ShotOutcome = "blocked"
	ShotOutcomeUnknown   ShotOutcome = "unknown"
)

// BodyPart is the closed set of body parts a shot can be taken with.
type BodyPart string

// Body part values.
const (
	BodyPartRightFoot BodyPart = "right_foot"
	BodyPartLeftFoot  BodyPart = "left_foot"
	BodyPartHead      BodyPart = "head"
	BodyPartOther     BodyPart = "other"
	BodyPartUnknown   BodyPart = "unknown"
)

// Situation is the closed set of play situations a shot can arise from.
type Situation string

// Situation values.
const (
	SituationRegular   Situation = "regular"
	SituationAssisted  Situation = "assisted"
	SituationFastBreak Situation = "fast_break"
	SituationSetPiece  Situation = "set_piece"
	SituationCorner    Situation = "corner"
	SituationFreeKick  Situation = "free_kick"
	SituationPenalty   Situation = "penalty"
	SituationOwnGoal   Situation = "own_goal"
	SituationUnknown   Situation = "unknown"
)

// ShotEvent is the canonical, schema-stable representation of one shot
// attempt, independent of the upstream payload shape it was parsed from.
// Outcome, BodyPart and Situation are never empty: absence maps to the
// literal unknown value so consumers can branch exhaustively.
type ShotEvent struct {
	ID         string
	MatchID    string
	PlayerID   string
	PlayerName string
	TeamID     string
	Minute     int
	Second     *int
	Outcome    ShotOutcome
	XG         *float64
	BodyPart   BodyPart
	Situation  Situation
	X          *float64
	Y          *float64
}

// EventKey builds the globally unique identifier for a shot event from the
// match ID and the upstream event ID.
func EventKey(matchID, upstreamEventID string) string {
	return fmt.Sprintf("%s:%s", matchID, upstreamEventID)
}

// Team carries the minimal team metadata persisted alongside shot events.
type Team struct {
	ID       string
	Name     string
	ImageURL string
}

// Player carries the minimal player metadata persisted alongside shot events.
type Player struct {
	ID   string
	Name string
}

// MatchStatus mirrors the upstream status vocabulary after normalization.
type MatchStatus string

// Match status values the pipeline cares about.
const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "inprogress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCanceled   MatchStatus = "canceled"
	MatchStatusUnknown    MatchStatus = "unknown"
)

// Match is the metadata record fetched during the metadata crawl phase. The
// tournament name drives the allow-list filter; home/away team IDs feed the
// normalizer's isHome fallback.
type Match struct {
	ID         string
	Tournament string
	Season     string
	Status     MatchStatus
	StartAt    time.Time
	HomeTeam   Team
	AwayTeam   Team
	HomeScore  *int
	AwayScore  *int
}

// RunStatus is the lifecycle state of an ingest run. Transitions only go
// started -> {success, failed}, never backwards.
type RunStatus string

// Run status values persisted on the ingest_runs audit record.
const (
	RunStatusStarted RunStatus = "started"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// IngestRun is the audit record for one orchestrator execution.
type IngestRun struct {
	ID         string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	ErrorText  string
}

// RunCounters aggregates per-phase results for run-completion reporting.
type RunCounters struct {
	Discovered      int
	Allowed         int
	ShotEventsSaved int
	Backfilled      int
	ItemsFailed     int
}
