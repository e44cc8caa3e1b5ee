package normalize

import (
	"encoding/json"
	"time"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

var statusTable = map[string]feed.MatchStatus{
	"notstarted": feed.MatchStatusScheduled,
	"scheduled":  feed.MatchStatusScheduled,
	"inprogress": feed.MatchStatusInProgress,
	"live":       feed.MatchStatusInProgress,
	"finished":   feed.MatchStatusFinished,
	"ended":      feed.MatchStatusFinished,
	"canceled":   feed.MatchStatusCanceled,
	"cancelled":  feed.MatchStatusCanceled,
	"postponed":  feed.MatchStatusCanceled,
}

// ParseMatch maps a match-details payload to the canonical Match record.
// The event object may sit at the top level or under an "event" key. A
// payload that cannot be interpreted yields ok == false, never an error.
func ParseMatch(matchID string, payload json.RawMessage) (feed.Match, bool) {
	if len(payload) == 0 {
		return feed.Match{}, false
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return feed.Match{}, false
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return feed.Match{}, false
	}
	if nested, ok := obj["event"].(map[string]any); ok {
		obj = nested
	}

	match := feed.Match{
		ID:         matchID,
		Tournament: tournamentName(obj),
		Status:     MapStatus(statusType(obj)),
	}
	if season, ok := obj["season"].(map[string]any); ok {
		match.Season, _ = firstString(season, "name", "year")
	}
	if ts, ok := firstFloat(obj, "startTimestamp", "startTime", "start_time"); ok {
		match.StartAt = time.Unix(int64(ts), 0).UTC()
	}
	match.HomeTeam = parseTeam(obj, "homeTeam")
	match.AwayTeam = parseTeam(obj, "awayTeam")
	if score, ok := currentScore(obj, "homeScore"); ok {
		match.HomeScore = &score
	}
	if score, ok := currentScore(obj, "awayScore"); ok {
		match.AwayScore = &score
	}

	if match.HomeTeam.ID == "" && match.AwayTeam.ID == "" && match.Tournament == "" {
		return feed.Match{}, false
	}
	return match, true
}

// MapStatus maps an upstream status string to the closed status set.
func MapStatus(s string) feed.MatchStatus {
	if mapped, ok := statusTable[normalizeKey(s)]; ok {
		return mapped
	}
	return feed.MatchStatusUnknown
}

func tournamentName(obj map[string]any) string {
	tournament, ok := obj["tournament"].(map[string]any)
	if !ok {
		return ""
	}
	if unique, ok := tournament["uniqueTournament"].(map[string]any); ok {
		if name, ok := firstString(unique, "name"); ok {
			return name
		}
	}
	name, _ := firstString(tournament, "name")
	return name
}

func statusType(obj map[string]any) string {
	status, ok := obj["status"].(map[string]any)
	if !ok {
		s, _ := firstString(obj, "status")
		return s
	}
	s, _ := firstString(status, "type", "description")
	return s
}

func parseTeam(obj map[string]any, key string) feed.Team {
	teamObj, ok := obj[key].(map[string]any)
	if !ok {
		return feed.Team{}
	}
	team := feed.Team{}
	team.ID, _ = firstString(teamObj, "id")
	team.Name, _ = firstString(teamObj, "name", "shortName")
	team.ImageURL, _ = firstString(teamObj, "imageUrl", "logo", "image_url")
	return team
}

func currentScore(obj map[string]any, key string) (int, bool) {
	scoreObj, ok := obj[key].(map[string]any)
	if !ok {
		return 0, false
	}
	return firstInt(scoreObj, "current", "display", "normaltime")
}
