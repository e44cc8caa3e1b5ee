// Package normalize reconciles the upstream's divergent shot-event payload
// shapes into canonical records. Everything here degrades instead of
// failing: unknown shapes yield an empty list, unmapped enum values resolve
// to unknown, and type mismatches resolve to absent fields.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
	"github.com/ThalysDev/finalizabot-sub000/internal/metrics"
)

// payloadKeys are the object fields that may hold the event array, probed in
// order. The same keys are probed one nesting level down.
var payloadKeys = []string{"events", "shotmap", "data", "incidents", "shots"}

// shotKinds is the type/kind vocabulary that marks an item as a shot
// attempt. Items whose kind matches nothing here are silently dropped.
var shotKinds = map[string]struct{}{
	"shot": {}, "shoton": {}, "shotoff": {}, "finish": {}, "goal": {},
	"attempt": {}, "attemptsaved": {}, "save": {}, "saved": {},
	"miss": {}, "block": {}, "blocked": {}, "post": {},
	"ontarget": {}, "offtarget": {},
}

var outcomeTable = map[string]feed.ShotOutcome{
	"goal":         feed.ShotOutcomeGoal,
	"owngoal":      feed.ShotOutcomeGoal,
	"on":           feed.ShotOutcomeOnTarget,
	"ontarget":     feed.ShotOutcomeOnTarget,
	"shoton":       feed.ShotOutcomeOnTarget,
	"save":         feed.ShotOutcomeOnTarget,
	"saved":        feed.ShotOutcomeOnTarget,
	"attemptsaved": feed.ShotOutcomeOnTarget,
	"off":          feed.ShotOutcomeOffTarget,
	"offtarget":    feed.ShotOutcomeOffTarget,
	"shotoff":      feed.ShotOutcomeOffTarget,
	"miss":         feed.ShotOutcomeOffTarget,
	"post":         feed.ShotOutcomeOffTarget,
	"bar":          feed.ShotOutcomeOffTarget,
	"block":        feed.ShotOutcomeBlocked,
	"blocked":      feed.ShotOutcomeBlocked,
}

var bodyPartTable = map[string]feed.BodyPart{
	"rightfoot": feed.BodyPartRightFoot,
	"right":     feed.BodyPartRightFoot,
	"leftfoot":  feed.BodyPartLeftFoot,
	"left":      feed.BodyPartLeftFoot,
	"head":      feed.BodyPartHead,
	"header":    feed.BodyPartHead,
	"other":     feed.BodyPartOther,
	"hand":      feed.BodyPartOther,
}

var situationTable = map[string]feed.Situation{
	"regular":         feed.SituationRegular,
	"regularplay":     feed.SituationRegular,
	"openplay":        feed.SituationRegular,
	"assisted":        feed.SituationAssisted,
	"fastbreak":       feed.SituationFastBreak,
	"counter":         feed.SituationFastBreak,
	"setpiece":        feed.SituationSetPiece,
	"corner":          feed.SituationCorner,
	"fromcorner":      feed.SituationCorner,
	"freekick":        feed.SituationFreeKick,
	"directfreekick":  feed.SituationFreeKick,
	"penalty":         feed.SituationPenalty,
	"penaltyshootout": feed.SituationPenalty,
	"owngoal":         feed.SituationOwnGoal,
}

// Normalizer maps heterogeneous upstream payloads to canonical shot events.
type Normalizer struct {
	logger *zap.Logger
}

// New builds a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize extracts canonical shot events from payload. homeTeamID and
// awayTeamID, when supplied, back the isHome team resolution fallback. A
// payload that matches no known shape yields an empty list, never an error.
func (n *Normalizer) Normalize(matchID string, payload json.RawMessage, homeTeamID, awayTeamID string) []feed.ShotEvent {
	items := extractItems(payload)
	if len(items) == 0 {
		return nil
	}

	events := make([]feed.ShotEvent, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if !isShotItem(item) {
			continue
		}
		ev, ok := n.buildEvent(matchID, item, homeTeamID, awayTeamID)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	metrics.NormalizedEvents.Add(float64(len(events)))
	return events
}

// extractItems probes the supported payload shapes in order: a bare array,
// an object with a known array key, and one further nesting level under any
// known key. First match wins.
func extractItems(payload json.RawMessage) []any {
	if len(payload) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil
	}

	if arr, ok := decoded.([]any); ok {
		return arr
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range payloadKeys {
		if arr, ok := obj[key].([]any); ok {
			return arr
		}
	}
	for _, key := range payloadKeys {
		nested, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		for _, inner := range payloadKeys {
			if arr, ok := nested[inner].([]any); ok {
				return arr
			}
		}
	}
	return nil
}

// isShotItem checks the item's kind across the aliased type fields against
// the shot vocabulary.
func isShotItem(item map[string]any) bool {
	for _, field := range []string{"type", "kind", "incidentType", "eventType", "shotType"} {
		val, ok := stringField(item, field)
		if !ok {
			continue
		}
		if _, shot := shotKinds[normalizeKey(val)]; shot {
			return true
		}
	}
	return false
}

func (n *Normalizer) buildEvent(matchID string, item map[string]any, homeTeamID, awayTeamID string) (feed.ShotEvent, bool) {
	upstreamID, ok := firstString(item, "id", "eventId", "incidentId", "shotId")
	if !ok {
		n.logger.Debug("dropping shot item without an id", zap.String("match_id", matchID))
		return feed.ShotEvent{}, false
	}

	minute, _ := firstInt(item, "minute", "time", "min")
	if minute < 0 {
		minute = 0
	}

	ev := feed.ShotEvent{
		ID:        feed.EventKey(matchID, upstreamID),
		MatchID:   matchID,
		Minute:    minute,
		Outcome:   mapEnum(item, outcomeTable, feed.ShotOutcomeUnknown, "shotType", "outcome", "result", "type"),
		BodyPart:  mapEnum(item, bodyPartTable, feed.BodyPartUnknown, "bodyPart", "bodyType", "body_part"),
		Situation: mapEnum(item, situationTable, feed.SituationUnknown, "situation", "situationType", "situation_type"),
	}

	if sec, ok := firstInt(item, "second", "timeSeconds", "sec"); ok {
		ev.Second = &sec
	}
	if xg, ok := firstFloat(item, "xg", "xG", "expectedGoals"); ok {
		ev.XG = &xg
	}
	if id, ok := firstString(item, "playerId", "player_id"); ok {
		ev.PlayerID = id
	} else if id, ok := nestedString(item, "player", "id"); ok {
		ev.PlayerID = id
	}
	if name, ok := firstString(item, "playerName", "player_name"); ok {
		ev.PlayerName = name
	} else if name, ok := nestedString(item, "player", "name"); ok {
		ev.PlayerName = name
	} else if name, ok := nestedString(item, "player", "shortName"); ok {
		ev.PlayerName = name
	}
	ev.TeamID = resolveTeamID(item, homeTeamID, awayTeamID)

	if x, y, ok := coordinates(item); ok {
		ev.X = &x
		ev.Y = &y
	}
	return ev, true
}

// resolveTeamID prefers an explicit team field and falls back to the isHome
// boolean when the caller supplied home/away team IDs.
func resolveTeamID(item map[string]any, homeTeamID, awayTeamID string) string {
	if id, ok := firstString(item, "teamId", "team_id"); ok {
		return id
	}
	if id, ok := nestedString(item, "team", "id"); ok {
		return id
	}
	isHome, ok := boolField(item, "isHome", "is_home", "home")
	if !ok {
		return ""
	}
	if isHome {
		return homeTeamID
	}
	return awayTeamID
}

func coordinates(item map[string]any) (float64, float64, bool) {
	if x, okX := firstFloat(item, "x"); okX {
		if y, okY := firstFloat(item, "y"); okY {
			return x, y, true
		}
	}
	for _, key := range []string{"playerCoordinates", "coordinates"} {
		nested, ok := item[key].(map[string]any)
		if !ok {
			continue
		}
		if x, okX := firstFloat(nested, "x"); okX {
			if y, okY := firstFloat(nested, "y"); okY {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// mapEnum looks the item's value up across aliased fields in a closed
// mapping table. Unmapped or absent values resolve to the fallback.
func mapEnum[T ~string](item map[string]any, table map[string]T, fallback T, fields ...string) T {
	for _, field := range fields {
		val, ok := stringField(item, field)
		if !ok {
			continue
		}
		if mapped, hit := table[normalizeKey(val)]; hit {
			return mapped
		}
	}
	return fallback
}

// EqualFold reports whether two upstream labels match after key
// normalization, so "Premier League" matches "premier-league".
func EqualFold(a, b string) bool {
	return a != "" && normalizeKey(a) == normalizeKey(b)
}

// normalizeKey lowercases and strips whitespace, hyphens and underscores so
// table keys match regardless of upstream casing conventions.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_':
			return -1
		}
		return r
	}, s)
}

func stringField(item map[string]any, field string) (string, bool) {
	val, ok := item[field]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

func boolField(item map[string]any, fields ...string) (bool, bool) {
	for _, field := range fields {
		if b, ok := item[field].(bool); ok {
			return b, true
		}
	}
	return false, false
}

// firstString coerces the first present alias to a string. Numbers format
// without a fractional part when integral, matching upstream numeric IDs.
func firstString(item map[string]any, fields ...string) (string, bool) {
	for _, field := range fields {
		val, ok := item[field]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10), true
			}
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

func nestedString(item map[string]any, key, field string) (string, bool) {
	nested, ok := item[key].(map[string]any)
	if !ok {
		return "", false
	}
	return firstString(nested, field)
}

// firstFloat coerces the first present alias to a float. Numeric-looking
// strings coerce; everything else degrades to absent.
func firstFloat(item map[string]any, fields ...string) (float64, bool) {
	for _, field := range fields {
		val, ok := item[field]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func firstInt(item map[string]any, fields ...string) (int, bool) {
	if f, ok := firstFloat(item, fields...); ok {
		return int(f), true
	}
	return 0, false
}
