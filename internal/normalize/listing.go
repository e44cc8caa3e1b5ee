package normalize

import (
	"encoding/json"
	"time"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

// EventSummary is the slim view of one listed event used by discovery. The
// ID alone does not carry enough information to filter; the tournament
// allow-list decision happens after metadata inspection.
type EventSummary struct {
	ID         string
	Tournament string
	Status     feed.MatchStatus
	StartAt    time.Time
}

// ParseEventListing extracts event summaries from a season or schedule
// listing payload, tolerating the same shape variants as the shot-event
// normalizer. Unparseable payloads yield an empty list.
func ParseEventListing(payload json.RawMessage) []EventSummary {
	items := extractItems(payload)
	if len(items) == 0 {
		return nil
	}
	summaries := make([]EventSummary, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := firstString(item, "id", "eventId", "event_id")
		if !ok {
			continue
		}
		summary := EventSummary{
			ID:         id,
			Tournament: tournamentName(item),
			Status:     MapStatus(statusType(item)),
		}
		if ts, ok := firstFloat(item, "startTimestamp", "startTime", "start_time"); ok {
			summary.StartAt = time.Unix(int64(ts), 0).UTC()
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
