package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

func TestParseMatch_NestedEventObject(t *testing.T) {
	t.Parallel()

	payload := `{"event": {
		"tournament": {"name": "Premier League 24/25", "uniqueTournament": {"name": "Premier League"}},
		"season": {"name": "2025/26", "year": "25/26"},
		"status": {"code": 100, "type": "finished"},
		"startTimestamp": 1756526400,
		"homeTeam": {"id": 44, "name": "Liverpool", "imageUrl": "https://img/44.png"},
		"awayTeam": {"id": 35, "name": "Bournemouth"},
		"homeScore": {"current": 4},
		"awayScore": {"current": 2}
	}}`

	match, ok := ParseMatch("12345678", json.RawMessage(payload))
	require.True(t, ok)
	require.Equal(t, "12345678", match.ID)
	require.Equal(t, "Premier League", match.Tournament)
	require.Equal(t, "2025/26", match.Season)
	require.Equal(t, feed.MatchStatusFinished, match.Status)
	require.Equal(t, time.Unix(1756526400, 0).UTC(), match.StartAt)
	require.Equal(t, "44", match.HomeTeam.ID)
	require.Equal(t, "Liverpool", match.HomeTeam.Name)
	require.Equal(t, "https://img/44.png", match.HomeTeam.ImageURL)
	require.Equal(t, "35", match.AwayTeam.ID)
	require.NotNil(t, match.HomeScore)
	require.Equal(t, 4, *match.HomeScore)
	require.NotNil(t, match.AwayScore)
	require.Equal(t, 2, *match.AwayScore)
}

func TestParseMatch_FlatObjectAndStatusAliases(t *testing.T) {
	t.Parallel()

	payload := `{
		"tournament": {"name": "LaLiga"},
		"status": {"type": "notstarted"},
		"homeTeam": {"id": 1, "name": "A"},
		"awayTeam": {"id": 2, "name": "B"}
	}`
	match, ok := ParseMatch("m1", json.RawMessage(payload))
	require.True(t, ok)
	require.Equal(t, "LaLiga", match.Tournament)
	require.Equal(t, feed.MatchStatusScheduled, match.Status)
	require.Nil(t, match.HomeScore)
}

func TestParseMatch_RejectsUnrecognizedPayloads(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{``, `null`, `[]`, `"x"`, `{"foo": 1}`, `{bad`} {
		_, ok := ParseMatch("m1", json.RawMessage(payload))
		require.False(t, ok, "payload %q", payload)
	}
}

func TestMapStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, feed.MatchStatusFinished, MapStatus("Finished"))
	require.Equal(t, feed.MatchStatusCanceled, MapStatus("cancelled"))
	require.Equal(t, feed.MatchStatusInProgress, MapStatus("inprogress"))
	require.Equal(t, feed.MatchStatusUnknown, MapStatus("weird"))
	require.Equal(t, feed.MatchStatusUnknown, MapStatus(""))
}
