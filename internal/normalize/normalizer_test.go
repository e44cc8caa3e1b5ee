package normalize

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThalysDev/finalizabot-sub000/internal/feed"
)

const shotItem = `{
	"id": 901,
	"shotType": "goal",
	"player": {"id": 42, "name": "A. Striker"},
	"teamId": 7,
	"time": 23,
	"second": 14,
	"xg": "0.31",
	"bodyPart": "left-foot",
	"situation": "fast-break",
	"playerCoordinates": {"x": 12.5, "y": 44.1}
}`

func TestNormalize_SameEventsAcrossShapes(t *testing.T) {
	t.Parallel()

	shapes := []string{
		fmt.Sprintf(`[%s]`, shotItem),
		fmt.Sprintf(`{"events":[%s]}`, shotItem),
		fmt.Sprintf(`{"shotmap":[%s]}`, shotItem),
		fmt.Sprintf(`{"incidents":[%s]}`, shotItem),
		fmt.Sprintf(`{"shots":[%s]}`, shotItem),
		fmt.Sprintf(`{"data":{"events":[%s]}}`, shotItem),
		fmt.Sprintf(`{"data":{"shotmap":[%s]}}`, shotItem),
	}

	n := New(zap.NewNop())
	for _, shape := range shapes {
		events := n.Normalize("m1", json.RawMessage(shape), "", "")
		require.Len(t, events, 1, "shape %s", shape)
		ev := events[0]
		require.Equal(t, "m1:901", ev.ID)
		require.Equal(t, "m1", ev.MatchID)
		require.Equal(t, "42", ev.PlayerID)
		require.Equal(t, "A. Striker", ev.PlayerName)
		require.Equal(t, "7", ev.TeamID)
		require.Equal(t, 23, ev.Minute)
		require.NotNil(t, ev.Second)
		require.Equal(t, 14, *ev.Second)
		require.Equal(t, feed.ShotOutcomeGoal, ev.Outcome)
		require.NotNil(t, ev.XG)
		require.InDelta(t, 0.31, *ev.XG, 1e-9)
		require.Equal(t, feed.BodyPartLeftFoot, ev.BodyPart)
		require.Equal(t, feed.SituationFastBreak, ev.Situation)
		require.NotNil(t, ev.X)
		require.InDelta(t, 12.5, *ev.X, 1e-9)
		require.NotNil(t, ev.Y)
		require.InDelta(t, 44.1, *ev.Y, 1e-9)
	}
}

func TestNormalize_NeverRaisesOnGarbage(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	for _, payload := range []string{
		``, `null`, `42`, `"a string"`, `true`,
		`{"unrelated": {"deep": [1, 2]}}`,
		`{"events": "not-an-array"}`,
		`{"events": [null, 3, "x", {"type": "card"}]}`,
		`{invalid json`,
	} {
		require.Empty(t, n.Normalize("m1", json.RawMessage(payload), "", ""), "payload %q", payload)
	}
}

func TestNormalize_OutcomeTable(t *testing.T) {
	t.Parallel()

	cases := map[string]feed.ShotOutcome{
		"goal":      feed.ShotOutcomeGoal,
		"on":        feed.ShotOutcomeOnTarget,
		"on_target": feed.ShotOutcomeOnTarget,
		"save":      feed.ShotOutcomeOnTarget,
		"miss":      feed.ShotOutcomeOffTarget,
		"block":     feed.ShotOutcomeBlocked,
		"Blocked ":  feed.ShotOutcomeBlocked,
		"xyz":       feed.ShotOutcomeUnknown,
	}
	n := New(zap.NewNop())
	for input, want := range cases {
		payload := fmt.Sprintf(`[{"id": 1, "type": "shot", "shotType": %q}]`, input)
		events := n.Normalize("m1", json.RawMessage(payload), "", "")
		require.Len(t, events, 1)
		require.Equal(t, want, events[0].Outcome, "input %q", input)
	}
}

func TestNormalize_EnumsDefaultToUnknownNotEmpty(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	events := n.Normalize("m1", json.RawMessage(`[{"id": 1, "type": "shot"}]`), "", "")
	require.Len(t, events, 1)
	require.Equal(t, feed.ShotOutcomeUnknown, events[0].Outcome)
	require.Equal(t, feed.BodyPartUnknown, events[0].BodyPart)
	require.Equal(t, feed.SituationUnknown, events[0].Situation)
}

func TestNormalize_IsHomeTeamFallback(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())

	home := n.Normalize("m1", json.RawMessage(`[{"id": 1, "type": "shot", "isHome": true}]`), "home-t", "away-t")
	require.Len(t, home, 1)
	require.Equal(t, "home-t", home[0].TeamID)

	away := n.Normalize("m1", json.RawMessage(`[{"id": 2, "type": "shot", "isHome": false}]`), "home-t", "away-t")
	require.Len(t, away, 1)
	require.Equal(t, "away-t", away[0].TeamID)

	// Explicit team always wins over the boolean.
	explicit := n.Normalize("m1", json.RawMessage(`[{"id": 3, "type": "shot", "isHome": true, "teamId": 99}]`), "home-t", "away-t")
	require.Len(t, explicit, 1)
	require.Equal(t, "99", explicit[0].TeamID)
}

func TestNormalize_DropsNonShotItems(t *testing.T) {
	t.Parallel()

	payload := `{"incidents": [
		{"id": 1, "incidentType": "card", "playerId": 5},
		{"id": 2, "incidentType": "substitution"},
		{"id": 3, "incidentType": "shot", "shotType": "save"},
		{"id": 4, "incidentType": "period"}
	]}`
	n := New(zap.NewNop())
	events := n.Normalize("m1", json.RawMessage(payload), "", "")
	require.Len(t, events, 1)
	require.Equal(t, "m1:3", events[0].ID)
	require.Equal(t, feed.ShotOutcomeOnTarget, events[0].Outcome)
}

func TestNormalize_ToleratesTypeMismatches(t *testing.T) {
	t.Parallel()

	payload := `[{
		"id": "ev-1",
		"type": "shot",
		"minute": "77",
		"xg": {"bad": true},
		"playerId": 8.0,
		"second": null
	}]`
	n := New(zap.NewNop())
	events := n.Normalize("m1", json.RawMessage(payload), "", "")
	require.Len(t, events, 1)
	ev := events[0]
	require.Equal(t, "m1:ev-1", ev.ID)
	require.Equal(t, 77, ev.Minute)
	require.Nil(t, ev.XG)
	require.Equal(t, "8", ev.PlayerID)
	require.Nil(t, ev.Second)
}

func TestNormalize_DropsItemsWithoutID(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	events := n.Normalize("m1", json.RawMessage(`[{"type": "shot", "minute": 5}]`), "", "")
	require.Empty(t, events)
}

func TestNormalize_NegativeMinuteClampsToZero(t *testing.T) {
	t.Parallel()

	n := New(zap.NewNop())
	events := n.Normalize("m1", json.RawMessage(`[{"id": 1, "type": "shot", "minute": -3}]`), "", "")
	require.Len(t, events, 1)
	require.Equal(t, 0, events[0].Minute)
}
