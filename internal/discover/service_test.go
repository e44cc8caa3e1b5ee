package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	payloads map[string]string
	calls    []string
}

func (f *fakeFetcher) FetchJSON(_ context.Context, rawURL string) (json.RawMessage, bool) {
	f.calls = append(f.calls, rawURL)
	payload, ok := f.payloads[rawURL]
	if !ok {
		return nil, false
	}
	return json.RawMessage(payload), true
}

type fakeExtractor struct {
	ids map[string][]string
}

func (f *fakeExtractor) ExtractMatchIDs(_ context.Context, pageURL string) ([]string, bool) {
	ids, ok := f.ids[pageURL]
	return ids, ok
}

func testConfig() Config {
	return Config{
		BaseURL:    "https://up.example",
		DayOffsets: []int{0, 1},
		Timezone:   "UTC",
		Tournaments: []Tournament{
			{Name: "Premier League", ID: "17", SeasonID: "100"},
		},
	}
}

func fixedNow() time.Time {
	// 2026-03-14 10:00 UTC
	return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func eventJSON(id int, tournament, status string, start time.Time) string {
	return fmt.Sprintf(
		`{"id": %d, "tournament": {"name": %q}, "status": {"type": %q}, "startTimestamp": %d}`,
		id, tournament, status, start.Unix(),
	)
}

func TestService_CurrentWindowUnionsSeasonAndSchedule(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	nextWeek := today.AddDate(0, 0, 7)

	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://up.example/api/v1/unique-tournament/17/season/100/events": fmt.Sprintf(
			`{"events": [%s, %s, %s, %s]}`,
			eventJSON(1001, "Premier League", "notstarted", today),
			eventJSON(1002, "Premier League", "canceled", today),
			eventJSON(1003, "Premier League", "notstarted", nextWeek),
			eventJSON(1004, "Premier League", "notstarted", tomorrow),
		),
		"https://up.example/api/v1/sport/football/scheduled-events/2026-03-14": fmt.Sprintf(
			`{"events": [%s, %s]}`,
			eventJSON(1001, "Premier League", "notstarted", today),
			eventJSON(2001, "Obscure Cup", "notstarted", today),
		),
		"https://up.example/api/v1/sport/football/scheduled-events/2026-03-15": `{"events": []}`,
	}}

	s := New(testConfig(), fetcher, nil, zap.NewNop())
	s.now = fixedNow

	ids := s.CurrentWindowMatchIDs(context.Background())
	require.ElementsMatch(t, []string{"1001", "1004"}, ids)
}

func TestService_UnfilteredScheduleFallback(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://up.example/api/v1/unique-tournament/17/season/100/events": `{"events": []}`,
		"https://up.example/api/v1/sport/football/scheduled-events/2026-03-14": fmt.Sprintf(
			`{"events": [%s, %s]}`,
			eventJSON(3001, "Obscure Cup", "notstarted", today),
			eventJSON(3002, "Another Cup", "notstarted", today),
		),
		"https://up.example/api/v1/sport/football/scheduled-events/2026-03-15": `{"events": []}`,
	}}

	s := New(testConfig(), fetcher, nil, zap.NewNop())
	s.now = fixedNow

	ids := s.CurrentWindowMatchIDs(context.Background())
	require.ElementsMatch(t, []string{"3001", "3002"}, ids,
		"raw schedule candidates win over an empty filtered set")
}

func TestService_BrowserFallbackWhenScheduleUnreachable(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://up.example/api/v1/unique-tournament/17/season/100/events": `{"events": []}`,
	}}
	extractor := &fakeExtractor{ids: map[string][]string{
		"https://up.example/football/2026-03-14": {"4001", "4002"},
	}}

	s := New(testConfig(), fetcher, extractor, zap.NewNop())
	s.now = fixedNow

	ids := s.CurrentWindowMatchIDs(context.Background())
	require.ElementsMatch(t, []string{"4001", "4002"}, ids)
}

func TestService_FinishedLookback(t *testing.T) {
	t.Parallel()

	recent := fixedNow().AddDate(0, 0, -2)
	old := fixedNow().AddDate(0, 0, -30)

	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://up.example/api/v1/unique-tournament/17/season/100/events": fmt.Sprintf(
			`{"events": [%s, %s, %s]}`,
			eventJSON(5001, "Premier League", "finished", recent),
			eventJSON(5002, "Premier League", "finished", old),
			eventJSON(5003, "Premier League", "notstarted", recent),
		),
	}}

	s := New(testConfig(), fetcher, nil, zap.NewNop())
	s.now = fixedNow

	ids := s.FinishedMatchIDsSince(context.Background(), 7)
	require.Equal(t, []string{"5001"}, ids)

	require.Empty(t, s.FinishedMatchIDsSince(context.Background(), 0))
}

func TestService_ZeroConfigDefaults(t *testing.T) {
	t.Parallel()

	s := New(Config{}, &fakeFetcher{}, nil, zap.NewNop())
	require.Equal(t, []int{0, 1}, s.cfg.DayOffsets)
	require.Equal(t, "Europe/London", s.cfg.Timezone)
	require.NotEmpty(t, s.cfg.Tournaments)
}
