package browser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchIDsFromHTML_EmbeddedState(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<script id="__NEXT_DATA__" type="application/json">
			{"props":{"events":[{"id":11223344,"slug":"a-vs-b"},{"id":55667788}]}}
		</script>
	</body></html>`

	ids := matchIDsFromHTML(html)
	require.Equal(t, []string{"11223344", "55667788"}, ids)
}

func TestMatchIDsFromHTML_AnchorFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/match/home-vs-away/#id:12345678">Home v Away</a>
		<a href="/event/87654321">Other</a>
		<a href="/match/home-vs-away/#id:12345678">dup</a>
		<a href="/news/not-a-match">news</a>
	</body></html>`

	ids := matchIDsFromHTML(html)
	require.Equal(t, []string{"12345678", "87654321"}, ids)
}

func TestMatchIDsFromHTML_ShortNumbersIgnored(t *testing.T) {
	t.Parallel()

	html := `<html><body><a href="/event/123">too short</a></body></html>`
	require.Empty(t, matchIDsFromHTML(html))
}

func TestMatchIDsFromHTML_GarbageInput(t *testing.T) {
	t.Parallel()

	require.Empty(t, matchIDsFromHTML(""))
	require.Empty(t, matchIDsFromHTML("plain text, no markup"))
}

func TestFallback_LimiterCapacity(t *testing.T) {
	t.Parallel()

	f := NewFallback(Config{MaxParallel: 2}, nil, nil)
	require.Equal(t, 2, cap(f.limiter))

	unbounded := NewFallback(Config{}, nil, nil)
	require.Nil(t, unbounded.limiter)
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	require.NotEmpty(t, cfg.UserAgent)
	require.Equal(t, "en-US", cfg.Locale)
	require.Equal(t, "Europe/London", cfg.Timezone)
	require.Positive(t, cfg.NavTimeout)
	require.Positive(t, cfg.ViewportW)
}
