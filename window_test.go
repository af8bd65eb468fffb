package newsharvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

func TestParseMode(t *testing.T) {
	for _, raw := range []string{"article", "sitemap", "link_feed"} {
		mode, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, Mode(raw), mode)
	}

	_, err := ParseMode("")
	assert.Equal(t, KindInputMissing, KindOf(err))

	_, err = ParseMode("rss")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

// TestParseWindow_Defaults verifies that omitting both bounds plans the
// degenerate "today only" window.
func TestParseWindow_Defaults(t *testing.T) {
	w, err := ParseWindow(ModeSitemap, "", "", "", testToday)
	require.NoError(t, err)

	midnight := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, w.Since)
	assert.Equal(t, midnight, w.Until)
	assert.Equal(t, 1, w.Days())
}

func TestParseWindow_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		url      string
		since    string
		until    string
		wantKind Kind
	}{
		{"valid span", ModeSitemap, "", "2025-06-01", "2025-06-10", ""},
		{"single day", ModeSitemap, "", "2025-06-10", "2025-06-10", ""},
		{"reversed bounds", ModeSitemap, "", "2025-06-10", "2025-06-01", KindInvalidDate},
		{"since only", ModeSitemap, "", "2025-06-01", "", KindInvalidDate},
		{"until only", ModeSitemap, "", "", "2025-06-10", KindInvalidDate},
		{"future until", ModeSitemap, "", "2025-06-01", "2025-06-16", KindInvalidDate},
		{"span over cap", ModeSitemap, "", "2025-05-01", "2025-06-10", KindInvalidDate},
		{"garbage since", ModeSitemap, "", "01.06.2025", "2025-06-10", KindInvalidDate},
		{"url in sitemap mode", ModeSitemap, "https://x.test/a", "", "", KindInvalidArgument},
		{"url in link_feed mode", ModeLinkFeed, "https://x.test/a", "", "", KindInvalidArgument},
		{"article without url", ModeArticle, "", "", "", KindInputMissing},
		{"article with dates", ModeArticle, "https://x.test/a", "2025-06-01", "2025-06-10", KindInvalidArgument},
		{"article plain", ModeArticle, "https://x.test/a", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWindow(tt.mode, tt.url, tt.since, tt.until, testToday)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.True(t, KindOf(err).Fatal())
		})
	}
}

// TestParseWindow_ReversedMessage pins the message callers grep for in
// run logs.
func TestParseWindow_ReversedMessage(t *testing.T) {
	_, err := ParseWindow(ModeSitemap, "", "2025-06-10", "2025-06-01", testToday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "since should not be later than until")
}

func TestParseWindow_CapBoundary(t *testing.T) {
	// Exactly 30 days apart is still allowed.
	_, err := ParseWindow(ModeSitemap, "", "2025-05-16", "2025-06-15", testToday)
	assert.NoError(t, err)

	_, err = ParseWindow(ModeSitemap, "", "2025-05-15", "2025-06-15", testToday)
	assert.Equal(t, KindInvalidDate, KindOf(err))
}

// TestWindowDates verifies the enumeration is inclusive, ordered, and
// sized Days().
func TestWindowDates(t *testing.T) {
	w, err := ParseWindow(ModeSitemap, "", "2025-06-01", "2025-06-05", testToday)
	require.NoError(t, err)

	dates, err := w.Dates()
	require.NoError(t, err)
	require.Len(t, dates, w.Days())
	require.Len(t, dates, 5)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), dates[4])
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 24*time.Hour, dates[i].Sub(dates[i-1]))
	}
}

func TestWindowDates_Degenerate(t *testing.T) {
	w, err := ParseWindow(ModeSitemap, "", "", "", testToday)
	require.NoError(t, err)

	dates, err := w.Dates()
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, w.Since, dates[0])
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Since: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}

	// Time of day is irrelevant; only the calendar day counts.
	assert.True(t, w.Contains(time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 6, 10, 0, 0, 1, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)))
}
