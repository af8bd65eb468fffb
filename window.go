package newsharvest

import (
	"fmt"
	"time"
)

// Mode selects how a run discovers article URLs.
type Mode string

const (
	// ModeArticle scrapes exactly one article URL.
	ModeArticle Mode = "article"
	// ModeSitemap walks a discovery index: an XML sitemap, a news
	// sitemap, or dated archive pages, depending on the site profile.
	ModeSitemap Mode = "sitemap"
	// ModeLinkFeed reads a homepage, listing page, or RSS feed without
	// any date filtering.
	ModeLinkFeed Mode = "link_feed"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeArticle, ModeSitemap, ModeLinkFeed:
		return Mode(s), nil
	case "":
		return "", NewError(KindInputMissing, "type is required")
	}
	return "", NewError(KindInvalidArgument,
		fmt.Sprintf("unknown type %q, want article, sitemap or link_feed", s))
}

// DateLayout is the wire format of since/until bounds.
const DateLayout = "2006-01-02"

// MaxWindowDays is the corpus-wide cap on a since/until span.
const MaxWindowDays = 30

// Window is an inclusive day range. Both bounds are stored at midnight
// UTC; the zero value is not a valid window.
type Window struct {
	Since time.Time
	Until time.Time
}

// ParseWindow validates the uniform entry parameters for one run and
// returns the planned window. today anchors all future/past checks so
// tests can pin the clock.
//
// Both bounds absent yields the degenerate window [today, today],
// which means "today only" and is valid for every discovery mode.
func ParseWindow(mode Mode, rawURL, since, until string, today time.Time) (Window, error) {
	today = dateOnly(today)

	if mode == ModeArticle {
		if rawURL == "" {
			return Window{}, NewError(KindInputMissing, "url is required in article mode")
		}
		if since != "" || until != "" {
			return Window{}, NewError(KindInvalidArgument, "dates are not accepted with url")
		}
		return Window{Since: today, Until: today}, nil
	}

	if rawURL != "" {
		return Window{}, NewError(KindInvalidArgument,
			fmt.Sprintf("url is not accepted in %s mode", mode))
	}

	if since == "" && until == "" {
		return Window{Since: today, Until: today}, nil
	}
	if since == "" || until == "" {
		return Window{}, NewError(KindInvalidDate, "since and until must be supplied together")
	}

	s, err := time.Parse(DateLayout, since)
	if err != nil {
		return Window{}, WrapError(KindInvalidDate, fmt.Sprintf("bad since %q", since), err)
	}
	u, err := time.Parse(DateLayout, until)
	if err != nil {
		return Window{}, WrapError(KindInvalidDate, fmt.Sprintf("bad until %q", until), err)
	}

	if s.After(u) {
		return Window{}, NewError(KindInvalidDate, "since should not be later than until")
	}
	if s.After(today) || u.After(today) {
		return Window{}, NewError(KindInvalidDate, "dates must not lie in the future")
	}
	if u.Sub(s) > MaxWindowDays*24*time.Hour {
		return Window{}, NewError(KindInvalidDate,
			fmt.Sprintf("window exceeds %d days", MaxWindowDays))
	}

	return Window{Since: s, Until: u}, nil
}

// Days returns the number of days the window covers, inclusive.
func (w Window) Days() int {
	return int(w.Until.Sub(w.Since)/(24*time.Hour)) + 1
}

// Dates expands the window into the list of days since..until
// inclusive. The span cap is re-checked here as defense in depth
// against callers that skipped ParseWindow.
func (w Window) Dates() ([]time.Time, error) {
	if w.Until.Before(w.Since) {
		return nil, NewError(KindInvalidDate, "since should not be later than until")
	}
	if w.Until.Sub(w.Since) > MaxWindowDays*24*time.Hour {
		return nil, NewError(KindInvalidDate,
			fmt.Sprintf("window exceeds %d days", MaxWindowDays))
	}

	var dates []time.Time
	for d := w.Since; !d.After(w.Until); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// Contains reports whether the calendar day of t falls inside the
// window. The time of day and zone of t are ignored.
func (w Window) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(w.Since) && !d.After(w.Until)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
