// Package video is the optional headless-browser enrichment pass. A
// few publishers only attach video sources after the player's play
// button fires, so the harvester opens the article in Chrome, clicks
// the profile's play selector, and collects whatever src attributes
// appear. The pass is strictly best-effort: every failure, including a
// missing Chrome, yields no links and no error.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Harvester drives one headless Chrome for a run. Create it lazily:
// Chrome only launches on the first Harvest call.
type Harvester struct {
	// PerArticle bounds one article's whole enrichment pass.
	PerArticle time.Duration
	Logger     *slog.Logger

	browser *rod.Browser
	lnch    *launcher.Launcher
	failed  bool
}

// NewHarvester builds a harvester with the default 15s per-article
// timeout.
func NewHarvester(log *slog.Logger) *Harvester {
	if log == nil {
		log = slog.Default()
	}
	return &Harvester{PerArticle: 15 * time.Second, Logger: log}
}

// Harvest opens pageURL, clicks playSelector when given, and returns
// the video and iframe sources found afterwards. Nil on any failure.
func (h *Harvester) Harvest(ctx context.Context, pageURL, playSelector string) []string {
	if h.failed {
		return nil
	}
	browser, err := h.connect()
	if err != nil {
		// One launch failure disables the pass for the rest of the run.
		h.failed = true
		h.Logger.Warn("video enrichment disabled", "error", err)
		return nil
	}

	links, err := h.harvestPage(ctx, browser, pageURL, playSelector)
	if err != nil {
		h.Logger.Info("video enrichment failed", "url", pageURL, "error", err)
		return nil
	}
	return links
}

func (h *Harvester) connect() (*rod.Browser, error) {
	if h.browser != nil {
		return h.browser, nil
	}
	l := launcher.New().Headless(true)
	u, err := l.Launch()
	if err != nil {
		return nil, err
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, err
	}
	h.lnch = l
	h.browser = b
	return b, nil
}

func (h *Harvester) harvestPage(ctx context.Context, browser *rod.Browser, pageURL, playSelector string) (links []string, err error) {
	// rod panics on hard failures; contain them here so the pass stays
	// silent.
	defer func() {
		if r := recover(); r != nil {
			links = nil
			err = rodPanic(r)
		}
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(h.PerArticle)
	if err := page.Navigate(pageURL); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	if playSelector != "" {
		if el, err := page.Element(playSelector); err == nil {
			// A failed click is fine; some players autoload.
			_ = el.Click("left", 1)
			time.Sleep(500 * time.Millisecond)
		}
	}

	seen := make(map[string]bool)
	for _, selector := range []string{"video[src]", "video source[src]", "iframe[src]"} {
		elements, err := page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			src, err := el.Attribute("src")
			if err != nil || src == nil {
				continue
			}
			link := strings.TrimSpace(*src)
			if link == "" || !strings.HasPrefix(link, "http") || seen[link] {
				continue
			}
			seen[link] = true
			links = append(links, link)
		}
	}
	return links, nil
}

// Close shuts the browser down if it ever launched.
func (h *Harvester) Close() {
	if h.browser != nil {
		_ = h.browser.Close()
		h.browser = nil
	}
	if h.lnch != nil {
		h.lnch.Cleanup()
		h.lnch = nil
	}
}

func rodPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{r}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return fmt.Sprintf("browser failure: %v", p.v) }
