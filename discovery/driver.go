// Package discovery turns a (mode, window) pair into a bounded set of
// fetches against one site's discovery surfaces: an XML sitemap index,
// a Google News sitemap, dated archive pages with a pagination strip,
// or a homepage/feed listing. The driver emits (link, title?) entries;
// it never visits article pages itself.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/fetch"
	"github.com/pevans/newsharvest/profile"
)

// Driver runs discovery for one site and one window.
type Driver struct {
	profile *profile.Profile
	client  *fetch.Client
	window  newsharvest.Window
	log     *slog.Logger

	visited map[string]bool
	seen    map[string]bool
	entries []newsharvest.LinkEntry

	// PageErrors counts discovery pages that failed to fetch or parse.
	// Such pages are logged and skipped; they never abort the crawl.
	PageErrors int
}

// New builds a driver. nil logger means the default logger.
func New(p *profile.Profile, client *fetch.Client, window newsharvest.Window, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		profile: p,
		client:  client,
		window:  window,
		log:     log,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
	}
}

// Run walks the discovery surface the profile configures for the mode
// and returns the collected link feed. Per-page failures are counted
// in PageErrors; Run only fails on programmer errors such as an
// unsupported mode.
func (d *Driver) Run(ctx context.Context, mode newsharvest.Mode) ([]newsharvest.LinkEntry, error) {
	switch mode {
	case newsharvest.ModeSitemap:
		if d.profile.Discovery.SitemapURL != "" {
			d.runSitemap(ctx)
		} else {
			d.runArchive(ctx)
		}
	case newsharvest.ModeLinkFeed:
		if d.profile.Discovery.FeedURL != "" {
			d.runFeed(ctx)
		} else {
			d.runListPages(ctx)
		}
	default:
		return nil, newsharvest.NewError(newsharvest.KindParseFunctionFailed,
			"discovery does not handle mode "+string(mode))
	}
	return d.entries, nil
}

// emit appends one entry, keeping the feed free of duplicate links.
func (d *Driver) emit(link, title string) {
	link = strings.TrimSpace(link)
	if link == "" || d.seen[link] {
		return
	}
	d.seen[link] = true
	d.entries = append(d.entries, newsharvest.LinkEntry{Link: link, Title: strings.TrimSpace(title)})
}

// markVisited reports whether url was already crawled and records it.
func (d *Driver) markVisited(url string) bool {
	if d.visited[url] {
		return true
	}
	d.visited[url] = true
	return false
}

func (d *Driver) pageFailed(kind newsharvest.Kind, url string, err error) {
	d.PageErrors++
	d.log.Warn("discovery page failed",
		"kind", string(kind),
		"site", d.profile.Name,
		"url", url,
		"error", err,
	)
}
