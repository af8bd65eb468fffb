package discovery

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pevans/newsharvest"
)

// runFeed reads the profile's RSS/Atom feed as a link_feed surface.
// gofeed normalizes both formats; items with a parsed publication date
// are filtered into the window, undated items are kept.
func (d *Driver) runFeed(ctx context.Context) {
	url := d.profile.Discovery.FeedURL
	if d.markVisited(url) {
		return
	}

	resp, err := d.client.Get(ctx, url)
	if err != nil {
		d.pageFailed(newsharvest.KindSitemapScrapping, url, err)
		return
	}

	feed, err := gofeed.NewParser().Parse(strings.NewReader(string(resp.Body)))
	if err != nil {
		d.pageFailed(newsharvest.KindSitemapScrapping, url, err)
		return
	}

	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if item.PublishedParsed != nil && !d.window.Contains(*item.PublishedParsed) {
			continue
		}
		d.emit(item.Link, item.Title)
	}
}
