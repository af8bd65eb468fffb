package discovery

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/newsharvest"
)

// runArchive constructs one dated archive URL per window day from the
// profile template and harvests article anchors from each page,
// following the pagination strip up to the profile cap.
func (d *Driver) runArchive(ctx context.Context) {
	dates, err := d.window.Dates()
	if err != nil {
		d.pageFailed(newsharvest.KindSitemapScrapping, d.profile.Discovery.ArchiveTemplate, err)
		return
	}

	for _, date := range dates {
		if ctx.Err() != nil {
			return
		}
		seed := d.profile.Resolve(date.Format(d.profile.Discovery.ArchiveTemplate))
		if seed == "" {
			continue
		}
		d.crawlArchiveDate(ctx, seed)
	}
}

// crawlArchiveDate walks one date's archive page chain. Repeated URLs
// are skipped and the chain stops at the pagination cap.
func (d *Driver) crawlArchiveDate(ctx context.Context, seed string) {
	queue := []string{seed}
	pages := 0
	limit := d.profile.PaginationLimit()

	for len(queue) > 0 && pages < limit {
		if ctx.Err() != nil {
			return
		}
		url := queue[0]
		queue = queue[1:]
		if d.markVisited(url) {
			continue
		}
		pages++

		resp, err := d.client.Get(ctx, url)
		if err != nil {
			d.pageFailed(newsharvest.KindSitemapArticleScrapping, url, err)
			continue
		}
		doc, err := resp.Document()
		if err != nil {
			d.pageFailed(newsharvest.KindSitemapArticleScrapping, url, err)
			continue
		}

		d.emitAnchors(doc)

		if sel := d.profile.Discovery.PaginationSelector; sel != "" {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				if href, ok := s.Attr("href"); ok {
					if next := d.profile.Resolve(href); next != "" && !d.visited[next] {
						queue = append(queue, next)
					}
				}
			})
		}
	}
}

// runListPages fetches the profile's homepage or listing pages once
// each. No date filtering happens here: link_feed runs rely on the
// "today only" semantics of the degenerate window.
func (d *Driver) runListPages(ctx context.Context) {
	for _, page := range d.profile.Discovery.ListPages {
		if ctx.Err() != nil {
			return
		}
		url := d.profile.Resolve(page)
		if url == "" || d.markVisited(url) {
			continue
		}
		resp, err := d.client.Get(ctx, url)
		if err != nil {
			d.pageFailed(newsharvest.KindSitemapArticleScrapping, url, err)
			continue
		}
		doc, err := resp.Document()
		if err != nil {
			d.pageFailed(newsharvest.KindSitemapArticleScrapping, url, err)
			continue
		}
		d.emitAnchors(doc)
	}
}

// emitAnchors collects (link, title) pairs from the profile's link
// selector. The anchor text doubles as the title when present.
func (d *Driver) emitAnchors(doc *goquery.Document) {
	doc.Find(d.profile.Discovery.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			// The selector may have matched a container; look for the
			// first anchor inside it.
			href, ok = s.Find("a").First().Attr("href")
			if !ok {
				return
			}
		}
		link := d.profile.Resolve(href)
		if link == "" {
			return
		}
		title := collapseSpaces(s.Text())
		d.emit(link, title)
	})
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
