package newsharvest

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func (b *Builder) thumbnail(doc *goquery.Document, parsed *ParsedJSON) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		link := b.profile.Resolve(raw)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	}

	for _, v := range asSlice(parsed.Main["image"]) {
		if s := imageLink(v); s != "" {
			add(s)
		}
	}
	for _, v := range asSlice(parsed.Main["thumbnailUrl"]) {
		if s := asString(v); s != "" {
			add(s)
		}
	}
	if len(out) > 0 {
		return out
	}

	if s := metaContent(doc, `meta[property="og:image"]`); s != "" {
		add(s)
		return out
	}
	for _, sel := range b.profile.Article.Hero {
		if src := imageSrc(doc.Find(sel).First()); src != "" {
			add(src)
			break
		}
	}
	return out
}

// images fuses the JSON-LD image blocks with the DOM figure blocks,
// resolves every link against the base URL, and deduplicates by link.
// The first occurrence of a link wins, caption included.
func (b *Builder) images(doc *goquery.Document, parsed *ParsedJSON) []any {
	type candidate struct {
		link    string
		caption string
	}
	var candidates []candidate

	addBlock := func(block Fields) {
		link := firstString(block, "url", "contentUrl")
		if link == "" {
			return
		}
		candidates = append(candidates, candidate{
			link:    link,
			caption: firstString(block, "caption", "description"),
		})
	}

	for _, v := range asSlice(parsed.Main["image"]) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				candidates = append(candidates, candidate{link: s})
			}
		case map[string]any:
			addBlock(t)
		}
	}
	for _, block := range parsed.ImageObjects {
		if galleryImages := asSlice(block["image"]); len(galleryImages) > 0 {
			// ImageGallery blocks nest their ImageObjects.
			for _, v := range galleryImages {
				switch t := v.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						candidates = append(candidates, candidate{link: s})
					}
				case map[string]any:
					addBlock(t)
				}
			}
			continue
		}
		addBlock(block)
	}

	// DOM figures pair each image with the caption found in the same
	// block; figures without a caption pad with none.
	captionSelectors := b.profile.Article.Captions
	if len(captionSelectors) == 0 {
		captionSelectors = []string{"figcaption"}
	}
	for _, sel := range b.profile.Article.Figures {
		found := false
		doc.Find(sel).Each(func(_ int, fig *goquery.Selection) {
			src := imageSrc(fig.Find("img").First())
			if src == "" {
				return
			}
			found = true
			c := candidate{link: src}
			for _, capSel := range captionSelectors {
				if t := normalizeText(fig.Find(capSel).First().Text()); t != "" {
					c.caption = t
					break
				}
			}
			candidates = append(candidates, c)
		})
		if found {
			break
		}
	}

	var out []any
	seen := make(map[string]bool)
	for _, c := range candidates {
		link := b.profile.Resolve(c.link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		img := Fields{"link": link}
		if c.caption != "" {
			img["caption"] = c.caption
		}
		out = append(out, img)
	}
	return out
}

// videos extracts embedded video links: JSON-LD VideoObject URLs win,
// then player data-config payloads, then raw DOM frames. Links that do
// not parse as absolute http(s) URLs are dropped, and duplicates are
// collapsed.
func (b *Builder) videos(doc *goquery.Document, parsed *ParsedJSON) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		link := strings.TrimSpace(raw)
		if link == "" {
			return
		}
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		if seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	}

	for _, block := range parsed.VideoObjects {
		if s := firstString(block, "contentUrl", "embedUrl"); s != "" {
			add(s)
		}
	}
	if len(out) > 0 {
		return out
	}

	if attr := b.profile.Article.DataConfigAttr; attr != "" {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(attr)
			for _, link := range dataConfigLinks(raw) {
				add(link)
			}
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, sel := range b.profile.Article.VideoFrames {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok {
				add(src)
			} else if src, ok := s.Attr("data-src"); ok {
				add(src)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

// dataConfigLinks digs _sharing.link and _download.url out of a player
// configuration attribute. Anything unparseable yields nothing.
func dataConfigLinks(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil
	}
	var links []string
	if sharing := asFields(cfg["_sharing"]); sharing != nil {
		if s := asString(sharing["link"]); s != "" {
			links = append(links, s)
		}
	}
	if download := asFields(cfg["_download"]); download != nil {
		if s := asString(download["url"]); s != "" {
			links = append(links, s)
		}
	}
	return links
}

// imageLink reads a JSON-LD image value: a bare URL string or an
// ImageObject with url/contentUrl.
func imageLink(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return firstString(t, "url", "contentUrl")
	}
	return ""
}

// imageSrc reads the effective source of an img node, preferring the
// real src over lazy-loading attributes.
func imageSrc(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := s.Attr(attr); ok {
			if src := strings.TrimSpace(v); src != "" {
				return src
			}
		}
	}
	return ""
}
