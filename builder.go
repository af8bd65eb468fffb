package newsharvest

import (
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pevans/newsharvest/profile"
)

// dirtyText is the whitespace class stripped out of DOM-sourced text.
// JSON-LD-supplied values stay verbatim unless they contain it too.
var dirtyText = regexp.MustCompile(`[\r\n\t"]+`)

func normalizeText(s string) string {
	return strings.TrimSpace(dirtyText.ReplaceAllString(s, " "))
}

func normalizeIfDirty(s string) string {
	if dirtyText.MatchString(s) {
		return normalizeText(s)
	}
	return strings.TrimSpace(s)
}

// Builder merges the structured data and DOM fallbacks of one article
// page into a canonical record. Each field follows an explicit
// priority chain; when every source of a field comes up empty the
// field is omitted and the pruner keeps it off the record. Build is
// total: a page where everything fails still yields a record carrying
// link, raw body and parsed_json.
type Builder struct {
	profile  *profile.Profile
	log      *slog.Logger
	now      func() time.Time
	sanitize *bluemonday.Policy
}

// NewBuilder creates a builder for one site. now is the injected
// clock; nil means wall clock.
func NewBuilder(p *profile.Profile, log *slog.Logger, now func() time.Time) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{
		profile:  p,
		log:      log,
		now:      now,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Build turns one article response into a canonical record.
func (b *Builder) Build(pageURL string, body []byte, contentType string) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, WrapError(KindArticleScrapping,
			fmt.Sprintf("failed to parse article page %s", pageURL), err)
	}

	parsed := SplitStructuredData(doc, b.log)

	record := Fields{
		"link":             []string{pageURL},
		"source_country":   []string{b.profile.Country},
		"source_language":  b.sourceLanguage(doc, parsed),
		"author":           b.author(doc, parsed),
		"description":      b.description(doc, parsed),
		"published_at":     b.publishedAt(doc, parsed),
		"modified_at":      b.modifiedAt(doc, parsed),
		"publisher":        b.publisher(parsed),
		"title":            b.title(doc, parsed),
		"text":             b.text(doc, parsed),
		"thumbnail_image":  b.thumbnail(doc, parsed),
		"images":           b.images(doc, parsed),
		"embed_video_link": b.videos(doc, parsed),
		"section":          b.section(pageURL, doc, parsed),
		"tags":             b.tags(doc, parsed),
		"time_scraped":     []string{b.now().UTC().Format(time.RFC3339)},
		"raw": Fields{
			"content_type": contentType,
			"content":      string(body),
		},
		PassthroughKey: parsed.Map(),
	}

	pruned, _ := Prune(record, PassthroughKey).(Fields)
	return pruned, nil
}

// plain strips markup that leaks through JSON-LD string fields.
func (b *Builder) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(b.sanitize.Sanitize(s)))
}

func (b *Builder) sourceLanguage(doc *goquery.Document, parsed *ParsedJSON) []string {
	code := ""
	// inLanguage is a string or a schema.org Language object.
	for _, v := range asSlice(parsed.Main["inLanguage"]) {
		if s := asString(v); s != "" {
			code = s
			break
		}
		if m := asFields(v); m != nil {
			if s := firstString(m, "name", "alternateName"); s != "" {
				code = s
				break
			}
		}
	}
	if code == "" {
		if lang, ok := doc.Find("html").Attr("lang"); ok {
			code = lang
		}
	}
	if code == "" {
		code = b.profile.DefaultLanguage
	}
	if name, ok := LanguageName(code, b.profile.Languages); ok {
		return []string{name}
	}
	return nil
}

func (b *Builder) author(doc *goquery.Document, parsed *ParsedJSON) []any {
	var out []any
	for _, v := range asSlice(parsed.Main["author"]) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, Fields{"@type": "Person", "name": s})
			}
		case map[string]any:
			name := asString(t["name"])
			if name == "" {
				continue
			}
			a := Fields{"@type": "Person", "name": name}
			if ty := asString(t["@type"]); ty != "" {
				a["@type"] = ty
			}
			if u := asString(t["url"]); u != "" {
				a["url"] = u
			}
			out = append(out, a)
		}
	}
	if len(out) > 0 {
		return out
	}

	// DOM bylines carry a bare name only.
	for _, sel := range b.profile.Article.Byline {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if name := normalizeText(s.Text()); name != "" {
				out = append(out, Fields{"name": name})
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func (b *Builder) description(doc *goquery.Document, parsed *ParsedJSON) []string {
	if s := firstString(parsed.Main, "description"); s != "" {
		return []string{normalizeIfDirty(b.plain(s))}
	}
	if s := metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`); s != "" {
		return []string{s}
	}
	if s := trySelectorsText(doc, b.profile.Article.Subtitle); s != "" {
		return []string{normalizeText(s)}
	}
	return nil
}

// publishedAt and modifiedAt copy date strings literally; the core
// never rewrites timezones.
func (b *Builder) publishedAt(doc *goquery.Document, parsed *ParsedJSON) []string {
	if s := firstString(parsed.Main, "datePublished"); s != "" {
		return []string{s}
	}
	for _, block := range parsed.VideoObjects {
		if s := firstString(block, "uploadDate"); s != "" {
			return []string{s}
		}
	}
	if s := metaContent(doc,
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[name="publish-date"]`,
		`meta[itemprop="datePublished"]`,
	); s != "" {
		return []string{s}
	}
	for _, sel := range b.profile.Article.Date {
		node := doc.Find(sel).First()
		if dt, ok := node.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return []string{strings.TrimSpace(dt)}
		}
		if s := strings.TrimSpace(node.Text()); s != "" {
			return []string{s}
		}
	}
	return nil
}

func (b *Builder) modifiedAt(doc *goquery.Document, parsed *ParsedJSON) []string {
	if s := firstString(parsed.Main, "dateModified"); s != "" {
		return []string{s}
	}
	if s := metaContent(doc, `meta[property="article:modified_time"]`); s != "" {
		return []string{s}
	}
	return nil
}

func (b *Builder) publisher(parsed *ParsedJSON) []any {
	var out []any
	for _, v := range asSlice(parsed.Main["publisher"]) {
		if m := asFields(v); m != nil {
			out = append(out, publisherShape(m))
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(b.profile.Publisher) > 0 {
		return []any{deepCopyFields(b.profile.Publisher)}
	}
	return nil
}

// publisherShape copies a JSON-LD publisher whole and rewrites numeric
// logo dimensions into the downstream Distance contract.
func publisherShape(m Fields) Fields {
	out := deepCopyFields(m)
	logo := asFields(out["logo"])
	if logo == nil {
		return out
	}
	for _, key := range []string{"width", "height"} {
		if n, ok := asNumber(logo[key]); ok {
			logo[key] = Fields{"type": "Distance", "name": fmt.Sprintf("%d px", n)}
		}
	}
	return out
}

func (b *Builder) title(doc *goquery.Document, parsed *ParsedJSON) []string {
	if s := firstString(parsed.Main, "headline"); s != "" {
		return []string{normalizeIfDirty(s)}
	}
	selectors := b.profile.Article.Title
	if len(selectors) == 0 {
		selectors = []string{"h1"}
	}
	if s := trySelectorsText(doc, selectors); s != "" {
		return []string{normalizeText(s)}
	}
	return nil
}

func (b *Builder) text(doc *goquery.Document, parsed *ParsedJSON) []string {
	for _, sel := range b.profile.Article.Body {
		var paragraphs []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if p := strings.TrimSpace(s.Text()); p != "" {
				paragraphs = append(paragraphs, p)
			}
		})
		if len(paragraphs) > 0 {
			joined := normalizeText(strings.Join(paragraphs, " "))
			if joined != "" {
				return []string{joined}
			}
		}
	}
	if s := firstString(parsed.Main, "articleBody"); s != "" {
		return []string{normalizeIfDirty(b.plain(s))}
	}
	return nil
}

func (b *Builder) section(pageURL string, doc *goquery.Document, parsed *ParsedJSON) []string {
	crumbs := b.breadcrumbs(doc)

	// Special sub-paths (photo and video verticals, typically) trust
	// the breadcrumb over JSON-LD.
	if u, err := url.Parse(pageURL); err == nil {
		for _, ov := range b.profile.Article.SectionOverrides {
			if ov.PathContains == "" || !strings.Contains(u.Path, ov.PathContains) {
				continue
			}
			fromEnd := ov.FromEnd
			if fromEnd <= 0 {
				fromEnd = 1
			}
			if idx := len(crumbs) - fromEnd; idx >= 0 {
				return []string{crumbs[idx]}
			}
		}
	}

	var out []string
	for _, v := range asSlice(parsed.Main["articleSection"]) {
		if s := asString(v); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(crumbs) > 0 {
		return []string{crumbs[len(crumbs)-1]}
	}
	if s := metaContent(doc, `meta[property="article:section"]`); s != "" {
		return []string{s}
	}
	return nil
}

func (b *Builder) breadcrumbs(doc *goquery.Document) []string {
	if b.profile.Article.Breadcrumb == "" {
		return nil
	}
	var crumbs []string
	doc.Find(b.profile.Article.Breadcrumb).Each(func(_ int, s *goquery.Selection) {
		if c := normalizeText(s.Text()); c != "" {
			crumbs = append(crumbs, c)
		}
	})
	return crumbs
}

func (b *Builder) tags(doc *goquery.Document, parsed *ParsedJSON) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		for _, part := range strings.Split(raw, ",") {
			tag := strings.TrimSpace(part)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}

	for _, v := range asSlice(parsed.Main["keywords"]) {
		if s := asString(v); s != "" {
			add(s)
		}
	}
	if len(out) > 0 {
		return out
	}
	if s := metaContent(doc, `meta[name="news_keywords"]`, `meta[name="keywords"]`); s != "" {
		add(s)
		return out
	}
	for _, sel := range b.profile.Article.Tags {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(normalizeText(s.Text()))
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

// metaContent returns the first non-empty content attribute among the
// given meta selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// trySelectorsText returns the first selector's first non-empty text.
func trySelectorsText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}

// asNumber reads a JSON number (or numeric string such as "100" that
// some publishers emit) as an integer pixel count.
func asNumber(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "px")
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func deepCopyFields(m Fields) Fields {
	out := make(Fields, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyFields(t)
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = deepCopyValue(c)
		}
		return out
	default:
		return v
	}
}
