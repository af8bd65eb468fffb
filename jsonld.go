package newsharvest

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParsedJSON partitions the structured-data blocks of one article page
// by schema.org type. Main holds the last NewsArticle-like block; an
// absent Main is fine and sends the builder to DOM-only extraction.
type ParsedJSON struct {
	Main         Fields
	ImageObjects []Fields
	VideoObjects []Fields
	Other        []Fields
	Misc         []any
}

// Map renders the partition in the shape preserved on every article
// record under the parsed_json key.
func (p *ParsedJSON) Map() Fields {
	return Fields{
		"main":         p.Main,
		"imageObjects": toAnySlice(p.ImageObjects),
		"videoObjects": toAnySlice(p.VideoObjects),
		"other":        toAnySlice(p.Other),
		"misc":         p.Misc,
	}
}

func toAnySlice(in []Fields) []any {
	out := make([]any, 0, len(in))
	for _, f := range in {
		out = append(out, f)
	}
	return out
}

// SplitStructuredData collects every ld+json block of the document,
// parses each best-effort, and dispatches parsed blocks (or each
// element of array blocks) on their @type. Blocks that fail to parse
// are logged and skipped; they never abort extraction. Plain
// application/json blocks are kept under Misc for inspection.
func SplitStructuredData(doc *goquery.Document, log *slog.Logger) *ParsedJSON {
	if log == nil {
		log = slog.Default()
	}
	parsed := &ParsedJSON{}

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var block any
		if err := json.Unmarshal([]byte(raw), &block); err != nil {
			log.Info("skipping unparseable ld+json block", "index", i, "error", err)
			return
		}
		for _, element := range asSlice(block) {
			if m, ok := element.(map[string]any); ok {
				parsed.dispatch(m)
			}
		}
	})

	doc.Find(`script[type="application/json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var block any
		if err := json.Unmarshal([]byte(raw), &block); err != nil {
			return
		}
		parsed.Misc = append(parsed.Misc, block)
	})

	return parsed
}

// dispatch routes one block by @type. A block can carry several types;
// the first recognized one wins.
func (p *ParsedJSON) dispatch(block Fields) {
	for _, t := range blockTypes(block) {
		switch t {
		case "NewsArticle", "BlogPosting", "LiveBlogPosting":
			// Last writer wins.
			p.Main = block
			return
		case "ImageGallery", "ImageObject":
			p.ImageObjects = append(p.ImageObjects, block)
			return
		case "VideoObject":
			p.VideoObjects = append(p.VideoObjects, block)
			return
		}
	}
	p.Other = append(p.Other, block)
}

func blockTypes(block Fields) []string {
	var types []string
	for _, v := range asSlice(block["@type"]) {
		if s, ok := v.(string); ok {
			types = append(types, s)
		}
	}
	return types
}

// asSlice views a JSON value uniformly as a list: arrays stay lists,
// nil vanishes, everything else becomes a one-element list. JSON-LD
// uses scalars and arrays interchangeably almost everywhere.
func asSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{v}
	}
}

// asString views a JSON value as a trimmed string when it is one.
func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// firstString walks keys in order and returns the first non-empty
// string value, looking inside array values as JSON-LD requires.
func firstString(block Fields, keys ...string) string {
	if block == nil {
		return ""
	}
	for _, k := range keys {
		for _, v := range asSlice(block[k]) {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// asFields views a JSON value as an object when it is one.
func asFields(v any) Fields {
	m, _ := v.(map[string]any)
	return m
}
