package newsharvest

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSplitStructuredDataDispatch(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type":"NewsArticle","headline":"A"}</script>
	<script type="application/ld+json">{"@type":"ImageObject","url":"https://x/i.jpg"}</script>
	<script type="application/ld+json">{"@type":"VideoObject","contentUrl":"https://x/v.mp4"}</script>
	<script type="application/ld+json">{"@type":"BreadcrumbList","itemListElement":[]}</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)

	assert.Equal(t, "A", parsed.Main["headline"])
	require.Len(t, parsed.ImageObjects, 1)
	require.Len(t, parsed.VideoObjects, 1)
	require.Len(t, parsed.Other, 1)
	assert.Empty(t, parsed.Misc)
}

// TestSplitStructuredDataLastArticleWins pins the ordering rule when a
// page carries several article blocks.
func TestSplitStructuredDataLastArticleWins(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type":"NewsArticle","headline":"first"}</script>
	<script type="application/ld+json">{"@type":"BlogPosting","headline":"second"}</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)
	assert.Equal(t, "second", parsed.Main["headline"])
}

// TestSplitStructuredDataArrayBlock covers the @graph-free array form:
// one script carrying a JSON array of blocks.
func TestSplitStructuredDataArrayBlock(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	[{"@type":"NewsArticle","headline":"A"},
	 {"@type":"VideoObject","contentUrl":"https://x/v.mp4"}]
	</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)
	assert.Equal(t, "A", parsed.Main["headline"])
	assert.Len(t, parsed.VideoObjects, 1)
}

// TestSplitStructuredDataBadBlock verifies a broken block is skipped
// without losing the parseable ones.
func TestSplitStructuredDataBadBlock(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{not json at all</script>
	<script type="application/ld+json">{"@type":"NewsArticle","headline":"A"}</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)
	assert.Equal(t, "A", parsed.Main["headline"])
}

func TestSplitStructuredDataMisc(t *testing.T) {
	html := `<html><head>
	<script type="application/json">{"state":{"page":1}}</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)
	assert.Nil(t, parsed.Main)
	require.Len(t, parsed.Misc, 1)
}

func TestSplitStructuredDataMultiType(t *testing.T) {
	// A block can carry several types; the first recognized one routes it.
	html := `<html><head>
	<script type="application/ld+json">{"@type":["Article","NewsArticle"],"headline":"A"}</script>
	</head></html>`

	parsed := SplitStructuredData(parseDoc(t, html), nil)
	assert.Equal(t, "A", parsed.Main["headline"])
}

func TestParsedJSONMapShape(t *testing.T) {
	parsed := &ParsedJSON{Main: Fields{"headline": "A"}}
	m := parsed.Map()

	assert.Equal(t, Fields{"headline": "A"}, m["main"])
	assert.Empty(t, m["imageObjects"])
	assert.Empty(t, m["videoObjects"])
	assert.Empty(t, m["other"])
	assert.Empty(t, m["misc"])
}

func TestLanguageName(t *testing.T) {
	name, ok := LanguageName("de", nil)
	require.True(t, ok)
	assert.Equal(t, "German", name)

	// Region subtags never change the language.
	name, ok = LanguageName("de-AT", nil)
	require.True(t, ok)
	assert.Equal(t, "German", name)

	name, ok = LanguageName("ja_JP", nil)
	require.True(t, ok)
	assert.Equal(t, "Japanese", name)

	// Profile overrides beat the built-in table.
	name, ok = LanguageName("de", map[string]string{"de": "Deutsch"})
	require.True(t, ok)
	assert.Equal(t, "Deutsch", name)

	_, ok = LanguageName("xx", nil)
	assert.False(t, ok)
}
