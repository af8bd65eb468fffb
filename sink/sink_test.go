package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsharvest"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 9, 30, 45, 0, time.UTC)
}

func TestFileWriteLinks(t *testing.T) {
	base := t.TempDir()
	f := &File{Base: base, Now: fixedNow}

	records := []any{
		newsharvest.LinkEntry{Link: "https://x.test/a", Title: "A"},
		newsharvest.LinkEntry{Link: "https://x.test/b"},
	}
	require.NoError(t, f.Write("tagesblatt", newsharvest.ModeSitemap, records))

	path := filepath.Join(base, "Links", "tagesblatt-sitemap-2025-06-15_09-30-45.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "https://x.test/a", decoded[0]["link"])
	assert.Equal(t, "A", decoded[0]["title"])
	// Empty titles stay off the wire.
	assert.NotContains(t, decoded[1], "title")
}

func TestFileWriteArticleDir(t *testing.T) {
	base := t.TempDir()
	f := &File{Base: base, Now: fixedNow}

	record := map[string]any{"title": []string{"Hello"}}
	require.NoError(t, f.Write("lequotidien", newsharvest.ModeArticle, []any{record}))

	path := filepath.Join(base, "Article", "lequotidien-article-2025-06-15_09-30-45.json")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

// TestFileWriteEmptyBuffer verifies an empty run logs and writes no
// file.
func TestFileWriteEmptyBuffer(t *testing.T) {
	base := t.TempDir()
	f := &File{Base: base, Now: fixedNow}

	require.NoError(t, f.Write("tagesblatt", newsharvest.ModeSitemap, nil))

	_, err := os.Stat(filepath.Join(base, "Links"))
	assert.True(t, os.IsNotExist(err))
}

// TestFileWriteKeepsUnicode pins the no-HTML-escaping rule: non-ASCII
// text and raw markup survive byte-for-byte.
func TestFileWriteKeepsUnicode(t *testing.T) {
	base := t.TempDir()
	f := &File{Base: base, Now: fixedNow}

	record := map[string]any{
		"title": []string{"Bonjour <b>le</b> monde — 東京"},
	}
	require.NoError(t, f.Write("x", newsharvest.ModeArticle, []any{record}))

	data, err := os.ReadFile(filepath.Join(base, "Article", "x-article-2025-06-15_09-30-45.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<b>le</b>")
	assert.Contains(t, string(data), "東京")
	assert.NotContains(t, string(data), `\u003c`)
}

func TestFileWriteBadBase(t *testing.T) {
	// A file where the directory should be forces the MkdirAll error
	// path.
	base := t.TempDir()
	blocked := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	f := &File{Base: blocked, Now: fixedNow}
	err := f.Write("x", newsharvest.ModeSitemap, []any{map[string]any{"a": "b"}})
	require.Error(t, err)
	assert.Equal(t, newsharvest.KindExportOutputFile, newsharvest.KindOf(err))
}
