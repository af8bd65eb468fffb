// Package sink delivers the buffers an adapter run accumulated: to a
// timestamped JSON file on disk by default, or to a Kafka topic or an
// Elasticsearch index for fleet deployments. A registered callback on
// the job bypasses sinks entirely; that path lives in the adapter.
package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/newsharvest"
)

// Sink persists one run's records.
type Sink interface {
	Write(site string, mode newsharvest.Mode, records []any) error
}

// linksDir and articleDir are the two top-level output directories the
// adapter family shares. Runs collide only on filenames, which carry
// second-resolution timestamps; a collision overwrites and is
// tolerated.
const (
	linksDir   = "Links"
	articleDir = "Article"
)

const fileTimestampLayout = "2006-01-02_15-04-05"

// File writes pretty-printed JSON files under Links/ or Article/ in
// the base directory.
type File struct {
	// Base is the directory holding Links/ and Article/. Empty means
	// the current working directory.
	Base string
	// Now is the clock stamped into filenames; nil means wall clock.
	Now func() time.Time
	// Logger reports writes and empty buffers; nil means the default.
	Logger *slog.Logger
}

// Write persists records to <site>-<mode>-<timestamp>.json. Empty
// buffers produce a log line and no file.
func (f *File) Write(site string, mode newsharvest.Mode, records []any) error {
	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(records) == 0 {
		log.Info("no records to export", "site", site, "mode", string(mode))
		return nil
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	dir := linksDir
	if mode == newsharvest.ModeArticle {
		dir = articleDir
	}
	dir = filepath.Join(f.Base, dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newsharvest.WrapError(newsharvest.KindExportOutputFile,
			"failed to create output directory", err)
	}

	name := fmt.Sprintf("%s-%s-%s.json", site, mode, now().Format(fileTimestampLayout))
	path := filepath.Join(dir, name)

	data, err := marshalRecords(records)
	if err != nil {
		return newsharvest.WrapError(newsharvest.KindExportOutputFile,
			"failed to encode records", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newsharvest.WrapError(newsharvest.KindExportOutputFile,
			fmt.Sprintf("failed to write %s", path), err)
	}

	log.Info("exported records", "site", site, "mode", string(mode),
		"count", len(records), "path", path)
	return nil
}

// marshalRecords pretty-prints with HTML escaping off so non-ASCII and
// raw bodies survive byte-for-byte.
func marshalRecords(records []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
