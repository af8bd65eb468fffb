// Package adapter binds the shared ingestion core to one publisher: it
// validates the entry parameters, plans the window, drives discovery
// or the article pipeline, and drains the run's buffers exactly once
// through the close hook.
package adapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/fetch"
	"github.com/pevans/newsharvest/journal"
	"github.com/pevans/newsharvest/profile"
	"github.com/pevans/newsharvest/sink"
	"github.com/pevans/newsharvest/video"
)

// Callback receives the run's results instead of the sinks. A broken
// proxy configuration delivers the single sentinel string
// newsharvest.ProxySentinel instead of any records.
type Callback func(results []any)

// Job is one invocation: one (site, mode, window) tuple.
type Job struct {
	Mode     string
	URL      string
	Since    string
	Until    string
	Proxy    *fetch.Proxy
	Callback Callback
}

// DefaultProxyThreshold is how many tunnel/timeout/refused failures a
// run tolerates before the close hook blames the proxy.
const DefaultProxyThreshold = 10

// Adapter runs jobs for one site profile.
type Adapter struct {
	profile        *profile.Profile
	log            *slog.Logger
	now            func() time.Time
	sinks          []sink.Sink
	journal        *journal.Journal
	videos         *video.Harvester
	fetchOpts      fetch.Options
	proxyThreshold int

	client     *fetch.Client
	links      []newsharvest.LinkEntry
	articles   []newsharvest.Fields
	itemErrors int
	closed     bool
}

// Option configures an adapter.
type Option func(*Adapter)

// WithLogger sets the run logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithClock pins the adapter clock; tests use this.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithSink adds an output sink. Without any sink the adapter falls
// back to the file sink in the working directory.
func WithSink(s sink.Sink) Option {
	return func(a *Adapter) { a.sinks = append(a.sinks, s) }
}

// WithJournal records finished runs in the journal.
func WithJournal(j *journal.Journal) Option {
	return func(a *Adapter) { a.journal = j }
}

// WithVideoHarvester enables the headless video enrichment pass.
func WithVideoHarvester(h *video.Harvester) Option {
	return func(a *Adapter) { a.videos = h }
}

// WithFetchOptions overrides the fetch layer defaults (timeout,
// retries, transport).
func WithFetchOptions(opts fetch.Options) Option {
	return func(a *Adapter) { a.fetchOpts = opts }
}

// WithProxyThreshold overrides DefaultProxyThreshold.
func WithProxyThreshold(n int) Option {
	return func(a *Adapter) { a.proxyThreshold = n }
}

// New builds an adapter for one site.
func New(p *profile.Profile, opts ...Option) *Adapter {
	a := &Adapter{
		profile:        p,
		now:            time.Now,
		proxyThreshold: DefaultProxyThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	a.log = a.log.With("site", p.Name)
	if len(a.sinks) == 0 {
		a.sinks = []sink.Sink{&sink.File{Logger: a.log, Now: a.now}}
	}
	return a
}

// Run executes one job. The returned error is non-nil only for
// entry-time failures: bad mode, bad window, unusable proxy settings.
// Per-item failures are logged, counted, and never fail the run; the
// close hook always delivers whatever the run accumulated.
func (a *Adapter) Run(ctx context.Context, job Job) error {
	started := a.now()

	mode, err := newsharvest.ParseMode(job.Mode)
	if err != nil {
		return err
	}
	window, err := newsharvest.ParseWindow(mode, job.URL, job.Since, job.Until, a.now())
	if err != nil {
		return err
	}

	fetchOpts := a.fetchOpts
	fetchOpts.Proxy = job.Proxy
	if fetchOpts.Logger == nil {
		fetchOpts.Logger = a.log
	}
	a.client, err = fetch.New(fetchOpts)
	if err != nil {
		return newsharvest.WrapError(newsharvest.KindInvalidArgument, "proxy settings rejected", err)
	}

	runID := uuid.New()
	a.log.Info("run started",
		"run_id", runID.String(),
		"mode", string(mode),
		"since", window.Since.Format(newsharvest.DateLayout),
		"until", window.Until.Format(newsharvest.DateLayout),
	)

	switch mode {
	case newsharvest.ModeArticle:
		a.runArticle(ctx, job.URL)
	default:
		driver := discovery.New(a.profile, a.client, window, a.log)
		entries, err := driver.Run(ctx, mode)
		a.itemErrors += driver.PageErrors
		if err != nil {
			a.log.Error("discovery aborted",
				"kind", string(newsharvest.KindOf(err)), "error", err)
		}
		a.links = entries
	}

	outcome := a.close(job, mode)
	a.recordRun(runID, job, mode, started, outcome)

	a.log.Info("run finished",
		"run_id", runID.String(),
		"links", len(a.links),
		"articles", len(a.articles),
		"item_errors", a.itemErrors,
		"outcome", outcome,
	)
	return nil
}

// runArticle fetches one article page and runs the extraction
// pipeline. A failure omits the article; no partial record is emitted.
func (a *Adapter) runArticle(ctx context.Context, url string) {
	resp, err := a.client.Get(ctx, url)
	if err != nil {
		a.itemErrors++
		a.log.Warn("article fetch failed",
			"kind", string(newsharvest.KindArticleScrapping), "url", url, "error", err)
		return
	}

	builder := newsharvest.NewBuilder(a.profile, a.log, a.now)
	record, err := builder.Build(resp.URL, resp.Body, resp.ContentType)
	if err != nil {
		a.itemErrors++
		a.log.Warn("article extraction failed",
			"kind", string(newsharvest.KindArticleScrapping), "url", url, "error", err)
		return
	}

	if a.videos != nil {
		a.enrichVideos(ctx, resp.URL, record)
	}
	a.articles = append(a.articles, record)
}

// enrichVideos merges headless-harvested links into embed_video_link,
// preserving the no-duplicates invariant.
func (a *Adapter) enrichVideos(ctx context.Context, url string, record newsharvest.Fields) {
	harvested := a.videos.Harvest(ctx, url, a.profile.Article.PlayButton)
	if len(harvested) == 0 {
		return
	}
	existing, _ := record["embed_video_link"].([]string)
	seen := make(map[string]bool, len(existing))
	for _, link := range existing {
		seen[link] = true
	}
	for _, link := range harvested {
		if !seen[link] {
			seen[link] = true
			existing = append(existing, link)
		}
	}
	record["embed_video_link"] = existing
}

// close drains the buffers exactly once. When the fetch statistics
// indicate a broken proxy, the callback receives the sentinel instead
// of any records and the sinks stay untouched.
func (a *Adapter) close(job Job, mode newsharvest.Mode) string {
	if a.closed {
		return "closed"
	}
	a.closed = true

	stats := a.client.Stats()
	if stats.ProxyBroken(a.proxyThreshold) {
		a.log.Error("proxy configuration unusable",
			"kind", string(newsharvest.KindProxyConnection),
			"requests", stats.Requests,
			"timeouts", stats.Timeouts,
			"refused", stats.Refused,
			"tunnel", stats.Tunnel,
		)
		if job.Callback != nil {
			job.Callback([]any{newsharvest.ProxySentinel})
		}
		return "proxy_error"
	}

	records := a.results(mode)
	if job.Callback != nil {
		job.Callback(records)
		return "ok"
	}
	for _, s := range a.sinks {
		if err := s.Write(a.profile.Name, mode, records); err != nil {
			// Logged, never re-raised: the process must exit cleanly.
			a.log.Error("sink write failed",
				"kind", string(newsharvest.KindExportOutputFile), "error", err)
		}
	}
	return "ok"
}

func (a *Adapter) results(mode newsharvest.Mode) []any {
	if mode == newsharvest.ModeArticle {
		out := make([]any, 0, len(a.articles))
		for _, record := range a.articles {
			out = append(out, record)
		}
		return out
	}
	out := make([]any, 0, len(a.links))
	for _, entry := range a.links {
		out = append(out, entry)
	}
	return out
}

func (a *Adapter) recordRun(runID uuid.UUID, job Job, mode newsharvest.Mode, started time.Time, outcome string) {
	if a.journal == nil {
		return
	}
	err := a.journal.Record(journal.Run{
		ID:         runID,
		Site:       a.profile.Name,
		Mode:       mode,
		Since:      job.Since,
		Until:      job.Until,
		StartedAt:  started,
		FinishedAt: a.now(),
		Links:      len(a.links),
		Articles:   len(a.articles),
		ItemErrors: a.itemErrors,
		Outcome:    outcome,
	})
	if err != nil {
		a.log.Warn("journal write failed", "error", err)
	}
}
