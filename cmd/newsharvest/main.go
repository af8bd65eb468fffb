package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pevans/newsharvest/adapter"
	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/fetch"
	"github.com/pevans/newsharvest/journal"
	"github.com/pevans/newsharvest/logging"
	"github.com/pevans/newsharvest/profile"
	"github.com/pevans/newsharvest/sink"
	"github.com/pevans/newsharvest/video"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// ~/.newsharvest/config.yaml supplies defaults; env and flags win.
	cfg, cfgErr := config.Load()
	if cfg == nil {
		cfg = &config.File{}
	}

	site := flag.String("site", getEnv("NEWSHARVEST_SITE", ""), "Site profile name (NEWSHARVEST_SITE)")
	profilesDir := flag.String("profiles", getEnv("NEWSHARVEST_PROFILES", config.Or(cfg.Profiles, "profiles")), "Directory of site profile YAML files (NEWSHARVEST_PROFILES)")
	mode := flag.String("type", getEnv("NEWSHARVEST_TYPE", "sitemap"), "Run mode: sitemap, link_feed or article (NEWSHARVEST_TYPE)")
	url := flag.String("url", "", "Article URL (article mode only)")
	since := flag.String("since", "", "Window start, YYYY-MM-DD")
	until := flag.String("until", "", "Window end, YYYY-MM-DD")
	out := flag.String("out", getEnv("NEWSHARVEST_OUT", config.Or(cfg.Out, ".")), "Base directory for JSON output files (NEWSHARVEST_OUT)")
	proxyHost := flag.String("proxy-host", getEnv("NEWSHARVEST_PROXY_HOST", ""), "Forward proxy host (NEWSHARVEST_PROXY_HOST)")
	proxyPort := flag.String("proxy-port", getEnv("NEWSHARVEST_PROXY_PORT", ""), "Forward proxy port (NEWSHARVEST_PROXY_PORT)")
	proxyUser := flag.String("proxy-user", getEnv("NEWSHARVEST_PROXY_USER", ""), "Forward proxy username (NEWSHARVEST_PROXY_USER)")
	proxyPass := flag.String("proxy-pass", getEnv("NEWSHARVEST_PROXY_PASS", ""), "Forward proxy password (NEWSHARVEST_PROXY_PASS)")
	journalPath := flag.String("journal", getEnv("NEWSHARVEST_JOURNAL", cfg.Journal), "SQLite run journal path; empty disables it (NEWSHARVEST_JOURNAL)")
	kafkaBrokers := flag.String("kafka", getEnv("NEWSHARVEST_KAFKA", cfg.Kafka.Brokers), "Kafka broker list, comma separated; empty disables it (NEWSHARVEST_KAFKA)")
	kafkaTopic := flag.String("kafka-topic", getEnv("NEWSHARVEST_KAFKA_TOPIC", config.Or(cfg.Kafka.Topic, "newsharvest")), "Kafka topic (NEWSHARVEST_KAFKA_TOPIC)")
	esAddr := flag.String("es", getEnv("NEWSHARVEST_ES", cfg.Elasticsearch.Addr), "Elasticsearch address; empty disables it (NEWSHARVEST_ES)")
	esIndex := flag.String("es-index", getEnv("NEWSHARVEST_ES_INDEX", config.Or(cfg.Elasticsearch.Index, "newsharvest")), "Elasticsearch index (NEWSHARVEST_ES_INDEX)")
	withVideos := flag.Bool("videos", false, "Enable the headless video enrichment pass (article mode)")
	logPath := flag.String("log", getEnv("NEWSHARVEST_LOG", config.Or(cfg.Log.Path, "logs.log")), "Log file path (NEWSHARVEST_LOG)")
	logLevel := flag.String("log-level", getEnv("NEWSHARVEST_LOG_LEVEL", config.Or(cfg.Log.Level, "info")), "Log level: debug, info, warn, error (NEWSHARVEST_LOG_LEVEL)")
	flag.Parse()

	log := logging.New(*logPath, *logLevel)
	if cfgErr != nil {
		log.Warn("ignoring defaults file", "error", cfgErr)
	}

	if *site == "" {
		fmt.Fprintln(os.Stderr, "newsharvest: -site is required")
		flag.Usage()
		os.Exit(2)
	}

	registry, err := profile.LoadDir(*profilesDir)
	if err != nil {
		log.Error("failed to load profiles", "dir", *profilesDir, "error", err)
		os.Exit(1)
	}
	prof, ok := registry.Get(*site)
	if !ok {
		log.Error("unknown site", "site", *site, "known", registry.Names())
		os.Exit(1)
	}

	opts := []adapter.Option{adapter.WithLogger(log)}
	opts = append(opts, adapter.WithSink(&sink.File{Base: *out, Logger: log}))

	if *kafkaBrokers != "" {
		kf := sink.NewKafka(splitList(*kafkaBrokers), *kafkaTopic)
		defer kf.Close()
		opts = append(opts, adapter.WithSink(kf))
	}
	if *esAddr != "" {
		es, err := sink.NewElastic(*esAddr, *esIndex)
		if err != nil {
			log.Error("failed to create elasticsearch sink", "error", err)
			os.Exit(1)
		}
		opts = append(opts, adapter.WithSink(es))
	}
	if *journalPath != "" {
		j, err := journal.Open(*journalPath)
		if err != nil {
			log.Error("failed to open journal", "path", *journalPath, "error", err)
			os.Exit(1)
		}
		defer j.Close()
		opts = append(opts, adapter.WithJournal(j))
	}
	if *withVideos {
		h := video.NewHarvester(log)
		defer h.Close()
		opts = append(opts, adapter.WithVideoHarvester(h))
	}

	job := adapter.Job{
		Mode:  *mode,
		URL:   *url,
		Since: *since,
		Until: *until,
	}
	if *proxyHost != "" {
		job.Proxy = &fetch.Proxy{
			Host:     *proxyHost,
			Port:     *proxyPort,
			User:     *proxyUser,
			Password: *proxyPass,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a := adapter.New(prof, opts...)
	if err := a.Run(ctx, job); err != nil {
		// Only entry validation fails the process; per-item trouble is
		// already logged and the buffers were still delivered.
		log.Error("run rejected", "error", err)
		os.Exit(1)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
