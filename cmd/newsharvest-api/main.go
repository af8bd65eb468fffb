package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/pevans/newsharvest/api"
	"github.com/pevans/newsharvest/logging"
	"github.com/pevans/newsharvest/profile"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	addr := flag.String("addr", getEnv("NEWSHARVEST_ADDR", "localhost:8080"), "Listen address (NEWSHARVEST_ADDR)")
	profilesDir := flag.String("profiles", getEnv("NEWSHARVEST_PROFILES", "profiles"), "Directory of site profile YAML files (NEWSHARVEST_PROFILES)")
	logPath := flag.String("log", getEnv("NEWSHARVEST_LOG", "logs.log"), "Log file path (NEWSHARVEST_LOG)")
	logLevel := flag.String("log-level", getEnv("NEWSHARVEST_LOG_LEVEL", "info"), "Log level: debug, info, warn, error (NEWSHARVEST_LOG_LEVEL)")
	flag.Parse()

	log := logging.New(*logPath, *logLevel)

	registry, err := profile.LoadDir(*profilesDir)
	if err != nil {
		log.Error("failed to load profiles", "dir", *profilesDir, "error", err)
		os.Exit(1)
	}

	server := api.NewServer(registry, log)
	log.Info("starting job API", "addr", *addr, "sites", registry.Names())

	if err := http.ListenAndServe(*addr, server.Router()); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
