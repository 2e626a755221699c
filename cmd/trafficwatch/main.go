package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/storage"
)

// Exit codes. A failed store write is reported separately so schedulers
// can alert on lost data.
const (
	exitError      = 1
	exitStoreWrite = 3
)

func main() {
	logger.Init()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, storage.ErrWrite) {
		return exitStoreWrite
	}
	return exitError
}

func startMonitoringServer(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/stats", statsHandler)

	logger.Info("Starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("Monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	w.Header().Set("Content-Type", "application/json")
	if !metrics.Global.Healthy() {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Warn("Writing health response", "error", err)
	}
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metrics.Global.GetStats()); err != nil {
		logger.Warn("Writing stats response", "error", err)
	}
}
