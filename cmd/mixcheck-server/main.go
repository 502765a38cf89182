// ABOUTME: Entry point for the mixcheck review server
// ABOUTME: Parses CLI flags and serves the review API and event stream
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mixroom/mixcheck/internal/logging"
	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/internal/server"
	"github.com/mixroom/mixcheck/internal/version"
	"github.com/mixroom/mixcheck/pkg/analysis"
	"github.com/mixroom/mixcheck/pkg/audio/decode"
	"github.com/mixroom/mixcheck/pkg/audio/fetch"
)

var (
	port           = flag.Int("port", envInt("MIXCHECK_PORT", 8937), "HTTP server port")
	name           = flag.String("name", os.Getenv("MIXCHECK_NAME"), "Server friendly name (default: hostname-mixcheck)")
	logFile        = flag.String("log-file", envString("MIXCHECK_LOG_FILE", "mixcheck-server.log"), "Log file path")
	logLevel       = flag.String("log-level", envString("MIXCHECK_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	noMDNS         = flag.Bool("no-mdns", envBool("MIXCHECK_NO_MDNS", false), "Disable mDNS advertisement")
	useTUI         = flag.Bool("tui", envBool("MIXCHECK_TUI", false), "Show the server TUI instead of console logs")
	analyzeTimeout = flag.Duration("analyze-timeout", envDuration("MIXCHECK_ANALYZE_TIMEOUT", 2*time.Minute), "Upper bound on one analysis request (0 for none)")
	maxBytes       = flag.Int64("max-bytes", envInt64("MIXCHECK_MAX_BYTES", 1<<30), "Largest upload fetched for analysis (0 for no limit)")
	clip           = flag.Float64("clip", envFloat("MIXCHECK_CLIP", analysis.DefaultClipThreshold), "Clip threshold on normalized amplitude")
	channel        = flag.String("channel", envString("MIXCHECK_CHANNEL", "0"), "Channel to analyze, or 'all'")
	maxPeak        = flag.Float64("max-peak", review.DefaultPolicy().MaxPeak, "Policy: peak above this fails")
	minDR          = flag.Float64("min-dr", review.DefaultPolicy().MinDynamicRange, "Policy: dynamic range below this (dB) warns")
	maxClips       = flag.Int("max-clips", review.DefaultPolicy().MaxClippingPoints, "Policy: clipping points above this fail")
)

func main() {
	flag.Parse()

	logger, err := logging.New(logging.Options{
		Level:   *logLevel,
		File:    *logFile,
		Console: !*useTUI,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	selection, err := analysis.ParseChannelSelection(*channel)
	if err != nil {
		logger.Fatalw("invalid -channel", "error", err)
	}

	// Determine server name
	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-mixcheck", hostname)
	}

	logger.Infow("starting review server",
		"name", serverName,
		"port", *port,
		"version", version.Version,
		"log_file", *logFile,
	)

	fetcher := fetch.New(fetch.Config{
		MaxBytes:  *maxBytes,
		UserAgent: version.UserAgent(),
		Logger:    logger,
	})
	analyzer := analysis.New(analysis.Config{
		Decoder: decode.NewResourceDecoder(fetcher, logger),
		Options: analysis.Options{Channels: selection, ClipThreshold: *clip},
		Logger:  logger,
	})

	hub := server.NewHub(uuid.New().String(), serverName, logger)
	policy := review.Policy{
		MaxPeak:           *maxPeak,
		MinDynamicRange:   *minDR,
		MaxClippingPoints: *maxClips,
	}
	service, err := review.NewService(review.Config{
		Analyzer: analyzer,
		Cache:    review.NewCache(),
		Policy:   &policy,
		Notifier: hub,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalw("failed to create review service", "error", err)
	}

	srv := server.New(server.Config{
		Port:           *port,
		Name:           serverName,
		EnableMDNS:     !*noMDNS,
		UseTUI:         *useTUI,
		AnalyzeTimeout: *analyzeTimeout,
		Logger:         logger,
	}, service, hub)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Infow("received signal, shutting down", "signal", sig.String())
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.Fatalw("server error", "error", err)
	}

	logger.Infow("server stopped")
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
