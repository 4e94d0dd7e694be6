package main

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

var (
	samplingInterval  float64
	analysisInterval  float64
	detailLevel       string
	asyncLogging      bool
	maxHistorySamples int
	maxSnapshots      int
	maxRecs           int
	leakInterval      float64
	logFormat         string
	logPath           string
	maxLogSizeMB      int
	targetFrameMs     float64
	debugAddr         string
	webhookURL        string
	archiveDSN        string
	migrationsDir     string
)

func init() {
	pflag.Float64VarP(&samplingInterval, "sampling-interval", "i", 0.1, "sampling interval in seconds")
	pflag.Float64Var(&analysisInterval, "analysis-interval", 5, "analysis cadence in seconds")
	pflag.StringVarP(&detailLevel, "detail", "d", "normal", "detail level: minimal, normal, detailed, verbose")
	pflag.BoolVar(&asyncLogging, "async-logging", true, "persist telemetry through the async log sink")
	pflag.IntVar(&maxHistorySamples, "history", 300, "history samples retained per metric")
	pflag.IntVar(&maxSnapshots, "snapshots", 100, "snapshots retained in memory")
	pflag.IntVar(&maxRecs, "recommendations", 20, "maximum recommendations kept per pass")
	pflag.Float64Var(&leakInterval, "leak-interval", 60, "leak check interval in seconds")
	pflag.StringVarP(&logFormat, "log-format", "f", "json", "log format: csv, json, binary")
	pflag.StringVarP(&logPath, "log-path", "o", "telemetry.jsonl", "active telemetry log file")
	pflag.IntVar(&maxLogSizeMB, "max-log-size-mb", 100, "log file size cap before rotation, in MB")
	pflag.Float64Var(&targetFrameMs, "target-frame-ms", 16.666, "frame time budget target in milliseconds")
	pflag.StringVarP(&debugAddr, "debug-address", "a", "", "address for the debug HTTP surface (empty = off)")
	pflag.StringVar(&webhookURL, "webhook-url", "", "URL to POST telemetry events to (empty = off)")
	pflag.StringVar(&archiveDSN, "archive-dsn", "", "SQLite DSN for the snapshot archive (empty = off)")
	pflag.StringVar(&migrationsDir, "migrations-dir", "migrations", "archive migrations directory")
}

func parseFlags() error {
	pflag.Parse()
	if len(pflag.Args()) > 0 {
		return errors.New("unknown flags are provided")
	}

	if env := os.Getenv("SAMPLING_INTERVAL"); env != "" {
		v, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return errors.New("invalid SAMPLING_INTERVAL: must be a number")
		}
		samplingInterval = v
	}
	if env := os.Getenv("DETAIL_LEVEL"); env != "" {
		detailLevel = env
	}
	if env := os.Getenv("ASYNC_LOGGING"); env != "" {
		switch strings.ToLower(env) {
		case "true":
			asyncLogging = true
		case "false":
			asyncLogging = false
		default:
			return errors.New("invalid ASYNC_LOGGING: must be true or false")
		}
	}
	if env := os.Getenv("MAX_HISTORY_SAMPLES"); env != "" {
		v, err := strconv.Atoi(env)
		if err != nil {
			return errors.New("invalid MAX_HISTORY_SAMPLES: must be an integer")
		}
		maxHistorySamples = v
	}
	if env := os.Getenv("MAX_SNAPSHOTS"); env != "" {
		v, err := strconv.Atoi(env)
		if err != nil {
			return errors.New("invalid MAX_SNAPSHOTS: must be an integer")
		}
		maxSnapshots = v
	}
	if env := os.Getenv("MAX_RECOMMENDATIONS"); env != "" {
		v, err := strconv.Atoi(env)
		if err != nil {
			return errors.New("invalid MAX_RECOMMENDATIONS: must be an integer")
		}
		maxRecs = v
	}
	if env := os.Getenv("LEAK_CHECK_INTERVAL"); env != "" {
		v, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return errors.New("invalid LEAK_CHECK_INTERVAL: must be a number")
		}
		leakInterval = v
	}
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		logFormat = env
	}
	if env := os.Getenv("LOG_PATH"); env != "" {
		logPath = env
	}
	if env := os.Getenv("MAX_LOG_FILE_SIZE_MB"); env != "" {
		v, err := strconv.Atoi(env)
		if err != nil {
			return errors.New("invalid MAX_LOG_FILE_SIZE_MB: must be an integer")
		}
		maxLogSizeMB = v
	}
	if env := os.Getenv("TARGET_FRAME_TIME_MS"); env != "" {
		v, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return errors.New("invalid TARGET_FRAME_TIME_MS: must be a number")
		}
		targetFrameMs = v
	}
	if env := os.Getenv("DEBUG_ADDRESS"); env != "" {
		debugAddr = env
	}
	if env := os.Getenv("WEBHOOK_URL"); env != "" {
		webhookURL = env
	}
	if env := os.Getenv("ARCHIVE_DSN"); env != "" {
		archiveDSN = env
	}
	if env := os.Getenv("MIGRATIONS_DIR"); env != "" {
		migrationsDir = env
	}
	return nil
}
