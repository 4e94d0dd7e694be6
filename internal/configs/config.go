// Package configs holds the telemetry engine configuration and its
// functional options.
package configs

import (
	"fmt"

	"github.com/dmarkhas/gameperf/internal/encode"
	"github.com/dmarkhas/gameperf/internal/models"
)

// Defaults for every recognized option.
const (
	DefaultSamplingIntervalSec  = 0.1
	DefaultAnalysisIntervalSec  = 5.0
	DefaultLeakCheckIntervalSec = 60.0
	DefaultMaxHistorySamples    = 300
	DefaultMaxSnapshots         = 100
	DefaultMaxRecommendations   = 20
	DefaultMaxLogFileSizeMB     = 100
	DefaultQueueCapacity        = 1024
	DefaultLogPath              = "telemetry.jsonl"
)

// Config holds all engine configuration. Build it with New; zero values are
// replaced by defaults there.
type Config struct {
	SamplingIntervalSec  float64            `json:"sampling_interval_seconds"`
	AnalysisIntervalSec  float64            `json:"analysis_interval_seconds"`
	DetailLevel          models.DetailLevel `json:"detail_level"`
	AsyncLoggingEnabled  bool               `json:"async_logging_enabled"`
	MaxHistorySamples    int                `json:"max_history_samples"`
	MaxSnapshots         int                `json:"max_snapshots"`
	MaxRecommendations   int                `json:"max_recommendations"`
	LeakCheckIntervalSec float64            `json:"leak_check_interval_seconds"`
	LeakRateThreshold    float64            `json:"leak_rate_threshold_bytes_per_sec"`
	AllocationTracking   bool               `json:"allocation_tracking"`
	SnapshotOnCritical   bool               `json:"snapshot_on_critical"`
	LogFormat            encode.Format      `json:"log_format"`
	LogPath              string             `json:"log_path"`
	MaxLogFileSizeMB     int                `json:"max_log_file_size_mb"`
	QueueCapacity        int                `json:"queue_capacity"`

	DebugAddress string `json:"debug_address,omitempty"` // empty disables the debug HTTP surface
	WebhookURL   string `json:"webhook_url,omitempty"`   // empty disables the webhook notifier
	ArchiveDSN   string `json:"archive_dsn,omitempty"`   // empty disables the snapshot archive
}

// Opt applies one configuration option to a Config.
type Opt func(*Config) error

// New creates a Config with defaults and the given options applied, in order.
func New(opts ...Opt) (*Config, error) {
	cfg := &Config{
		SamplingIntervalSec:  DefaultSamplingIntervalSec,
		AnalysisIntervalSec:  DefaultAnalysisIntervalSec,
		DetailLevel:          models.DetailNormal,
		AsyncLoggingEnabled:  true,
		MaxHistorySamples:    DefaultMaxHistorySamples,
		MaxSnapshots:         DefaultMaxSnapshots,
		MaxRecommendations:   DefaultMaxRecommendations,
		LeakCheckIntervalSec: DefaultLeakCheckIntervalSec,
		LogFormat:            encode.FormatJSON,
		LogPath:              DefaultLogPath,
		MaxLogFileSizeMB:     DefaultMaxLogFileSizeMB,
		QueueCapacity:        DefaultQueueCapacity,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithSamplingInterval sets the sampling cadence to the first positive value.
func WithSamplingInterval(seconds ...float64) Opt {
	return func(cfg *Config) error {
		for _, s := range seconds {
			if s > 0 {
				cfg.SamplingIntervalSec = s
				break
			}
		}
		return nil
	}
}

// WithAnalysisInterval sets the analysis cadence to the first positive value.
func WithAnalysisInterval(seconds ...float64) Opt {
	return func(cfg *Config) error {
		for _, s := range seconds {
			if s > 0 {
				cfg.AnalysisIntervalSec = s
				break
			}
		}
		return nil
	}
}

// WithDetailLevel sets the detail level from the first non-empty name.
func WithDetailLevel(levels ...string) Opt {
	return func(cfg *Config) error {
		for _, l := range levels {
			if l == "" {
				continue
			}
			parsed, err := models.ParseDetailLevel(l)
			if err != nil {
				return err
			}
			cfg.DetailLevel = parsed
			return nil
		}
		return nil
	}
}

// WithAsyncLogging toggles the async log sink.
func WithAsyncLogging(enabled bool) Opt {
	return func(cfg *Config) error {
		cfg.AsyncLoggingEnabled = enabled
		return nil
	}
}

// WithMaxHistorySamples sets the history ring capacity to the first positive
// value.
func WithMaxHistorySamples(counts ...int) Opt {
	return func(cfg *Config) error {
		for _, n := range counts {
			if n > 0 {
				cfg.MaxHistorySamples = n
				break
			}
		}
		return nil
	}
}

// WithMaxSnapshots sets the snapshot retention cap to the first positive
// value.
func WithMaxSnapshots(counts ...int) Opt {
	return func(cfg *Config) error {
		for _, n := range counts {
			if n > 0 {
				cfg.MaxSnapshots = n
				break
			}
		}
		return nil
	}
}

// WithMaxRecommendations sets the recommendation cap to the first positive
// value.
func WithMaxRecommendations(counts ...int) Opt {
	return func(cfg *Config) error {
		for _, n := range counts {
			if n > 0 {
				cfg.MaxRecommendations = n
				break
			}
		}
		return nil
	}
}

// WithLeakCheckInterval sets the leak-check cadence to the first positive
// value.
func WithLeakCheckInterval(seconds ...float64) Opt {
	return func(cfg *Config) error {
		for _, s := range seconds {
			if s > 0 {
				cfg.LeakCheckIntervalSec = s
				break
			}
		}
		return nil
	}
}

// WithLeakRateThreshold sets the growth threshold in bytes/second to the
// first positive value.
func WithLeakRateThreshold(bytesPerSec ...float64) Opt {
	return func(cfg *Config) error {
		for _, b := range bytesPerSec {
			if b > 0 {
				cfg.LeakRateThreshold = b
				break
			}
		}
		return nil
	}
}

// WithAllocationTracking toggles detailed allocation tracking.
func WithAllocationTracking(enabled bool) Opt {
	return func(cfg *Config) error {
		cfg.AllocationTracking = enabled
		return nil
	}
}

// WithSnapshotOnCritical toggles automatic snapshot capture when a budget
// entry first turns critical.
func WithSnapshotOnCritical(enabled bool) Opt {
	return func(cfg *Config) error {
		cfg.SnapshotOnCritical = enabled
		return nil
	}
}

// WithLogFormat sets the sink format from the first non-empty name.
func WithLogFormat(formats ...string) Opt {
	return func(cfg *Config) error {
		for _, f := range formats {
			if f == "" {
				continue
			}
			parsed, err := encode.ParseFormat(f)
			if err != nil {
				return err
			}
			cfg.LogFormat = parsed
			return nil
		}
		return nil
	}
}

// WithLogPath sets the active log file path from the first non-empty value.
func WithLogPath(paths ...string) Opt {
	return func(cfg *Config) error {
		for _, p := range paths {
			if p != "" {
				cfg.LogPath = p
				break
			}
		}
		return nil
	}
}

// WithMaxLogFileSizeMB sets the rotation cap to the first positive value.
func WithMaxLogFileSizeMB(sizes ...int) Opt {
	return func(cfg *Config) error {
		for _, s := range sizes {
			if s > 0 {
				cfg.MaxLogFileSizeMB = s
				break
			}
		}
		return nil
	}
}

// WithQueueCapacity sets the sink queue capacity to the first positive value.
func WithQueueCapacity(caps ...int) Opt {
	return func(cfg *Config) error {
		for _, c := range caps {
			if c > 0 {
				cfg.QueueCapacity = c
				break
			}
		}
		return nil
	}
}

// WithDebugAddress enables the debug HTTP surface on the first non-empty
// address.
func WithDebugAddress(addrs ...string) Opt {
	return func(cfg *Config) error {
		for _, a := range addrs {
			if a != "" {
				cfg.DebugAddress = a
				break
			}
		}
		return nil
	}
}

// WithWebhookURL enables the webhook notifier on the first non-empty URL.
func WithWebhookURL(urls ...string) Opt {
	return func(cfg *Config) error {
		for _, u := range urls {
			if u != "" {
				cfg.WebhookURL = u
				break
			}
		}
		return nil
	}
}

// WithArchiveDSN enables the snapshot archive on the first non-empty DSN.
func WithArchiveDSN(dsns ...string) Opt {
	return func(cfg *Config) error {
		for _, d := range dsns {
			if d != "" {
				cfg.ArchiveDSN = d
				break
			}
		}
		return nil
	}
}

// Validate performs cross-field checks not expressible in a single option.
func (cfg *Config) Validate() error {
	if cfg.MaxHistorySamples <= 0 {
		return fmt.Errorf("max history samples must be positive, got %d", cfg.MaxHistorySamples)
	}
	if cfg.SamplingIntervalSec <= 0 {
		return fmt.Errorf("sampling interval must be positive, got %g", cfg.SamplingIntervalSec)
	}
	return nil
}
