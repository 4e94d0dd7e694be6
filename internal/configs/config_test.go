package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkhas/gameperf/internal/encode"
	"github.com/dmarkhas/gameperf/internal/models"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultSamplingIntervalSec, cfg.SamplingIntervalSec)
	assert.Equal(t, DefaultAnalysisIntervalSec, cfg.AnalysisIntervalSec)
	assert.Equal(t, models.DetailNormal, cfg.DetailLevel)
	assert.True(t, cfg.AsyncLoggingEnabled)
	assert.Equal(t, DefaultMaxHistorySamples, cfg.MaxHistorySamples)
	assert.Equal(t, DefaultMaxSnapshots, cfg.MaxSnapshots)
	assert.Equal(t, DefaultMaxRecommendations, cfg.MaxRecommendations)
	assert.Equal(t, DefaultLeakCheckIntervalSec, cfg.LeakCheckIntervalSec)
	assert.Equal(t, encode.FormatJSON, cfg.LogFormat)
	assert.Equal(t, DefaultLogPath, cfg.LogPath)
	assert.Equal(t, DefaultQueueCapacity, cfg.QueueCapacity)
	assert.Empty(t, cfg.DebugAddress)
	assert.Empty(t, cfg.WebhookURL)
	assert.Empty(t, cfg.ArchiveDSN)
	assert.NoError(t, cfg.Validate())
}

func TestNew_FirstValidValueWins(t *testing.T) {
	// Callers pass flag then env candidates; zero values mean "not set".
	cfg, err := New(
		WithSamplingInterval(0, 0.25),
		WithMaxSnapshots(0, 0, 50),
		WithLogPath("", "custom.jsonl"),
		WithDetailLevel("", "verbose"),
	)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.SamplingIntervalSec)
	assert.Equal(t, 50, cfg.MaxSnapshots)
	assert.Equal(t, "custom.jsonl", cfg.LogPath)
	assert.Equal(t, models.DetailVerbose, cfg.DetailLevel)
}

func TestNew_AllCandidatesUnsetKeepsDefault(t *testing.T) {
	cfg, err := New(
		WithSamplingInterval(0, -1),
		WithLogPath("", ""),
		WithDetailLevel("", ""),
	)
	require.NoError(t, err)

	assert.Equal(t, DefaultSamplingIntervalSec, cfg.SamplingIntervalSec)
	assert.Equal(t, DefaultLogPath, cfg.LogPath)
	assert.Equal(t, models.DetailNormal, cfg.DetailLevel)
}

func TestNew_ParseErrors(t *testing.T) {
	_, err := New(WithDetailLevel("extreme"))
	assert.Error(t, err)

	_, err = New(WithLogFormat("xml"))
	assert.Error(t, err)
}

func TestNew_SupplementalSurfaces(t *testing.T) {
	cfg, err := New(
		WithDebugAddress("", "localhost:6060"),
		WithWebhookURL("https://hooks.example.com/perf"),
		WithArchiveDSN("file:perf.db"),
		WithLogFormat("binary"),
		WithAsyncLogging(false),
		WithSnapshotOnCritical(true),
		WithAllocationTracking(true),
	)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6060", cfg.DebugAddress)
	assert.Equal(t, "https://hooks.example.com/perf", cfg.WebhookURL)
	assert.Equal(t, "file:perf.db", cfg.ArchiveDSN)
	assert.Equal(t, encode.FormatBinary, cfg.LogFormat)
	assert.False(t, cfg.AsyncLoggingEnabled)
	assert.True(t, cfg.SnapshotOnCritical)
	assert.True(t, cfg.AllocationTracking)
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	cfg.MaxHistorySamples = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxHistorySamples = 10
	cfg.SamplingIntervalSec = 0
	assert.Error(t, cfg.Validate())
}
