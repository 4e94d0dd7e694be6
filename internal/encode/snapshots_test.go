package encode

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkhas/gameperf/internal/models"
)

func sampleSnapshots() []models.Snapshot {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return []models.Snapshot{
		{
			ID:        1,
			Timestamp: base,
			Metrics:   map[string]float64{"frame_time": 16.5, "draw_calls": 1200},
			Context:   map[string]string{"level": "forest", "entities": "4500"},
			BudgetStatus: []models.BudgetStatus{
				{MetricID: "frame_time", Subsystem: "frame", ActualMs: 16.5, AllottedMs: 16.66, Percentage: 16.5 / 16.66, Level: models.LevelCritical},
			},
			ImageRef: "captures/0001.png",
		},
		{
			ID:        2,
			Timestamp: base.Add(30 * time.Second),
			Metrics:   map[string]float64{"frame_time": 12.0, "heap_alloc_bytes": 1 << 26},
		},
	}
}

func TestExportSnapshots_JSONRoundTrip(t *testing.T) {
	snaps := sampleSnapshots()

	data, err := ExportSnapshots(snaps, FormatJSON)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)

	got, err := DecodeSnapshots(data, FormatJSON)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, snaps[0].ID, got[0].ID)
	assert.Equal(t, snaps[0].Metrics, got[0].Metrics)
	assert.Equal(t, snaps[0].Context, got[0].Context)
	assert.Equal(t, snaps[0].BudgetStatus, got[0].BudgetStatus)
	assert.Equal(t, snaps[0].ImageRef, got[0].ImageRef)
	assert.WithinDuration(t, snaps[0].Timestamp, got[0].Timestamp, time.Microsecond)
}

func TestExportSnapshots_BinaryMatchesJSON(t *testing.T) {
	snaps := sampleSnapshots()

	jsonData, err := ExportSnapshots(snaps, FormatJSON)
	require.NoError(t, err)
	binData, err := ExportSnapshots(snaps, FormatBinary)
	require.NoError(t, err)

	fromJSON, err := DecodeSnapshots(jsonData, FormatJSON)
	require.NoError(t, err)
	fromBin, err := DecodeSnapshots(binData, FormatBinary)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromBin)
}

func TestExportSnapshots_BinaryRejectsOversizeContext(t *testing.T) {
	snap := models.Snapshot{
		ID:        1,
		Timestamp: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Context:   make(map[string]string, 1<<16),
	}
	for i := 0; i < 1<<16; i++ {
		snap.Context[fmt.Sprintf("key_%05d", i)] = "v"
	}

	_, err := ExportSnapshots([]models.Snapshot{snap}, FormatBinary)
	assert.Error(t, err)
}

func TestExportSnapshots_CSVUnionColumns(t *testing.T) {
	snaps := sampleSnapshots()

	data, err := ExportSnapshots(snaps, FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	// Header is the sorted union of metric ids across both snapshots.
	assert.Equal(t, "timestamp,draw_calls,frame_time,heap_alloc_bytes", lines[0])
	assert.Equal(t, "1773144000,1200,16.5,0", lines[1])
	assert.Equal(t, "1773144030,0,12,67108864", lines[2])
}

func TestExportSnapshots_UnknownFormat(t *testing.T) {
	_, err := ExportSnapshots(sampleSnapshots(), Format("xml"))
	assert.Error(t, err)
}

func TestFormat_Ext(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Ext())
	assert.Equal(t, ".bin", FormatBinary.Ext())
	assert.Equal(t, ".jsonl", FormatJSON.Ext())
}
