package encode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkhas/gameperf/internal/models"
)

func sampleRecord(at time.Time) models.LogRecord {
	return models.LogRecord{
		Timestamp: at,
		Kind:      models.KindSample,
		Metrics: map[string]float64{
			"frame_time":   16.9,
			"physics_time": 4.2,
		},
		BudgetStatus: []models.BudgetStatus{
			{
				MetricID:   "physics_time",
				Subsystem:  "physics",
				ActualMs:   4.2,
				AllottedMs: 4.165,
				Percentage: 4.2 / 4.165,
				Level:      models.LevelCritical,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "json", want: FormatJSON},
		{in: " CSV ", want: FormatCSV},
		{in: "Binary", want: FormatBinary},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordEncoder_JSONRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 250_000_000, time.UTC)
	rec := sampleRecord(at)
	manual := models.LogRecord{Timestamp: at.Add(time.Second), Kind: models.KindManual, Message: "level loaded"}

	var buf bytes.Buffer
	enc := NewRecordEncoder(FormatJSON, &buf)
	require.NoError(t, enc.Encode(&rec))
	require.NoError(t, enc.Encode(&manual))

	// One JSON object per line, timestamp as float64 seconds.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &raw))
	assert.InDelta(t, 1773144000.25, raw["timestamp"].(float64), 1e-6)

	got, err := DecodeRecords(&buf, FormatJSON)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rec.Metrics, got[0].Metrics)
	assert.Equal(t, rec.BudgetStatus, got[0].BudgetStatus)
	assert.WithinDuration(t, at, got[0].Timestamp, time.Microsecond)
	assert.Equal(t, models.KindManual, got[1].Kind)
	assert.Equal(t, "level loaded", got[1].Message)
}

func TestRecordEncoder_BinaryMatchesJSON(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 500_000_000, time.UTC)
	records := []models.LogRecord{
		sampleRecord(at),
		{Timestamp: at.Add(time.Second), Kind: models.KindEvent, Message: "budget_exceeded"},
	}

	var jsonBuf, binBuf bytes.Buffer
	jsonEnc := NewRecordEncoder(FormatJSON, &jsonBuf)
	binEnc := NewRecordEncoder(FormatBinary, &binBuf)
	for i := range records {
		require.NoError(t, jsonEnc.Encode(&records[i]))
		require.NoError(t, binEnc.Encode(&records[i]))
	}

	fromJSON, err := DecodeRecords(&jsonBuf, FormatJSON)
	require.NoError(t, err)
	fromBin, err := DecodeRecords(&binBuf, FormatBinary)
	require.NoError(t, err)

	// The binary codec must reconstruct exactly what JSON reconstructs.
	assert.Equal(t, fromJSON, fromBin)
}

func TestRecordEncoder_BinaryRejectsOversizeMetricSet(t *testing.T) {
	rec := models.LogRecord{
		Timestamp: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Kind:      models.KindSample,
		Metrics:   make(map[string]float64, 1<<16),
	}
	for i := 0; i < 1<<16; i++ {
		rec.Metrics[fmt.Sprintf("metric_%05d", i)] = float64(i)
	}

	var buf bytes.Buffer
	enc := NewRecordEncoder(FormatBinary, &buf)
	assert.Error(t, enc.Encode(&rec))
}

func TestRecordEncoder_CSVShape(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	enc := NewRecordEncoder(FormatCSV, &buf)

	first := models.LogRecord{Timestamp: at, Kind: models.KindSample,
		Metrics: map[string]float64{"b_metric": 2, "a_metric": 1}}
	second := models.LogRecord{Timestamp: at.Add(time.Second), Kind: models.KindSample,
		Metrics: map[string]float64{"a_metric": 3, "c_metric": 9}}
	require.NoError(t, enc.Encode(&first))
	require.NoError(t, enc.Encode(&second))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	// Columns are fixed by the first record, sorted by id.
	assert.Equal(t, "timestamp,a_metric,b_metric", lines[0])
	assert.Equal(t, "1773144000,1,2", lines[1])
	// Later records project onto the same columns; unknown ids are dropped.
	assert.Equal(t, "1773144001,3,0", lines[2])
}

func TestRecordEncoder_CSVResetRewritesHeader(t *testing.T) {
	at := time.Now()
	var first, second bytes.Buffer
	enc := NewRecordEncoder(FormatCSV, &first)

	rec := models.LogRecord{Timestamp: at, Metrics: map[string]float64{"m": 1}}
	require.NoError(t, enc.Encode(&rec))
	enc.Reset(&second)
	require.NoError(t, enc.Encode(&rec))

	assert.True(t, strings.HasPrefix(second.String(), "timestamp,m\n"))
}

func TestDecodeRecords_CSVUnsupported(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader("timestamp,m\n1,2\n"), FormatCSV)
	assert.Error(t, err)
}
