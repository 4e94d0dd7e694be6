package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkhas/gameperf/internal/budget"
	"github.com/dmarkhas/gameperf/internal/models"
	"github.com/dmarkhas/gameperf/internal/registry"
)

func newReader(t *testing.T, values map[string]float64) *registry.Registry {
	t.Helper()
	reg := registry.New(10)
	for id, v := range values {
		require.NoError(t, reg.Register(id, id, models.CategoryOther, ""))
		require.NoError(t, reg.Ingest(id, v))
	}
	return reg
}

func TestEngine_Generate_QuietStateEmpty(t *testing.T) {
	reg := newReader(t, map[string]float64{
		budget.FrameMetricID: 10.0,
		TotalMemoryMetricID:  1 << 30,
		GCFractionMetricID:   0.02,
		DrawCallsMetricID:    800,
	})
	e := NewEngine(reg, 0)

	recs := e.Generate(&models.Budget{TargetFrameTimeMs: 16.66}, nil)
	assert.Empty(t, recs)
}

func TestEngine_Generate_PriorityOrder(t *testing.T) {
	// Every rule fires; the output must be ranked leak > frame > textures >
	// gc > draw calls.
	reg := newReader(t, map[string]float64{
		budget.FrameMetricID:  25.0,    // > 16.66 * 1.2
		TextureMemoryMetricID: 700 << 20,
		TotalMemoryMetricID:   1 << 30, // textures at ~68%
		GCFractionMetricID:    0.15,
		DrawCallsMetricID:     9000,
	})
	e := NewEngine(reg, 0)

	findings := []models.LeakFinding{{Severity: models.SeverityHigh, RatePerSec: 2 << 20, Window: time.Second}}
	recs := e.Generate(&models.Budget{TargetFrameTimeMs: 16.66}, findings)

	require.Len(t, recs, 5)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"memory-leak-suspected",
		"frame-time-over-budget",
		"high-texture-memory",
		"gc-pressure",
		"high-draw-calls",
	}, ids)
	assert.Equal(t, 10, recs[0].Priority)
	assert.Equal(t, 5, recs[4].Priority)
}

func TestEngine_Generate_Truncates(t *testing.T) {
	reg := newReader(t, map[string]float64{
		budget.FrameMetricID: 25.0,
		GCFractionMetricID:   0.15,
		DrawCallsMetricID:    9000,
	})
	e := NewEngine(reg, 2)

	recs := e.Generate(&models.Budget{TargetFrameTimeMs: 16.66}, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, "frame-time-over-budget", recs[0].ID)
	assert.Equal(t, "gc-pressure", recs[1].ID)
}

func TestEngine_Generate_ReplacesPreviousSet(t *testing.T) {
	reg := newReader(t, map[string]float64{DrawCallsMetricID: 9000})
	e := NewEngine(reg, 0)

	first := e.Generate(nil, nil)
	require.Len(t, first, 1)

	require.NoError(t, reg.Ingest(DrawCallsMetricID, 100))
	second := e.Generate(nil, nil)
	assert.Empty(t, second)
}

func TestEngine_AddRule(t *testing.T) {
	reg := newReader(t, nil)
	e := NewEngine(reg, 0)
	e.AddRule(func(in Input) []models.Recommendation {
		return []models.Recommendation{{ID: "custom", Priority: 9}}
	})

	recs := e.Generate(nil, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "custom", recs[0].ID)
}

func TestFrameTimeRule_RequiresBudget(t *testing.T) {
	reg := newReader(t, map[string]float64{budget.FrameMetricID: 100})
	assert.Nil(t, frameTimeRule(Input{Reader: reg}))
	assert.Nil(t, frameTimeRule(Input{Reader: reg, Budget: &models.Budget{}}))
}

func TestLeakRule_CountsSeverities(t *testing.T) {
	findings := []models.LeakFinding{
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityMedium},
		{Severity: models.SeverityMedium},
	}
	recs := leakRule(Input{Findings: findings})
	require.Len(t, recs, 1)
	assert.Equal(t, "3 leak finding(s), 1 with sustained growth", recs[0].Description)
}
