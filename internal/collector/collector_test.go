package collector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkhas/gameperf/internal/models"
)

type fakeIngester struct {
	registered map[string]models.Category
	values     map[string][]float64
	failOn     string
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{
		registered: map[string]models.Category{},
		values:     map[string][]float64{},
	}
}

func (f *fakeIngester) RegisterMetric(id, name string, category models.Category, unit string) error {
	if id == f.failOn {
		return errors.New("boom")
	}
	f.registered[id] = category
	return nil
}

func (f *fakeIngester) Record(id string, value float64) error {
	f.values[id] = append(f.values[id], value)
	return nil
}

func TestNewRuntime_RegistersAllMetrics(t *testing.T) {
	ing := newFakeIngester()
	_, err := NewRuntime(ing)
	require.NoError(t, err)

	want := map[string]models.Category{
		TotalMemoryMetricID:  models.CategoryMemory,
		HeapAllocMetricID:    models.CategoryMemory,
		HeapObjectsMetricID:  models.CategoryMemory,
		GCFractionMetricID:   models.CategoryCPU,
		GoroutinesMetricID:   models.CategoryOther,
		SystemMemoryMetricID: models.CategoryMemory,
		CPUPercentMetricID:   models.CategoryCPU,
	}
	assert.Equal(t, want, ing.registered)
}

func TestNewRuntime_RegistrationErrorSurfaces(t *testing.T) {
	ing := newFakeIngester()
	ing.failOn = GCFractionMetricID

	_, err := NewRuntime(ing)
	assert.Error(t, err)
}

func TestRuntime_Collect(t *testing.T) {
	ing := newFakeIngester()
	c, err := NewRuntime(ing)
	require.NoError(t, err)

	c.Collect()

	// Runtime-sourced metrics always record; system probes are best-effort.
	for _, id := range []string{TotalMemoryMetricID, HeapAllocMetricID, HeapObjectsMetricID, GoroutinesMetricID} {
		require.Len(t, ing.values[id], 1, "metric %s", id)
		assert.Greater(t, ing.values[id][0], 0.0, "metric %s", id)
	}
	require.Len(t, ing.values[GCFractionMetricID], 1)
	assert.GreaterOrEqual(t, ing.values[GCFractionMetricID][0], 0.0)
}

func TestRuntime_MemorySample(t *testing.T) {
	ing := newFakeIngester()
	c, err := NewRuntime(ing)
	require.NoError(t, err)

	sample := c.MemorySample()
	assert.False(t, sample.Timestamp.IsZero())
	assert.Greater(t, sample.TotalBytes, uint64(0))
	assert.Greater(t, sample.PerCategory[models.CategoryMemory], uint64(0))
}
