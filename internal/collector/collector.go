// Package collector samples the host process itself (Go runtime memory stats
// plus system memory and CPU via gopsutil) and feeds the results into the
// metric registry. It also produces the MemorySample stream consumed by leak
// detection.
package collector

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Metric ids registered by the collector.
const (
	TotalMemoryMetricID  = "total_memory_bytes"
	HeapAllocMetricID    = "heap_alloc_bytes"
	HeapObjectsMetricID  = "heap_objects"
	GCFractionMetricID   = "gc_cpu_fraction"
	GoroutinesMetricID   = "goroutines"
	SystemMemoryMetricID = "system_memory_used_percent"
	CPUPercentMetricID   = "cpu_percent"
)

// Ingester registers metrics and accepts values; satisfied by the registry
// and by the engine facade.
type Ingester interface {
	RegisterMetric(id, name string, category models.Category, unit string) error
	Record(id string, value float64) error
}

// Runtime samples the current process. Not safe for concurrent use; call it
// from the producer context only.
type Runtime struct {
	ing Ingester
}

// NewRuntime registers the collector's metrics and returns the collector.
// Registration errors other than duplicates are surfaced.
func NewRuntime(ing Ingester) (*Runtime, error) {
	defs := []struct {
		id, name string
		category models.Category
		unit     string
	}{
		{TotalMemoryMetricID, "Total Memory", models.CategoryMemory, "bytes"},
		{HeapAllocMetricID, "Heap Allocated", models.CategoryMemory, "bytes"},
		{HeapObjectsMetricID, "Heap Objects", models.CategoryMemory, "count"},
		{GCFractionMetricID, "GC CPU Fraction", models.CategoryCPU, "fraction"},
		{GoroutinesMetricID, "Goroutines", models.CategoryOther, "count"},
		{SystemMemoryMetricID, "System Memory Used", models.CategoryMemory, "percent"},
		{CPUPercentMetricID, "CPU Usage", models.CategoryCPU, "percent"},
	}
	for _, d := range defs {
		if err := ing.RegisterMetric(d.id, d.name, d.category, d.unit); err != nil {
			return nil, err
		}
	}
	return &Runtime{ing: ing}, nil
}

// Collect ingests one round of runtime and system measurements. System
// probes that fail are skipped silently; self-monitoring must never take the
// host down.
func (c *Runtime) Collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.ing.Record(TotalMemoryMetricID, float64(ms.Sys))
	c.ing.Record(HeapAllocMetricID, float64(ms.HeapAlloc))
	c.ing.Record(HeapObjectsMetricID, float64(ms.HeapObjects))
	c.ing.Record(GCFractionMetricID, ms.GCCPUFraction)
	c.ing.Record(GoroutinesMetricID, float64(runtime.NumGoroutine()))

	if vm, err := mem.VirtualMemory(); err == nil {
		c.ing.Record(SystemMemoryMetricID, vm.UsedPercent)
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		c.ing.Record(CPUPercentMetricID, pct[0])
	}
}

// MemorySample captures the process memory breakdown for leak detection.
func (c *Runtime) MemorySample() models.MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return models.MemorySample{
		Timestamp:  time.Now(),
		TotalBytes: ms.Sys,
		PerCategory: map[models.Category]uint64{
			models.CategoryMemory: ms.HeapSys,
			models.CategoryOther:  ms.StackSys + ms.MSpanSys + ms.MCacheSys + ms.BuckHashSys + ms.GCSys + ms.OtherSys,
		},
	}
}
