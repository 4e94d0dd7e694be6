// Package engine is the composition root of the telemetry subsystem: it owns
// the registry, sampler, budget evaluator, snapshot store, leak detector,
// recommendation engine, and async log sink, and exposes the ingestion API
// the host loop calls. There is no ambient global state; the host creates an
// Engine and hands it to every measured subsystem.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/advisor"
	"github.com/dmarkhas/gameperf/internal/budget"
	"github.com/dmarkhas/gameperf/internal/configs"
	"github.com/dmarkhas/gameperf/internal/events"
	"github.com/dmarkhas/gameperf/internal/leak"
	"github.com/dmarkhas/gameperf/internal/models"
	"github.com/dmarkhas/gameperf/internal/registry"
	"github.com/dmarkhas/gameperf/internal/sampler"
	"github.com/dmarkhas/gameperf/internal/sink"
	"github.com/dmarkhas/gameperf/internal/snapshots"
)

// MemorySampler supplies memory samples for leak detection; the runtime
// collector implements it.
type MemorySampler interface {
	MemorySample() models.MemorySample
}

// Engine ties the telemetry components together. All methods except the
// sink's background worker run on the producer context; accessors used by the
// debug HTTP surface take the engine's short state lock.
type Engine struct {
	logger *zap.Logger
	cfg    *configs.Config

	registry  *registry.Registry
	evaluator *budget.Evaluator
	store     *snapshots.Store
	detector  *leak.Detector
	advisor   *advisor.Engine
	sampler   *sampler.Sampler
	logSink   *sink.Sink
	events    *events.Dispatcher

	activeBudget atomic.Pointer[models.Budget]

	mu            sync.Mutex
	memSampler    MemorySampler
	lastStatuses  []models.BudgetStatus
	lastRecs      []models.Recommendation
	lastFindings  []models.LeakFinding
	prevMemSample *models.MemorySample
	lastLeakCheck time.Time
	prevCritical  bool
	allocations   map[uint64]models.Allocation
}

// New builds an Engine from the given configuration.
func New(logger *zap.Logger, cfg *configs.Config) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		var err error
		cfg, err = configs.New()
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		logger:   logger,
		cfg:      cfg,
		registry: registry.New(cfg.MaxHistorySamples),
		events:   events.NewDispatcher(),
	}
	e.evaluator = budget.NewEvaluator(e.registry)
	e.store = snapshots.NewStore(e.registry, cfg.MaxSnapshots)
	e.detector = leak.NewDetector(cfg.LeakRateThreshold, time.Duration(0))
	e.advisor = advisor.NewEngine(e.registry, cfg.MaxRecommendations)
	if cfg.AsyncLoggingEnabled {
		e.logSink = sink.New(logger, cfg.QueueCapacity, int64(cfg.MaxLogFileSizeMB)<<20)
	}
	if cfg.AllocationTracking {
		e.allocations = make(map[uint64]models.Allocation)
	}
	e.sampler = sampler.New(e.registry, evaluatorFunc{e}, analyzerFunc{e}, recorderFunc{e},
		cfg.SamplingIntervalSec, cfg.AnalysisIntervalSec, cfg.DetailLevel)
	return e, nil
}

// Adapters binding the sampler's collaborator interfaces to engine methods.
type evaluatorFunc struct{ e *Engine }

func (f evaluatorFunc) Evaluate() []models.BudgetStatus { return f.e.Evaluate() }

type analyzerFunc struct{ e *Engine }

func (f analyzerFunc) Analyze() { f.e.Analyze() }

type recorderFunc struct{ e *Engine }

func (f recorderFunc) Enqueue(rec models.LogRecord) { f.e.enqueue(rec) }

// Events returns the notification dispatcher for external subscribers.
func (e *Engine) Events() *events.Dispatcher { return e.events }

// Registry exposes the metric registry for read-only surfaces.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Snapshots exposes the snapshot store.
func (e *Engine) Snapshots() *snapshots.Store { return e.store }

// Sink exposes the async log sink; nil when async logging is disabled.
func (e *Engine) Sink() *sink.Sink { return e.logSink }

// SetMemorySampler installs the source of memory samples for leak detection.
func (e *Engine) SetMemorySampler(ms MemorySampler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.memSampler = ms
}

// StartLogging opens the configured log file and launches the sink worker.
// No-op when async logging is disabled.
func (e *Engine) StartLogging() error {
	if e.logSink == nil {
		return nil
	}
	return e.logSink.Start(e.cfg.LogPath, e.cfg.LogFormat)
}

// Stop flushes and stops the log sink. The engine itself has no goroutines.
func (e *Engine) Stop() error {
	if e.logSink == nil {
		return nil
	}
	if err := e.logSink.Stop(); err != nil && err != sink.ErrNotRunning {
		return err
	}
	return nil
}

// RegisterMetric registers a measurement for ingestion. Duplicate ids are
// rejected; the original registration wins.
func (e *Engine) RegisterMetric(id, name string, category models.Category, unit string) error {
	if !category.Valid() {
		return fmt.Errorf("metric %q: invalid category %q", id, category)
	}
	return e.registry.Register(id, name, category, unit)
}

// Record ingests one value. Unknown ids degrade silently on the hot path: the
// error return is informational and the registry counts the miss.
func (e *Engine) Record(id string, value float64) error {
	return e.registry.Ingest(id, value)
}

// RecordDuration ingests the elapsed time since start, in milliseconds.
func (e *Engine) RecordDuration(id string, start time.Time) error {
	return e.registry.Ingest(id, float64(time.Since(start))/float64(time.Millisecond))
}

// Tick feeds elapsed host-frame time, in seconds, into the sampler.
func (e *Engine) Tick(deltaSec float64) {
	e.sampler.Tick(deltaSec)
}

// SetBudget atomically swaps the active budget; the swap takes effect on the
// next evaluation pass. There is no partial mutation of a live budget.
func (e *Engine) SetBudget(b models.Budget) {
	if b.WarningFrac <= 0 {
		b.WarningFrac = models.DefaultWarningFrac
	}
	if b.CriticalFrac <= 0 {
		b.CriticalFrac = models.DefaultCriticalFrac
	}
	if b.Overprovisioned() {
		e.logger.Warn("budget subsystem shares exceed the frame",
			zap.String("budget", b.ID))
	}
	e.activeBudget.Store(&b)
}

// ActiveBudget returns a copy of the active budget, or nil if none is set.
func (e *Engine) ActiveBudget() *models.Budget {
	b := e.activeBudget.Load()
	if b == nil {
		return nil
	}
	copied := *b
	return &copied
}

// Evaluate runs one budget evaluation pass: classify, remember the result,
// and re-emit budget_exceeded for every entry at WARNING or above. Breaches
// are level-triggered by design; edge-triggered consumers diff passes
// themselves.
func (e *Engine) Evaluate() []models.BudgetStatus {
	statuses := e.evaluator.Evaluate(e.activeBudget.Load())

	anyCritical := false
	for _, s := range budget.Exceeded(statuses) {
		if s.Level == models.LevelCritical {
			anyCritical = true
		}
		e.events.BudgetExceeded(s)
		e.enqueue(models.LogRecord{
			Timestamp:    time.Now(),
			Kind:         models.KindEvent,
			BudgetStatus: []models.BudgetStatus{s},
			Message:      fmt.Sprintf("budget_exceeded subsystem=%s pct=%.2f", s.Subsystem, s.Percentage),
		})
	}

	e.mu.Lock()
	e.lastStatuses = statuses
	wasCritical := e.prevCritical
	e.prevCritical = anyCritical
	e.mu.Unlock()

	// Automatic capture fires on the transition into critical, not every
	// pass, so a sustained breach cannot churn the snapshot store.
	if e.cfg.SnapshotOnCritical && anyCritical && !wasCritical {
		e.CaptureSnapshot(map[string]string{"trigger": "budget_critical"})
	}

	return statuses
}

// Analyze runs the slow-cadence analysis: a leak check when due, then a full
// recommendation regeneration.
func (e *Engine) Analyze() {
	e.mu.Lock()
	ms := e.memSampler
	due := time.Since(e.lastLeakCheck).Seconds() >= e.cfg.LeakCheckIntervalSec
	e.mu.Unlock()

	if ms != nil && due {
		sample := ms.MemorySample()
		e.SubmitMemorySample(sample)
	}

	e.mu.Lock()
	findings := e.lastFindings
	e.mu.Unlock()

	recs := e.advisor.Generate(e.activeBudget.Load(), findings)

	e.mu.Lock()
	e.lastRecs = recs
	e.mu.Unlock()

	e.events.RecommendationReady(recs)
}

// SubmitMemorySample feeds one memory sample into leak detection, comparing
// it against the previous one. Hosts with their own allocation tracking call
// this directly; otherwise the installed MemorySampler supplies samples.
func (e *Engine) SubmitMemorySample(sample models.MemorySample) []models.LeakFinding {
	e.mu.Lock()
	if e.allocations != nil && sample.Allocations == nil {
		sample.Allocations = make(map[uint64]models.Allocation, len(e.allocations))
		for addr, a := range e.allocations {
			sample.Allocations[addr] = a
		}
	}
	prev := e.prevMemSample
	e.prevMemSample = &sample
	e.lastLeakCheck = time.Now()
	e.mu.Unlock()

	if prev == nil {
		return nil
	}
	findings := e.detector.Check(*prev, sample)

	e.mu.Lock()
	e.lastFindings = findings
	e.mu.Unlock()

	for _, f := range findings {
		e.events.LeakDetected(f)
		e.enqueue(models.LogRecord{
			Timestamp: time.Now(),
			Kind:      models.KindEvent,
			Message:   fmt.Sprintf("leak_detected severity=%s rate=%.0f", f.Severity, f.RatePerSec),
		})
		e.logger.Warn("leak finding",
			zap.String("severity", string(f.Severity)),
			zap.Float64("rate_bytes_per_sec", f.RatePerSec))
	}
	return findings
}

// TrackAllocation records a live allocation for stale-allocation detection.
// No-op unless allocation tracking is enabled.
func (e *Engine) TrackAllocation(addr, sizeBytes uint64, category models.Category, origin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.allocations == nil {
		return
	}
	e.allocations[addr] = models.Allocation{
		SizeBytes: sizeBytes,
		Category:  category,
		Origin:    origin,
		At:        time.Now(),
	}
}

// ReleaseAllocation removes a tracked allocation.
func (e *Engine) ReleaseAllocation(addr uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.allocations, addr)
}

// CaptureSnapshot copies current metric state and the latest budget statuses
// into a new snapshot and returns its id.
func (e *Engine) CaptureSnapshot(context map[string]string) uint64 {
	e.mu.Lock()
	statuses := append([]models.BudgetStatus(nil), e.lastStatuses...)
	e.mu.Unlock()

	id := e.store.Capture(context, statuses)
	e.events.SnapshotCreated(id)
	e.enqueue(models.LogRecord{
		Timestamp: time.Now(),
		Kind:      models.KindEvent,
		Message:   fmt.Sprintf("snapshot_created id=%d", id),
	})
	return id
}

// Log enqueues a manual log entry.
func (e *Engine) Log(message string) {
	e.enqueue(models.LogRecord{
		Timestamp: time.Now(),
		Kind:      models.KindManual,
		Message:   message,
	})
}

// BudgetStatuses returns the statuses from the most recent evaluation pass.
func (e *Engine) BudgetStatuses() []models.BudgetStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.BudgetStatus(nil), e.lastStatuses...)
}

// Recommendations returns the most recently generated recommendation set.
func (e *Engine) Recommendations() []models.Recommendation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Recommendation(nil), e.lastRecs...)
}

// LeakFindings returns the findings from the most recent leak check.
func (e *Engine) LeakFindings() []models.LeakFinding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.LeakFinding(nil), e.lastFindings...)
}

func (e *Engine) enqueue(rec models.LogRecord) {
	if e.logSink == nil {
		return
	}
	e.logSink.Enqueue(rec)
}
