// Package sampler drives interval-gated sampling passes, decoupling analysis
// cadence from the host's frame rate.
package sampler

import (
	"time"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Default cadences, in seconds.
const (
	DefaultInterval         = 0.1
	DefaultAnalysisInterval = 5.0
)

// MetricSource supplies current values of enabled metrics in the given
// categories.
type MetricSource interface {
	EnabledValues(categories map[models.Category]bool) map[string]float64
}

// Evaluator classifies current values against the active budget.
type Evaluator interface {
	Evaluate() []models.BudgetStatus
}

// Analyzer runs the slow-cadence analysis: leak check and recommendation
// generation.
type Analyzer interface {
	Analyze()
}

// Recorder accepts telemetry records for persistence.
type Recorder interface {
	Enqueue(rec models.LogRecord)
}

// Sampler accumulates host-frame time and performs at most one sampling pass
// per configured interval: excess Tick calls only accumulate time. It runs
// entirely on the producer context and never blocks on I/O.
type Sampler struct {
	source    MetricSource
	evaluator Evaluator
	analyzer  Analyzer
	recorder  Recorder

	interval         float64 // seconds between sampling passes
	analysisInterval float64 // seconds between analysis passes
	detail           models.DetailLevel

	accum         float64
	analysisAccum float64
	passes        uint64
}

// New creates a Sampler. Non-positive intervals fall back to the defaults.
func New(source MetricSource, evaluator Evaluator, analyzer Analyzer, recorder Recorder,
	intervalSec, analysisIntervalSec float64, detail models.DetailLevel) *Sampler {
	if intervalSec <= 0 {
		intervalSec = DefaultInterval
	}
	if analysisIntervalSec <= 0 {
		analysisIntervalSec = DefaultAnalysisInterval
	}
	return &Sampler{
		source:           source,
		evaluator:        evaluator,
		analyzer:         analyzer,
		recorder:         recorder,
		interval:         intervalSec,
		analysisInterval: analysisIntervalSec,
		detail:           detail,
	}
}

// Tick feeds elapsed host time into the sampler. When accumulated time
// reaches the sampling interval it performs one pass; the remainder carries
// over, capped at one interval so a long stall cannot queue a burst of
// passes. Returns true when a pass ran.
func (s *Sampler) Tick(deltaSec float64) bool {
	if deltaSec < 0 {
		deltaSec = 0
	}
	s.accum += deltaSec
	s.analysisAccum += deltaSec
	if s.accum < s.interval {
		return false
	}
	s.accum -= s.interval
	if s.accum > s.interval {
		s.accum = s.interval
	}

	s.pass()
	return true
}

// Passes reports how many sampling passes have run.
func (s *Sampler) Passes() uint64 {
	return s.passes
}

// pass performs one sampling pass: read gated metric values, evaluate the
// budget, persist the sample, and at the slower cadence run analysis.
func (s *Sampler) pass() {
	s.passes++

	values := s.source.EnabledValues(s.detail.Categories())
	statuses := s.evaluator.Evaluate()

	if s.recorder != nil {
		s.recorder.Enqueue(models.LogRecord{
			Timestamp:    time.Now(),
			Kind:         models.KindSample,
			Metrics:      values,
			BudgetStatus: statuses,
		})
	}

	if s.analysisAccum >= s.analysisInterval {
		s.analysisAccum -= s.analysisInterval
		if s.analysisAccum > s.analysisInterval {
			s.analysisAccum = s.analysisInterval
		}
		if s.analyzer != nil {
			s.analyzer.Analyze()
		}
	}
}
