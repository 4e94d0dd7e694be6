package budget

import (
	"sort"

	"github.com/dmarkhas/gameperf/internal/models"
)

// FrameMetricID is the metric measuring overall frame time.
const FrameMetricID = "frame_time"

// FrameSubsystem names the overall frame-time entry in evaluation output.
const FrameSubsystem = "frame"

// MetricReader reads current metric state.
type MetricReader interface {
	Read(id string) (models.Metric, error)
}

// Evaluator classifies current metric values against the active budget. It is
// stateless between calls: evaluating twice with no ingestion in between
// yields identical output, and breaches are re-reported every pass while the
// condition holds (level-triggered).
type Evaluator struct {
	reader MetricReader
}

// NewEvaluator creates an Evaluator reading metrics from reader.
func NewEvaluator(reader MetricReader) *Evaluator {
	return &Evaluator{reader: reader}
}

// Evaluate classifies the overall frame time and every budgeted subsystem.
// Subsystems without a registered timing metric are skipped. The output is
// ordered: overall frame entry first, then subsystems sorted by name.
func (e *Evaluator) Evaluate(b *models.Budget) []models.BudgetStatus {
	if b == nil || b.TargetFrameTimeMs <= 0 {
		return nil
	}

	warn := b.WarningFrac
	if warn <= 0 {
		warn = models.DefaultWarningFrac
	}
	crit := b.CriticalFrac
	if crit <= 0 {
		crit = models.DefaultCriticalFrac
	}

	statuses := make([]models.BudgetStatus, 0, 1+len(b.SubsystemShares))

	if m, err := e.reader.Read(FrameMetricID); err == nil {
		statuses = append(statuses, classify(FrameSubsystem, m.ID, m.Value, b.TargetFrameTimeMs, warn, crit))
	}

	subsystems := make([]string, 0, len(b.SubsystemShares))
	for name := range b.SubsystemShares {
		subsystems = append(subsystems, name)
	}
	sort.Strings(subsystems)

	for _, name := range subsystems {
		share := b.SubsystemShares[name]
		if share <= 0 {
			continue
		}
		id := models.SubsystemMetricID(name)
		m, err := e.reader.Read(id)
		if err != nil {
			continue
		}
		allotted := b.TargetFrameTimeMs * share
		statuses = append(statuses, classify(name, id, m.Value, allotted, warn, crit))
	}

	return statuses
}

// classify produces one status entry. Level ordering is monotonic in actual:
// a larger measured value never yields a lower level.
func classify(subsystem, metricID string, actual, allotted, warn, crit float64) models.BudgetStatus {
	pct := 0.0
	if allotted > 0 {
		pct = actual / allotted
	}
	level := models.LevelOK
	switch {
	case pct >= crit:
		level = models.LevelCritical
	case pct >= warn:
		level = models.LevelWarning
	}
	return models.BudgetStatus{
		MetricID:   metricID,
		Subsystem:  subsystem,
		ActualMs:   actual,
		AllottedMs: allotted,
		Percentage: pct,
		Level:      level,
	}
}

// Exceeded filters statuses down to the entries at WARNING or above; these are
// the ones surfaced as budget_exceeded notifications each pass.
func Exceeded(statuses []models.BudgetStatus) []models.BudgetStatus {
	out := make([]models.BudgetStatus, 0, len(statuses))
	for _, s := range statuses {
		if s.Level >= models.LevelWarning {
			out = append(out, s)
		}
	}
	return out
}
