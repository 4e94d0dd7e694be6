package models

// Default classification thresholds, as fractions of the allotted time.
const (
	DefaultWarningFrac  = 0.80
	DefaultCriticalFrac = 0.95
)

// SubsystemMetricSuffix links a budget's subsystem name to the timing metric
// that measures it: subsystem "physics" is evaluated against metric
// "physics_time".
const SubsystemMetricSuffix = "_time"

// Budget declares a frame-time allotment: an overall target and per-subsystem
// fractional shares. Budgets are immutable once active; switching the active
// budget is a whole-value swap, never a field mutation.
type Budget struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	TargetFrameTimeMs float64            `json:"target_frame_time_ms"`
	WarningFrac       float64            `json:"warning_frac"`  // Fraction of allotted time that triggers WARNING.
	CriticalFrac      float64            `json:"critical_frac"` // Fraction of allotted time that triggers CRITICAL.
	SubsystemShares   map[string]float64 `json:"subsystem_shares"`
	HardwareTier      string             `json:"hardware_tier"`
}

// Overprovisioned reports whether the subsystem shares sum to more than the
// whole frame. Allowed, but worth surfacing to the caller.
func (b *Budget) Overprovisioned() bool {
	var sum float64
	for _, share := range b.SubsystemShares {
		sum += share
	}
	return sum > 1.0
}

// SubsystemMetricID returns the conventional metric id measuring the named
// subsystem.
func SubsystemMetricID(subsystem string) string {
	return subsystem + SubsystemMetricSuffix
}

// StatusLevel is the three-way budget classification. The zero value is OK and
// levels are ordered OK < LevelWarning < LevelCritical.
type StatusLevel int

// Budget status levels.
const (
	LevelOK StatusLevel = iota
	LevelWarning
	LevelCritical
)

// String returns the level's wire name.
func (l StatusLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

// BudgetStatus is the result of evaluating one metric (overall frame time or
// one subsystem) against the active budget.
type BudgetStatus struct {
	MetricID   string      `json:"metric_id"`
	Subsystem  string      `json:"subsystem"` // "frame" for the overall frame-time entry.
	ActualMs   float64     `json:"actual_ms"`
	AllottedMs float64     `json:"allotted_ms"`
	Percentage float64     `json:"percentage"` // ActualMs / AllottedMs.
	Level      StatusLevel `json:"level"`
}
