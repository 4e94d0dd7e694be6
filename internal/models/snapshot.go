package models

import "time"

// Snapshot is an immutable point-in-time copy of all enabled metric values,
// the latest budget statuses, and caller-supplied context. Metric values are
// embedded by value, so a snapshot stays valid after the source metric is
// disabled or the registry changes.
type Snapshot struct {
	ID           uint64             `json:"id"`
	Timestamp    time.Time          `json:"timestamp"`
	Metrics      map[string]float64 `json:"metrics"`
	BudgetStatus []BudgetStatus     `json:"budget_status,omitempty"`
	Context      map[string]string  `json:"context,omitempty"`
	ImageRef     string             `json:"image_ref,omitempty"`
}

// SnapshotDelta is the per-metric difference between two snapshots. Metrics
// present in only one snapshot report the side they appeared on.
type SnapshotDelta struct {
	MetricID string  `json:"metric_id"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	Delta    float64 `json:"delta"`
	OnlyInA  bool    `json:"only_in_a,omitempty"`
	OnlyInB  bool    `json:"only_in_b,omitempty"`
}
