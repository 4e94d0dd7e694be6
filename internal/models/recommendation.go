package models

// Recommendation is a derived optimization suggestion. The set is regenerated
// wholesale on every analysis pass; recommendations carry no mutable state.
type Recommendation struct {
	ID          string   `json:"id"`
	Priority    int      `json:"priority"` // Higher is more urgent.
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
	MetricID    string   `json:"metric_id,omitempty"` // Metric that triggered the rule.
	Threshold   float64  `json:"threshold,omitempty"` // Rule threshold that was crossed.
}
