package models

import "time"

// RecordKind distinguishes what produced a log record.
type RecordKind string

// Log record kinds.
const (
	KindSample RecordKind = "sample" // Periodic sampling pass output.
	KindManual RecordKind = "manual" // Caller-supplied log entry.
	KindEvent  RecordKind = "event"  // Budget breach, leak finding, or similar.
)

// LogRecord is the single unit consumed by the async log sink. Producers fill
// only the fields relevant to the kind; codecs switch on Kind.
type LogRecord struct {
	Timestamp    time.Time          `json:"timestamp"`
	Kind         RecordKind         `json:"kind"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	BudgetStatus []BudgetStatus     `json:"budget_status,omitempty"`
	Message      string             `json:"message,omitempty"`
}
