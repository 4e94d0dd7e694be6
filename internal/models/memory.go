package models

import "time"

// MemorySample captures total and per-category memory use at one instant. Two
// consecutive samples form the unit of comparison for leak detection.
type MemorySample struct {
	Timestamp   time.Time           `json:"timestamp"`
	TotalBytes  uint64              `json:"total_bytes"`
	PerCategory map[Category]uint64 `json:"per_category,omitempty"`

	// Allocations is populated only when detailed allocation tracking is
	// enabled; the key is the allocation address or handle.
	Allocations map[uint64]Allocation `json:"allocations,omitempty"`
}

// Allocation describes one tracked live allocation.
type Allocation struct {
	SizeBytes uint64    `json:"size_bytes"`
	Category  Category  `json:"category"`
	Origin    string    `json:"origin"` // Call-site or subsystem tag supplied by the tracker.
	At        time.Time `json:"at"`     // Allocation time.
}

// Age returns how long the allocation has been live as of now.
func (a Allocation) Age(now time.Time) time.Duration {
	return now.Sub(a.At)
}

// LeakSeverity ranks leak findings.
type LeakSeverity string

// Leak finding severities. Sustained growth is graver than a single stale
// allocation.
const (
	SeverityHigh   LeakSeverity = "high"
	SeverityMedium LeakSeverity = "medium"
)

// LeakFinding is a heuristic signal that memory is growing unexpectedly or an
// allocation has gone stale. False positives are expected for legitimately
// long-lived caches; callers correlate findings with game-state context.
type LeakFinding struct {
	Severity   LeakSeverity  `json:"severity"`
	RatePerSec float64       `json:"rate_per_sec,omitempty"` // Bytes per second, growth findings only.
	Window     time.Duration `json:"window,omitempty"`       // Observation window, growth findings only.

	// Stale-allocation details, present on medium findings only.
	Address   uint64        `json:"address,omitempty"`
	SizeBytes uint64        `json:"size_bytes,omitempty"`
	Category  Category      `json:"category,omitempty"`
	Origin    string        `json:"origin,omitempty"`
	Age       time.Duration `json:"age,omitempty"`
}
