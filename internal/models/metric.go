package models

import "time"

// Category classifies a metric by the subsystem it measures.
type Category string

// Metric categories.
const (
	CategoryTiming    Category = "timing"
	CategoryMemory    Category = "memory"
	CategoryCPU       Category = "cpu"
	CategoryGPU       Category = "gpu"
	CategoryNetwork   Category = "network"
	CategoryPhysics   Category = "physics"
	CategoryRendering Category = "rendering"
	CategoryAudio     Category = "audio"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTiming, CategoryMemory, CategoryCPU, CategoryGPU,
		CategoryNetwork, CategoryPhysics, CategoryRendering, CategoryAudio,
		CategoryOther:
		return true
	}
	return false
}

// Metric represents a single registered measurement with its running
// aggregates. Instances are owned by the registry; readers always receive
// copies.
type Metric struct {
	ID       string   `json:"id" db:"id"`             // Unique metric identifier.
	Name     string   `json:"name" db:"name"`         // Human-readable display name.
	Category Category `json:"category" db:"category"` // Subsystem category.
	Unit     string   `json:"unit" db:"unit"`         // Unit of measure, e.g. "ms" or "bytes".
	Enabled  bool     `json:"enabled"`                // Disabled metrics ignore ingestion.
	Visible  bool     `json:"visible"`                // Hint for display surfaces.

	Value   float64 `json:"value"`   // Most recent ingested value.
	Min     float64 `json:"min"`     // Running minimum since registration.
	Max     float64 `json:"max"`     // Running maximum since registration.
	Avg     float64 `json:"avg"`     // Running average since registration.
	Samples uint64  `json:"samples"` // Number of ingested values.
}

// HistorySample is one entry in a metric's history ring buffer.
type HistorySample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}
