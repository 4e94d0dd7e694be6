// Package leak flags sustained memory-growth trends and stale long-lived
// allocations between consecutive memory samples. Findings are heuristics,
// not proof: long-lived caches trip the stale rule by design, and callers are
// expected to correlate findings with game-state context.
package leak

import (
	"time"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Detector defaults.
const (
	DefaultRateThreshold = 1 << 20 // 1 MiB/s sustained growth
	DefaultStaleAfter    = 60 * time.Second
)

// Detector holds the leak heuristics' thresholds.
type Detector struct {
	rateThreshold float64 // bytes per second
	staleAfter    time.Duration
}

// NewDetector creates a Detector. Non-positive arguments fall back to the
// package defaults.
func NewDetector(rateThresholdBytesPerSec float64, staleAfter time.Duration) *Detector {
	if rateThresholdBytesPerSec <= 0 {
		rateThresholdBytesPerSec = DefaultRateThreshold
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Detector{rateThreshold: rateThresholdBytesPerSec, staleAfter: staleAfter}
}

// Check compares two consecutive memory samples, prev taken before curr.
//
// Growth rule: if total bytes grew strictly faster than the configured
// bytes/second threshold across the window, one HIGH finding carries the rate
// and window. Stale rule: when curr includes an allocation table, every live
// allocation older than the staleness threshold yields one MEDIUM finding.
func (d *Detector) Check(prev, curr models.MemorySample) []models.LeakFinding {
	var findings []models.LeakFinding

	window := curr.Timestamp.Sub(prev.Timestamp)
	if window > 0 && curr.TotalBytes > prev.TotalBytes {
		grown := float64(curr.TotalBytes - prev.TotalBytes)
		rate := grown / window.Seconds()
		if rate > d.rateThreshold {
			findings = append(findings, models.LeakFinding{
				Severity:   models.SeverityHigh,
				RatePerSec: rate,
				Window:     window,
			})
		}
	}

	for addr, alloc := range curr.Allocations {
		age := alloc.Age(curr.Timestamp)
		if age <= d.staleAfter {
			continue
		}
		findings = append(findings, models.LeakFinding{
			Severity:  models.SeverityMedium,
			Address:   addr,
			SizeBytes: alloc.SizeBytes,
			Category:  alloc.Category,
			Origin:    alloc.Origin,
			Age:       age,
		})
	}

	return findings
}
