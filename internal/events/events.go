// Package events is the minimal observer list for cross-cutting telemetry
// notifications. Synchronous component calls report through return values;
// only the handful of notifications external collaborators care about go
// through here.
package events

import (
	"sync"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Listener receives telemetry notifications. Emission is fire-and-forget: the
// engine never depends on a subscriber reacting, and listeners must not block.
type Listener interface {
	BudgetExceeded(status models.BudgetStatus)
	LeakDetected(finding models.LeakFinding)
	RecommendationReady(recs []models.Recommendation)
	SnapshotCreated(id uint64)
}

// NopListener implements Listener with no-ops; embed it to subscribe to a
// subset of notifications.
type NopListener struct{}

func (NopListener) BudgetExceeded(models.BudgetStatus)          {}
func (NopListener) LeakDetected(models.LeakFinding)             {}
func (NopListener) RecommendationReady([]models.Recommendation) {}
func (NopListener) SnapshotCreated(uint64)                      {}

// Dispatcher fans notifications out to subscribed listeners in subscription
// order, on the caller's goroutine.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe adds a listener.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

func (d *Dispatcher) snapshot() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners...)
}

// BudgetExceeded notifies all listeners of a budget breach. Re-emitted every
// sampling pass while the breach holds.
func (d *Dispatcher) BudgetExceeded(status models.BudgetStatus) {
	for _, l := range d.snapshot() {
		l.BudgetExceeded(status)
	}
}

// LeakDetected notifies all listeners of a leak finding.
func (d *Dispatcher) LeakDetected(finding models.LeakFinding) {
	for _, l := range d.snapshot() {
		l.LeakDetected(finding)
	}
}

// RecommendationReady notifies all listeners of a freshly generated set.
func (d *Dispatcher) RecommendationReady(recs []models.Recommendation) {
	for _, l := range d.snapshot() {
		l.RecommendationReady(recs)
	}
}

// SnapshotCreated notifies all listeners of a new snapshot id.
func (d *Dispatcher) SnapshotCreated(id uint64) {
	for _, l := range d.snapshot() {
		l.SnapshotCreated(id)
	}
}
