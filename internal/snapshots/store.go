// Package snapshots captures immutable point-in-time bundles of metric state,
// supports diffing between captures, and exports them through the shared
// codecs.
package snapshots

import (
	"errors"
	"sync"
	"time"

	"github.com/dmarkhas/gameperf/internal/encode"
	"github.com/dmarkhas/gameperf/internal/models"
)

// ErrSnapshotNotFound is returned when a snapshot id has been evicted or
// never existed. Ids are handed out once and never reused, so callers must
// treat held ids as possibly expired.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// DefaultCapacity bounds retained snapshots unless configured otherwise.
const DefaultCapacity = 100

// MetricSource supplies a consistent copy of current enabled metric values.
type MetricSource interface {
	EnabledValues(categories map[models.Category]bool) map[string]float64
}

// Store retains up to capacity snapshots, evicting the oldest first.
type Store struct {
	mu       sync.RWMutex
	source   MetricSource
	capacity int
	nextID   uint64
	snaps    []models.Snapshot // oldest first
}

// NewStore creates a Store reading metric values from source.
func NewStore(source MetricSource, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{source: source, capacity: capacity, nextID: 1}
}

// Capture copies all currently-enabled metric values and the supplied budget
// statuses into a new immutable snapshot and returns its id. The oldest
// snapshot is evicted once the store is over capacity. The metric read is a
// single consistent copy; nothing in the snapshot references live state.
func (s *Store) Capture(context map[string]string, statuses []models.BudgetStatus) uint64 {
	values := s.source.EnabledValues(nil)

	var ctxCopy map[string]string
	if len(context) > 0 {
		ctxCopy = make(map[string]string, len(context))
		for k, v := range context {
			ctxCopy[k] = v
		}
	}
	statusCopy := append([]models.BudgetStatus(nil), statuses...)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		ID:           s.nextID,
		Timestamp:    time.Now(),
		Metrics:      values,
		BudgetStatus: statusCopy,
		Context:      ctxCopy,
	}
	s.nextID++
	s.snaps = append(s.snaps, snap)
	if len(s.snaps) > s.capacity {
		s.snaps = s.snaps[1:]
	}
	return snap.ID
}

// Get returns the snapshot with the given id.
func (s *Store) Get(id uint64) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.snaps {
		if s.snaps[i].ID == id {
			return s.snaps[i], nil
		}
	}
	return models.Snapshot{}, ErrSnapshotNotFound
}

// List returns all retained snapshots, oldest first.
func (s *Store) List() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Snapshot(nil), s.snaps...)
}

// Len reports how many snapshots are currently retained.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}

// Diff computes per-metric deltas from snapshot a to snapshot b, keyed by
// metric id. Metrics present on only one side are flagged rather than
// dropped. Fails with ErrSnapshotNotFound if either id has expired.
func (s *Store) Diff(a, b uint64) (map[string]models.SnapshotDelta, error) {
	snapA, err := s.Get(a)
	if err != nil {
		return nil, err
	}
	snapB, err := s.Get(b)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.SnapshotDelta, len(snapA.Metrics))
	for id, before := range snapA.Metrics {
		after, ok := snapB.Metrics[id]
		if !ok {
			out[id] = models.SnapshotDelta{MetricID: id, Before: before, OnlyInA: true}
			continue
		}
		out[id] = models.SnapshotDelta{MetricID: id, Before: before, After: after, Delta: after - before}
	}
	for id, after := range snapB.Metrics {
		if _, ok := snapA.Metrics[id]; !ok {
			out[id] = models.SnapshotDelta{MetricID: id, After: after, OnlyInB: true}
		}
	}
	return out, nil
}

// Export serializes the snapshots with the given ids to the requested format.
// Every id must still be retained.
func (s *Store) Export(ids []uint64, format encode.Format) ([]byte, error) {
	snaps := make([]models.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return encode.ExportSnapshots(snaps, format)
}
