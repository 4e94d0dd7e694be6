// Package registry owns metric definitions, their running aggregates, and a
// bounded history ring per metric. It is the leaf dependency of every other
// telemetry component.
package registry

import (
	"errors"
	"iter"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Registry errors.
var (
	ErrAlreadyExists = errors.New("metric already registered")
	ErrUnknownMetric = errors.New("unknown metric")
)

// metricState bundles a metric with its pre-sized history ring. The ring is
// allocated once at registration so steady-state ingestion allocates nothing.
type metricState struct {
	metric models.Metric
	ring   []models.HistorySample
	head   int // next write position
	size   int
}

// Registry stores all registered metrics. Ingestion is O(1) and safe for
// concurrent readers (the debug HTTP surface reads while the host ingests).
type Registry struct {
	mu         sync.RWMutex
	metrics    []*metricState
	index      map[string]int
	historyCap int

	unknown atomic.Uint64 // ingests against unregistered ids
}

// New creates a Registry whose per-metric history holds historyCap samples.
func New(historyCap int) *Registry {
	if historyCap <= 0 {
		historyCap = 1
	}
	return &Registry{
		index:      make(map[string]int),
		historyCap: historyCap,
	}
}

// Register adds a new metric definition. Duplicate ids are rejected with
// ErrAlreadyExists; the original registration wins.
func (r *Registry) Register(id, name string, category models.Category, unit string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return ErrAlreadyExists
	}
	state := &metricState{
		metric: models.Metric{
			ID:       id,
			Name:     name,
			Category: category,
			Unit:     unit,
			Enabled:  true,
			Visible:  true,
		},
		ring: make([]models.HistorySample, r.historyCap),
	}
	r.metrics = append(r.metrics, state)
	r.index[id] = len(r.metrics) - 1
	return nil
}

// Ingest updates a metric's current value, running aggregates, and history.
// Unknown ids increment a degradation counter and return ErrUnknownMetric;
// hot-path callers ignore the error. Ingestion into a disabled metric is a
// no-op that preserves the last known value and history.
func (r *Registry) Ingest(id string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		r.unknown.Add(1)
		return ErrUnknownMetric
	}
	st := r.metrics[i]
	if !st.metric.Enabled {
		return nil
	}

	m := &st.metric
	m.Value = value
	m.Samples++
	if m.Samples == 1 {
		m.Min, m.Max, m.Avg = value, value, value
	} else {
		if value < m.Min {
			m.Min = value
		}
		if value > m.Max {
			m.Max = value
		}
		m.Avg += (value - m.Avg) / float64(m.Samples)
	}

	st.ring[st.head] = models.HistorySample{At: time.Now(), Value: value}
	st.head = (st.head + 1) % len(st.ring)
	if st.size < len(st.ring) {
		st.size++
	}
	return nil
}

// Read returns a copy of the metric with the given id.
func (r *Registry) Read(id string) (models.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return models.Metric{}, ErrUnknownMetric
	}
	return r.metrics[i].metric, nil
}

// List returns copies of all registered metrics sorted by id.
func (r *Registry) List() []models.Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Metric, 0, len(r.metrics))
	for _, st := range r.metrics {
		out = append(out, st.metric)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EnabledValues returns the current values of all enabled metrics whose
// category is in categories. A nil categories set means every category. The
// copy is taken under a single short lock so the result is consistent.
func (r *Registry) EnabledValues(categories map[models.Category]bool) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.metrics))
	for _, st := range r.metrics {
		if !st.metric.Enabled {
			continue
		}
		if categories != nil && !categories[st.metric.Category] {
			continue
		}
		out[st.metric.ID] = st.metric.Value
	}
	return out
}

// History returns a restartable in-order sequence over the metric's history
// ring, oldest sample first. Each iteration re-reads the ring.
func (r *Registry) History(id string) (iter.Seq[models.HistorySample], error) {
	r.mu.RLock()
	_, ok := r.index[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownMetric
	}

	return func(yield func(models.HistorySample) bool) {
		r.mu.RLock()
		i, ok := r.index[id]
		if !ok {
			r.mu.RUnlock()
			return
		}
		st := r.metrics[i]
		samples := make([]models.HistorySample, 0, st.size)
		start := st.head - st.size
		if start < 0 {
			start += len(st.ring)
		}
		for n := 0; n < st.size; n++ {
			samples = append(samples, st.ring[(start+n)%len(st.ring)])
		}
		r.mu.RUnlock()

		for _, s := range samples {
			if !yield(s) {
				return
			}
		}
	}, nil
}

// SetEnabled flips a metric's enabled flag. Disabling stops ingestion updates
// but preserves the last known value and history.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return ErrUnknownMetric
	}
	r.metrics[i].metric.Enabled = enabled
	return nil
}

// UnknownCount reports how many ingests targeted unregistered metrics.
func (r *Registry) UnknownCount() uint64 {
	return r.unknown.Load()
}
