// Package http exposes the read-only debug surface: current metrics, budget
// status, snapshots, recommendations, and sink health as JSON.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmarkhas/gameperf/internal/encode"
	"github.com/dmarkhas/gameperf/internal/models"
	"github.com/dmarkhas/gameperf/internal/sink"
	"github.com/dmarkhas/gameperf/internal/snapshots"
)

// MetricReader lists and reads current metric state.
type MetricReader interface {
	List() []models.Metric
	Read(id string) (models.Metric, error)
}

// AnalysisReader reads the latest analysis output.
type AnalysisReader interface {
	BudgetStatuses() []models.BudgetStatus
	Recommendations() []models.Recommendation
	LeakFindings() []models.LeakFinding
	ActiveBudget() *models.Budget
}

// SnapshotStore reads, captures, and exports snapshots.
type SnapshotStore interface {
	List() []models.Snapshot
	Get(id uint64) (models.Snapshot, error)
	Export(ids []uint64, format encode.Format) ([]byte, error)
}

// Capturer captures a snapshot on demand.
type Capturer interface {
	CaptureSnapshot(context map[string]string) uint64
}

// HealthReader reports sink condition; nil Health means logging is disabled.
type HealthReader interface {
	Health() sink.Health
}

// NewMetricListHandler serves all registered metrics.
func NewMetricListHandler(reader MetricReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reader.List())
	}
}

// NewMetricGetHandler serves one metric by id.
func NewMetricGetHandler(reader MetricReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := reader.Read(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "metric not found", http.StatusNotFound)
			return
		}
		writeJSON(w, m)
	}
}

// NewBudgetStatusHandler serves the latest evaluation pass and the active
// budget.
func NewBudgetStatusHandler(reader AnalysisReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"budget":   reader.ActiveBudget(),
			"statuses": reader.BudgetStatuses(),
		})
	}
}

// NewRecommendationsHandler serves the latest recommendation set.
func NewRecommendationsHandler(reader AnalysisReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reader.Recommendations())
	}
}

// NewLeakFindingsHandler serves the latest leak findings.
func NewLeakFindingsHandler(reader AnalysisReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reader.LeakFindings())
	}
}

// NewSnapshotListHandler serves all retained snapshots.
func NewSnapshotListHandler(store SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.List())
	}
}

// NewSnapshotCaptureHandler captures a snapshot; the request body, if any, is
// a JSON object of context key/value pairs.
func NewSnapshotCaptureHandler(capturer Capturer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var context map[string]string
		if r.Body != nil {
			// Empty body is fine; context stays nil.
			_ = json.NewDecoder(r.Body).Decode(&context)
		}
		id := capturer.CaptureSnapshot(context)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]uint64{"id": id})
	}
}

// NewSnapshotExportHandler serves one snapshot in the requested format
// (?format=csv|json|binary, default json).
func NewSnapshotExportHandler(store SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad snapshot id", http.StatusBadRequest)
			return
		}
		format := encode.FormatJSON
		if q := r.URL.Query().Get("format"); q != "" {
			format, err = encode.ParseFormat(q)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		data, err := store.Export([]uint64{id}, format)
		if errors.Is(err, snapshots.ErrSnapshotNotFound) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		switch format {
		case encode.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		case encode.FormatBinary:
			w.Header().Set("Content-Type", "application/octet-stream")
		default:
			w.Header().Set("Content-Type", "application/x-ndjson")
		}
		w.Write(data)
	}
}

// NewSnapshotDiffHandler serves per-metric deltas between two snapshots
// (?from=<id>&to=<id>).
func NewSnapshotDiffHandler(differ interface {
	Diff(a, b uint64) (map[string]models.SnapshotDelta, error)
}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, errA := strconv.ParseUint(r.URL.Query().Get("from"), 10, 64)
		to, errB := strconv.ParseUint(r.URL.Query().Get("to"), 10, 64)
		if errA != nil || errB != nil {
			http.Error(w, "from and to snapshot ids are required", http.StatusBadRequest)
			return
		}
		deltas, err := differ.Diff(from, to)
		if errors.Is(err, snapshots.ErrSnapshotNotFound) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "diff failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, deltas)
	}
}

// NewHealthHandler reports sink health; reader may be nil when async logging
// is off.
func NewHealthHandler(reader HealthReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			writeJSON(w, map[string]string{"logging": "disabled"})
			return
		}
		writeJSON(w, reader.Health())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}
