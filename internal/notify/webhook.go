// Package notify delivers telemetry notifications to an external alerting
// hook over HTTP. Delivery is strictly best-effort and fully decoupled from
// the producer: listener callbacks only enqueue, and a background worker
// posts.
package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/models"
)

// Event names on the wire.
const (
	EventBudgetExceeded      = "budget_exceeded"
	EventLeakDetected        = "leak_detected"
	EventRecommendationReady = "recommendation_ready"
	EventSnapshotCreated     = "snapshot_created"
)

// payload is the JSON body posted for every event.
type payload struct {
	Event     string  `json:"event"`
	Timestamp float64 `json:"timestamp"` // unix seconds

	Status          *models.BudgetStatus    `json:"status,omitempty"`
	Finding         *models.LeakFinding     `json:"finding,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations,omitempty"`
	SnapshotID      uint64                  `json:"snapshot_id,omitempty"`
}

// Webhook posts telemetry events to a configured URL. It implements
// events.Listener; callbacks never block, dropping the event when the queue
// is full.
type Webhook struct {
	logger *zap.Logger
	client *resty.Client
	queue  chan payload
}

// NewWebhook creates a Webhook posting through client.
func NewWebhook(logger *zap.Logger, client *resty.Client, queueCapacity int) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueCapacity <= 0 {
		queueCapacity = 64
	}
	return &Webhook{
		logger: logger,
		client: client,
		queue:  make(chan payload, queueCapacity),
	}
}

// BudgetExceeded implements events.Listener.
func (w *Webhook) BudgetExceeded(status models.BudgetStatus) {
	w.offer(payload{Event: EventBudgetExceeded, Status: &status})
}

// LeakDetected implements events.Listener.
func (w *Webhook) LeakDetected(finding models.LeakFinding) {
	w.offer(payload{Event: EventLeakDetected, Finding: &finding})
}

// RecommendationReady implements events.Listener.
func (w *Webhook) RecommendationReady(recs []models.Recommendation) {
	w.offer(payload{Event: EventRecommendationReady, Recommendations: recs})
}

// SnapshotCreated implements events.Listener.
func (w *Webhook) SnapshotCreated(id uint64) {
	w.offer(payload{Event: EventSnapshotCreated, SnapshotID: id})
}

func (w *Webhook) offer(p payload) {
	p.Timestamp = float64(time.Now().UnixNano()) / 1e9
	select {
	case w.queue <- p:
	default:
		w.logger.Debug("webhook queue full, event dropped", zap.String("event", p.Event))
	}
}

// Start posts queued events until ctx is cancelled.
func (w *Webhook) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-w.queue:
			w.post(ctx, p)
		}
	}
}

func (w *Webhook) post(ctx context.Context, p payload) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Post("")
	if err != nil {
		w.logger.Warn("webhook delivery failed", zap.String("event", p.Event), zap.Error(err))
		return
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		w.logger.Warn("webhook rejected event",
			zap.String("event", p.Event),
			zap.Int("status", resp.StatusCode()))
	}
}
