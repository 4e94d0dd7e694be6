package archive

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/events"
	"github.com/dmarkhas/gameperf/internal/models"
)

// SnapshotGetter fetches a retained snapshot by id; the in-memory snapshot
// store satisfies it.
type SnapshotGetter interface {
	Get(id uint64) (models.Snapshot, error)
}

// Saver persists one snapshot; Repository satisfies it.
type Saver interface {
	Save(ctx context.Context, snap *models.Snapshot) error
}

// Worker archives snapshots off the producer thread. It subscribes to
// snapshot_created notifications, queues the ids without blocking, and a
// single goroutine fetches and saves them. A full queue drops the id: the
// snapshot still lives in the in-memory store, only durability is skipped.
type Worker struct {
	events.NopListener

	logger *zap.Logger
	getter SnapshotGetter
	saver  Saver
	queue  chan uint64
}

// NewWorker creates an archive worker with the given queue capacity.
func NewWorker(logger *zap.Logger, getter SnapshotGetter, saver Saver, queueCapacity int) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueCapacity <= 0 {
		queueCapacity = 64
	}
	return &Worker{
		logger: logger,
		getter: getter,
		saver:  saver,
		queue:  make(chan uint64, queueCapacity),
	}
}

// SnapshotCreated implements events.Listener; called on the producer context,
// so it must not block.
func (w *Worker) SnapshotCreated(id uint64) {
	select {
	case w.queue <- id:
	default:
		w.logger.Warn("archive queue full, snapshot not archived", zap.Uint64("id", id))
	}
}

// Start runs the worker until ctx is cancelled, draining queued ids once on
// shutdown.
func (w *Worker) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case id := <-w.queue:
			w.save(ctx, id)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case id := <-w.queue:
			w.save(context.Background(), id)
		default:
			return
		}
	}
}

func (w *Worker) save(ctx context.Context, id uint64) {
	snap, err := w.getter.Get(id)
	if err != nil {
		// Evicted between capture and archiving; nothing to do.
		return
	}
	if err := w.saver.Save(ctx, &snap); err != nil {
		w.logger.Error("archive snapshot", zap.Uint64("id", id), zap.Error(err))
	}
}
