package archive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/models"
	"github.com/dmarkhas/gameperf/internal/snapshots"
)

type fakeGetter struct {
	snaps map[uint64]models.Snapshot
}

func (g *fakeGetter) Get(id uint64) (models.Snapshot, error) {
	snap, ok := g.snaps[id]
	if !ok {
		return models.Snapshot{}, snapshots.ErrSnapshotNotFound
	}
	return snap, nil
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []uint64
}

func (s *fakeSaver) Save(_ context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap.ID)
	return nil
}

func (s *fakeSaver) ids() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.saved...)
}

func TestWorker_ArchivesCreatedSnapshots(t *testing.T) {
	getter := &fakeGetter{snaps: map[uint64]models.Snapshot{
		1: {ID: 1, Metrics: map[string]float64{"frame_time": 16}},
		2: {ID: 2, Metrics: map[string]float64{"frame_time": 17}},
	}}
	saver := &fakeSaver{}
	w := NewWorker(zap.NewNop(), getter, saver, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, w.Start(ctx))
	}()

	w.SnapshotCreated(1)
	w.SnapshotCreated(2)

	assert.Eventually(t, func() bool {
		return len(saver.ids()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []uint64{1, 2}, saver.ids())
}

func TestWorker_EvictedSnapshotSkipped(t *testing.T) {
	getter := &fakeGetter{snaps: map[uint64]models.Snapshot{}}
	saver := &fakeSaver{}
	w := NewWorker(zap.NewNop(), getter, saver, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	w.SnapshotCreated(99)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, saver.ids())
}

func TestWorker_DrainsQueueOnShutdown(t *testing.T) {
	getter := &fakeGetter{snaps: map[uint64]models.Snapshot{
		1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3},
	}}
	saver := &fakeSaver{}
	w := NewWorker(zap.NewNop(), getter, saver, 8)

	// Enqueue before the worker starts, then cancel immediately: shutdown
	// must still flush what was queued.
	w.SnapshotCreated(1)
	w.SnapshotCreated(2)
	w.SnapshotCreated(3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Start(ctx))

	assert.Equal(t, []uint64{1, 2, 3}, saver.ids())
}

func TestWorker_FullQueueDropsWithoutBlocking(t *testing.T) {
	getter := &fakeGetter{snaps: map[uint64]models.Snapshot{}}
	w := NewWorker(zap.NewNop(), getter, &fakeSaver{}, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(0); i < 100; i++ {
			w.SnapshotCreated(i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SnapshotCreated blocked on a full queue")
	}
}
