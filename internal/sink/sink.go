// Package sink persists telemetry records off the producer thread. Producers
// push into a bounded queue and never block: when the queue is full the
// record is dropped and counted. A single background worker owns all file
// state, drains the queue in batches, and rotates the log file at a size cap.
package sink

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dmarkhas/gameperf/internal/encode"
	"github.com/dmarkhas/gameperf/internal/models"
)

// Sink defaults.
const (
	DefaultQueueCapacity = 1024
	DefaultMaxFileBytes  = 100 << 20 // 100 MB

	batchSize = 64
)

// ErrNotRunning is returned by lifecycle calls on a stopped sink.
var ErrNotRunning = errors.New("log sink is not running")

// Health describes the sink's current condition. Degraded means a write
// failed twice and the sink disabled itself; the host keeps running and
// records are discarded.
type Health struct {
	Running  bool   `json:"running"`
	Degraded bool   `json:"degraded"`
	Dropped  uint64 `json:"dropped"`
	Written  uint64 `json:"written"`
	Rotation int    `json:"rotation"`
}

// Sink is the asynchronous log sink. Create with New, then Start/Stop.
type Sink struct {
	logger       *zap.Logger
	queue        chan models.LogRecord
	maxFileBytes int64

	dropped  atomic.Uint64
	written  atomic.Uint64
	degraded atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	flushCh chan chan struct{}

	// worker-owned state; untouched outside the worker goroutine
	path     string
	format   encode.Format
	file     *os.File
	enc      encode.RecordEncoder
	fileSize int64
	rotation int
}

// New creates a Sink with the given queue capacity and per-file size cap.
// Non-positive arguments fall back to defaults.
func New(logger *zap.Logger, queueCapacity int, maxFileBytes int64) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &Sink{
		logger:       logger,
		queue:        make(chan models.LogRecord, queueCapacity),
		maxFileBytes: maxFileBytes,
		flushCh:      make(chan chan struct{}),
	}
}

// Enqueue offers a record to the queue without blocking. Full queue means the
// record is dropped and the drop counter incremented; telemetry must never
// stall the simulation.
func (s *Sink) Enqueue(rec models.LogRecord) {
	select {
	case s.queue <- rec:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded because the queue was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Health reports the sink's current condition.
func (s *Sink) Health() Health {
	s.mu.Lock()
	running := s.running
	rotation := s.rotation
	s.mu.Unlock()
	return Health{
		Running:  running,
		Degraded: s.degraded.Load(),
		Dropped:  s.dropped.Load(),
		Written:  s.written.Load(),
		Rotation: rotation,
	}
}

// Start opens the log file and launches the background worker.
func (s *Sink) Start(path string, format encode.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("log sink already started")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	s.path = path
	s.format = format
	s.file = file
	s.fileSize = info.Size()
	s.enc = encode.NewRecordEncoder(format, file)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.degraded.Store(false)
	s.running = true

	go s.run()
	return nil
}

// Flush blocks until every record enqueued so far has been written. Intended
// for shutdown and tests, not the hot path.
func (s *Sink) Flush() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	ack := make(chan struct{})
	select {
	case s.flushCh <- ack:
		<-ack
		return nil
	case <-s.doneCh:
		return ErrNotRunning
	}
}

// Stop signals the worker, which drains the queue exactly once, closes the
// file, and exits. Records enqueued after Stop is called are best-effort.
func (s *Sink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// run is the worker loop. It is the only goroutine touching file state.
func (s *Sink) run() {
	defer close(s.doneCh)
	defer s.closeFile()

	for {
		select {
		case <-s.stopCh:
			s.drain()
			return
		case ack := <-s.flushCh:
			s.drain()
			close(ack)
		case rec := <-s.queue:
			s.writeBatch(rec)
		}
	}
}

// writeBatch writes first plus whatever else is already queued, up to the
// batch size, then considers rotation.
func (s *Sink) writeBatch(first models.LogRecord) {
	s.write(first)
	for i := 1; i < batchSize; i++ {
		select {
		case rec := <-s.queue:
			s.write(rec)
		default:
			s.maybeRotate()
			return
		}
	}
	s.maybeRotate()
}

// drain empties the queue completely.
func (s *Sink) drain() {
	for {
		select {
		case rec := <-s.queue:
			s.write(rec)
			s.maybeRotate()
		default:
			return
		}
	}
}

// write encodes one record, retrying once on failure. A second failure flips
// the sink to degraded: logging is abandoned rather than crashing the host,
// and the condition stays visible through Health.
func (s *Sink) write(rec models.LogRecord) {
	if s.degraded.Load() {
		return
	}
	if err := s.enc.Encode(&rec); err != nil {
		if err := s.enc.Encode(&rec); err != nil {
			s.degraded.Store(true)
			s.logger.Error("log sink degraded, disabling writes", zap.Error(err))
			return
		}
	}
	s.written.Add(1)
	if info, err := s.file.Stat(); err == nil {
		s.fileSize = info.Size()
	}
}

// maybeRotate moves the active file aside once it exceeds the size cap and
// starts a fresh one at the configured path.
func (s *Sink) maybeRotate() {
	if s.degraded.Load() || s.fileSize < s.maxFileBytes {
		return
	}

	s.mu.Lock()
	s.rotation++
	n := s.rotation
	s.mu.Unlock()

	s.file.Sync()
	s.file.Close()
	rotated := fmt.Sprintf("%s.%d", s.path, n)
	if err := os.Rename(s.path, rotated); err != nil {
		s.degraded.Store(true)
		s.logger.Error("log rotation failed, disabling writes", zap.Error(err))
		return
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.degraded.Store(true)
		s.logger.Error("log rotation failed, disabling writes", zap.Error(err))
		return
	}
	s.file = file
	s.fileSize = 0
	s.enc.Reset(file)
	s.logger.Info("log file rotated", zap.String("to", rotated))
}

func (s *Sink) closeFile() {
	if s.file == nil {
		return
	}
	s.file.Sync()
	s.file.Close()
	s.file = nil
}
