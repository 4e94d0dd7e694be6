// Package runner coordinates the background pieces of the telemetry harness:
// the host tick loop, the archive and webhook workers, and the debug HTTP
// server, with graceful shutdown on context cancellation.
package runner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker runs until its context is cancelled.
type Worker interface {
	Start(ctx context.Context) error
}

// HTTPServer is the subset of *http.Server the runner needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Runner runs workers and HTTP servers and returns the first hard failure.
// Context cancellation is a clean shutdown, not an error.
type Runner struct {
	logger  *zap.Logger
	mu      sync.Mutex
	workers []Worker
	servers []HTTPServer
	wg      sync.WaitGroup
	errCh   chan error
}

// New creates a Runner.
func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// AddWorker registers a Worker to run.
func (r *Runner) AddWorker(worker Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, worker)
}

// AddHTTPServer registers an HTTP server to run.
func (r *Runner) AddHTTPServer(srv HTTPServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = append(r.servers, srv)
}

// Run starts everything registered and blocks until the context is cancelled,
// everything finishes, or something fails.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	workers := append([]Worker(nil), r.workers...)
	servers := append([]HTTPServer(nil), r.servers...)
	r.mu.Unlock()

	for _, w := range workers {
		r.runWorker(ctx, w)
	}
	for _, srv := range servers {
		r.runHTTPServer(ctx, srv)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done // let workers finish their shutdown drains
		return nil
	case err := <-r.errCh:
		return err
	case <-done:
		return nil
	}
}

func (r *Runner) runWorker(ctx context.Context, worker Worker) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("worker failed", zap.Error(err))
			r.sendError(err)
		}
	}()
}

func (r *Runner) runHTTPServer(ctx context.Context, srv HTTPServer) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		serverErrCh := make(chan error, 1)
		go func() {
			serverErrCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				r.sendError(err)
			}
		case err := <-serverErrCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.sendError(err)
			}
		}
	}()
}

// sendError keeps only the first error; later ones are logged by the callers.
func (r *Runner) sendError(err error) {
	select {
	case r.errCh <- err:
	default:
	}
}
