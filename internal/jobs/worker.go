package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upahan/upahan-api/internal/metrics"
	"github.com/upahan/upahan-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs fire-and-forget jobs and interval schedules, bounded by a semaphore
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	schedCtx      context.Context
	schedCancel   context.CancelFunc
	schedWG       sync.WaitGroup
	asyncWG       sync.WaitGroup
	asyncSem      chan struct{}
	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// NewWorker creates a worker allowing twice numWorkers concurrent async jobs (at least 10)
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	schedCtx, schedCancel := context.WithCancel(ctx)
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	return &Worker{
		ctx:           ctx,
		cancel:        cancel,
		schedCtx:      schedCtx,
		schedCancel:   schedCancel,
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.asyncWG.Add(1)
	go func() {
		defer w.asyncWG.Done()

		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run(name, job)
	}()
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, false, job)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals, so a
// restarted process does not wait a whole interval for the first run.
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, true, job)
}

func (w *Worker) schedule(name string, interval time.Duration, immediate bool, job Job) {
	w.schedWG.Add(1)
	go func() {
		defer w.schedWG.Done()
		if immediate {
			w.run(name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.schedCtx.Done():
				return
			case <-ticker.C:
				w.run(name, job)
			}
		}
	}()
}

func (w *Worker) run(name string, job Job) {
	w.trackJobStart()
	defer w.trackJobEnd()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("[Worker] Job panic: %v", r), "job", name)
			w.trackJobFailure(name)
		}
	}()

	if err := job(w.ctx); err != nil {
		logger.Error("[Worker] Job error", "job", name, "error", err)
		w.trackJobFailure(name)
		return
	}
	metrics.JobsTotal.WithLabelValues(name, "success").Inc()
	logger.Debug("[Worker] Job completed", "job", name, "elapsed", time.Since(start))
}

// Shutdown stops the schedules, drains queued async jobs, then cancels the job context
func (w *Worker) Shutdown() {
	w.schedCancel()
	w.schedWG.Wait()
	w.asyncWG.Wait()
	w.cancel()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd always runs, so CompletedJobs counts finished jobs including failures
func (w *Worker) trackJobEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
}

func (w *Worker) trackJobFailure(name string) {
	metrics.JobsTotal.WithLabelValues(name, "failure").Inc()
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
