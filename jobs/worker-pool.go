package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/metrics"
	"github.com/krishkalaria12/decor-serve/service"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("generation queue is full")
	ErrStopped   = errors.New("worker pool is stopped")
)

const defaultEnqueueTimeout = 5 * time.Second

// WorkerPool runs generation jobs on a fixed number of goroutines fed by a bounded queue.
type WorkerPool struct {
	jobs           chan service.GenerationJob
	quit           chan struct{}
	started        bool
	wg             sync.WaitGroup
	numWorkers     int
	enqueueTimeout time.Duration
	metrics        *metrics.Metrics
	processFunc    func(ctx context.Context, job service.GenerationJob)

	// mu guards stopped. Enqueue holds it for reading while sending so that no job lands
	// in the queue after the workers have drained it.
	mu      sync.RWMutex
	stopped bool
}

func NewWorkerPool(numWorkers, queueCapacity int, m *metrics.Metrics) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = 100
	}
	return &WorkerPool{
		jobs:           make(chan service.GenerationJob, queueCapacity),
		quit:           make(chan struct{}),
		numWorkers:     numWorkers,
		enqueueTimeout: defaultEnqueueTimeout,
		metrics:        m,
	}
}

func (wp *WorkerPool) SetProcessFunc(fn func(ctx context.Context, job service.GenerationJob)) {
	wp.processFunc = fn
}

func (wp *WorkerPool) SetEnqueueTimeout(d time.Duration) {
	wp.enqueueTimeout = d
}

func (wp *WorkerPool) reportDepth() {
	if wp.metrics != nil {
		wp.metrics.QueueDepth.Set(float64(len(wp.jobs)))
	}
}

func (wp *WorkerPool) Start() {
	if wp.started {
		return
	}
	wp.started = true
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.work(i + 1)
	}
}

func (wp *WorkerPool) work(workerID int) {
	defer wp.wg.Done()
	logger.Log.Info("Worker started", zap.Int("workerId", workerID))
	for {
		select {
		case <-wp.quit:
			wp.drain(workerID)
			logger.Log.Info("Worker stopping", zap.Int("workerId", workerID))
			return
		case job := <-wp.jobs:
			wp.reportDepth()
			wp.run(workerID, job)
		}
	}
}

// drain finishes the jobs that were accepted before Stop.
func (wp *WorkerPool) drain(workerID int) {
	for {
		select {
		case job := <-wp.jobs:
			wp.reportDepth()
			wp.run(workerID, job)
		default:
			return
		}
	}
}

func (wp *WorkerPool) run(workerID int, job service.GenerationJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Generation job panicked",
				zap.Int("workerId", workerID),
				zap.String("imageId", job.ImageID.String()),
				zap.Any("panic", r))
		}
	}()
	if wp.processFunc != nil {
		wp.processFunc(context.Background(), job)
	}
}

// Stop stops accepting jobs and waits for queued and in-flight jobs until ctx expires.
func (wp *WorkerPool) Stop(ctx context.Context) {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.quit)
	}
	wp.mu.Unlock()

	if !wp.started {
		return
	}
	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		logger.Log.Warn("Timeout waiting for workers to stop")
	case <-done:
		logger.Log.Info("All workers stopped")
	}
}

// Enqueue waits up to the enqueue timeout for room in the queue.
func (wp *WorkerPool) Enqueue(ctx context.Context, job service.GenerationJob) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}

	timer := time.NewTimer(wp.enqueueTimeout)
	defer timer.Stop()

	select {
	case wp.jobs <- job:
		wp.reportDepth()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrQueueFull
	}
}
