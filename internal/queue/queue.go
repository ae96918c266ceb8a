package queue

import (
	"fmt"
	"sync"

	"chatforge-backend/internal/logger"

	"go.uber.org/zap"
)

// Job is a unit of work. When Errc is set the worker reports Fn's result on it.
type Job struct {
	Name string
	Fn   func() error
	Errc chan error
}

// RequestQueueManager runs jobs on a fixed pool of workers reading a bounded queue.
type RequestQueueManager struct {
	JobQueue   chan Job
	MaxWorkers int

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewRequestQueueManager(queueSize int, maxWorkers int) *RequestQueueManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	manager := &RequestQueueManager{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
	manager.startWorkers()
	return manager
}

func (rqm *RequestQueueManager) startWorkers() {
	for i := 0; i < rqm.MaxWorkers; i++ {
		rqm.wg.Add(1)
		go func(workerID int) {
			defer rqm.wg.Done()
			logger.Get().Debug("queue worker started", zap.Int("worker", workerID))
			for job := range rqm.JobQueue {
				err := run(job)
				if err != nil && job.Errc == nil {
					logger.Get().Warn("queue job failed", zap.String("job", job.Name), zap.Error(err))
				}
				if job.Errc != nil {
					job.Errc <- err
				}
			}
			logger.Get().Debug("queue worker stopped", zap.Int("worker", workerID))
		}(i)
	}
}

func run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", job.Name, r)
		}
	}()
	return job.Fn()
}

// EnqueueJob blocks until the job is queued. It returns false after Shutdown.
func (rqm *RequestQueueManager) EnqueueJob(job Job) bool {
	rqm.mu.RLock()
	defer rqm.mu.RUnlock()
	if rqm.closed {
		return false
	}
	rqm.JobQueue <- job
	return true
}

// RunAll fans fns out across the workers and waits for all of them. It
// returns the number of failed jobs and the first error seen.
func (rqm *RequestQueueManager) RunAll(name string, fns []func() error) (int, error) {
	errc := make(chan error, len(fns))
	queued := 0
	for _, fn := range fns {
		if !rqm.EnqueueJob(Job{Name: name, Fn: fn, Errc: errc}) {
			break
		}
		queued++
	}

	failed := len(fns) - queued
	var first error
	if failed > 0 {
		first = fmt.Errorf("queue closed")
	}
	for i := 0; i < queued; i++ {
		if err := <-errc; err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	return failed, first
}

func (rqm *RequestQueueManager) Shutdown() {
	rqm.mu.Lock()
	if rqm.closed {
		rqm.mu.Unlock()
		return
	}
	rqm.closed = true
	close(rqm.JobQueue)
	rqm.mu.Unlock()
	rqm.wg.Wait()
}
