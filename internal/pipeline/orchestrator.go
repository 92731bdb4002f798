package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/config"
	"github.com/dgallion1/bondgen/internal/draftstore"
)

// Orchestrator runs generation jobs on a bounded queue.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	store draftstore.Store
	stats *RunStats
	log   *slog.Logger
	cfg   config.Config

	cleanupEvery time.Duration

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var (
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("generation pipeline is shutting down")
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
)

// NewOrchestrator creates the pipeline. store may be nil.
func NewOrchestrator(cfg config.Config, store draftstore.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:         NewJobStore(cfg.JobTTL),
		queue:        make(chan *Job, cfg.MaxQueueSize),
		store:        store,
		stats:        NewRunStats(time.Hour),
		log:          log,
		cfg:          cfg,
		cleanupEvery: 5 * time.Minute,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.stats, o.log, o.cfg.GenerateTimeout)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs, waits for the workers and fails every job
// still waiting in the queue. It is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	for job := range o.queue {
		job.Fail(bonderr.New(bonderr.InternalError, "server shut down before the job started"))
		o.log.Warn("queued job dropped at shutdown", "job_id", job.ID, "user_id", job.UserID)
	}
}

// Submit queues a job. If the same user already has a live job for
// identical inputs, that job is returned instead.
func (o *Orchestrator) Submit(job *Job) (*Job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return nil, ErrStopped
	}
	if existing := o.jobs.FindActive(job.UserID, job.RequestHash); existing != nil {
		o.log.Info("identical generation already running", "job_id", existing.ID, "user_id", job.UserID)
		return existing, nil
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return job, nil
	default:
		job.Fail(bonderr.New(bonderr.InternalError, "job queue is full, try again later"))
		return job, fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// FindActive returns the user's non-failed job for identical inputs, or nil.
func (o *Orchestrator) FindActive(userID, requestHash string) *Job {
	return o.jobs.FindActive(userID, requestHash)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the run statistics shared by the workers.
func (o *Orchestrator) Stats() *RunStats {
	return o.stats
}

// Store returns the draft store, which may be nil.
func (o *Orchestrator) Store() draftstore.Store {
	return o.store
}
