// Package jobs runs deferred work: account deletion jobs and the cron scheduler.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// JobRetention is how long a finished job stays readable through Get.
const JobRetention = 24 * time.Hour

var (
	ErrJobNotFound       = errors.New("deletion job not found")
	ErrQueueFull         = errors.New("deletion queue is full, retry later")
	ErrJobNotCancellable = errors.New("deletion job can no longer be cancelled")
)

type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	RunAfter  time.Time `json:"run_after"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j Job) terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusCancelled
}

type AccountDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

type entry struct {
	job      Job
	ctx      context.Context
	cancel   context.CancelFunc
	deleting bool
}

// DeletionQueue holds account deletion jobs in memory. A job waits out the
// grace period before the account is removed and can be cancelled until then.
type DeletionQueue struct {
	deleter   AccountDeleter
	grace     time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	jobs   map[string]*entry
	active map[string]string
	queue  chan *entry
	wg     sync.WaitGroup
}

func NewDeletionQueue(deleter AccountDeleter, grace time.Duration, size int, logger *slog.Logger) *DeletionQueue {
	if size <= 0 {
		size = 1
	}
	return &DeletionQueue{
		deleter:   deleter,
		grace:     grace,
		retention: JobRetention,
		logger:    logger,
		now:       time.Now,
		jobs:      make(map[string]*entry),
		active:    make(map[string]string),
		queue:     make(chan *entry, size),
	}
}

// Start launches workers that run until ctx is done.
func (q *DeletionQueue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.work(ctx)
		}()
	}
}

// Wait blocks until every worker has returned.
func (q *DeletionQueue) Wait() {
	q.wg.Wait()
}

// Enqueue schedules a deletion for userID. A user with a pending job gets that job back.
func (q *DeletionQueue) Enqueue(userID string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id, ok := q.active[userID]; ok {
		return q.jobs[id].job, nil
	}
	now := q.now().UTC()
	q.pruneLocked(now)
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    StatusQueued,
			RunAfter:  now.Add(q.grace),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	select {
	case q.queue <- e:
	default:
		cancel()
		return Job{}, ErrQueueFull
	}
	q.jobs[e.job.ID] = e
	q.active[userID] = e.job.ID
	q.logger.Info("account deletion queued", "job_id", e.job.ID, "user_id", userID, "run_after", e.job.RunAfter)
	return e.job, nil
}

// Get returns the job if it belongs to userID.
func (q *DeletionQueue) Get(userID, jobID string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked(q.now().UTC())
	e, ok := q.jobs[jobID]
	if !ok || e.job.UserID != userID {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

// pruneLocked drops finished jobs older than the retention window.
func (q *DeletionQueue) pruneLocked(now time.Time) {
	cutoff := now.Add(-q.retention)
	for id, e := range q.jobs {
		if e.job.terminal() && e.job.UpdatedAt.Before(cutoff) {
			delete(q.jobs, id)
		}
	}
}

// Cancel stops a job that is queued or still in its grace period.
func (q *DeletionQueue) Cancel(userID, jobID string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[jobID]
	if !ok || e.job.UserID != userID {
		return Job{}, ErrJobNotFound
	}
	if e.job.terminal() || e.deleting {
		return e.job, ErrJobNotCancellable
	}
	e.cancel()
	q.finishLocked(e, StatusCancelled, "")
	q.logger.Info("account deletion cancelled", "job_id", jobID, "user_id", userID)
	return e.job, nil
}

func (q *DeletionQueue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q.queue:
			q.run(ctx, e)
		}
	}
}

func (q *DeletionQueue) run(ctx context.Context, e *entry) {
	q.mu.Lock()
	if e.job.terminal() {
		q.mu.Unlock()
		return
	}
	e.job.Status = StatusRunning
	e.job.UpdatedAt = q.now().UTC()
	q.mu.Unlock()

	if wait := time.Until(e.job.RunAfter); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-e.ctx.Done():
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			q.finish(e, StatusFailed, "server shutting down")
			return
		case <-timer.C:
		}
	}

	q.mu.Lock()
	if e.job.terminal() {
		q.mu.Unlock()
		return
	}
	e.deleting = true
	q.mu.Unlock()

	if err := q.deleter.DeleteUser(ctx, e.job.UserID); err != nil {
		q.logger.Error("account deletion failed", "job_id", e.job.ID, "user_id", e.job.UserID, "error", err)
		q.finish(e, StatusFailed, err.Error())
		return
	}
	q.logger.Info("account deletion completed", "job_id", e.job.ID, "user_id", e.job.UserID)
	q.finish(e, StatusCompleted, "")
}

func (q *DeletionQueue) finish(e *entry, status Status, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finishLocked(e, status, msg)
}

func (q *DeletionQueue) finishLocked(e *entry, status Status, msg string) {
	e.job.Status = status
	e.job.Error = msg
	e.job.UpdatedAt = q.now().UTC()
	e.deleting = false
	e.cancel()
	if q.active[e.job.UserID] == e.job.ID {
		delete(q.active, e.job.UserID)
	}
}
