package async

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// JobSource is the part of the job store the sweeper needs.
type JobSource interface {
	Runnable(ctx context.Context, staleBefore time.Time, maxAttempts int) ([]uuid.UUID, error)
	FailExhausted(ctx context.Context, staleBefore time.Time, maxAttempts int) (int64, error)
}

// Sweeper re-enqueues jobs the in-process queue lost: pending jobs left over from a
// restart and processing jobs whose worker went away. Claims stay atomic in the store,
// so a job enqueued twice is processed once.
type Sweeper struct {
	jobs        JobSource
	queue       Queue
	logger      *slog.Logger
	interval    time.Duration
	staleAfter  time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewSweeper(jobs JobSource, queue Queue, logger *slog.Logger, interval, staleAfter time.Duration, maxAttempts int) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Sweeper{
		jobs:        jobs,
		queue:       queue,
		logger:      logger,
		interval:    interval,
		staleAfter:  staleAfter,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if n, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep.failed", "error", err)
		} else if n > 0 {
			s.logger.Info("sweep.ok", "requeued", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep fails exhausted stale claims and enqueues every runnable job. It returns how
// many jobs were enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	staleBefore := s.now().Add(-s.staleAfter)
	if _, err := s.jobs.FailExhausted(ctx, staleBefore, s.maxAttempts); err != nil {
		return 0, err
	}
	ids, err := s.jobs.Runnable(ctx, staleBefore, s.maxAttempts)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, Job{ID: id, SubmittedAt: s.now()}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
