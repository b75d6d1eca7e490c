package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/async"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
)

const (
	// DefaultAsyncThreshold is the batch size above which imports run as background jobs.
	DefaultAsyncThreshold = 50

	defaultStaleAfter  = 15 * time.Minute
	defaultMaxAttempts = 3
)

// SourceReleaser disposes of a source document after a successful import.
type SourceReleaser interface {
	Release(ctx context.Context, path string) error
}

// Outcome is either a synchronous result or a queued job.
type Outcome struct {
	Result  *entity.ImportResult `json:"result,omitempty"`
	JobID   *uuid.UUID           `json:"jobId,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Async reports whether the import was handed to a background job.
func (o Outcome) Async() bool { return o.JobID != nil }

type Finalizer struct {
	catalog     repository.CatalogRepository
	jobs        repository.JobRepository
	queue       async.Queue
	sources     SourceReleaser
	logger      *slog.Logger
	threshold   int
	staleAfter  time.Duration
	maxAttempts int
}

type Option func(*Finalizer)

func WithAsyncThreshold(n int) Option {
	return func(f *Finalizer) {
		if n > 0 {
			f.threshold = n
		}
	}
}

// WithQueue sets where new job ids are enqueued. Without a queue jobs wait for a sweeper.
func WithQueue(q async.Queue) Option {
	return func(f *Finalizer) { f.queue = q }
}

func WithSources(s SourceReleaser) Option {
	return func(f *Finalizer) { f.sources = s }
}

// WithClaimPolicy sets when a processing job counts as abandoned and how often it may be retried.
func WithClaimPolicy(staleAfter time.Duration, maxAttempts int) Option {
	return func(f *Finalizer) {
		if staleAfter > 0 {
			f.staleAfter = staleAfter
		}
		if maxAttempts > 0 {
			f.maxAttempts = maxAttempts
		}
	}
}

func NewFinalizer(catalog repository.CatalogRepository, jobs repository.JobRepository, logger *slog.Logger, opts ...Option) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Finalizer{
		catalog:     catalog,
		jobs:        jobs,
		logger:      logger,
		threshold:   DefaultAsyncThreshold,
		staleAfter:  defaultStaleAfter,
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Finalizer) Threshold() int { return f.threshold }

// Finalize commits the accepted items. Batches larger than the threshold are persisted
// as a pending job and processed by a worker; smaller batches run in one transaction.
func (f *Finalizer) Finalize(ctx context.Context, req entity.ImportRequest) (*Outcome, error) {
	logger := common.LoggerFromContext(ctx, f.logger)
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	if len(req.Items) > f.threshold {
		job := &entity.ImportJob{
			RestaurantID: req.RestaurantID,
			MenuID:       req.MenuID,
			MenuName:     strings.TrimSpace(req.MenuName),
			ReplaceAll:   req.ReplaceAll,
			SourcePath:   req.FilePath,
			Items:        req.Items,
		}
		if err := f.jobs.Create(ctx, job); err != nil {
			return nil, common.NewAppError(common.CodeImportFailed, "failed to queue import", err)
		}
		if f.queue != nil {
			err := f.queue.Enqueue(ctx, async.Job{ID: job.ID, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)})
			if err != nil {
				// The job is durable; the sweeper picks it up.
				logger.Warn("import.enqueue_failed", "job_id", job.ID, "error", err)
			}
		}
		logger.Info("import.queued", "job_id", job.ID, "items", len(req.Items), "threshold", f.threshold)
		id := job.ID
		return &Outcome{
			JobID:   &id,
			Message: fmt.Sprintf("Import of %d items queued as a background job", len(req.Items)),
		}, nil
	}

	start := time.Now()
	result, err := f.apply(ctx, req, nil)
	if err != nil {
		logger.Error("import.failed", "items", len(req.Items), "error", err)
		return nil, err
	}
	logger.Info("import.ok",
		"status", result.Status, "created", result.Created, "updated", result.Updated,
		"skipped", result.Skipped, "errored", result.Errored, "elapsed_ms", time.Since(start).Milliseconds())
	f.release(ctx, req.FilePath, result.Status)
	return &Outcome{Result: result, Message: result.Message}, nil
}

// ProcessJob claims a queued job and runs it. A job another worker holds is left alone.
func (f *Finalizer) ProcessJob(ctx context.Context, id uuid.UUID) error {
	logger := f.logger.With("job_id", id)
	job, claimed, err := f.jobs.Claim(ctx, id, time.Now().Add(-f.staleAfter), f.maxAttempts)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("job.claim.skipped")
		return nil
	}
	logger.Info("job.start", "items", len(job.Items), "attempt", job.Attempts)

	progress := func(p int) {
		if err := f.jobs.UpdateProgress(ctx, id, p); err != nil {
			logger.Warn("job.progress_failed", "error", err)
		}
	}
	progress(5)

	req := job.Request()
	result, runErr := f.apply(ctx, req, progress)

	// The terminal write must land even when the worker's deadline has passed.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if runErr != nil {
		failed := &entity.ImportResult{
			Processed: len(req.Items),
			Status:    constants.ImportFailed,
			Message:   runErr.Error(),
		}
		for _, it := range req.Items {
			if it.Skipped() {
				failed.Skipped++
			}
		}
		failed.Errored = failed.Processed - failed.Skipped
		if err := f.jobs.Finish(finishCtx, id, constants.JobStatusFailed, failed, runErr.Error()); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Error("job.failed", "error", runErr)
		return runErr
	}

	if err := f.jobs.Finish(finishCtx, id, result.Status.JobStatus(), result, ""); err != nil {
		return err
	}
	logger.Info("job.ok", "status", result.Status, "created", result.Created, "updated", result.Updated, "errored", result.Errored)
	f.release(finishCtx, req.FilePath, result.Status)
	return nil
}

func (f *Finalizer) release(ctx context.Context, path string, status constants.ImportStatus) {
	if f.sources == nil || path == "" {
		return
	}
	if status != constants.ImportSuccess && status != constants.ImportPartialSuccess {
		return
	}
	if err := f.sources.Release(ctx, path); err != nil {
		f.logger.Warn("source.release_failed", "path", path, "error", err)
	}
}

func checkRequest(req entity.ImportRequest) error {
	if strings.TrimSpace(req.RestaurantID) == "" {
		return common.NewAppError(common.CodeInvalidInput, "restaurant id is required", nil)
	}
	if req.MenuID == nil && strings.TrimSpace(req.MenuName) == "" {
		return common.NewAppError(common.CodeInvalidInput, "menu name or target menu id is required", nil)
	}
	if len(req.Items) == 0 {
		return common.NewAppError(common.CodeInvalidInput, "no items to import", nil)
	}
	return nil
}
