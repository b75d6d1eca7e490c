package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

// ErrJobNotPending is returned when a job cannot be deleted because a worker has it.
var ErrJobNotPending = errors.New("job is not pending")

type JobRepository interface {
	Create(ctx context.Context, job *entity.ImportJob) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ImportJob, error)
	// Claim moves a pending job, or a processing job whose claim went stale and still has
	// attempts left, to processing. claimed is false when another worker holds the job.
	Claim(ctx context.Context, id uuid.UUID, staleBefore time.Time, maxAttempts int) (job *entity.ImportJob, claimed bool, err error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	// Finish writes the terminal status with its result and completion time.
	Finish(ctx context.Context, id uuid.UUID, status constants.JobStatus, result *entity.ImportResult, lastError string) error
	// DeleteIfPending deletes a job nobody has claimed yet.
	DeleteIfPending(ctx context.Context, id uuid.UUID) error
	// Runnable lists pending jobs and stale claims with attempts left, oldest first.
	Runnable(ctx context.Context, staleBefore time.Time, maxAttempts int) ([]uuid.UUID, error)
	// FailExhausted marks stale claims that used all attempts as failed.
	FailExhausted(ctx context.Context, staleBefore time.Time, maxAttempts int) (int64, error)
}

type jobRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewJobRepository(db *DB, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepo{db: db, logger: logger}
}

const jobColumns = "id, status, restaurant_id, menu_id, menu_name, replace_all, source_path, payload, progress, attempts, queued_at, started_at, completed_at, result, last_error"

func (r *jobRepo) Create(ctx context.Context, job *entity.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = now()
	}
	job.QueuedAt = job.QueuedAt.UTC()
	job.Status = constants.JobStatusPending
	payload, err := json.Marshal(job.Items)
	if err != nil {
		return fmt.Errorf("encode job items: %w", err)
	}
	var menuID uuid.NullUUID
	if job.MenuID != nil {
		menuID = uuid.NullUUID{UUID: *job.MenuID, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO import_jobs (id, status, restaurant_id, menu_id, menu_name, replace_all, source_path, payload, progress, attempts, queued_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)"),
		job.ID, string(job.Status), job.RestaurantID, menuID, job.MenuName, job.ReplaceAll, job.SourcePath, string(payload), job.QueuedAt,
	)
	if err != nil {
		r.logger.Error("import_job create failed", "job_id", job.ID, "err", err)
		return fmt.Errorf("%w: insert job: %v", common.ErrDatabase, err)
	}
	r.logger.Info("import_job created", "job_id", job.ID, "items", len(job.Items))
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ImportJob, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+jobColumns+" FROM import_jobs WHERE id = ?"), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) Claim(ctx context.Context, id uuid.UUID, staleBefore time.Time, maxAttempts int) (*entity.ImportJob, bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE import_jobs
		SET status = ?, started_at = ?, attempts = attempts + 1
		WHERE id = ?
		  AND (status = ? OR (status = ? AND started_at < ? AND attempts < ?))`),
		string(constants.JobStatusProcessing), now(), id,
		string(constants.JobStatusPending), string(constants.JobStatusProcessing), staleBefore.UTC(), maxAttempts,
	)
	if err != nil {
		return nil, false, fmt.Errorf("%w: claim job: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, false, nil
	}
	job, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	r.logger.Info("import_job claimed", "job_id", id, "attempt", job.Attempts)
	return job, true, nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE import_jobs SET progress = ? WHERE id = ? AND status = ?"),
		clampProgress(progress), id, string(constants.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("%w: update progress: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *jobRepo) Finish(ctx context.Context, id uuid.UUID, status constants.JobStatus, result *entity.ImportResult, lastError string) error {
	var resultDoc sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode job result: %w", err)
		}
		resultDoc = sql.NullString{String: string(b), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE import_jobs SET status = ?, progress = 100, completed_at = ?, result = ?, last_error = ? WHERE id = ? AND status = ?"),
		string(status), now(), resultDoc, nullString(lastError), id, string(constants.JobStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("%w: finish job: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s is not processing: %w", id, common.ErrConflict)
	}
	r.logger.Info("import_job finished", "job_id", id, "status", status)
	return nil
}

func (r *jobRepo) DeleteIfPending(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM import_jobs WHERE id = ? AND status = ?"),
		id, string(constants.JobStatusPending))
	if err != nil {
		return fmt.Errorf("%w: delete job: %v", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		r.logger.Info("import_job deleted", "job_id", id)
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("job %s: %w", id, ErrJobNotPending)
}

func (r *jobRepo) Runnable(ctx context.Context, staleBefore time.Time, maxAttempts int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT id FROM import_jobs
		WHERE status = ? OR (status = ? AND started_at < ? AND attempts < ?)
		ORDER BY queued_at, id`),
		string(constants.JobStatusPending), string(constants.JobStatusProcessing), staleBefore.UTC(), maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list runnable jobs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *jobRepo) FailExhausted(ctx context.Context, staleBefore time.Time, maxAttempts int) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE import_jobs
		SET status = ?, completed_at = ?, last_error = ?
		WHERE status = ? AND started_at < ? AND attempts >= ?`),
		string(constants.JobStatusFailed), now(), fmt.Sprintf("abandoned after %d attempts", maxAttempts),
		string(constants.JobStatusProcessing), staleBefore.UTC(), maxAttempts,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: fail exhausted jobs: %v", common.ErrDatabase, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.Warn("import_jobs abandoned", "count", n)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ImportJob, error) {
	var (
		job                    entity.ImportJob
		status                 string
		menuID                 uuid.NullUUID
		payload                string
		startedAt, completedAt sql.NullTime
		result, lastError      sql.NullString
	)
	err := row.Scan(&job.ID, &status, &job.RestaurantID, &menuID, &job.MenuName, &job.ReplaceAll,
		&job.SourcePath, &payload, &job.Progress, &job.Attempts, &job.QueuedAt, &startedAt, &completedAt,
		&result, &lastError)
	if err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	if menuID.Valid {
		id := menuID.UUID
		job.MenuID = &id
	}
	if err := json.Unmarshal([]byte(payload), &job.Items); err != nil {
		return nil, fmt.Errorf("decode job %s items: %w", job.ID, err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if result.Valid && result.String != "" {
		job.Result = &entity.ImportResult{}
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("decode job %s result: %w", job.ID, err)
		}
	}
	job.LastError = lastError.String
	return &job, nil
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ JobRepository = (*jobRepo)(nil)
