package primary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aide/internal/models"
	"aide/internal/store"
)

// --- Job Queue Implementation ---
//
// Jobs live in a single table with a status column; moving a job "between
// partitions" is an atomic status update guarded by the current status in the
// WHERE clause. A partial unique index on status='active' enforces
// single-flight at the storage layer, independent of the supervisor's own
// guard.

const jobColumns = `id, task, chat_id, source, phone_number, priority, status, session_code,
	retry_count, result, error, created_at, started_at, completed_at, failed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job       models.Job
		phone     sql.NullString
		session   sql.NullString
		result    sql.NullString
		errMsg    sql.NullString
		started   sql.NullTime
		completed sql.NullTime
		failed    sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.Task, &job.ChatID, &job.Source, &phone, &job.Priority,
		&job.Status, &session, &job.RetryCount, &result, &errMsg,
		&job.CreatedAt, &started, &completed, &failed,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		job.PhoneNumber = &phone.String
	}
	if session.Valid {
		job.SessionCode = &session.String
	}
	if result.Valid {
		job.Result = &result.String
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}
	if failed.Valid {
		job.FailedAt = &failed.Time
	}
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Enqueue assigns an id and createdAt, persists the job as pending and
// returns the id.
func (s *StoreImpl) Enqueue(ctx context.Context, params store.EnqueueParams) (string, error) {
	if params.Task == "" {
		return "", fmt.Errorf("task is required: %w", models.ErrValidation)
	}
	priority := params.Priority
	if priority == 0 {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return "", fmt.Errorf("invalid priority %d: %w", int(priority), models.ErrValidation)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	query := `
		INSERT INTO jobs (id, task, chat_id, source, phone_number, priority, status, session_code, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		id, params.Task, params.ChatID, params.Source, nullString(params.PhoneNumber),
		int(priority), models.JobStatusPending, nullString(params.SessionCode),
		params.RetryCount, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id, nil
}

// GetJob returns a job by id regardless of its partition.
func (s *StoreImpl) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// GetPendingJobs returns all pending jobs ordered by priority descending,
// then enqueue time ascending. An empty queue yields an empty slice.
func (s *StoreImpl) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE status = ?
		ORDER BY priority DESC, created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, models.JobStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending jobs: %w", err)
	}
	return jobs, nil
}

// GetNextJob returns the head of the pending queue without removing it, or
// nil when the queue is empty.
func (s *StoreImpl) GetNextJob(ctx context.Context) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE status = ?
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, models.JobStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next job: %w", err)
	}
	return job, nil
}

// GetActiveJob returns the currently active job, or nil when idle.
func (s *StoreImpl) GetActiveJob(ctx context.Context) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? LIMIT 1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, models.JobStatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active job: %w", err)
	}
	return job, nil
}

// GetQueueDepth counts pending jobs only.
func (s *StoreImpl) GetQueueDepth(ctx context.Context) (int, error) {
	var depth int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = ?`, models.JobStatusPending).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return depth, nil
}

// MarkActive moves a pending job to the active partition. It fails with
// models.ErrJobAlreadyActive if any job is active, and models.ErrJobNotPending
// if the job is not currently pending; the queue is unchanged on failure.
func (s *StoreImpl) MarkActive(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var activeCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = ?`, models.JobStatusActive).Scan(&activeCount); err != nil {
		return fmt.Errorf("failed to check active jobs: %w", err)
	}
	if activeCount > 0 {
		return models.ErrJobAlreadyActive
	}

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to check job %s: %w", id, err)
	}
	if status != models.JobStatusPending {
		return fmt.Errorf("job %s has status %s: %w", id, status, models.ErrJobNotPending)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		models.JobStatusActive, now, id, models.JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %s active: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s has status %s: %w", id, status, models.ErrJobNotPending)
	}
	return tx.Commit()
}

// MarkCompleted moves an active job to the completed partition and stores its
// result.
func (s *StoreImpl) MarkCompleted(ctx context.Context, id string, result string) error {
	return s.markTerminal(ctx, id, models.JobStatusCompleted, "completed_at", "result", result)
}

// MarkFailed moves an active job to the failed partition and stores the error
// message.
func (s *StoreImpl) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return s.markTerminal(ctx, id, models.JobStatusFailed, "failed_at", "error", errMsg)
}

func (s *StoreImpl) markTerminal(ctx context.Context, id, status, stampColumn, valueColumn, value string) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE jobs SET status = ?, %s = ?, %s = ? WHERE id = ? AND status = ?`,
		stampColumn, valueColumn)
	res, err := s.db.ExecContext(ctx, query, status, now, value, id, models.JobStatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", id, status, err)
	}
	if n == 0 {
		var current string
		if err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to check job %s: %w", id, err)
		}
		return fmt.Errorf("job %s has status %s: %w", id, current, models.ErrJobNotActive)
	}
	return nil
}

// ExpireOldJobs deletes terminal jobs whose terminal timestamp is older than
// maxAge. A maxAge of zero deletes all terminal jobs. Returns the number of
// deleted jobs.
func (s *StoreImpl) ExpireOldJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE (status = ? AND completed_at < ?)
		   OR (status = ? AND failed_at < ?)`,
		models.JobStatusCompleted, cutoff, models.JobStatusFailed, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire old jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to expire old jobs: %w", err)
	}
	return n, nil
}

// ClearQueue unconditionally empties all job partitions. Test and maintenance
// use only.
func (s *StoreImpl) ClearQueue(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
