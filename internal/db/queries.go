package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storyboard/internal/domain"
)

type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ErrNoJob signals an empty queue to the worker poll loop.
var ErrNoJob = errors.New("no job available")

type EnqueueJobParams struct {
	Kind    domain.JobKind
	ImageID string
	Prompt  string
	Sketch  []byte
}

// EnqueueJob durably records a PENDING job and returns the queue-issued id.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO jobs (kind, status, image_id, prompt, sketch)
VALUES ($1, 'PENDING', $2, $3, $4)
RETURNING id
`, arg.Kind, arg.ImageID, arg.Prompt, arg.Sketch)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

// ClaimNextJob atomically moves the oldest PENDING job to STARTED and returns
// it. Concurrent workers never claim the same row.
func (q *Queries) ClaimNextJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRow(ctx, `
WITH next_job AS (
    SELECT id
    FROM jobs
    WHERE status = 'PENDING'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
UPDATE jobs
SET status = 'STARTED', updated_at = now()
WHERE id IN (SELECT id FROM next_job)
RETURNING id, kind, status, image_id, prompt, sketch, created_at, updated_at
`)
	var job Job
	err := row.Scan(&job.ID, &job.Kind, &job.Status, &job.ImageID, &job.Prompt, &job.Sketch, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNoJob
		}
		return Job{}, err
	}
	// Ensure sketch bytes are not aliased to the driver's buffer.
	job.Sketch = append([]byte(nil), job.Sketch...)
	return job, nil
}

// CompleteJob records a SUCCESS result. The status guard keeps terminal states
// final even if a job is executed more than once.
func (q *Queries) CompleteJob(ctx context.Context, id uuid.UUID, result string) error {
	_, err := q.db.Exec(ctx, `
UPDATE jobs
SET status = 'SUCCESS', result = $2, updated_at = now()
WHERE id = $1 AND status = 'STARTED'
`, id, result)
	return err
}

// FailJob records a FAILURE with a captured error description.
func (q *Queries) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := q.db.Exec(ctx, `
UPDATE jobs
SET status = 'FAILURE', error = $2, updated_at = now()
WHERE id = $1 AND status = 'STARTED'
`, id, errMsg)
	return err
}

type Job struct {
	ID        uuid.UUID
	Kind      domain.JobKind
	Status    domain.JobStatus
	ImageID   string
	Prompt    string
	Sketch    []byte
	Result    sql.NullString
	Error     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, kind, status, image_id, prompt, result, error, created_at, updated_at
FROM jobs
WHERE id = $1
`, id)
	var job Job
	err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.Status,
		&job.ImageID,
		&job.Prompt,
		&job.Result,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return job, err
}

// ListJobs returns every known job. The jobs table doubles as the index of all
// job ids ever issued; order is unspecified.
func (q *Queries) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := q.db.Query(ctx, `
SELECT id, kind, status, image_id, prompt, result, error, created_at, updated_at
FROM jobs
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(
			&job.ID,
			&job.Kind,
			&job.Status,
			&job.ImageID,
			&job.Prompt,
			&job.Result,
			&job.Error,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetImageRecord resolves the latest state of an image. Absence is reported as
// domain.ErrNotFound, never as a zero-valued record.
func (q *Queries) GetImageRecord(ctx context.Context, imageID string) (domain.ImageRecord, error) {
	row := q.db.QueryRow(ctx, `
SELECT image_id, latest_version, conversation_handle, updated_at
FROM image_records
WHERE image_id = $1
`, imageID)
	var rec domain.ImageRecord
	err := row.Scan(&rec.ImageID, &rec.LatestVersion, &rec.ConversationHandle, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImageRecord{}, fmt.Errorf("image %s: %w", imageID, domain.ErrNotFound)
	}
	return rec, err
}

// UpsertImageRecord replaces the full record for an image in a single atomic write.
func (q *Queries) UpsertImageRecord(ctx context.Context, imageID string, version int, handle string) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO image_records (image_id, latest_version, conversation_handle)
VALUES ($1, $2, $3)
ON CONFLICT (image_id) DO UPDATE
SET latest_version = EXCLUDED.latest_version,
    conversation_handle = EXCLUDED.conversation_handle,
    updated_at = now()
`, imageID, version, handle)
	return err
}
