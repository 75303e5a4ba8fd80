package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/sensemaker/internal/data/database"
	"github.com/target/sensemaker/internal/data/pgxutil"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
)

const (
	jobsTable        = "sensemaker_jobs"
	defaultListLimit = 50
	maxListLimit     = 500
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger *slog.Logger
	Clock  Clock // Optional: defaults to the system clock
}

// JobRepo persists sensemaker jobs in Postgres.
type JobRepo struct {
	DB     *sql.DB
	clock  Clock
	logger *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepo{
		DB:     db,
		clock:  clock,
		logger: logger.With("component", "job_repo"),
	}
}

// jobColumns casts uuid columns to text so rows map onto model.Job by name.
func jobColumns() []string {
	return []string{
		"id::text AS id",
		"analysable_type",
		"analysable_id",
		"script",
		"user_id",
		"parent_job_id::text AS parent_job_id",
		"additional_context",
		"started_at",
		"finished_at",
		"error",
		"published",
		"persisted_output",
		"created_at",
		"updated_at",
	}
}

const jobSelect = `
  SELECT
    id::text AS id,
    analysable_type,
    analysable_id,
    script,
    user_id,
    parent_job_id::text AS parent_job_id,
    additional_context,
    started_at,
    finished_at,
    error,
    published,
    persisted_output,
    created_at,
    updated_at
  FROM sensemaker_jobs`

const jobReturning = `
  RETURNING
    id::text AS id, analysable_type, analysable_id, script, user_id,
    parent_job_id::text AS parent_job_id, additional_context, started_at, finished_at,
    error, published, persisted_output, created_at, updated_at`

// Create inserts a new pending job with a generated id.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	now := r.clock.Now().UTC()

	job, err := r.queryOne(ctx, `
		INSERT INTO sensemaker_jobs (
		  id, analysable_type, analysable_id, script, user_id, parent_job_id,
		  additional_context, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`+jobReturning,
		id.String(), req.AnalysableType, req.AnalysableID, req.Script, req.UserID, req.ParentJobID,
		req.AdditionalContext, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", apperrors.MapDBError(err))
	}
	r.logger.DebugContext(ctx, "job created", "job_id", job.ID, "script", job.Script, "analysable", job.Ref().String())
	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	job, err := r.queryOne(ctx, jobSelect+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", id)
		}
		return nil, fmt.Errorf("get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Update writes every mutable column of job and returns the stored row.
func (r *JobRepo) Update(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job == nil {
		return nil, apperrors.Validation("job is required")
	}
	if _, err := uuid.Parse(job.ID); err != nil {
		return nil, apperrors.NotFoundf("job %s not found", job.ID)
	}

	updated, err := r.queryOne(ctx, `
		UPDATE sensemaker_jobs SET
		  analysable_type = $2,
		  analysable_id = $3,
		  script = $4,
		  user_id = $5,
		  parent_job_id = $6,
		  additional_context = $7,
		  started_at = $8,
		  finished_at = $9,
		  error = $10,
		  published = $11,
		  persisted_output = $12,
		  updated_at = $13
		WHERE id = $1`+jobReturning,
		job.ID, job.AnalysableType, job.AnalysableID, job.Script, job.UserID, job.ParentJobID,
		job.AdditionalContext, job.StartedAt, job.FinishedAt, job.Error, job.Published, job.PersistedOutput,
		r.clock.Now().UTC(),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", job.ID)
		}
		return nil, fmt.Errorf("update job: %w", apperrors.MapDBError(err))
	}
	return updated, nil
}

// Delete removes a job. Jobs still referenced as a parent cannot be deleted.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFoundf("job %s not found", id)
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sensemaker_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("job %s not found", id)
	}
	return nil
}

// List returns jobs newest first, optionally filtered by analysable resource and script.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}
	query, args := buildJobListQuery(opts).Build()
	jobs, err := r.queryMany(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

func buildJobListQuery(opts *model.JobListOptions) *database.SelectQuery {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	q := database.Select(jobsTable, jobColumns()...).
		Order("created_at", true).
		Page(limit, max(opts.Offset, 0))
	if opts.AnalysableType != "" {
		q.Where(database.Eq("analysable_type", string(opts.AnalysableType)))
	}
	if opts.AnalysableID != nil {
		q.Where(database.Eq("analysable_id", *opts.AnalysableID))
	}
	if opts.Script != "" {
		q.Where(database.Eq("script", string(opts.Script)))
	}
	if opts.RootsOnly {
		q.Where(database.Null("parent_job_id"))
	}
	return q
}

// ListChildren returns the jobs that name parentID as their parent, oldest first.
func (r *JobRepo) ListChildren(ctx context.Context, parentID string) ([]*model.Job, error) {
	if _, err := uuid.Parse(parentID); err != nil {
		return []*model.Job{}, nil
	}
	jobs, err := r.queryMany(ctx, jobSelect+` WHERE parent_job_id = $1 ORDER BY created_at ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child jobs: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

func (r *JobRepo) queryOne(ctx context.Context, query string, args ...any) (*model.Job, error) {
	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepo) queryMany(ctx context.Context, query string, args ...any) ([]*model.Job, error) {
	var rowsOut []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Job, len(rowsOut))
	for i := range rowsOut {
		out[i] = &rowsOut[i]
	}
	return out, nil
}
