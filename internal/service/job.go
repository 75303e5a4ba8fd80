package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/observability/metrics"
	"github.com/target/sensemaker/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo     core.JobRepository // Required: job repository
	Resolver *artifact.Resolver // Required: artifact path resolution
	Clock    func() time.Time   // Optional: defaults to time.Now
	Logger   *slog.Logger       // Optional: structured logger
	Metrics  statsd.Sink        // Optional: lifecycle metrics
}

// JobService applies the job lifecycle rules on top of the repository: timestamps on start,
// finish and cancel, the publish guard, persisted output paths and file cleanup on destroy.
//
// The service assumes a single writer per job id. Check-then-set sequences (publish, cancel)
// are not guarded by locks.
type JobService struct {
	repo     core.JobRepository
	resolver *artifact.Resolver
	clock    func() time.Time
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("artifact Resolver is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobService{
		repo:     opts.Repo,
		resolver: opts.Resolver,
		clock:    clock,
		logger:   logger.With("component", "job_service"),
		metrics:  opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Resolver exposes the artifact resolver the service was built with.
func (s *JobService) Resolver() *artifact.Resolver {
	return s.resolver
}

// Create records a new, unstarted job.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	job, err := s.repo.Create(ctx, req)
	s.emit(string(req.Script), metrics.TransitionCreate, err, 0)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.DebugContext(ctx, "job created",
		"id", job.ID,
		"analysable", job.Ref().String(),
		"script", job.Script,
	)
	return job, nil
}

// Get returns one job.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs matching opts, newest first.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Children returns the jobs that name id as their parent, oldest first.
func (s *JobService) Children(ctx context.Context, id string) ([]*model.Job, error) {
	jobs, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", id, err)
	}
	return jobs, nil
}

// Start records that the external analysis process began. Finished jobs cannot be restarted.
func (s *JobService) Start(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Finished() {
		err = apperrors.Validationf("job %s already finished", id)
		s.emit(string(job.Script), metrics.TransitionStart, err, 0)
		return nil, err
	}

	job.Start(s.clock())
	saved, err := s.Save(ctx, job)
	s.emit(string(job.Script), metrics.TransitionStart, err, 0)
	return saved, err
}

// Finish records the end of the run. A non-empty errMsg marks it failed. A successful finish
// with every output file present also pins persisted_output.
func (s *JobService) Finish(ctx context.Context, id, errMsg string) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Finished() {
		err = apperrors.Validationf("job %s already finished", id)
		s.emit(string(job.Script), metrics.TransitionFinish, err, 0)
		return nil, err
	}

	job.Finish(s.clock(), errMsg)
	saved, err := s.Save(ctx, job)
	var duration time.Duration
	if job.StartedAt != nil {
		duration = job.FinishedAt.Sub(*job.StartedAt)
	}
	s.emit(string(job.Script), metrics.TransitionFinish, err, duration)
	return saved, err
}

// Cancel marks the job cancelled. Cancelling an already-cancelled job returns it unchanged.
// Jobs that finished on their own return a validation error wrapping ErrJobAlreadyFinished.
func (s *JobService) Cancel(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Cancelled() {
		s.emitResult(string(job.Script), metrics.TransitionCancel, metrics.ResultNoop, nil)
		return job, nil
	}
	if err := job.Cancel(s.clock()); err != nil {
		appErr := apperrors.Wrapf(err, apperrors.ErrCodeValidation, "cancel job %s", id)
		s.emit(string(job.Script), metrics.TransitionCancel, appErr, 0)
		return nil, appErr
	}

	saved, err := s.Save(ctx, job)
	s.emit(string(job.Script), metrics.TransitionCancel, err, 0)
	if err == nil {
		s.logger.InfoContext(ctx, "job cancelled", "id", id)
	}
	return saved, err
}

// Publish marks the job published. Publishing a published job is a no-op.
func (s *JobService) Publish(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Published {
		s.emitResult(string(job.Script), metrics.TransitionPublish, metrics.ResultNoop, nil)
		return job, nil
	}

	job.Published = true
	saved, err := s.Save(ctx, job)
	s.emit(string(job.Script), metrics.TransitionPublish, err, 0)
	return saved, err
}

// Publishable reports whether the run succeeded and every expected output file exists.
// Missing files yield false, never an error.
func (s *JobService) Publishable(job *model.Job) bool {
	return job.Succeeded() && s.resolver.HasOutputs(job)
}

// Save persists job, applying the save hooks:
//   - switching published from false to true requires Publishable; jobs already published
//     are not re-checked.
//   - a successful job without persisted_output whose outputs all exist gets the
//     root-relative default base. An existing value is never overwritten.
func (s *JobService) Save(ctx context.Context, job *model.Job) (*model.Job, error) {
	if err := job.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job")
	}

	if job.Published {
		stored, err := s.repo.GetByID(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", job.ID, err)
		}
		if !stored.Published && !s.Publishable(job) {
			return nil, apperrors.Wrapf(apperrors.ErrNotPublishable, apperrors.ErrCodeValidation,
				"publish job %s", job.ID)
		}
	}

	if job.Succeeded() && job.PersistedOutput == nil && s.resolver.HasOutputs(job) {
		rel, err := s.resolver.RelativeOutputPath(job)
		if err != nil {
			return nil, fmt.Errorf("persist output path of %s: %w", job.ID, err)
		}
		job.PersistedOutput = &rel
	}

	saved, err := s.repo.Update(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return saved, nil
}

// Destroy deletes the job record and then removes its files. Cleanup failures are logged and
// never fail the destroy. Children of the job stay and lose their parent reference; a failed
// delete keeps the files.
func (s *JobService) Destroy(ctx context.Context, id string) (*CleanupReport, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.emit(string(job.Script), metrics.TransitionDestroy, err, 0)
		return nil, fmt.Errorf("delete job %s: %w", id, err)
	}
	s.emit(string(job.Script), metrics.TransitionDestroy, nil, 0)

	report := s.CleanupAssociatedFiles(ctx, job)
	return report, nil
}

// CleanupReport lists what CleanupAssociatedFiles did.
type CleanupReport struct {
	Removed []string
	Failed  map[string]error
}

// CleanupAssociatedFiles removes the job's input CSV, its unfiltered backup, the context
// file, every output artifact under both the resolved and the default base, and the
// persisted output path. Each removal is independent; missing files are skipped silently
// and other failures are logged at Warn.
func (s *JobService) CleanupAssociatedFiles(ctx context.Context, job *model.Job) *CleanupReport {
	report := &CleanupReport{Failed: map[string]error{}}

	seen := make(map[string]bool)
	for _, path := range s.associatedFiles(job) {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		err := os.Remove(path)
		switch {
		case err == nil:
			report.Removed = append(report.Removed, path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			report.Failed[path] = err
			s.logger.WarnContext(ctx, "failed to remove job file",
				"job_id", job.ID,
				"path", path,
				"error", err,
			)
		}
	}

	metrics.EmitCleanup(s.metrics, string(job.Script), len(report.Removed), len(report.Failed))
	return report
}

func (s *JobService) associatedFiles(job *model.Job) []string {
	files := []string{
		s.resolver.InputPath(job),
		s.resolver.UnfilteredInputPath(job),
		s.resolver.ContextPath(job),
	}
	files = append(files, s.resolver.OutputPaths(job)...)
	files = append(files, s.resolver.DefaultOutputPaths(job)...)
	return append(files, s.resolver.PersistedPath(job))
}

func (s *JobService) emit(script, transition string, err error, duration time.Duration) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Script:     script,
		Transition: transition,
		Result:     result,
		Duration:   duration,
		Err:        err,
	})
}

func (s *JobService) emitResult(script, transition, result string, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Script:     script,
		Transition: transition,
		Result:     result,
		Err:        err,
	})
}
