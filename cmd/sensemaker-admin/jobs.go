package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/target/sensemaker/internal/bootstrap"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/service"
)

func parseJobCreateFlags(args []string) (*model.CreateJobRequest, error) {
	fs := newFlagSet("job-create")
	var rf refFlags
	rf.register(fs)
	var (
		script string
		userID int64
		parent string
		extra  string
	)
	fs.StringVar(&script, "script", string(model.ScriptCategorization), "Analysis script: "+scriptNames())
	fs.Int64Var(&userID, "user", 0, "Id of the requesting user")
	fs.StringVar(&parent, "parent", "", "Id of the job this one depends on")
	fs.StringVar(&extra, "context", "", "Additional context appended to the compiled header")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	ref, err := rf.ref()
	if err != nil {
		return nil, err
	}
	req := &model.CreateJobRequest{
		AnalysableType:    ref.Type,
		AnalysableID:      ref.ID,
		AdditionalContext: strings.TrimSpace(extra),
	}
	if err := req.Script.UnmarshalText([]byte(script)); err != nil {
		return nil, err
	}
	if userID > 0 {
		req.UserID = &userID
	}
	if parent != "" {
		id, err := parseJobID(parent)
		if err != nil {
			return nil, fmt.Errorf("--parent: %w", err)
		}
		req.ParentJobID = &id
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func scriptNames() string {
	kinds := model.ScriptKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func parseJobID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid job id %q: %w", raw, err)
	}
	return id.String(), nil
}

// parseJobFlag reads the mandatory --job flag, plus whatever extra flags setup registers.
func parseJobFlag(name string, args []string, setup func(fs *flag.FlagSet)) (string, error) {
	fs := newFlagSet(name)
	var raw string
	fs.StringVar(&raw, "job", "", "Job id (required)")
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if raw == "" {
		return "", errors.New("--job is required")
	}
	return parseJobID(raw)
}

func runJobCreate(cmdCtx *commandContext, args []string) error {
	req, err := parseJobCreateFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := svc.Jobs.Create(ctx, req)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "%s\n", job.ID)
	})
}

func runJobPrepare(cmdCtx *commandContext, args []string) error {
	id, err := parseJobFlag("job-prepare", args, nil)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := svc.Jobs.Get(ctx, id)
		if err != nil {
			return err
		}
		prepared, err := svc.Input.Prepare(ctx, job)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "context: %s\ninput:   %s (%d comments)\n",
			prepared.ContextPath, prepared.InputPath, prepared.Comments)
	})
}

func parseJobListFlags(args []string) (*model.JobListOptions, error) {
	fs := newFlagSet("job-list")
	var (
		typ    string
		id     int64
		script string
		opts   model.JobListOptions
	)
	fs.StringVar(&typ, "type", "", "Only jobs over this resource type")
	fs.Int64Var(&id, "id", 0, "Only jobs over this resource id")
	fs.StringVar(&script, "script", "", "Only jobs running this script")
	fs.BoolVar(&opts.RootsOnly, "roots", false, "Only jobs without a parent")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of jobs")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of jobs to skip")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if typ != "" {
		t := model.ResourceType(typ)
		if !t.Valid() {
			return nil, fmt.Errorf("invalid --type %q", typ)
		}
		opts.AnalysableType = t
	}
	if id > 0 {
		opts.AnalysableID = &id
	}
	if script != "" {
		if err := opts.Script.UnmarshalText([]byte(script)); err != nil {
			return nil, err
		}
	}
	if opts.Limit <= 0 {
		return nil, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return nil, errors.New("--offset cannot be negative")
	}
	return &opts, nil
}

func runJobList(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobListFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		jobs, err := svc.Jobs.List(ctx, opts)
		if err != nil {
			return err
		}
		return writeJobTable(cmdCtx.Out, jobs)
	})
}

func writeJobTable(w io.Writer, jobs []*model.Job) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tRESOURCE\tSCRIPT\tSTATUS\tPUBLISHED\tCREATED\n"); err != nil {
		return err
	}
	for _, j := range jobs {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			j.ID, j.Ref(), j.Script, jobStatus(j), j.Published,
			j.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func jobStatus(j *model.Job) string {
	switch {
	case j.Cancelled():
		return "cancelled"
	case j.Errored():
		return "failed"
	case j.Succeeded():
		return "succeeded"
	case j.Started():
		return "running"
	default:
		return "pending"
	}
}

type jobView struct {
	*model.Job

	Status      string                 `json:"status"`
	Publishable bool                   `json:"publishable"`
	Artifacts   []service.ArtifactFile `json:"artifacts"`
}

func runJobShow(cmdCtx *commandContext, args []string) error {
	id, err := parseJobFlag("job-show", args, nil)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := svc.Jobs.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(cmdCtx.Out, jobView{
			Job:         job,
			Status:      jobStatus(job),
			Publishable: svc.Jobs.Publishable(job),
			Artifacts:   svc.Artifacts.Artifacts(job),
		})
	})
}

func runJobStart(cmdCtx *commandContext, args []string) error {
	return runJobTransition(cmdCtx, "job-start", args, func(ctx context.Context, jobs *service.JobService, id string) (*model.Job, error) {
		return jobs.Start(ctx, id)
	})
}

func runJobFinish(cmdCtx *commandContext, args []string) error {
	var errMsg string
	id, err := parseJobFlag("job-finish", args, func(fs *flag.FlagSet) {
		fs.StringVar(&errMsg, "error", "", "Failure message; empty marks the run successful")
	})
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := svc.Jobs.Finish(ctx, id, strings.TrimSpace(errMsg))
		if err != nil {
			return err
		}
		return writeJobLine(cmdCtx.Out, job)
	})
}

func runJobCancel(cmdCtx *commandContext, args []string) error {
	return runJobTransition(cmdCtx, "job-cancel", args, func(ctx context.Context, jobs *service.JobService, id string) (*model.Job, error) {
		return jobs.Cancel(ctx, id)
	})
}

func runJobPublish(cmdCtx *commandContext, args []string) error {
	return runJobTransition(cmdCtx, "job-publish", args, func(ctx context.Context, jobs *service.JobService, id string) (*model.Job, error) {
		return jobs.Publish(ctx, id)
	})
}

func runJobTransition(
	cmdCtx *commandContext,
	name string,
	args []string,
	apply func(ctx context.Context, jobs *service.JobService, id string) (*model.Job, error),
) error {
	id, err := parseJobFlag(name, args, nil)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := apply(ctx, svc.Jobs, id)
		if err != nil {
			return err
		}
		return writeJobLine(cmdCtx.Out, job)
	})
}

func runJobDelete(cmdCtx *commandContext, args []string) error {
	id, err := parseJobFlag("job-delete", args, nil)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		report, err := svc.Jobs.Destroy(ctx, id)
		if err != nil {
			return err
		}
		return writeCleanupReport(cmdCtx.Out, id, report)
	})
}

func writeCleanupReport(w io.Writer, id string, report *service.CleanupReport) error {
	if err := writef(w, "deleted %s\n", id); err != nil {
		return err
	}
	for _, path := range report.Removed {
		if err := writef(w, "  removed %s\n", path); err != nil {
			return err
		}
	}
	for path, cause := range report.Failed {
		if err := writef(w, "  kept %s: %v\n", path, cause); err != nil {
			return err
		}
	}
	return nil
}

func runJobChildren(cmdCtx *commandContext, args []string) error {
	id, err := parseJobFlag("job-children", args, nil)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		jobs, err := svc.Jobs.Children(ctx, id)
		if err != nil {
			return err
		}
		return writeJobTable(cmdCtx.Out, jobs)
	})
}

func writeJobLine(w io.Writer, job *model.Job) error {
	return writef(w, "%s %s published=%t\n", job.ID, jobStatus(job), job.Published)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return writef(w, "%s\n", b)
}
