package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/export"
	"golang.org/x/sync/errgroup"
)

// InputServiceOptions groups dependencies for InputService.
type InputServiceOptions struct {
	Context  *ContextService    // Required: context and comment compilation
	Resolver *artifact.Resolver // Required: where input files go
	Logger   *slog.Logger       // Optional: structured logger
}

// InputService writes the files the external analysis process reads for a job.
type InputService struct {
	context  *ContextService
	resolver *artifact.Resolver
	logger   *slog.Logger
}

// PreparedInput describes the files written by Prepare.
type PreparedInput struct {
	ContextPath string
	InputPath   string
	Comments    int
}

// NewInputService constructs a new InputService.
func NewInputService(opts InputServiceOptions) (*InputService, error) {
	if opts.Context == nil {
		return nil, errors.New("ContextService is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("artifact Resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InputService{
		context:  opts.Context,
		resolver: opts.Resolver,
		logger:   logger.With("component", "input_service"),
	}, nil
}

// Prepare compiles the job's resource and writes context-<id>.txt and input-<id>.csv. Both
// files come from one fresh read, so the context comment count matches the CSV rows. The
// job's additional context, when set, is appended under its own heading.
func (s *InputService) Prepare(ctx context.Context, job *model.Job) (*PreparedInput, error) {
	ref := job.Ref()
	snap, err := s.context.Snapshot(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("prepare input for job %s: %w", job.ID, err)
	}
	out := &PreparedInput{
		ContextPath: s.resolver.ContextPath(job),
		InputPath:   s.resolver.InputPath(job),
		Comments:    len(snap.Comments),
	}

	var g errgroup.Group
	g.Go(func() error {
		return writeContextFile(out.ContextPath, withAdditionalContext(snap.Context, job.AdditionalContext))
	})
	g.Go(func() error {
		return export.ExportFile(out.InputPath, snap.Comments)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prepare input for job %s: %w", job.ID, err)
	}

	s.logger.InfoContext(ctx, "job input prepared",
		"job_id", job.ID,
		"analysable", ref.String(),
		"comments", out.Comments,
		"input", out.InputPath,
	)
	return out, nil
}

func withAdditionalContext(text, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return text
	}
	return text + "\n### Additional Context\n" + extra + "\n"
}

func writeContextFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write context file: %w", err)
	}
	return nil
}
