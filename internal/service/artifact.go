package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// ArtifactServiceOptions groups dependencies for ArtifactService.
type ArtifactServiceOptions struct {
	Resolver  *artifact.Resolver // Required
	Evaluator JMESPathEvaluator  // Optional: defaults to go-jmespath
}

// ArtifactService lists a job's output files and queries its JSON outputs.
type ArtifactService struct {
	resolver  *artifact.Resolver
	evaluator JMESPathEvaluator
}

// ArtifactFile is one expected output of a job.
type ArtifactFile struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Exists      bool   `json:"exists"`
}

// NewArtifactService constructs a new ArtifactService.
func NewArtifactService(opts ArtifactServiceOptions) (*ArtifactService, error) {
	if opts.Resolver == nil {
		return nil, errors.New("artifact Resolver is required")
	}
	ev := opts.Evaluator
	if ev == nil {
		ev = jmespathLibEvaluator{}
	}
	return &ArtifactService{resolver: opts.Resolver, evaluator: ev}, nil
}

// Artifacts lists every expected output file of job with its media type and presence.
func (s *ArtifactService) Artifacts(job *model.Job) []ArtifactFile {
	paths := s.resolver.OutputPaths(job)
	out := make([]ArtifactFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		out = append(out, ArtifactFile{
			Path:        p,
			ContentType: artifact.ContentType(p),
			Exists:      err == nil && !info.IsDir(),
		})
	}
	return out
}

// Query evaluates a JMESPath expression against one JSON output of job. name selects the
// output by suffix, e.g. "summary" or "topic-stats"; it may be empty when the job has a
// single JSON output.
func (s *ArtifactService) Query(job *model.Job, name, expr string) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, apperrors.ValidationField("expression", "expression is required")
	}
	if err := s.evaluator.Validate(expr); err != nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrCodeValidation,
			Message: "invalid JMESPath expression",
			Cause:   err,
			Field:   "expression",
		}
	}

	path, err := s.jsonArtifact(job, name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NotFoundf("artifact %s not found", filepath.Base(path))
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	result, err := s.evaluator.Evaluate(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression: %w", err)
	}
	return result, nil
}

func (s *ArtifactService) jsonArtifact(job *model.Job, name string) (string, error) {
	var candidates []string
	for _, p := range s.resolver.OutputPaths(job) {
		if strings.EqualFold(filepath.Ext(p), ".json") {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return "", apperrors.Validationf("script %s has no JSON outputs", job.Script)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		if len(candidates) > 1 {
			return "", apperrors.ValidationField("artifact", "several JSON outputs, name one")
		}
		return candidates[0], nil
	}
	suffix := "-" + strings.TrimSuffix(name, ".json") + ".json"
	for _, p := range candidates {
		if strings.HasSuffix(p, suffix) {
			return p, nil
		}
	}
	return "", apperrors.ValidationField("artifact", fmt.Sprintf("no JSON output named %q", name))
}
