package main

import (
	"context"
	"errors"
	"flag"
	"strings"

	"github.com/target/sensemaker/internal/bootstrap"
)

type artifactQueryOptions struct {
	JobID    string
	Artifact string
	Expr     string
}

func parseArtifactQueryFlags(args []string) (artifactQueryOptions, error) {
	var opts artifactQueryOptions
	id, err := parseJobFlag("artifact-query", args, func(fs *flag.FlagSet) {
		fs.StringVar(&opts.Artifact, "artifact", "summary", "JSON artifact name, e.g. summary, topic-stats, comments-with-scores")
		fs.StringVar(&opts.Expr, "expr", "", "JMESPath expression (required)")
	})
	if err != nil {
		return artifactQueryOptions{}, err
	}
	opts.JobID = id
	opts.Artifact = strings.TrimSpace(opts.Artifact)
	if opts.Artifact == "" {
		return artifactQueryOptions{}, errors.New("--artifact is required")
	}
	if strings.TrimSpace(opts.Expr) == "" {
		return artifactQueryOptions{}, errors.New("--expr is required")
	}
	return opts, nil
}

func runArtifactQuery(cmdCtx *commandContext, args []string) error {
	opts, err := parseArtifactQueryFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		job, err := svc.Jobs.Get(ctx, opts.JobID)
		if err != nil {
			return err
		}
		result, err := svc.Artifacts.Query(job, opts.Artifact, opts.Expr)
		if err != nil {
			return err
		}
		return writeJSON(cmdCtx.Out, result)
	})
}
