package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/target/sensemaker/internal/bootstrap"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/export"
)

type refFlags struct {
	typ string
	id  int64
}

func (r *refFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&r.typ, "type", "", "Resource type, e.g. Debate, Poll, Poll::Question, Budget::Group")
	fs.Int64Var(&r.id, "id", 0, "Resource id; omit for the Proposal aggregate")
}

func (r *refFlags) ref() (model.ResourceRef, error) {
	typ := strings.TrimSpace(r.typ)
	if typ == "" {
		return model.ResourceRef{}, errors.New("--type is required")
	}
	t := model.ResourceType(typ)
	if !t.Valid() {
		return model.ResourceRef{}, fmt.Errorf("unknown resource type %q", typ)
	}
	switch {
	case r.id < 0:
		return model.ResourceRef{}, errors.New("--id must be positive")
	case r.id == 0 && t.RequiresID():
		return model.ResourceRef{}, fmt.Errorf("--id is required for %s", t)
	case r.id == 0:
		return model.ResourceRef{Type: t}, nil
	}
	return model.NewRef(t, r.id), nil
}

func parseRefArgs(name string, args []string) (model.ResourceRef, error) {
	fs := newFlagSet(name)
	var rf refFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return model.ResourceRef{}, err
	}
	return rf.ref()
}

func runContext(cmdCtx *commandContext, args []string) error {
	ref, err := parseRefArgs("context", args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		text, err := svc.Context.Compile(ctx, ref)
		if err != nil {
			return err
		}
		return writef(cmdCtx.Out, "%s", text)
	})
}

type exportOptions struct {
	Ref model.ResourceRef
	Out string
}

func parseExportFlags(args []string) (exportOptions, error) {
	fs := newFlagSet("export")
	var rf refFlags
	rf.register(fs)
	var opts exportOptions
	fs.StringVar(&opts.Out, "out", "", "Write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return exportOptions{}, err
	}
	ref, err := rf.ref()
	if err != nil {
		return exportOptions{}, err
	}
	opts.Ref = ref
	return opts, nil
}

func runExport(cmdCtx *commandContext, args []string) error {
	opts, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		comments, err := svc.Context.Comments(ctx, opts.Ref)
		if err != nil {
			return err
		}
		if opts.Out == "" {
			return export.WriteComments(cmdCtx.Out, comments)
		}
		if err := export.ExportFile(opts.Out, comments); err != nil {
			return err
		}
		return writef(cmdCtx.Out, "wrote %d comments to %s\n", len(comments), opts.Out)
	})
}

func runFilterCSV(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("filter-csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: filter-csv <path>")
	}
	path := fs.Arg(0)

	kept, err := export.FilterZeroVoteComments(path)
	if err != nil {
		return fmt.Errorf("filter %s: %w", path, err)
	}
	cmdCtx.Logger.Info("csv filtered", "path", path, "kept", kept)
	return writef(cmdCtx.Out, "%d rows kept in %s\n", kept, path)
}

func runCacheClear(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("cache-clear")
	var rf refFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, svc *bootstrap.ServiceContainer) error {
		if svc.Cache == nil {
			return errors.New("redis cache is not enabled (REDIS_ENABLED=false or unreachable)")
		}
		if rf.typ == "" {
			n, err := svc.Context.InvalidateAll(ctx)
			if err != nil {
				return err
			}
			return writef(cmdCtx.Out, "removed %d cached contexts\n", n)
		}
		ref, err := rf.ref()
		if err != nil {
			return err
		}
		if err := svc.Context.Invalidate(ctx, ref); err != nil {
			return err
		}
		return writef(cmdCtx.Out, "removed cached context of %s\n", ref)
	})
}
