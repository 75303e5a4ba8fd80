package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/conversation"
	"github.com/target/sensemaker/internal/domain/model"
)

const contextKeyPrefix = "context:"

// ContextServiceOptions groups dependencies for ContextService.
type ContextServiceOptions struct {
	Source core.ContentSource   // Required: participation data
	Cache  core.CacheRepository // Optional: compiled-context cache
	TTL    time.Duration        // Optional: cache lifetime, zero disables caching
	Logger *slog.Logger         // Optional: structured logger
}

// ContextService compiles context headers and comment streams for analysable resources.
// Compiled headers are cached per resource; cache failures degrade to a fresh compile.
type ContextService struct {
	source core.ContentSource
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewContextService constructs a new ContextService.
func NewContextService(opts ContextServiceOptions) (*ContextService, error) {
	if opts.Source == nil {
		return nil, errors.New("ContentSource is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextService{
		source: opts.Source,
		cache:  opts.Cache,
		ttl:    opts.TTL,
		logger: logger.With("component", "context_service"),
	}, nil
}

func (s *ContextService) caching() bool {
	return s.cache != nil && s.ttl > 0
}

func contextKey(ref model.ResourceRef) string {
	return contextKeyPrefix + ref.String()
}

// Compile returns the context header of ref.
func (s *ContextService) Compile(ctx context.Context, ref model.ResourceRef) (string, error) {
	if s.caching() {
		cached, err := s.cache.Get(ctx, contextKey(ref))
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "context cache read failed", "ref", ref.String(), "error", err)
		case cached != nil:
			return string(cached), nil
		}
	}

	text, err := conversation.CompileContext(ctx, s.source, ref)
	if err != nil {
		return "", err
	}

	if s.caching() {
		if err := s.cache.Set(ctx, contextKey(ref), []byte(text), s.ttl); err != nil {
			s.logger.WarnContext(ctx, "context cache write failed", "ref", ref.String(), "error", err)
		}
	}
	return text, nil
}

// Comments returns the normalized comment stream of ref. It is never cached.
func (s *ContextService) Comments(ctx context.Context, ref model.ResourceRef) ([]model.NormalizedComment, error) {
	return conversation.Comments(ctx, s.source, ref)
}

// Snapshot is a context header and the comment stream it counts, read together.
type Snapshot struct {
	Context  string
	Comments []model.NormalizedComment
}

// Snapshot reads the comments of ref once and renders the header from that same read. The
// cache is neither consulted nor filled.
func (s *ContextService) Snapshot(ctx context.Context, ref model.ResourceRef) (*Snapshot, error) {
	c, err := conversation.New(ctx, s.source, ref)
	if err != nil {
		return nil, err
	}
	comments, err := c.Comments(ctx)
	if err != nil {
		return nil, err
	}
	text, err := c.Render(ctx, comments)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Context: text, Comments: comments}, nil
}

// Invalidate drops the cached context of ref.
func (s *ContextService) Invalidate(ctx context.Context, ref model.ResourceRef) error {
	if s.cache == nil {
		return nil
	}
	if _, err := s.cache.Delete(ctx, contextKey(ref)); err != nil {
		return fmt.Errorf("invalidate context of %s: %w", ref, err)
	}
	return nil
}

// InvalidateAll drops every cached context and returns how many entries were removed.
func (s *ContextService) InvalidateAll(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.DeleteMatching(ctx, contextKeyPrefix+"*")
	if err != nil {
		return n, fmt.Errorf("invalidate contexts: %w", err)
	}
	return n, nil
}
