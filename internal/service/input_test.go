package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newInputService(t *testing.T) (*InputService, *artifact.Resolver) {
	t.Helper()
	ctxSvc, err := NewContextService(ContextServiceOptions{Source: debateSource()})
	require.NoError(t, err)
	resolver := artifact.NewResolver(t.TempDir(), "data")
	svc, err := NewInputService(InputServiceOptions{Context: ctxSvc, Resolver: resolver})
	require.NoError(t, err)
	return svc, resolver
}

func TestInputService_Prepare(t *testing.T) {
	svc, resolver := newInputService(t)
	job := newTestJob(model.ScriptCategorization)
	job.AnalysableID = int64Ptr(1)
	job.AdditionalContext = "  Focus on safety.  "

	out, err := svc.Prepare(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, resolver.InputPath(job), out.InputPath)
	assert.Equal(t, 1, out.Comments)

	ctxText, err := os.ReadFile(out.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, debateContext+"\n### Additional Context\nFocus on safety.\n", string(ctxText))

	csvText, err := os.ReadFile(out.InputPath)
	require.NoError(t, err)
	assert.Equal(t, "comment-id,comment_text,agrees,disagrees,passes,author-id\n10,More buses,0,0,0,\n", string(csvText))
}

func TestInputService_PrepareWithoutAdditionalContext(t *testing.T) {
	svc, _ := newInputService(t)
	job := newTestJob(model.ScriptFull)
	job.AnalysableID = int64Ptr(1)

	out, err := svc.Prepare(context.Background(), job)
	require.NoError(t, err)

	ctxText, err := os.ReadFile(out.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, debateContext, string(ctxText))
}

func TestInputService_PrepareIgnoresCachedContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	src := debateSource()
	ctxSvc, err := NewContextService(ContextServiceOptions{Source: src, Cache: cache, TTL: time.Minute})
	require.NoError(t, err)
	resolver := artifact.NewResolver(t.TempDir(), "data")
	svc, err := NewInputService(InputServiceOptions{Context: ctxSvc, Resolver: resolver})
	require.NoError(t, err)

	ref := model.NewRef(model.ResourceDebate, 1)
	cache.EXPECT().Get(gomock.Any(), "context:Debate#1").Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), "context:Debate#1", []byte(debateContext), time.Minute).Return(nil)
	_, err = ctxSvc.Compile(context.Background(), ref)
	require.NoError(t, err)

	src.AddComment(&model.Comment{ID: 11, CommentableType: model.ResourceDebate, CommentableID: 1, Body: "Later trains"})
	src.Calls = map[string]int{}

	job := newTestJob(model.ScriptCategorization)
	job.AnalysableID = int64Ptr(1)
	out, err := svc.Prepare(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Comments)
	assert.Equal(t, 1, src.Calls["Comments"])

	ctxText, err := os.ReadFile(out.ContextPath)
	require.NoError(t, err)
	assert.Contains(t, string(ctxText), "- Comments: 2\n")

	csvText, err := os.ReadFile(out.InputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(csvText), "\n"), "\n")
	assert.Len(t, lines[1:], out.Comments)
}

func TestInputService_PrepareMissingResource(t *testing.T) {
	svc, resolver := newInputService(t)
	job := newTestJob(model.ScriptFull)
	job.AnalysableID = int64Ptr(404)

	_, err := svc.Prepare(context.Background(), job)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoFileExists(t, resolver.ContextPath(job))
}

func TestNewInputService_RequiresDependencies(t *testing.T) {
	_, err := NewInputService(InputServiceOptions{Resolver: artifact.NewResolver("", "tmp")})
	assert.Error(t, err)
	_, err = NewInputService(InputServiceOptions{Context: &ContextService{}})
	assert.Error(t, err)
}

func int64Ptr(v int64) *int64 { return &v }
