package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/conversation/conversationtest"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/mocks"
	"go.uber.org/mock/gomock"
)

func debateSource() *conversationtest.Source {
	src := conversationtest.NewSource()
	src.Debates[1] = &model.Debate{ID: 1, Title: "Night buses", CachedVotesUp: 2, CachedVotesDown: 1}
	src.AddComment(&model.Comment{ID: 10, CommentableType: model.ResourceDebate, CommentableID: 1, Body: "More buses"})
	return src
}

const debateContext = "### Debate Information\n" +
	"This debate has 2 votes for and 1 against.\n" +
	"- Title: Night buses\n" +
	"- Comments: 1\n"

func TestContextService_CompileWithoutCache(t *testing.T) {
	src := debateSource()
	svc, err := NewContextService(ContextServiceOptions{Source: src})
	require.NoError(t, err)

	got, err := svc.Compile(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
	assert.Equal(t, debateContext, got)
}

func TestContextService_CacheMissStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource(), Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "context:Debate#1").Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), "context:Debate#1", []byte(debateContext), time.Minute).Return(nil)

	got, err := svc.Compile(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
	assert.Equal(t, debateContext, got)
}

func TestContextService_CacheHitSkipsSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	src := debateSource()
	svc, err := NewContextService(ContextServiceOptions{Source: src, Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "context:Debate#1").Return([]byte("cached"), nil)

	got, err := svc.Compile(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
	assert.Zero(t, src.Calls["Debate"])
}

func TestContextService_CacheFailuresDegrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource(), Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	got, err := svc.Compile(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
	assert.Equal(t, debateContext, got)
}

func TestContextService_ZeroTTLBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource(), Cache: cache})
	require.NoError(t, err)

	_, err = svc.Compile(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
}

func TestContextService_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource(), Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "context:Widget#1").Return(nil, nil)

	_, err = svc.Compile(context.Background(), model.NewRef(model.ResourceType("Widget"), 1))
	assert.True(t, apperrors.IsUnsupported(err))
}

func TestContextService_SnapshotBypassesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	src := debateSource()
	svc, err := NewContextService(ContextServiceOptions{Source: src, Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)
	assert.Equal(t, debateContext, snap.Context)
	require.Len(t, snap.Comments, 1)
	assert.Equal(t, "More buses", snap.Comments[0].Body)
	assert.Equal(t, 1, src.Calls["Comments"])

	_, err = svc.Snapshot(context.Background(), model.NewRef(model.ResourceType("Widget"), 1))
	assert.True(t, apperrors.IsUnsupported(err))
}

func TestContextService_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource(), Cache: cache, TTL: time.Minute})
	require.NoError(t, err)

	cache.EXPECT().Delete(gomock.Any(), "context:Proposal").Return(true, nil)
	require.NoError(t, svc.Invalidate(context.Background(), model.ResourceRef{Type: model.ResourceProposal}))

	cache.EXPECT().DeleteMatching(gomock.Any(), "context:*").Return(int64(3), nil)
	n, err := svc.InvalidateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestContextService_InvalidateWithoutCache(t *testing.T) {
	svc, err := NewContextService(ContextServiceOptions{Source: debateSource()})
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), model.NewRef(model.ResourceDebate, 1)))
	n, err := svc.InvalidateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = NewContextService(ContextServiceOptions{})
	assert.Error(t, err)
}
