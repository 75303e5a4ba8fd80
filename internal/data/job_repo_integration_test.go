package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/testutil"
)

func debateRequest(id int64) *model.CreateJobRequest {
	return &model.CreateJobRequest{
		AnalysableType: model.ResourceDebate,
		AnalysableID:   testutil.Int64Ptr(id),
		Script:         model.ScriptCategorization,
	}
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := testutil.TestTime()
		repo := NewJobRepo(db, RepoConfig{Clock: NewManualClock(now)})

		req := debateRequest(7)
		req.UserID = testutil.Int64Ptr(3)
		req.AdditionalContext = "Focus on transport"

		created, err := repo.Create(ctx, req)
		require.NoError(t, err)
		_, parseErr := uuid.Parse(created.ID)
		require.NoError(t, parseErr)
		assert.Equal(t, model.ResourceDebate, created.AnalysableType)
		assert.Equal(t, int64(7), *created.AnalysableID)
		assert.Equal(t, model.ScriptCategorization, created.Script)
		assert.Equal(t, "Focus on transport", created.AdditionalContext)
		assert.False(t, created.Started())
		assert.False(t, created.Published)
		assert.True(t, created.CreatedAt.Equal(now))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, int64(3), *got.UserID)
	})
}

func TestJobRepo_CreateProposalAggregate(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		job, err := repo.Create(context.Background(), &model.CreateJobRequest{
			AnalysableType: model.ResourceProposal,
			Script:         model.ScriptAdvanced,
		})
		require.NoError(t, err)
		assert.Nil(t, job.AnalysableID)
		assert.True(t, job.Ref().Aggregate())
	})
}

func TestJobRepo_CreateValidation(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.Create(context.Background(), &model.CreateJobRequest{
			AnalysableType: model.ResourceDebate,
			Script:         model.ScriptFull,
		})
		assert.True(t, apperrors.IsValidation(err))

		_, err = repo.Create(context.Background(), nil)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestJobRepo_GetByIDNotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.GetByID(context.Background(), uuid.NewString())
		assert.True(t, apperrors.IsNotFound(err))

		_, err = repo.GetByID(context.Background(), "not-a-uuid")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_Update(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := NewManualClock(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{Clock: clock})

		job, err := repo.Create(ctx, debateRequest(1))
		require.NoError(t, err)

		clock.Advance(time.Hour)
		job.Start(clock.Now())
		job.Finish(clock.Now().Add(time.Minute), "")
		job.Published = true
		job.PersistedOutput = testutil.StringPtr("tmp/sensemaker/categorization-output-x.csv")

		updated, err := repo.Update(ctx, job)
		require.NoError(t, err)
		assert.True(t, updated.Succeeded())
		assert.True(t, updated.Published)
		assert.Equal(t, "tmp/sensemaker/categorization-output-x.csv", *updated.PersistedOutput)
		assert.True(t, updated.UpdatedAt.Equal(clock.Now()))

		missing := *job
		missing.ID = uuid.NewString()
		_, err = repo.Update(ctx, &missing)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_ChildrenAndDelete(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := NewManualClock(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{Clock: clock})

		parent, err := repo.Create(ctx, debateRequest(1))
		require.NoError(t, err)

		var childIDs []string
		for range 2 {
			clock.Advance(time.Second)
			req := debateRequest(1)
			req.Script = model.ScriptReportBuild
			req.ParentJobID = &parent.ID
			child, createErr := repo.Create(ctx, req)
			require.NoError(t, createErr)
			childIDs = append(childIDs, child.ID)
		}

		children, err := repo.ListChildren(ctx, parent.ID)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, childIDs[0], children[0].ID)
		assert.Equal(t, childIDs[1], children[1].ID)

		require.NoError(t, repo.Delete(ctx, parent.ID))
		assert.True(t, apperrors.IsNotFound(repo.Delete(ctx, parent.ID)))

		for _, id := range childIDs {
			child, getErr := repo.GetByID(ctx, id)
			require.NoError(t, getErr)
			assert.Nil(t, child.ParentJobID, "children are detached from a deleted parent")
		}
	})
}

func TestJobRepo_CreateWithMissingParent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		req := debateRequest(1)
		req.ParentJobID = testutil.StringPtr(uuid.NewString())

		_, err := repo.Create(context.Background(), req)
		assert.True(t, apperrors.IsAppError(err, apperrors.ErrCodeForeignKey))
	})
}

func TestJobRepo_List(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := NewManualClock(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{Clock: clock})

		for i, script := range []model.ScriptKind{model.ScriptCategorization, model.ScriptFull, model.ScriptFull} {
			clock.Advance(time.Second)
			req := debateRequest(int64(i % 2))
			req.Script = script
			_, err := repo.Create(ctx, req)
			require.NoError(t, err)
		}

		all, err := repo.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")

		full, err := repo.List(ctx, &model.JobListOptions{Script: model.ScriptFull})
		require.NoError(t, err)
		assert.Len(t, full, 2)

		byResource, err := repo.List(ctx, &model.JobListOptions{
			AnalysableType: model.ResourceDebate,
			AnalysableID:   testutil.Int64Ptr(0),
		})
		require.NoError(t, err)
		assert.Len(t, byResource, 2)

		page, err := repo.List(ctx, &model.JobListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, all[1].ID, page[0].ID)
	})
}
