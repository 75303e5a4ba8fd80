package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptKind_Valid(t *testing.T) {
	for _, k := range ScriptKinds() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, ScriptKind("unknown").Valid())
}

func TestScriptKind_UnmarshalText(t *testing.T) {
	var k ScriptKind
	require.NoError(t, k.UnmarshalText([]byte(" Health-Check ")))
	assert.Equal(t, ScriptHealthCheck, k)

	err := k.UnmarshalText([]byte("nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ScriptKind")
}

func TestJob_Lifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &Job{ID: "1", AnalysableType: ResourceDebate, AnalysableID: int64Ptr(3), Script: ScriptAdvanced}

	assert.False(t, job.Started())
	assert.False(t, job.Finished())
	assert.False(t, job.Succeeded())

	job.Start(now)
	assert.True(t, job.Started())
	assert.False(t, job.Finished())

	job.Finish(now.Add(time.Minute), "")
	assert.True(t, job.Finished())
	assert.True(t, job.Succeeded())
	assert.False(t, job.Errored())

	job.Finish(now.Add(2*time.Minute), "script exited with status 1")
	assert.True(t, job.Errored())
	assert.False(t, job.Succeeded())
	assert.False(t, job.Cancelled())
}

func TestJob_Cancel(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unstarted job", func(t *testing.T) {
		job := &Job{}
		require.NoError(t, job.Cancel(now))
		assert.True(t, job.Cancelled())
		assert.True(t, job.Finished())
		assert.Equal(t, now, *job.FinishedAt)
	})

	t.Run("running job is idempotent", func(t *testing.T) {
		job := &Job{}
		job.Start(now)
		require.NoError(t, job.Cancel(now.Add(time.Second)))
		require.NoError(t, job.Cancel(now.Add(time.Hour)))
		assert.Equal(t, now.Add(time.Second), *job.FinishedAt)
		assert.Equal(t, ErrorCancelled, *job.Error)
	})

	t.Run("finished job", func(t *testing.T) {
		job := &Job{}
		job.Finish(now, "")
		require.ErrorIs(t, job.Cancel(now), ErrJobAlreadyFinished)
		assert.False(t, job.Cancelled())
	})
}

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr string
	}{
		{
			name: "debate with id",
			job:  Job{AnalysableType: ResourceDebate, AnalysableID: int64Ptr(1), Script: ScriptFull},
		},
		{
			name: "proposal aggregate without id",
			job:  Job{AnalysableType: ResourceProposal, Script: ScriptCategorization},
		},
		{
			name:    "poll without id",
			job:     Job{AnalysableType: ResourcePoll, Script: ScriptFull},
			wantErr: "analysable_id is required",
		},
		{
			name:    "unknown type",
			job:     Job{AnalysableType: "Widget", AnalysableID: int64Ptr(1), Script: ScriptFull},
			wantErr: "invalid analysable type",
		},
		{
			name:    "unknown script",
			job:     Job{AnalysableType: ResourceDebate, AnalysableID: int64Ptr(1), Script: "bogus"},
			wantErr: "invalid script",
		},
		{
			name: "self parent",
			job: Job{
				ID:             "a",
				ParentJobID:    stringPtr("a"),
				AnalysableType: ResourceDebate,
				AnalysableID:   int64Ptr(1),
				Script:         ScriptFull,
			},
			wantErr: "own parent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateJobRequest_Validate(t *testing.T) {
	req := &CreateJobRequest{AnalysableType: ResourceBudget, Script: ScriptAdvanced}
	require.Error(t, req.Validate())

	req.AnalysableID = int64Ptr(9)
	assert.NoError(t, req.Validate())
}

func TestResourceRef(t *testing.T) {
	ref := NewRef(ResourcePollQuestion, 42)
	assert.Equal(t, "Poll::Question#42", ref.String())
	assert.False(t, ref.Aggregate())

	parsed, err := ParseRef("Poll::Question#42")
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	agg, err := ParseRef("Proposal")
	require.NoError(t, err)
	assert.True(t, agg.Aggregate())
	assert.Equal(t, "Proposal", agg.String())

	_, err = ParseRef("Debate#abc")
	require.Error(t, err)
}

func TestResourceType_Valid(t *testing.T) {
	assert.True(t, ResourceLegislationQuestionOption.Valid())
	assert.False(t, ResourceType("Legislation::Annotation").Valid())
	assert.False(t, ResourceProposal.RequiresID())
	assert.True(t, ResourceBudgetGroup.RequiresID())
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(s string) *string { return &s }
