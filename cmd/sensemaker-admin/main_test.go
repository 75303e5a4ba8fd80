package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/service"
)

const testJobID = "0192f3a4-5b6c-7d8e-9f00-112233445566"

func testCommandContext(out io.Writer) *commandContext {
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    out,
	}
}

func TestPrintUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	for name := range commands() {
		assert.Contains(t, out, "  "+name+" ")
	}
	assert.Less(t, strings.Index(out, "artifact-query"), strings.Index(out, "migrate"))
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	opts, err = parseMigrateFlags([]string{"--timeout", "30s"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestParseRefArgs(t *testing.T) {
	ref, err := parseRefArgs("context", []string{"--type", "Poll::Question", "--id", "7"})
	require.NoError(t, err)
	assert.Equal(t, "Poll::Question#7", ref.String())

	aggregate, err := parseRefArgs("context", []string{"--type", "Proposal"})
	require.NoError(t, err)
	assert.True(t, aggregate.Aggregate())

	_, err = parseRefArgs("context", []string{"--type", "Debate"})
	require.ErrorContains(t, err, "--id is required")

	_, err = parseRefArgs("context", []string{"--type", "Article", "--id", "1"})
	require.ErrorContains(t, err, "unknown resource type")

	_, err = parseRefArgs("context", nil)
	require.ErrorContains(t, err, "--type is required")
}

func TestParseExportFlags(t *testing.T) {
	opts, err := parseExportFlags([]string{"--type", "Debate", "--id", "3", "--out", "/tmp/x.csv"})
	require.NoError(t, err)
	assert.Equal(t, model.NewRef(model.ResourceDebate, 3), opts.Ref)
	assert.Equal(t, "/tmp/x.csv", opts.Out)
}

func TestParseJobCreateFlags(t *testing.T) {
	req, err := parseJobCreateFlags([]string{
		"--type", "Budget::Group", "--id", "4",
		"--script", "full",
		"--user", "9",
		"--parent", strings.ToUpper(testJobID),
		"--context", "  focus on transport  ",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ResourceBudgetGroup, req.AnalysableType)
	require.NotNil(t, req.AnalysableID)
	assert.Equal(t, int64(4), *req.AnalysableID)
	assert.Equal(t, model.ScriptFull, req.Script)
	require.NotNil(t, req.UserID)
	assert.Equal(t, int64(9), *req.UserID)
	require.NotNil(t, req.ParentJobID)
	assert.Equal(t, testJobID, *req.ParentJobID)
	assert.Equal(t, "focus on transport", req.AdditionalContext)
}

func TestParseJobCreateFlags_Invalid(t *testing.T) {
	_, err := parseJobCreateFlags([]string{"--type", "Debate", "--id", "1", "--script", "sentiment"})
	require.Error(t, err)

	_, err = parseJobCreateFlags([]string{"--type", "Debate", "--id", "1", "--parent", "nope"})
	require.ErrorContains(t, err, "--parent")
}

func TestParseJobFlag(t *testing.T) {
	id, err := parseJobFlag("job-show", []string{"--job", testJobID}, nil)
	require.NoError(t, err)
	assert.Equal(t, testJobID, id)

	_, err = parseJobFlag("job-show", nil, nil)
	require.ErrorContains(t, err, "--job is required")

	_, err = parseJobFlag("job-show", []string{"--job", "123"}, nil)
	require.ErrorContains(t, err, "invalid job id")
}

func TestParseJobListFlags(t *testing.T) {
	opts, err := parseJobListFlags([]string{"--type", "Poll", "--id", "2", "--script", "advanced", "--roots", "--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, model.ResourcePoll, opts.AnalysableType)
	require.NotNil(t, opts.AnalysableID)
	assert.Equal(t, int64(2), *opts.AnalysableID)
	assert.Equal(t, model.ScriptAdvanced, opts.Script)
	assert.True(t, opts.RootsOnly)
	assert.Equal(t, 5, opts.Limit)

	_, err = parseJobListFlags([]string{"--limit", "0"})
	require.Error(t, err)
	_, err = parseJobListFlags([]string{"--type", "Nope"})
	require.Error(t, err)
}

func TestParseArtifactQueryFlags(t *testing.T) {
	opts, err := parseArtifactQueryFlags([]string{"--job", testJobID, "--artifact", "topic-stats", "--expr", "[0].name"})
	require.NoError(t, err)
	assert.Equal(t, artifactQueryOptions{JobID: testJobID, Artifact: "topic-stats", Expr: "[0].name"}, opts)

	_, err = parseArtifactQueryFlags([]string{"--job", testJobID})
	require.ErrorContains(t, err, "--expr is required")
}

func TestJobStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job := &model.Job{}
	assert.Equal(t, "pending", jobStatus(job))

	job.Start(now)
	assert.Equal(t, "running", jobStatus(job))

	done := *job
	done.Finish(now, "")
	assert.Equal(t, "succeeded", jobStatus(&done))

	failed := *job
	failed.Finish(now, "boom")
	assert.Equal(t, "failed", jobStatus(&failed))

	cancelled := *job
	require.NoError(t, cancelled.Cancel(now))
	assert.Equal(t, "cancelled", jobStatus(&cancelled))
}

func TestWriteJobTable(t *testing.T) {
	id := int64(3)
	jobs := []*model.Job{{
		ID:             testJobID,
		AnalysableType: model.ResourceDebate,
		AnalysableID:   &id,
		Script:         model.ScriptCategorization,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, writeJobTable(&buf, jobs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Equal(t,
		[]string{testJobID, "Debate#3", "categorization", "pending", "false", "2026-03-01T12:00:00Z"},
		strings.Fields(lines[1]))
}

func TestWriteCleanupReport(t *testing.T) {
	var buf bytes.Buffer
	report := &service.CleanupReport{
		Removed: []string{"tmp/input-x.csv"},
		Failed:  map[string]error{"tmp/output-x": os.ErrPermission},
	}
	require.NoError(t, writeCleanupReport(&buf, testJobID, report))

	assert.Equal(t,
		"deleted "+testJobID+"\n  removed tmp/input-x.csv\n  kept tmp/output-x: permission denied\n",
		buf.String())
}

func TestRunFilterCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categorization-output.csv")
	require.NoError(t, os.WriteFile(path, []byte("comment-id,comment_text,agrees,disagrees,passes\n1,a,1,0,0\n2,b,0,0,0\n"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, runFilterCSV(testCommandContext(&buf), []string{path}))
	assert.Equal(t, "1 rows kept in "+path+"\n", buf.String())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "comment-id,comment_text,agrees,disagrees,passes\n1,a,1,0,0\n", string(content))
}

func TestRunFilterCSV_RequiresPath(t *testing.T) {
	err := runFilterCSV(testCommandContext(io.Discard), nil)
	require.ErrorContains(t, err, "usage: filter-csv")
}
