package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
)

func newArtifactService(t *testing.T) (*ArtifactService, *artifact.Resolver) {
	t.Helper()
	resolver := artifact.NewResolver(t.TempDir(), "data")
	svc, err := NewArtifactService(ArtifactServiceOptions{Resolver: resolver})
	require.NoError(t, err)
	return svc, resolver
}

func writeArtifact(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestArtifactService_Artifacts(t *testing.T) {
	svc, resolver := newArtifactService(t)
	job := succeededJob(model.ScriptFull)
	paths := resolver.OutputPaths(job)
	writeArtifact(t, paths[1], "<html></html>")

	got := svc.Artifacts(job)
	require.Len(t, got, 4)
	assert.Equal(t, ArtifactFile{Path: paths[0], ContentType: "application/json"}, got[0])
	assert.Equal(t, ArtifactFile{Path: paths[1], ContentType: "text/html", Exists: true}, got[1])
	assert.Equal(t, "application/octet-stream", got[2].ContentType)
	assert.Equal(t, "text/csv", got[3].ContentType)
}

func TestArtifactService_Query(t *testing.T) {
	svc, resolver := newArtifactService(t)
	job := succeededJob(model.ScriptAdvanced)
	base := resolver.Base(job)
	writeArtifact(t, base+"-topic-stats.json", `[
		{"name": "Transport", "commentCount": 12},
		{"name": "Parks", "commentCount": 3}
	]`)

	got, err := svc.Query(job, "topic-stats", "[?commentCount > `5`].name")
	require.NoError(t, err)
	assert.Equal(t, []any{"Transport"}, got)

	got, err = svc.Query(job, "topic-stats.json", "length(@)")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 0.001)
}

func TestArtifactService_QueryErrors(t *testing.T) {
	svc, resolver := newArtifactService(t)
	advanced := succeededJob(model.ScriptAdvanced)

	_, err := svc.Query(advanced, "summary", "")
	assert.Equal(t, "expression", apperrors.GetField(err))

	_, err = svc.Query(advanced, "summary", "[?")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Query(advanced, "", "@")
	assert.Equal(t, "artifact", apperrors.GetField(err))

	_, err = svc.Query(advanced, "nope", "@")
	assert.Equal(t, "artifact", apperrors.GetField(err))

	_, err = svc.Query(advanced, "summary", "@")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Query(succeededJob(model.ScriptCategorization), "", "@")
	assert.True(t, apperrors.IsValidation(err))

	writeArtifact(t, resolver.Base(advanced)+"-summary.json", "{not json")
	_, err = svc.Query(advanced, "summary", "@")
	assert.ErrorContains(t, err, "decode")
}
