package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/target/sensemaker/internal/domain/model"
)

// UnfilteredSuffix is appended to an input CSV to name its pre-filter backup.
const UnfilteredSuffix = ".unfiltered"

// Resolver resolves artifact paths for jobs against an explicit application root and data
// folder. Relative data folders are interpreted against the application root.
type Resolver struct {
	appRoot    string
	dataFolder string
}

// NewResolver builds a Resolver. appRoot defaults to the working directory when empty.
func NewResolver(appRoot, dataFolder string) *Resolver {
	if appRoot == "" {
		appRoot = "."
	}
	root := filepath.Clean(appRoot)
	data := filepath.Clean(dataFolder)
	if !filepath.IsAbs(data) {
		data = filepath.Join(root, data)
	}
	return &Resolver{appRoot: root, dataFolder: data}
}

// AppRoot returns the application root.
func (r *Resolver) AppRoot() string {
	return r.appRoot
}

// DataFolder returns the folder holding input and output files for this deployment.
func (r *Resolver) DataFolder() string {
	return r.dataFolder
}

// InputPath is the CSV handed to the external analysis process.
func (r *Resolver) InputPath(job *model.Job) string {
	return filepath.Join(r.dataFolder, "input-"+job.ID+".csv")
}

// UnfilteredInputPath is the backup written when the zero-vote filter removed rows.
func (r *Resolver) UnfilteredInputPath(job *model.Job) string {
	return r.InputPath(job) + UnfilteredSuffix
}

// ContextPath is the compiled context text handed to the external analysis process.
func (r *Resolver) ContextPath(job *model.Job) string {
	return filepath.Join(r.dataFolder, "context-"+job.ID+".txt")
}

// DefaultBase is the computed base under the current data folder, ignoring persisted_output.
func (r *Resolver) DefaultBase(job *model.Job) string {
	l, ok := LayoutFor(job.Script)
	if !ok {
		return ""
	}
	return filepath.Join(r.dataFolder, l.BaseName(job.ID))
}

// PersistedPath resolves the job's persisted_output against the application root. Absolute
// stored values are used as-is. Returns "" when unset.
func (r *Resolver) PersistedPath(job *model.Job) string {
	if job.PersistedOutput == nil || strings.TrimSpace(*job.PersistedOutput) == "" {
		return ""
	}
	p := *job.PersistedOutput
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.appRoot, p)
}

// Base returns the persisted base when set, else the default base.
func (r *Resolver) Base(job *model.Job) string {
	if p := r.PersistedPath(job); p != "" {
		return p
	}
	return r.DefaultBase(job)
}

// OutputPaths lists every expected output file of the job. Unknown script kinds have none.
func (r *Resolver) OutputPaths(job *model.Job) []string {
	l, ok := LayoutFor(job.Script)
	if !ok {
		return nil
	}
	return l.Paths(r.Base(job))
}

// DefaultOutputPaths lists the outputs under the default base, ignoring persisted_output.
func (r *Resolver) DefaultOutputPaths(job *model.Job) []string {
	l, ok := LayoutFor(job.Script)
	if !ok {
		return nil
	}
	return l.Paths(r.DefaultBase(job))
}

// HasOutputs reports whether every expected output file exists.
func (r *Resolver) HasOutputs(job *model.Job) bool {
	paths := r.OutputPaths(job)
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// RelativeOutputPath expresses the default base relative to the application root, so it stays
// valid when the application is redeployed under a different root.
func (r *Resolver) RelativeOutputPath(job *model.Job) (string, error) {
	base := r.DefaultBase(job)
	if base == "" {
		return "", fmt.Errorf("no output layout for script %q", job.Script)
	}
	rootAbs, err := filepath.Abs(r.appRoot)
	if err != nil {
		return "", fmt.Errorf("resolve app root: %w", err)
	}
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve output base: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, baseAbs)
	if err != nil {
		return "", fmt.Errorf("relativize output base: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// ContentType maps an artifact file name to the media type it is served with.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return "text/html"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
