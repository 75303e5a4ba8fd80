// Package artifact maps analysis script kinds to the files their runs produce and resolves
// where those files live on disk.
package artifact

import (
	"github.com/target/sensemaker/internal/domain/model"
)

// Layout describes the output files of one script kind. Every output path is the base path
// with one suffix appended; single-file kinds have one empty suffix and a base that already
// carries the extension.
type Layout struct {
	Kind     model.ScriptKind
	prefix   string
	ext      string
	Suffixes []string
}

var layouts = map[model.ScriptKind]Layout{
	model.ScriptCategorization: {
		Kind:     model.ScriptCategorization,
		prefix:   "categorization-output-",
		ext:      ".csv",
		Suffixes: []string{""},
	},
	model.ScriptAdvanced: {
		Kind:   model.ScriptAdvanced,
		prefix: "output-",
		Suffixes: []string{
			"-summary.json",
			"-topic-stats.json",
			"-comments-with-scores.json",
		},
	},
	model.ScriptFull: {
		Kind:   model.ScriptFull,
		prefix: "output-",
		Suffixes: []string{
			"-summary.json",
			"-summary.html",
			"-summary.md",
			"-summaryAndSource.csv",
		},
	},
	model.ScriptHealthCheck: {
		Kind:     model.ScriptHealthCheck,
		prefix:   "health-check-",
		ext:      ".txt",
		Suffixes: []string{""},
	},
	model.ScriptReportBuild: {
		Kind:     model.ScriptReportBuild,
		prefix:   "report-",
		ext:      ".html",
		Suffixes: []string{""},
	},
}

// LayoutFor returns the layout of a script kind.
func LayoutFor(kind model.ScriptKind) (Layout, bool) {
	l, ok := layouts[kind]
	if !ok {
		return Layout{}, false
	}
	l.Suffixes = append([]string(nil), l.Suffixes...)
	return l, true
}

// Multiple reports whether the kind writes more than one file.
func (l Layout) Multiple() bool {
	return len(l.Suffixes) > 1
}

// BaseName is the file name of the default base for a job id.
func (l Layout) BaseName(jobID string) string {
	return l.prefix + jobID + l.ext
}

// Paths appends every suffix to base.
func (l Layout) Paths(base string) []string {
	out := make([]string, 0, len(l.Suffixes))
	for _, s := range l.Suffixes {
		out = append(out, base+s)
	}
	return out
}
