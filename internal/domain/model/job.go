// Package model defines the core data types shared across the sensemaker job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ScriptKind identifies which external analysis process a job runs and therefore which
// output-file layout applies.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ScriptKind string

const (
	// ScriptCategorization assigns topics to each comment and writes one CSV.
	ScriptCategorization ScriptKind = "categorization"
	// ScriptAdvanced writes summary, topic stats and scored comments as JSON.
	ScriptAdvanced ScriptKind = "advanced"
	// ScriptFull writes the summary as JSON, HTML and Markdown plus a sourced CSV.
	ScriptFull ScriptKind = "full"
	// ScriptHealthCheck verifies the analysis toolchain and writes a text report.
	ScriptHealthCheck ScriptKind = "health-check"
	// ScriptReportBuild renders a standalone HTML report.
	ScriptReportBuild ScriptKind = "report-build"
)

// ErrorCancelled is the error value recorded on operator-cancelled jobs.
const ErrorCancelled = "Cancelled"

// ErrJobAlreadyFinished is returned when cancelling a job that completed on its own.
var ErrJobAlreadyFinished = errors.New("job already finished")

// ScriptKinds returns all known script kinds.
func ScriptKinds() []ScriptKind {
	return []ScriptKind{ScriptCategorization, ScriptAdvanced, ScriptFull, ScriptHealthCheck, ScriptReportBuild}
}

// Valid returns true if the ScriptKind is known.
func (k ScriptKind) Valid() bool {
	switch k {
	case ScriptCategorization, ScriptAdvanced, ScriptFull, ScriptHealthCheck, ScriptReportBuild:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for ScriptKind to allow env and flag parsing.
func (k *ScriptKind) UnmarshalText(text []byte) error {
	v := ScriptKind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid ScriptKind: %q", v)
	}
	*k = v
	return nil
}

// Job tracks one sensemaking run over an analysable resource.
type Job struct {
	ID                string       `json:"id"                         db:"id"`
	AnalysableType    ResourceType `json:"analysable_type"            db:"analysable_type"`
	AnalysableID      *int64       `json:"analysable_id,omitempty"    db:"analysable_id"`
	Script            ScriptKind   `json:"script"                     db:"script"`
	UserID            *int64       `json:"user_id,omitempty"          db:"user_id"`
	ParentJobID       *string      `json:"parent_job_id,omitempty"    db:"parent_job_id"`
	AdditionalContext string       `json:"additional_context"         db:"additional_context"`
	StartedAt         *time.Time   `json:"started_at,omitempty"       db:"started_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"      db:"finished_at"`
	Error             *string      `json:"error,omitempty"            db:"error"`
	Published         bool         `json:"published"                  db:"published"`
	PersistedOutput   *string      `json:"persisted_output,omitempty" db:"persisted_output"`
	CreatedAt         time.Time    `json:"created_at"                 db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"                 db:"updated_at"`
}

// Ref returns the analysed resource reference.
func (j *Job) Ref() ResourceRef {
	return ResourceRef{Type: j.AnalysableType, ID: j.AnalysableID}
}

// Started reports whether execution has begun.
func (j *Job) Started() bool {
	return j.StartedAt != nil
}

// Finished reports whether the run ended, successfully or not.
func (j *Job) Finished() bool {
	return j.FinishedAt != nil
}

// Errored reports whether the run recorded an error, including cancellation.
func (j *Job) Errored() bool {
	return j.Error != nil && *j.Error != ""
}

// Cancelled reports whether the operator cancelled the run.
func (j *Job) Cancelled() bool {
	return j.Error != nil && *j.Error == ErrorCancelled
}

// Succeeded reports whether the run finished without an error.
func (j *Job) Succeeded() bool {
	return j.Finished() && !j.Errored()
}

// Start marks the beginning of execution.
func (j *Job) Start(now time.Time) {
	t := now
	j.StartedAt = &t
}

// Finish records the end of execution. A non-empty errMsg marks the run as failed.
func (j *Job) Finish(now time.Time, errMsg string) {
	t := now
	j.FinishedAt = &t
	if errMsg == "" {
		j.Error = nil
		return
	}
	msg := errMsg
	j.Error = &msg
}

// Cancel marks the job cancelled. Cancelling a cancelled job is a no-op; cancelling a job
// that already finished for another reason returns ErrJobAlreadyFinished.
func (j *Job) Cancel(now time.Time) error {
	if j.Cancelled() {
		return nil
	}
	if j.Finished() {
		return ErrJobAlreadyFinished
	}
	j.Finish(now, ErrorCancelled)
	return nil
}

// Validate checks the record-level invariants.
func (j *Job) Validate() error {
	if !j.AnalysableType.Valid() {
		return fmt.Errorf("invalid analysable type %q", j.AnalysableType)
	}
	if j.AnalysableID == nil && j.AnalysableType.RequiresID() {
		return errors.New("analysable_id is required")
	}
	if !j.Script.Valid() {
		return fmt.Errorf("invalid script %q", j.Script)
	}
	if j.ParentJobID != nil && *j.ParentJobID == j.ID && j.ID != "" {
		return errors.New("job cannot be its own parent")
	}
	return nil
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	AnalysableType    ResourceType `json:"analysable_type"`
	AnalysableID      *int64       `json:"analysable_id,omitempty"`
	Script            ScriptKind   `json:"script"`
	UserID            *int64       `json:"user_id,omitempty"`
	ParentJobID       *string      `json:"parent_job_id,omitempty"`
	AdditionalContext string       `json:"additional_context,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	j := Job{
		AnalysableType: r.AnalysableType,
		AnalysableID:   r.AnalysableID,
		Script:         r.Script,
		ParentJobID:    r.ParentJobID,
	}
	return j.Validate()
}

// JobListOptions filters job listings.
type JobListOptions struct {
	AnalysableType ResourceType
	AnalysableID   *int64
	Script         ScriptKind
	RootsOnly      bool // only jobs without a parent
	Limit          int
	Offset         int
}
