// Package core declares the ports between the sensemaker services and their adapters.
package core

import (
	"context"
	"time"

	"github.com/target/sensemaker/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on the Postgres or Redis adapters.

// JobRepository persists sensemaker job records.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) (*model.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
	// ListChildren returns jobs whose parent_job_id is parentID.
	ListChildren(ctx context.Context, parentID string) ([]*model.Job, error)
}

// ContentSource is the read-only view of the participation platform's records.
// Lookups of missing rows return a not_found AppError.
type ContentSource interface {
	Debate(ctx context.Context, id int64) (*model.Debate, error)
	Proposal(ctx context.Context, id int64) (*model.Proposal, error)
	// Proposals returns every proposal eligible for the site-wide aggregate, ordered by id.
	Proposals(ctx context.Context) ([]*model.Proposal, error)
	Poll(ctx context.Context, id int64) (*model.Poll, error)
	PollQuestion(ctx context.Context, id int64) (*model.PollQuestion, error)
	// PollQuestions returns the poll's questions in display order, options included.
	PollQuestions(ctx context.Context, pollID int64) ([]*model.PollQuestion, error)
	// PollAnswers returns the answers to the given questions ordered by id.
	PollAnswers(ctx context.Context, questionIDs []int64) ([]*model.PollAnswer, error)
	LegislationProcess(ctx context.Context, id int64) (*model.LegislationProcess, error)
	LegislationProposal(ctx context.Context, id int64) (*model.LegislationProposal, error)
	LegislationQuestion(ctx context.Context, id int64) (*model.LegislationQuestion, error)
	LegislationQuestionOption(ctx context.Context, id int64) (*model.LegislationQuestionOption, error)
	Budget(ctx context.Context, id int64) (*model.Budget, error)
	BudgetGroup(ctx context.Context, id int64) (*model.BudgetGroup, error)
	BudgetInvestment(ctx context.Context, id int64) (*model.BudgetInvestment, error)
	// BudgetInvestments returns the investments matching filter, ordered by id.
	BudgetInvestments(ctx context.Context, filter model.InvestmentFilter) ([]*model.BudgetInvestment, error)
	Topic(ctx context.Context, id int64) (*model.Topic, error)
	// Comments returns the comments of a commentable ordered by id, hidden ones included
	// and flagged.
	Comments(ctx context.Context, commentableType model.ResourceType, commentableID int64) ([]*model.Comment, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteMatching removes every key matching a glob pattern and returns the count.
	DeleteMatching(ctx context.Context, pattern string) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
