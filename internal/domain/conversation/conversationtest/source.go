// Package conversationtest provides an in-memory core.ContentSource for tests.
package conversationtest

import (
	"context"
	"slices"
	"sync"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
)

type commentKey struct {
	typ model.ResourceType
	id  int64
}

// Source holds fixture records keyed by id. Populate it through the Add* helpers.
// Calls counts lookups per method so tests can assert on query volume. Lookups are safe
// for concurrent use; populate the fixture before sharing it.
type Source struct {
	Debates              map[int64]*model.Debate
	ProposalsByID        map[int64]*model.Proposal
	Polls                map[int64]*model.Poll
	Questions            map[int64]*model.PollQuestion
	Answers              []*model.PollAnswer
	Processes            map[int64]*model.LegislationProcess
	LegislationProposals map[int64]*model.LegislationProposal
	LegislationQuestions map[int64]*model.LegislationQuestion
	LegislationOptions   map[int64]*model.LegislationQuestionOption
	Budgets              map[int64]*model.Budget
	Groups               map[int64]*model.BudgetGroup
	Investments          map[int64]*model.BudgetInvestment
	Topics               map[int64]*model.Topic
	CommentsByTarget     map[commentKey][]*model.Comment

	// Err, when set, is returned by every lookup.
	Err   error
	Calls map[string]int

	mu sync.Mutex
}

var _ core.ContentSource = (*Source)(nil)

// NewSource returns an empty Source.
func NewSource() *Source {
	return &Source{
		Debates:              map[int64]*model.Debate{},
		ProposalsByID:        map[int64]*model.Proposal{},
		Polls:                map[int64]*model.Poll{},
		Questions:            map[int64]*model.PollQuestion{},
		Processes:            map[int64]*model.LegislationProcess{},
		LegislationProposals: map[int64]*model.LegislationProposal{},
		LegislationQuestions: map[int64]*model.LegislationQuestion{},
		LegislationOptions:   map[int64]*model.LegislationQuestionOption{},
		Budgets:              map[int64]*model.Budget{},
		Groups:               map[int64]*model.BudgetGroup{},
		Investments:          map[int64]*model.BudgetInvestment{},
		Topics:               map[int64]*model.Topic{},
		CommentsByTarget:     map[commentKey][]*model.Comment{},
		Calls:                map[string]int{},
	}
}

// AddComment attaches a comment to its commentable.
func (s *Source) AddComment(c *model.Comment) {
	k := commentKey{typ: c.CommentableType, id: c.CommentableID}
	s.CommentsByTarget[k] = append(s.CommentsByTarget[k], c)
}

// AddQuestion registers a poll question. Questions of a poll are returned ordered by id.
func (s *Source) AddQuestion(q *model.PollQuestion) {
	s.Questions[q.ID] = q
}

// AddAnswer registers a poll answer.
func (s *Source) AddAnswer(a *model.PollAnswer) {
	s.Answers = append(s.Answers, a)
}

func (s *Source) count(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls[method]++
}

func lookup[T any](s *Source, method string, m map[int64]*T, id int64, kind string) (*T, error) {
	s.count(method)
	if s.Err != nil {
		return nil, s.Err
	}
	v, ok := m[id]
	if !ok {
		return nil, apperrors.NotFoundf("%s %d not found", kind, id)
	}
	return v, nil
}

func sortedValues[T any](m map[int64]*T) []*T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func (s *Source) Debate(_ context.Context, id int64) (*model.Debate, error) {
	return lookup(s, "Debate", s.Debates, id, "debate")
}

func (s *Source) Proposal(_ context.Context, id int64) (*model.Proposal, error) {
	return lookup(s, "Proposal", s.ProposalsByID, id, "proposal")
}

func (s *Source) Proposals(context.Context) ([]*model.Proposal, error) {
	s.count("Proposals")
	if s.Err != nil {
		return nil, s.Err
	}
	return sortedValues(s.ProposalsByID), nil
}

func (s *Source) Poll(_ context.Context, id int64) (*model.Poll, error) {
	return lookup(s, "Poll", s.Polls, id, "poll")
}

func (s *Source) PollQuestion(_ context.Context, id int64) (*model.PollQuestion, error) {
	return lookup(s, "PollQuestion", s.Questions, id, "poll question")
}

func (s *Source) PollQuestions(_ context.Context, pollID int64) ([]*model.PollQuestion, error) {
	s.count("PollQuestions")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*model.PollQuestion
	for _, q := range sortedValues(s.Questions) {
		if q.PollID == pollID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Source) PollAnswers(_ context.Context, questionIDs []int64) ([]*model.PollAnswer, error) {
	s.count("PollAnswers")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*model.PollAnswer
	for _, a := range s.Answers {
		if slices.Contains(questionIDs, a.QuestionID) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.PollAnswer) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func (s *Source) LegislationProcess(_ context.Context, id int64) (*model.LegislationProcess, error) {
	return lookup(s, "LegislationProcess", s.Processes, id, "legislation process")
}

func (s *Source) LegislationProposal(_ context.Context, id int64) (*model.LegislationProposal, error) {
	return lookup(s, "LegislationProposal", s.LegislationProposals, id, "legislation proposal")
}

func (s *Source) LegislationQuestion(_ context.Context, id int64) (*model.LegislationQuestion, error) {
	return lookup(s, "LegislationQuestion", s.LegislationQuestions, id, "legislation question")
}

func (s *Source) LegislationQuestionOption(
	_ context.Context,
	id int64,
) (*model.LegislationQuestionOption, error) {
	return lookup(s, "LegislationQuestionOption", s.LegislationOptions, id, "legislation question option")
}

func (s *Source) Budget(_ context.Context, id int64) (*model.Budget, error) {
	return lookup(s, "Budget", s.Budgets, id, "budget")
}

func (s *Source) BudgetGroup(_ context.Context, id int64) (*model.BudgetGroup, error) {
	return lookup(s, "BudgetGroup", s.Groups, id, "budget group")
}

func (s *Source) BudgetInvestment(_ context.Context, id int64) (*model.BudgetInvestment, error) {
	return lookup(s, "BudgetInvestment", s.Investments, id, "budget investment")
}

func (s *Source) BudgetInvestments(
	_ context.Context,
	filter model.InvestmentFilter,
) ([]*model.BudgetInvestment, error) {
	s.count("BudgetInvestments")
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*model.BudgetInvestment
	for _, inv := range sortedValues(s.Investments) {
		if filter.BudgetID != 0 && inv.BudgetID != filter.BudgetID {
			continue
		}
		if filter.GroupID != 0 && inv.GroupID != filter.GroupID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *Source) Topic(_ context.Context, id int64) (*model.Topic, error) {
	return lookup(s, "Topic", s.Topics, id, "topic")
}

func (s *Source) Comments(
	_ context.Context,
	commentableType model.ResourceType,
	commentableID int64,
) ([]*model.Comment, error) {
	s.count("Comments")
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.CommentsByTarget[commentKey{typ: commentableType, id: commentableID}]), nil
}
