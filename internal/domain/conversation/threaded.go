package conversation

import (
	"context"
	"fmt"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/sanitize"
)

// threadedComments returns the visible comments of a commentable with their recorded votes.
func threadedComments(
	ctx context.Context,
	src core.ContentSource,
	typ model.ResourceType,
	id int64,
) ([]model.NormalizedComment, error) {
	rows, err := src.Comments(ctx, typ, id)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	out := make([]model.NormalizedComment, 0, len(rows))
	for _, c := range rows {
		if c.Hidden {
			continue
		}
		out = append(out, model.NormalizedComment{
			ID:               formatID(c.ID),
			Body:             sanitize.Text(c.Body),
			UserID:           c.UserID,
			CachedVotesUp:    c.CachedVotesUp,
			CachedVotesDown:  c.CachedVotesDown,
			CachedVotesTotal: c.CachedVotesTotal,
		})
	}
	return out, nil
}

// noAppendix is embedded by subjects without trailing sections.
type noAppendix struct{}

func (noAppendix) appendix(context.Context, core.ContentSource, *header) error { return nil }

type debateSubject struct {
	noAppendix
	debate *model.Debate
}

func (s debateSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceDebate, s.debate.ID)
}

func (s debateSubject) describe(h *header) {
	h.section("Debate Information")
	h.line("This debate has %d votes for and %d against.", s.debate.CachedVotesUp, s.debate.CachedVotesDown)
	h.field("Title", s.debate.Title)
	h.field("Description", s.debate.Description)
}

type proposalSubject struct {
	noAppendix
	proposal *model.Proposal
}

func (s proposalSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceProposal, s.proposal.ID)
}

func (s proposalSubject) describe(h *header) {
	h.section("Proposal Information")
	h.line("This proposal has %d votes out of %d required.", s.proposal.CachedVotesUp, s.proposal.VotesRequired)
	h.field("Title", s.proposal.Title)
	h.field("Summary", s.proposal.Summary)
	h.field("Description", s.proposal.Description)
}

type legislationProposalSubject struct {
	noAppendix
	proposal *model.LegislationProposal
}

func (s legislationProposalSubject) comments(
	ctx context.Context,
	src core.ContentSource,
) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceLegislationProposal, s.proposal.ID)
}

func (s legislationProposalSubject) describe(h *header) {
	h.section("Proposal Information")
	h.line("This proposal is part of the legislation process, '%s'.", sanitize.Text(s.proposal.ProcessTitle))
	h.line("It has %d votes for and %d against.", s.proposal.CachedVotesUp, s.proposal.CachedVotesDown)
	h.field("Title", s.proposal.Title)
	h.field("Summary", s.proposal.Summary)
	h.field("Description", s.proposal.Description)
}

type legislationQuestionSubject struct {
	question *model.LegislationQuestion
}

func (s legislationQuestionSubject) comments(
	ctx context.Context,
	src core.ContentSource,
) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceLegislationQuestion, s.question.ID)
}

func (s legislationQuestionSubject) describe(h *header) {
	h.section("Question Information")
	h.line("This question is part of the legislation process, '%s'.", sanitize.Text(s.question.ProcessTitle))
	h.field("Question", s.question.Title)
}

// appendix lists the options that received answers; the block is omitted when none did.
func (s legislationQuestionSubject) appendix(_ context.Context, _ core.ContentSource, h *header) error {
	started := false
	for _, o := range s.question.Options {
		if o.AnswersCount <= 0 {
			continue
		}
		if !started {
			h.section("Debate Responses")
			started = true
		}
		h.line("- %s", sanitize.Text(o.Value))
	}
	return nil
}

type legislationOptionSubject struct {
	noAppendix
	option *model.LegislationQuestionOption
}

func (s legislationOptionSubject) comments(
	ctx context.Context,
	src core.ContentSource,
) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceLegislationQuestionOption, s.option.ID)
}

func (s legislationOptionSubject) describe(h *header) {
	h.section("Response Option Information")
	h.line("This is a response to the question '%s', chosen by %d participants.",
		sanitize.Text(s.option.QuestionTitle), s.option.AnswersCount)
	h.field("Response", s.option.Value)
}

type investmentSubject struct {
	noAppendix
	investment *model.BudgetInvestment
}

func (s investmentSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceBudgetInvestment, s.investment.ID)
}

func (s investmentSubject) describe(h *header) {
	h.section("Budget Investment Information")
	h.line("This investment has %d supports.", s.investment.CachedVotesUp)
	h.field("Title", s.investment.Title)
	h.field("Description", s.investment.Description)
}

type topicSubject struct {
	noAppendix
	topic *model.Topic
}

func (s topicSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return threadedComments(ctx, src, model.ResourceTopic, s.topic.ID)
}

func (s topicSubject) describe(h *header) {
	h.section("Topic Information")
	h.field("Title", s.topic.Title)
	h.field("Description", s.topic.Description)
}
