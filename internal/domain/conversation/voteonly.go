package conversation

import (
	"context"
	"fmt"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/model"
	"github.com/target/sensemaker/internal/sanitize"
)

// votePadding is added to recorded supports so every synthetic comment has nonzero weight.
const votePadding = 1

// voteOnlyComment turns a record that only carries supports into a synthetic comment.
// Body is "<title> - <description>", dropping the separator when the description is empty.
func voteOnlyComment(id int64, title, description string, authorID *int64, votes int) model.NormalizedComment {
	padded := votes + votePadding
	return model.NormalizedComment{
		ID:               formatID(id),
		Body:             joinTitle(title, description),
		UserID:           authorID,
		CachedVotesUp:    padded,
		CachedVotesTotal: padded,
	}
}

func joinTitle(title, description string) string {
	t := sanitize.Text(title)
	d := sanitize.Text(description)
	switch {
	case d == "":
		return t
	case t == "":
		return d
	default:
		return t + " - " + d
	}
}

type proposalsAggregate struct {
	noAppendix
}

func (proposalsAggregate) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	proposals, err := src.Proposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	out := make([]model.NormalizedComment, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, voteOnlyComment(p.ID, p.Title, p.Description, p.AuthorID, p.CachedVotesUp))
	}
	return out, nil
}

func (proposalsAggregate) describe(h *header) {
	h.section("Proposals Overview")
	h.line("This analysis covers every citizen proposal on the platform.")
	h.line("Each proposal is treated as a comment whose agreement is its number of supports.")
}

func investmentComments(
	ctx context.Context,
	src core.ContentSource,
	filter model.InvestmentFilter,
) ([]model.NormalizedComment, error) {
	investments, err := src.BudgetInvestments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load budget investments: %w", err)
	}
	out := make([]model.NormalizedComment, 0, len(investments))
	for _, inv := range investments {
		out = append(out, voteOnlyComment(inv.ID, inv.Title, inv.Description, inv.AuthorID, inv.CachedVotesUp))
	}
	return out, nil
}

type budgetSubject struct {
	noAppendix
	budget *model.Budget
}

func (s budgetSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return investmentComments(ctx, src, model.InvestmentFilter{BudgetID: s.budget.ID})
}

func (s budgetSubject) describe(h *header) {
	h.section("Budget Information")
	h.line("This participatory budget collects investment projects supported by residents.")
	h.line("Each investment is treated as a comment whose agreement is its number of supports.")
	h.field("Name", s.budget.Name)
	h.field("Description", s.budget.Description)
}

type budgetGroupSubject struct {
	noAppendix
	group *model.BudgetGroup
}

func (s budgetGroupSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	return investmentComments(ctx, src, model.InvestmentFilter{BudgetID: s.group.BudgetID, GroupID: s.group.ID})
}

func (s budgetGroupSubject) describe(h *header) {
	h.section("Budget Group Information")
	h.line("This group is part of the participatory budget '%s'.", sanitize.Text(s.group.BudgetName))
	h.line("Each investment is treated as a comment whose agreement is its number of supports.")
	h.field("Name", s.group.Name)
}
