// Package conversation normalizes analysable resources into one uniform comment stream and a
// descriptive context header for the external analysis process.
//
// Each supported resource type maps to exactly one subject variant. The variant is chosen
// when the Conversation is built, so unsupported types and invalid direct access fail before
// any comments are read.
package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/sanitize"
)

// subject is implemented by every resource variant.
type subject interface {
	comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error)
	// describe writes the resource-specific sections that precede the comment count.
	describe(h *header)
	// appendix writes sections that follow the comment count.
	appendix(ctx context.Context, src core.ContentSource, h *header) error
}

// Conversation is a compiled view of one analysable resource.
type Conversation struct {
	ref     model.ResourceRef
	src     core.ContentSource
	subject subject
}

// New resolves ref into its variant, loading the root record from src.
func New(ctx context.Context, src core.ContentSource, ref model.ResourceRef) (*Conversation, error) {
	if !ref.Type.Valid() {
		return nil, apperrors.UnrecognizedResource(string(ref.Type))
	}
	if ref.ID == nil && ref.Type.RequiresID() {
		return nil, apperrors.ValidationField("analysable_id", fmt.Sprintf("%s requires an id", ref.Type))
	}

	s, err := load(ctx, src, ref)
	if err != nil {
		return nil, err
	}
	return &Conversation{ref: ref, src: src, subject: s}, nil
}

// Comments is a convenience wrapper around New and Conversation.Comments.
func Comments(ctx context.Context, src core.ContentSource, ref model.ResourceRef) ([]model.NormalizedComment, error) {
	c, err := New(ctx, src, ref)
	if err != nil {
		return nil, err
	}
	return c.Comments(ctx)
}

// CompileContext is a convenience wrapper around New and Conversation.CompileContext.
func CompileContext(ctx context.Context, src core.ContentSource, ref model.ResourceRef) (string, error) {
	c, err := New(ctx, src, ref)
	if err != nil {
		return "", err
	}
	return c.CompileContext(ctx)
}

// Ref returns the resource the conversation was built for.
func (c *Conversation) Ref() model.ResourceRef {
	return c.ref
}

// Comments returns the normalized comment stream, freshly read from the source.
func (c *Conversation) Comments(ctx context.Context) ([]model.NormalizedComment, error) {
	out, err := c.subject.comments(ctx, c.src)
	if err != nil {
		return nil, fmt.Errorf("comments for %s: %w", c.ref, err)
	}
	return out, nil
}

// CompileContext renders the context header: the resource description, the comment count and
// any trailing response sections.
func (c *Conversation) CompileContext(ctx context.Context) (string, error) {
	comments, err := c.Comments(ctx)
	if err != nil {
		return "", err
	}
	return c.Render(ctx, comments)
}

// Render writes the context header around comments, which must be this conversation's own
// stream. The count line is len(comments).
func (c *Conversation) Render(ctx context.Context, comments []model.NormalizedComment) (string, error) {
	h := &header{}
	c.subject.describe(h)
	h.line("- Comments: %d", len(comments))
	if err := c.subject.appendix(ctx, c.src, h); err != nil {
		return "", fmt.Errorf("context for %s: %w", c.ref, err)
	}
	return h.String(), nil
}

func load(ctx context.Context, src core.ContentSource, ref model.ResourceRef) (subject, error) {
	if ref.Aggregate() {
		return proposalsAggregate{}, nil
	}
	id := ref.IDValue()

	switch ref.Type {
	case model.ResourceDebate:
		d, err := src.Debate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load debate %d: %w", id, err)
		}
		return debateSubject{debate: d}, nil
	case model.ResourceProposal:
		p, err := src.Proposal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load proposal %d: %w", id, err)
		}
		return proposalSubject{proposal: p}, nil
	case model.ResourcePoll:
		return loadPoll(ctx, src, id)
	case model.ResourcePollQuestion:
		return loadPollQuestion(ctx, src, id)
	case model.ResourceLegislationProposal:
		p, err := src.LegislationProposal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load legislation proposal %d: %w", id, err)
		}
		return legislationProposalSubject{proposal: p}, nil
	case model.ResourceLegislationQuestion:
		q, err := src.LegislationQuestion(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load legislation question %d: %w", id, err)
		}
		return legislationQuestionSubject{question: q}, nil
	case model.ResourceLegislationQuestionOption:
		o, err := src.LegislationQuestionOption(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load legislation question option %d: %w", id, err)
		}
		return legislationOptionSubject{option: o}, nil
	case model.ResourceBudget:
		b, err := src.Budget(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load budget %d: %w", id, err)
		}
		return budgetSubject{budget: b}, nil
	case model.ResourceBudgetGroup:
		g, err := src.BudgetGroup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load budget group %d: %w", id, err)
		}
		return budgetGroupSubject{group: g}, nil
	case model.ResourceBudgetInvestment:
		inv, err := src.BudgetInvestment(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load budget investment %d: %w", id, err)
		}
		return investmentSubject{investment: inv}, nil
	case model.ResourceTopic:
		t, err := src.Topic(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load topic %d: %w", id, err)
		}
		return topicSubject{topic: t}, nil
	default:
		return nil, apperrors.UnrecognizedResource(string(ref.Type))
	}
}

// header accumulates context text. Free text passed to field is sanitized.
type header struct {
	b strings.Builder
}

func (h *header) section(title string) {
	if h.b.Len() > 0 {
		h.b.WriteString("\n")
	}
	h.b.WriteString("### ")
	h.b.WriteString(title)
	h.b.WriteString("\n")
}

func (h *header) line(format string, args ...any) {
	fmt.Fprintf(&h.b, format, args...)
	h.b.WriteString("\n")
}

func (h *header) field(name, value string) {
	if v := sanitize.Text(value); v != "" {
		h.line("- %s: %s", name, v)
	}
}

func (h *header) String() string {
	return h.b.String()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
