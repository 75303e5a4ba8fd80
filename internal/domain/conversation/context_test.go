package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/domain/conversation/conversationtest"
	"github.com/target/sensemaker/internal/domain/model"
)

func TestCompileContext_Debate(t *testing.T) {
	src := conversationtest.NewSource()
	src.Debates[1] = &model.Debate{
		ID: 1, Title: "Night buses", Description: "<p>Should <em>night</em> buses run every 15&nbsp;minutes?</p>",
		CachedVotesUp: 12, CachedVotesDown: 3,
	}
	src.AddComment(&model.Comment{ID: 1, CommentableType: model.ResourceDebate, CommentableID: 1, Body: "yes"})
	src.AddComment(&model.Comment{ID: 2, CommentableType: model.ResourceDebate, CommentableID: 1, Body: "no", Hidden: true})

	got, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceDebate, 1))
	require.NoError(t, err)

	want := "### Debate Information\n" +
		"This debate has 12 votes for and 3 against.\n" +
		"- Title: Night buses\n" +
		"- Description: Should night buses run every 15 minutes?\n" +
		"- Comments: 1\n"
	assert.Equal(t, want, got)
}

func TestCompileContext_ProposalSkipsEmptyFields(t *testing.T) {
	src := conversationtest.NewSource()
	src.ProposalsByID[3] = &model.Proposal{ID: 3, Title: "Trees", CachedVotesUp: 40, VotesRequired: 100}

	got, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceProposal, 3))
	require.NoError(t, err)
	assert.Contains(t, got, "This proposal has 40 votes out of 100 required.\n")
	assert.Contains(t, got, "- Title: Trees\n")
	assert.NotContains(t, got, "- Summary:")
	assert.NotContains(t, got, "- Description:")
	assert.Contains(t, got, "- Comments: 0\n")
}

func TestCompileContext_LegislationQuestionResponses(t *testing.T) {
	src := conversationtest.NewSource()
	src.LegislationQuestions[5] = &model.LegislationQuestion{
		ID: 5, ProcessTitle: "Mobility law", Title: "Should speed limits drop?",
		Options: []model.LegislationQuestionOption{
			{ID: 1, Value: "Yes", AnswersCount: 4},
			{ID: 2, Value: "<b>No</b>", AnswersCount: 1},
			{ID: 3, Value: "Undecided"},
		},
	}
	src.LegislationQuestions[6] = &model.LegislationQuestion{ID: 6, ProcessTitle: "Mobility law", Title: "Open remarks"}
	src.LegislationQuestions[7] = &model.LegislationQuestion{
		ID: 7, ProcessTitle: "Mobility law", Title: "Unanswered",
		Options: []model.LegislationQuestionOption{{ID: 4, Value: "Maybe"}},
	}

	withOptions, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceLegislationQuestion, 5))
	require.NoError(t, err)
	assert.Contains(t, withOptions, "This question is part of the legislation process, 'Mobility law'.\n")
	assert.Contains(t, withOptions, "- Comments: 0\n\n### Debate Responses\n- Yes\n- No\n")
	assert.NotContains(t, withOptions, "Undecided")

	without, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceLegislationQuestion, 6))
	require.NoError(t, err)
	assert.NotContains(t, without, "Debate Responses")

	unanswered, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceLegislationQuestion, 7))
	require.NoError(t, err)
	assert.NotContains(t, unanswered, "Debate Responses")
}

func TestCompileContext_PollResponses(t *testing.T) {
	src := pollFixture()
	src.AddAnswer(&model.PollAnswer{ID: 1003, QuestionID: 10, AuthorID: 2, Answer: "Casa de Campo"})
	src.AddAnswer(&model.PollAnswer{ID: 1004, QuestionID: 10, AuthorID: 4, Answer: "Retiro"})

	got, err := CompileContext(context.Background(), src, model.NewRef(model.ResourcePoll, 1))
	require.NoError(t, err)

	want := "### Poll Information\n" +
		"This poll has 2 questions.\n" +
		"- Name: Parks survey\n" +
		"- Description: Tell us about parks\n" +
		"- Comments: 3\n" +
		"\n" +
		"### Questions and Responses\n" +
		"Q1: Favourite park?\n" +
		"- Retiro (2)\n" +
		"- Casa de Campo (1)\n" +
		"Q2: What should improve? (open-ended)\n" +
		"- 2 written responses\n"
	assert.Equal(t, want, got)
}

func TestCompileContext_PollQuestion(t *testing.T) {
	src := pollFixture()

	got, err := CompileContext(context.Background(), src, model.NewRef(model.ResourcePollQuestion, 11))
	require.NoError(t, err)
	assert.Equal(t,
		"### Poll Question Information\n"+
			"This is an open-ended question from the poll 'Parks survey'.\n"+
			"- Question: What should improve?\n"+
			"- Comments: 2\n",
		got)
}

func TestCompileContext_VoteOnly(t *testing.T) {
	src := conversationtest.NewSource()
	src.ProposalsByID[1] = &model.Proposal{ID: 1, Title: "A"}
	src.ProposalsByID[2] = &model.Proposal{ID: 2, Title: "B"}
	src.Budgets[1] = &model.Budget{ID: 1, Name: "Budget <i>2025</i>"}
	src.Groups[2] = &model.BudgetGroup{ID: 2, BudgetID: 1, BudgetName: "Budget 2025", Name: "City"}
	src.Investments[9] = &model.BudgetInvestment{ID: 9, BudgetID: 1, GroupID: 2, Title: "Library"}

	aggregate, err := CompileContext(context.Background(), src, model.ResourceRef{Type: model.ResourceProposal})
	require.NoError(t, err)
	assert.Contains(t, aggregate, "### Proposals Overview\n")
	assert.Contains(t, aggregate, "- Comments: 2\n")

	budget, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceBudget, 1))
	require.NoError(t, err)
	assert.Contains(t, budget, "- Name: Budget 2025\n")
	assert.Contains(t, budget, "- Comments: 1\n")

	group, err := CompileContext(context.Background(), src, model.NewRef(model.ResourceBudgetGroup, 2))
	require.NoError(t, err)
	assert.Contains(t, group, "This group is part of the participatory budget 'Budget 2025'.\n")
	assert.Contains(t, group, "- Name: City\n")
}

func TestConversation_Reusable(t *testing.T) {
	src := conversationtest.NewSource()
	src.Topics[1] = &model.Topic{ID: 1, Title: "Parks"}
	ref := model.NewRef(model.ResourceTopic, 1)

	c, err := New(context.Background(), src, ref)
	require.NoError(t, err)
	assert.Equal(t, ref, c.Ref())

	first, err := c.Comments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first)

	src.AddComment(&model.Comment{ID: 5, CommentableType: model.ResourceTopic, CommentableID: 1, Body: "late"})
	second, err := c.Comments(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1, "comments are re-read on every call")
	assert.Equal(t, 2, src.Calls["Comments"])
}

func TestConversation_RenderCountsGivenComments(t *testing.T) {
	src := conversationtest.NewSource()
	src.Topics[1] = &model.Topic{ID: 1, Title: "Parks"}
	src.AddComment(&model.Comment{ID: 5, CommentableType: model.ResourceTopic, CommentableID: 1, Body: "more trees"})

	c, err := New(context.Background(), src, model.NewRef(model.ResourceTopic, 1))
	require.NoError(t, err)
	comments, err := c.Comments(context.Background())
	require.NoError(t, err)

	src.AddComment(&model.Comment{ID: 6, CommentableType: model.ResourceTopic, CommentableID: 1, Body: "benches"})
	got, err := c.Render(context.Background(), comments)
	require.NoError(t, err)
	assert.Contains(t, got, "- Comments: 1\n")
	assert.Equal(t, 1, src.Calls["Comments"])
}
