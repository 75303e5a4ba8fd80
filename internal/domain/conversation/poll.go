package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
	"github.com/target/sensemaker/internal/sanitize"
)

// answerWeight is the vote weight given to synthesized poll comments, which carry no votes.
const answerWeight = 1

func loadPoll(ctx context.Context, src core.ContentSource, id int64) (subject, error) {
	poll, err := src.Poll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load poll %d: %w", id, err)
	}
	questions, err := src.PollQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load poll %d questions: %w", id, err)
	}
	return pollSubject{poll: poll, questions: questions}, nil
}

func loadPollQuestion(ctx context.Context, src core.ContentSource, id int64) (subject, error) {
	q, err := src.PollQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load poll question %d: %w", id, err)
	}
	if !q.OpenEnded() {
		return nil, apperrors.OpenEndedOnly(id)
	}
	poll, err := src.Poll(ctx, q.PollID)
	if err != nil {
		return nil, fmt.Errorf("load poll %d: %w", q.PollID, err)
	}
	return pollQuestionSubject{poll: poll, question: q}, nil
}

type pollSubject struct {
	poll      *model.Poll
	questions []*model.PollQuestion
}

func (s pollSubject) hasOpenQuestion() bool {
	return slices.ContainsFunc(s.questions, (*model.PollQuestion).OpenEnded)
}

func (s pollSubject) questionIDs() []int64 {
	ids := make([]int64, 0, len(s.questions))
	for _, q := range s.questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// comments uses the poll's comment thread unless a question is open-ended, in which case each
// respondent becomes one comment summarizing all of their answers.
func (s pollSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	if !s.hasOpenQuestion() {
		return threadedComments(ctx, src, model.ResourcePoll, s.poll.ID)
	}
	answers, err := src.PollAnswers(ctx, s.questionIDs())
	if err != nil {
		return nil, fmt.Errorf("load poll answers: %w", err)
	}
	return respondentComments(s.questions, answers), nil
}

func (s pollSubject) describe(h *header) {
	h.section("Poll Information")
	h.line("This poll has %d questions.", len(s.questions))
	h.field("Name", s.poll.Name)
	h.field("Summary", s.poll.Summary)
	h.field("Description", s.poll.Description)
}

func (s pollSubject) appendix(ctx context.Context, src core.ContentSource, h *header) error {
	if len(s.questions) == 0 {
		return nil
	}
	answers, err := src.PollAnswers(ctx, s.questionIDs())
	if err != nil {
		return fmt.Errorf("load poll answers: %w", err)
	}
	byQuestion := make(map[int64][]string, len(s.questions))
	for _, a := range answers {
		if text := sanitize.Text(a.Answer); text != "" {
			byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], text)
		}
	}

	h.section("Questions and Responses")
	for i, q := range s.questions {
		given := byQuestion[q.ID]
		if q.OpenEnded() {
			h.line("Q%d: %s (open-ended)", i+1, sanitize.Text(q.Title))
			h.line("- %d written responses", len(given))
			continue
		}
		h.line("Q%d: %s", i+1, sanitize.Text(q.Title))
		counts := make(map[string]int, len(given))
		for _, g := range given {
			counts[g]++
		}
		for _, option := range orderByOptions(q, distinct(given)) {
			h.line("- %s (%d)", option, counts[option])
		}
	}
	return nil
}

// respondentComments builds one comment per respondent, ordered by respondent id. The body
// joins "Q<n>: <answer>" segments with " | " for the questions the respondent answered.
func respondentComments(questions []*model.PollQuestion, answers []*model.PollAnswer) []model.NormalizedComment {
	given := make(map[int64]map[int64][]string)
	for _, a := range answers {
		text := sanitize.Text(a.Answer)
		if text == "" {
			continue
		}
		if given[a.AuthorID] == nil {
			given[a.AuthorID] = make(map[int64][]string)
		}
		given[a.AuthorID][a.QuestionID] = append(given[a.AuthorID][a.QuestionID], text)
	}

	authors := make([]int64, 0, len(given))
	for id := range given {
		authors = append(authors, id)
	}
	slices.Sort(authors)

	out := make([]model.NormalizedComment, 0, len(authors))
	for _, author := range authors {
		var segments []string
		for i, q := range questions {
			values := given[author][q.ID]
			if len(values) == 0 {
				continue
			}
			if !q.OpenEnded() {
				values = orderByOptions(q, values)
			}
			segments = append(segments, fmt.Sprintf("Q%d: %s", i+1, strings.Join(values, ", ")))
		}
		if len(segments) == 0 {
			continue
		}
		authorID := author
		out = append(out, model.NormalizedComment{
			ID:               "u_" + formatID(author),
			Body:             strings.Join(segments, " | "),
			UserID:           &authorID,
			CachedVotesUp:    answerWeight,
			CachedVotesTotal: answerWeight,
		})
	}
	return out
}

// orderByOptions sorts chosen option titles by the question's option order. Titles that no
// longer match an option keep their relative order after the known ones.
func orderByOptions(q *model.PollQuestion, chosen []string) []string {
	rank := make(map[string]int, len(q.Options))
	for i, o := range q.Options {
		rank[sanitize.Text(o.Title)] = i
	}
	out := slices.Clone(chosen)
	slices.SortStableFunc(out, func(a, b string) int {
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

type pollQuestionSubject struct {
	noAppendix
	poll     *model.Poll
	question *model.PollQuestion
}

// comments returns one comment per written answer, identified as "a_<answer-id>". Bodies
// keep the answer text as written.
func (s pollQuestionSubject) comments(ctx context.Context, src core.ContentSource) ([]model.NormalizedComment, error) {
	answers, err := src.PollAnswers(ctx, []int64{s.question.ID})
	if err != nil {
		return nil, fmt.Errorf("load poll answers: %w", err)
	}
	out := make([]model.NormalizedComment, 0, len(answers))
	for _, a := range answers {
		if a.QuestionID != s.question.ID {
			continue
		}
		authorID := a.AuthorID
		out = append(out, model.NormalizedComment{
			ID:               "a_" + formatID(a.ID),
			Body:             a.Answer,
			UserID:           &authorID,
			CachedVotesUp:    answerWeight,
			CachedVotesTotal: answerWeight,
		})
	}
	return out, nil
}

func (s pollQuestionSubject) describe(h *header) {
	h.section("Poll Question Information")
	h.line("This is an open-ended question from the poll '%s'.", sanitize.Text(s.poll.Name))
	h.field("Question", s.question.Title)
}
