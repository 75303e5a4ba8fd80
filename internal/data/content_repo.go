package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/data/pgxutil"
	"github.com/target/sensemaker/internal/domain/model"
	apperrors "github.com/target/sensemaker/internal/errors"
)

// Poll question vote types as stored in votation_types.vote_type.
const (
	voteTypeUnique   = 0
	voteTypeMultiple = 1
	voteTypeOpen     = 2
)

const defaultVotesForProposalSuccess = 10000

// ContentRepo reads the participation platform's tables. It never writes.
//
// Translated columns are taken from the Locale translation when present, otherwise from
// the first available translation.
type ContentRepo struct {
	DB     *sql.DB
	Locale string
}

var _ core.ContentSource = (*ContentRepo)(nil)

// NewContentRepo creates a ContentRepo reading translations in locale.
func NewContentRepo(db *sql.DB, locale string) *ContentRepo {
	if locale == "" {
		locale = "en"
	}
	return &ContentRepo{DB: db, Locale: locale}
}

// translated returns a lateral join selecting one translation row for the parent alias,
// preferring the locale bound at $1.
func translated(table, fk, parent, alias string) string {
	return fmt.Sprintf(`LEFT JOIN LATERAL (
		SELECT * FROM %[1]s tr WHERE tr.%[2]s = %[3]s.id
		ORDER BY (tr.locale = $1) DESC, tr.locale
		LIMIT 1
	) %[4]s ON TRUE`, table, fk, parent, alias)
}

func notFound(kind string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundf("%s %d not found", kind, id)
	}
	return fmt.Errorf("load %s %d: %w", kind, id, apperrors.MapDBError(err))
}

func (r *ContentRepo) Debate(ctx context.Context, id int64) (*model.Debate, error) {
	var d model.Debate
	err := r.DB.QueryRowContext(ctx, `
		SELECT d.id, COALESCE(t.title, ''), COALESCE(t.description, ''), d.cached_votes_up, d.cached_votes_down
		FROM debates d `+translated("debate_translations", "debate_id", "d", "t")+`
		WHERE d.id = $2 AND d.hidden_at IS NULL`, r.Locale, id,
	).Scan(&d.ID, &d.Title, &d.Description, &d.CachedVotesUp, &d.CachedVotesDown)
	if err != nil {
		return nil, notFound("debate", id, err)
	}
	return &d, nil
}

const proposalSelect = `
	SELECT p.id, COALESCE(t.title, ''), COALESCE(t.summary, ''), COALESCE(t.description, ''),
	       p.author_id, p.cached_votes_up
	FROM proposals p `

func scanProposal(s interface{ Scan(...any) error }, p *model.Proposal) error {
	var author sql.NullInt64
	if err := s.Scan(&p.ID, &p.Title, &p.Summary, &p.Description, &author, &p.CachedVotesUp); err != nil {
		return err
	}
	if author.Valid {
		p.AuthorID = &author.Int64
	}
	return nil
}

// votesRequired reads the platform-wide support threshold.
func (r *ContentRepo) votesRequired(ctx context.Context) (int, error) {
	var raw sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'votes_for_proposal_success'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultVotesForProposalSuccess, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load proposal threshold: %w", apperrors.MapDBError(err))
	}
	n, convErr := strconv.Atoi(raw.String)
	if convErr != nil {
		return defaultVotesForProposalSuccess, nil //nolint:nilerr // malformed setting falls back to default
	}
	return n, nil
}

func (r *ContentRepo) Proposal(ctx context.Context, id int64) (*model.Proposal, error) {
	var p model.Proposal
	row := r.DB.QueryRowContext(ctx, proposalSelect+
		translated("proposal_translations", "proposal_id", "p", "t")+`
		WHERE p.id = $2 AND p.hidden_at IS NULL`, r.Locale, id)
	if err := scanProposal(row, &p); err != nil {
		return nil, notFound("proposal", id, err)
	}
	required, err := r.votesRequired(ctx)
	if err != nil {
		return nil, err
	}
	p.VotesRequired = required
	return &p, nil
}

// Proposals returns visible, non-retired proposals.
func (r *ContentRepo) Proposals(ctx context.Context) ([]*model.Proposal, error) {
	rows, err := r.DB.QueryContext(ctx, proposalSelect+
		translated("proposal_translations", "proposal_id", "p", "t")+`
		WHERE p.hidden_at IS NULL AND p.retired_at IS NULL
		ORDER BY p.id`, r.Locale)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.Proposal
	for rows.Next() {
		var p model.Proposal
		if err := scanProposal(rows, &p); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *ContentRepo) Poll(ctx context.Context, id int64) (*model.Poll, error) {
	var p model.Poll
	err := r.DB.QueryRowContext(ctx, `
		SELECT p.id, COALESCE(t.name, ''), COALESCE(t.summary, ''), COALESCE(t.description, '')
		FROM polls p `+translated("poll_translations", "poll_id", "p", "t")+`
		WHERE p.id = $2`, r.Locale, id,
	).Scan(&p.ID, &p.Name, &p.Summary, &p.Description)
	if err != nil {
		return nil, notFound("poll", id, err)
	}
	return &p, nil
}

const questionSelect = `
	SELECT q.id, q.poll_id, COALESCE(t.title, ''), COALESCE(v.vote_type, 0)
	FROM poll_questions q
	LEFT JOIN votation_types v ON v.questionable_type = 'Poll::Question' AND v.questionable_id = q.id `

func questionKind(voteType int) model.QuestionKind {
	switch voteType {
	case voteTypeMultiple:
		return model.QuestionMultiple
	case voteTypeOpen:
		return model.QuestionOpen
	default:
		return model.QuestionUnique
	}
}

func (r *ContentRepo) PollQuestion(ctx context.Context, id int64) (*model.PollQuestion, error) {
	qs, err := r.queryQuestions(ctx, `WHERE q.id = $2`, id)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, apperrors.NotFoundf("poll question %d not found", id)
	}
	return qs[0], nil
}

func (r *ContentRepo) PollQuestions(ctx context.Context, pollID int64) ([]*model.PollQuestion, error) {
	return r.queryQuestions(ctx, `WHERE q.poll_id = $2`, pollID)
}

func (r *ContentRepo) queryQuestions(ctx context.Context, where string, arg int64) ([]*model.PollQuestion, error) {
	rows, err := r.DB.QueryContext(ctx, questionSelect+
		translated("poll_question_translations", "poll_question_id", "q", "t")+" "+where+
		` ORDER BY q.id`, r.Locale, arg)
	if err != nil {
		return nil, fmt.Errorf("list poll questions: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.PollQuestion
	byID := map[int64]*model.PollQuestion{}
	for rows.Next() {
		var (
			q        model.PollQuestion
			voteType int
		)
		if err := rows.Scan(&q.ID, &q.PollID, &q.Title, &voteType); err != nil {
			return nil, fmt.Errorf("scan poll question: %w", err)
		}
		q.Kind = questionKind(voteType)
		out = append(out, &q)
		byID[q.ID] = &q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := r.attachOptions(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

// attachOptions loads the options of every question in byID, with the number of answers each
// option received.
func (r *ContentRepo) attachOptions(ctx context.Context, byID map[int64]*model.PollQuestion) error {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT o.id, o.question_id, COALESCE(t.title, ''),
			       (SELECT COUNT(*) FROM poll_answers a WHERE a.option_id = o.id)
			FROM poll_question_answers o `+
			translated("poll_question_answer_translations", "poll_question_answer_id", "o", "t")+`
			WHERE o.question_id = ANY($2)
			ORDER BY o.question_id, o.given_order, o.id`, r.Locale, ids)
		if err != nil {
			return fmt.Errorf("list poll options: %w", apperrors.MapDBError(err))
		}
		defer rows.Close()
		for rows.Next() {
			var (
				o          model.PollOption
				questionID int64
			)
			if err := rows.Scan(&o.ID, &questionID, &o.Title, &o.Given); err != nil {
				return fmt.Errorf("scan poll option: %w", err)
			}
			if q := byID[questionID]; q != nil {
				q.Options = append(q.Options, o)
			}
		}
		return rows.Err()
	})
}

func (r *ContentRepo) PollAnswers(ctx context.Context, questionIDs []int64) ([]*model.PollAnswer, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var out []*model.PollAnswer
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, question_id, author_id, COALESCE(answer, '')
			FROM poll_answers
			WHERE question_id = ANY($1)
			ORDER BY id`, questionIDs)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a model.PollAnswer
			if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Answer); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list poll answers: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func (r *ContentRepo) LegislationProcess(ctx context.Context, id int64) (*model.LegislationProcess, error) {
	var p model.LegislationProcess
	err := r.DB.QueryRowContext(ctx, `
		SELECT p.id, COALESCE(t.title, ''), COALESCE(t.summary, ''), COALESCE(t.description, '')
		FROM legislation_processes p `+
		translated("legislation_process_translations", "legislation_process_id", "p", "t")+`
		WHERE p.id = $2`, r.Locale, id,
	).Scan(&p.ID, &p.Title, &p.Summary, &p.Description)
	if err != nil {
		return nil, notFound("legislation process", id, err)
	}
	return &p, nil
}

func (r *ContentRepo) LegislationProposal(ctx context.Context, id int64) (*model.LegislationProposal, error) {
	var p model.LegislationProposal
	err := r.DB.QueryRowContext(ctx, `
		SELECT lp.id, lp.legislation_process_id, COALESCE(t.title, ''),
		       COALESCE(lp.title, ''), COALESCE(lp.summary, ''), COALESCE(lp.description, ''),
		       lp.cached_votes_up, lp.cached_votes_down
		FROM legislation_proposals lp
		JOIN legislation_processes p ON p.id = lp.legislation_process_id `+
		translated("legislation_process_translations", "legislation_process_id", "p", "t")+`
		WHERE lp.id = $2 AND lp.hidden_at IS NULL`, r.Locale, id,
	).Scan(&p.ID, &p.ProcessID, &p.ProcessTitle, &p.Title, &p.Summary, &p.Description,
		&p.CachedVotesUp, &p.CachedVotesDown)
	if err != nil {
		return nil, notFound("legislation proposal", id, err)
	}
	return &p, nil
}

func (r *ContentRepo) LegislationQuestion(ctx context.Context, id int64) (*model.LegislationQuestion, error) {
	var q model.LegislationQuestion
	err := r.DB.QueryRowContext(ctx, `
		SELECT q.id, q.legislation_process_id, COALESCE(pt.title, ''), COALESCE(t.title, '')
		FROM legislation_questions q
		JOIN legislation_processes p ON p.id = q.legislation_process_id `+
		translated("legislation_process_translations", "legislation_process_id", "p", "pt")+` `+
		translated("legislation_question_translations", "legislation_question_id", "q", "t")+`
		WHERE q.id = $2`, r.Locale, id,
	).Scan(&q.ID, &q.ProcessID, &q.ProcessTitle, &q.Title)
	if err != nil {
		return nil, notFound("legislation question", id, err)
	}

	options, err := r.legislationOptions(ctx, `WHERE o.legislation_question_id = $2 ORDER BY o.id`, id)
	if err != nil {
		return nil, err
	}
	for _, o := range options {
		o.QuestionTitle = q.Title
		q.Options = append(q.Options, *o)
	}
	return &q, nil
}

func (r *ContentRepo) LegislationQuestionOption(
	ctx context.Context,
	id int64,
) (*model.LegislationQuestionOption, error) {
	options, err := r.legislationOptions(ctx, `WHERE o.id = $2`, id)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, apperrors.NotFoundf("legislation question option %d not found", id)
	}
	return options[0], nil
}

func (r *ContentRepo) legislationOptions(
	ctx context.Context,
	where string,
	arg int64,
) ([]*model.LegislationQuestionOption, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT o.id, o.legislation_question_id, COALESCE(qt.title, ''), COALESCE(t.value, ''), o.answers_count
		FROM legislation_question_options o
		JOIN legislation_questions q ON q.id = o.legislation_question_id `+
		translated("legislation_question_translations", "legislation_question_id", "q", "qt")+` `+
		translated("legislation_question_option_translations", "legislation_question_option_id", "o", "t")+` `+
		where, r.Locale, arg)
	if err != nil {
		return nil, fmt.Errorf("list legislation question options: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.LegislationQuestionOption
	for rows.Next() {
		var o model.LegislationQuestionOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.QuestionTitle, &o.Value, &o.AnswersCount); err != nil {
			return nil, fmt.Errorf("scan legislation question option: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *ContentRepo) Budget(ctx context.Context, id int64) (*model.Budget, error) {
	var b model.Budget
	err := r.DB.QueryRowContext(ctx, `
		SELECT b.id, COALESCE(t.name, '')
		FROM budgets b `+translated("budget_translations", "budget_id", "b", "t")+`
		WHERE b.id = $2`, r.Locale, id,
	).Scan(&b.ID, &b.Name)
	if err != nil {
		return nil, notFound("budget", id, err)
	}
	return &b, nil
}

func (r *ContentRepo) BudgetGroup(ctx context.Context, id int64) (*model.BudgetGroup, error) {
	var g model.BudgetGroup
	err := r.DB.QueryRowContext(ctx, `
		SELECT g.id, g.budget_id, COALESCE(bt.name, ''), COALESCE(t.name, '')
		FROM budget_groups g
		JOIN budgets b ON b.id = g.budget_id `+
		translated("budget_translations", "budget_id", "b", "bt")+` `+
		translated("budget_group_translations", "budget_group_id", "g", "t")+`
		WHERE g.id = $2`, r.Locale, id,
	).Scan(&g.ID, &g.BudgetID, &g.BudgetName, &g.Name)
	if err != nil {
		return nil, notFound("budget group", id, err)
	}
	return &g, nil
}

const investmentSelect = `
	SELECT i.id, i.budget_id, i.group_id, COALESCE(t.title, ''), COALESCE(t.description, ''),
	       i.author_id, i.cached_votes_up, COALESCE(i.price, 0)
	FROM budget_investments i `

func (r *ContentRepo) BudgetInvestment(ctx context.Context, id int64) (*model.BudgetInvestment, error) {
	out, err := r.queryInvestments(ctx, `AND i.id = $2`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperrors.NotFoundf("budget investment %d not found", id)
	}
	return out[0], nil
}

func (r *ContentRepo) BudgetInvestments(
	ctx context.Context,
	filter model.InvestmentFilter,
) ([]*model.BudgetInvestment, error) {
	switch {
	case filter.BudgetID != 0 && filter.GroupID != 0:
		return r.queryInvestments(ctx, `AND i.budget_id = $2 AND i.group_id = $3`, filter.BudgetID, filter.GroupID)
	case filter.GroupID != 0:
		return r.queryInvestments(ctx, `AND i.group_id = $2`, filter.GroupID)
	case filter.BudgetID != 0:
		return r.queryInvestments(ctx, `AND i.budget_id = $2`, filter.BudgetID)
	default:
		return r.queryInvestments(ctx, ``)
	}
}

func (r *ContentRepo) queryInvestments(
	ctx context.Context,
	where string,
	args ...any,
) ([]*model.BudgetInvestment, error) {
	rows, err := r.DB.QueryContext(ctx, investmentSelect+
		translated("budget_investment_translations", "budget_investment_id", "i", "t")+`
		WHERE i.hidden_at IS NULL `+where+` ORDER BY i.id`, append([]any{r.Locale}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list budget investments: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.BudgetInvestment
	for rows.Next() {
		var (
			inv    model.BudgetInvestment
			author sql.NullInt64
		)
		if err := rows.Scan(&inv.ID, &inv.BudgetID, &inv.GroupID, &inv.Title, &inv.Description,
			&author, &inv.CachedVotesUp, &inv.Price); err != nil {
			return nil, fmt.Errorf("scan budget investment: %w", err)
		}
		if author.Valid {
			inv.AuthorID = &author.Int64
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (r *ContentRepo) Topic(ctx context.Context, id int64) (*model.Topic, error) {
	var t model.Topic
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, COALESCE(title, ''), COALESCE(description, '')
		FROM topics
		WHERE id = $1 AND hidden_at IS NULL`, id,
	).Scan(&t.ID, &t.Title, &t.Description)
	if err != nil {
		return nil, notFound("topic", id, err)
	}
	return &t, nil
}

// Comments returns every comment of the commentable; hidden ones are flagged, not dropped.
func (r *ContentRepo) Comments(
	ctx context.Context,
	commentableType model.ResourceType,
	commentableID int64,
) ([]*model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.commentable_type, c.commentable_id, COALESCE(t.body, ''), c.user_id,
		       c.cached_votes_up, c.cached_votes_down, c.cached_votes_total,
		       c.hidden_at IS NOT NULL
		FROM comments c `+translated("comment_translations", "comment_id", "c", "t")+`
		WHERE c.commentable_type = $2 AND c.commentable_id = $3
		ORDER BY c.id`, r.Locale, string(commentableType), commentableID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.Comment
	for rows.Next() {
		var (
			c     model.Comment
			user  sql.NullInt64
			cType string
		)
		if err := rows.Scan(&c.ID, &cType, &c.CommentableID, &c.Body, &user,
			&c.CachedVotesUp, &c.CachedVotesDown, &c.CachedVotesTotal, &c.Hidden); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CommentableType = model.ResourceType(cType)
		if user.Valid {
			c.UserID = &user.Int64
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
