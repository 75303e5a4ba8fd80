package model

// The types in this file are read-only projections of the participation platform's records.
// Sensemaker never writes them.

// Comment is a threaded comment attached to any commentable resource.
type Comment struct {
	ID               int64        `db:"id"`
	CommentableType  ResourceType `db:"commentable_type"`
	CommentableID    int64        `db:"commentable_id"`
	Body             string       `db:"body"`
	UserID           *int64       `db:"user_id"`
	CachedVotesUp    int          `db:"cached_votes_up"`
	CachedVotesDown  int          `db:"cached_votes_down"`
	CachedVotesTotal int          `db:"cached_votes_total"`
	Hidden           bool         `db:"hidden"`
}

// NormalizedComment is the uniform comment shape produced for one compilation pass.
// ID is the source comment id, or a synthesized one such as "a_<answer-id>".
type NormalizedComment struct {
	ID               string
	Body             string
	UserID           *int64
	CachedVotesUp    int
	CachedVotesDown  int
	CachedVotesTotal int
}

// Debate is an open discussion with for/against votes.
type Debate struct {
	ID              int64
	Title           string
	Description     string
	CachedVotesUp   int
	CachedVotesDown int
}

// Proposal is a citizen proposal collecting supports toward a threshold.
type Proposal struct {
	ID            int64
	Title         string
	Summary       string
	Description   string
	AuthorID      *int64
	CachedVotesUp int
	// VotesRequired is the platform-wide support threshold for success.
	VotesRequired int
}

// QuestionKind distinguishes poll question input styles.
type QuestionKind string

const (
	QuestionUnique   QuestionKind = "unique"
	QuestionMultiple QuestionKind = "multiple"
	QuestionOpen     QuestionKind = "open"
)

// Poll groups ordered questions answered by respondents.
type Poll struct {
	ID          int64
	Name        string
	Summary     string
	Description string
}

// PollQuestion is one question of a poll. Options is empty for open-ended questions.
type PollQuestion struct {
	ID      int64
	PollID  int64
	Title   string
	Kind    QuestionKind
	Options []PollOption
}

// OpenEnded reports whether respondents answer with free text.
func (q *PollQuestion) OpenEnded() bool {
	return q.Kind == QuestionOpen
}

// PollOption is a selectable choice of a poll question.
type PollOption struct {
	ID    int64
	Title string
	Given int
}

// PollAnswer is one respondent's answer to a question. For choice questions Answer holds the
// chosen option title; multiple-selection questions produce one answer per chosen option.
type PollAnswer struct {
	ID         int64
	QuestionID int64
	AuthorID   int64
	Answer     string
}

// LegislationProcess is a legislative consultation.
type LegislationProcess struct {
	ID          int64
	Title       string
	Summary     string
	Description string
}

// LegislationProposal is a proposal submitted inside a legislation process.
type LegislationProposal struct {
	ID              int64
	ProcessID       int64
	ProcessTitle    string
	Title           string
	Summary         string
	Description     string
	CachedVotesUp   int
	CachedVotesDown int
}

// LegislationQuestion is a debate question posed in a legislation process.
type LegislationQuestion struct {
	ID           int64
	ProcessID    int64
	ProcessTitle string
	Title        string
	Options      []LegislationQuestionOption
}

// LegislationQuestionOption is a response option of a legislation question.
type LegislationQuestionOption struct {
	ID            int64
	QuestionID    int64
	QuestionTitle string
	Value         string
	AnswersCount  int
}

// Budget is a participatory budget.
type Budget struct {
	ID          int64
	Name        string
	Description string
}

// BudgetGroup groups the headings of a budget.
type BudgetGroup struct {
	ID         int64
	BudgetID   int64
	BudgetName string
	Name       string
}

// BudgetInvestment is a spending project that collects supports.
type BudgetInvestment struct {
	ID            int64
	BudgetID      int64
	GroupID       int64
	Title         string
	Description   string
	AuthorID      *int64
	CachedVotesUp int
	Price         int64
}

// InvestmentFilter scopes investment scans. Zero fields are ignored.
type InvestmentFilter struct {
	BudgetID int64
	GroupID  int64
}

// Topic is a community topic.
type Topic struct {
	ID          int64
	Title       string
	Description string
}
