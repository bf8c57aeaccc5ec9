package model

import (
	"context"
	"time"
)

// UserRole represents an account's access level on the report surface.
type UserRole string

const (
	// UserRoleExaminer can view persisted reports.
	UserRoleExaminer UserRole = "examiner"
	// UserRoleAdmin can additionally manage accounts and export everything.
	UserRoleAdmin UserRole = "admin"
)

// User represents an examiner account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Tier represents question difficulty. The values match the section
// headers the generation prompt asks the model to emit, so they double
// as parser literals.
type Tier string

const (
	TierEasy      Tier = "Easy"
	TierModerate  Tier = "Moderate"
	TierDifficult Tier = "Difficult"
)

// Tiers lists all tiers in ascending difficulty order.
func Tiers() []Tier {
	return []Tier{TierEasy, TierModerate, TierDifficult}
}

// NormalizeTier maps a free-form difficulty word from a grader reply
// ("easy", "medium", "hard", ...) onto a Tier. Unrecognized input maps
// to TierModerate, the same default the reply parser uses.
func NormalizeTier(word string) Tier {
	switch word {
	case "easy", "Easy":
		return TierEasy
	case "hard", "difficult", "Difficult":
		return TierDifficult
	default:
		return TierModerate
	}
}

// Phase represents the lifecycle phase of a viva session.
type Phase string

const (
	PhaseNotStarted         Phase = "not_started"
	PhaseAwaitingGeneration Phase = "awaiting_generation"
	PhaseReady              Phase = "ready"
	PhaseAskingQuestion     Phase = "asking_question"
	PhaseAwaitingAnswer     Phase = "awaiting_answer"
	PhaseGrading            Phase = "grading"
	PhaseFinished           Phase = "finished"
)

// MinScore and MaxScore bound every grade a question can receive.
const (
	MinScore = 0
	MaxScore = 10
)

// PassScore is the lowest score counted as a correct answer in the
// session summary.
const PassScore = 5

// Question is one generated question/answer pair in the bank.
// Score is set if and only if Used is true.
type Question struct {
	ID              int    `json:"id"`
	Tier            Tier   `json:"tier"`
	Text            string `json:"text"`
	ReferenceAnswer string `json:"reference_answer"`
	Used            bool   `json:"used"`
	CandidateAnswer string `json:"candidate_answer,omitempty"`
	Score           *int   `json:"score,omitempty"`
}

// StudentInfo is the candidate metadata collected before a viva starts.
type StudentInfo struct {
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	Subject   string `json:"subject"`
	BookTitle string `json:"book_title"`
}

// Complete reports whether all metadata fields are filled in.
func (s StudentInfo) Complete() bool {
	return s.Name != "" && s.Grade != "" && s.Subject != "" && s.BookTitle != ""
}

// OutcomeRecord is an immutable per-question result snapshot. Fields are
// copied from the Question at grading time so later mutation cannot
// change a produced record.
type OutcomeRecord struct {
	Tier            Tier          `json:"tier"`
	Question        string        `json:"question"`
	ReferenceAnswer string        `json:"reference_answer"`
	CandidateAnswer string        `json:"candidate_answer"`
	Score           int           `json:"score"`
	Elapsed         time.Duration `json:"elapsed"`
	Feedback        string        `json:"feedback,omitempty"`
}

// Correct reports whether the outcome counts as a correct answer.
func (o OutcomeRecord) Correct() bool {
	return o.Score >= PassScore
}

// Report is a persisted finished session: the rendered text artifact
// plus the counters it was derived from.
type Report struct {
	ID             int64       `json:"id"`
	Student        StudentInfo `json:"student"`
	QuestionsAsked int         `json:"questions_asked"`
	Correct        int         `json:"correct"`
	Incorrect      int         `json:"incorrect"`
	ScoreSum       int         `json:"score_sum"`
	Body           string      `json:"body"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Summary aggregates a finished session for the CSV results log.
type Summary struct {
	Student        StudentInfo
	QuestionsAsked int
	Correct        int
	Incorrect      int
	ScoreSum       int
	Times          []time.Duration
}
