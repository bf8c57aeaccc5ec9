// Package session drives one viva exam run as an explicit state
// machine, advanced by discrete commands from the external driver.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalumate/evalumate/internal/bank"
	"github.com/evalumate/evalumate/internal/grader"
	"github.com/evalumate/evalumate/internal/model"
	"github.com/evalumate/evalumate/internal/selector"
)

// ErrPhase signals a command issued in a phase that does not accept it.
// This is a driver bug, not a recoverable condition.
var ErrPhase = errors.New("command not valid in current phase")

// Generator is the external question-generation collaborator. It
// receives the extracted content and returns the raw payload the bank
// parser understands.
type Generator interface {
	GenerateQuestions(ctx context.Context, content string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, content string) (string, error)

func (f GeneratorFunc) GenerateQuestions(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

// Controller owns one exam run: it sequences ask, wait-for-answer,
// grade, and advance, and tracks counters until the session finishes.
// A Controller is not safe for concurrent use; the driver must
// serialize commands per session.
type Controller struct {
	gen    Generator
	grader *grader.Grader

	phase   model.Phase
	student model.StudentInfo
	bank    *bank.Bank

	current model.Question
	askedAt time.Time

	asked     int
	correct   int
	incorrect int
	lastScore int
	outcomes  []model.OutcomeRecord

	now func() time.Time
}

// New creates a Controller in the NotStarted phase.
func New(gen Generator, g *grader.Grader) *Controller {
	return &Controller{
		gen:    gen,
		grader: g,
		phase:  model.PhaseNotStarted,
		now:    time.Now,
	}
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() model.Phase {
	return c.phase
}

// Student returns the candidate metadata given at Start.
func (c *Controller) Student() model.StudentInfo {
	return c.student
}

// Asked returns the number of graded questions so far.
func (c *Controller) Asked() int { return c.asked }

// Correct returns the number of answers at or above the pass score.
func (c *Controller) Correct() int { return c.correct }

// Incorrect returns the number of answers below the pass score.
func (c *Controller) Incorrect() int { return c.incorrect }

// Outcomes returns a copy of the per-question outcome records in
// chronological order.
func (c *Controller) Outcomes() []model.OutcomeRecord {
	out := make([]model.OutcomeRecord, len(c.outcomes))
	copy(out, c.outcomes)
	return out
}

// Questions returns all bank questions in bank order, or nil before
// generation has succeeded.
func (c *Controller) Questions() []model.Question {
	if c.bank == nil {
		return nil
	}
	return c.bank.Questions()
}

// Start begins the exam: it requires complete candidate metadata and
// non-empty content, invokes the question generator, and loads the
// bank. On any failure the session stays in NotStarted so the driver
// may retry.
func (c *Controller) Start(ctx context.Context, student model.StudentInfo, content string) error {
	if c.phase != model.PhaseNotStarted {
		return fmt.Errorf("start in phase %s: %w", c.phase, ErrPhase)
	}
	if !student.Complete() {
		return errors.New("student metadata incomplete")
	}
	if content == "" {
		return errors.New("no content extracted")
	}

	c.phase = model.PhaseAwaitingGeneration
	raw, err := c.gen.GenerateQuestions(ctx, content)
	if err != nil {
		c.phase = model.PhaseNotStarted
		return fmt.Errorf("generate questions: %w", err)
	}

	b, err := bank.Load(raw)
	if err != nil {
		c.phase = model.PhaseNotStarted
		return err
	}

	c.student = student
	c.bank = b
	c.phase = model.PhaseReady
	slog.Info("viva started", "student", student.Name, "questions", b.Len(), "skipped", b.Skipped())
	return nil
}

// CurrentQuestion presents the question awaiting an answer. The first
// call after Ready selects and presents the opening question (the first
// Easy-tier question, or the nearest tier with questions); subsequent
// calls in AwaitingAnswer re-read the same question without resetting
// its timer.
func (c *Controller) CurrentQuestion() (model.Question, error) {
	switch c.phase {
	case model.PhaseReady:
		if err := c.ask(0); err != nil {
			return model.Question{}, err
		}
		return c.current, nil
	case model.PhaseAwaitingAnswer:
		return c.current, nil
	default:
		return model.Question{}, fmt.Errorf("no current question in phase %s: %w", c.phase, ErrPhase)
	}
}

// ask selects the next question for the given last score and moves the
// session to AwaitingAnswer.
func (c *Controller) ask(score int) error {
	c.phase = model.PhaseAskingQuestion
	q, err := selector.Next(c.bank, score)
	if err != nil {
		if errors.Is(err, bank.ErrNoQuestion) {
			c.finish()
			return err
		}
		return err
	}
	c.current = q
	c.askedAt = c.now()
	c.phase = model.PhaseAwaitingAnswer
	return nil
}

// SubmitAnswer grades the candidate's answer to the current question,
// records the outcome, and either presents the next question or
// finishes the session when the bank is exhausted. On collaborator
// failure the session state is unchanged and the command may be
// retried. A transcribed spoken answer is submitted the same way as a
// typed one.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (model.OutcomeRecord, error) {
	if c.phase != model.PhaseAwaitingAnswer {
		return model.OutcomeRecord{}, fmt.Errorf("submit in phase %s: %w", c.phase, ErrPhase)
	}

	c.phase = model.PhaseGrading
	score, err := c.grader.Score(ctx, c.current, answer)
	if err != nil {
		c.phase = model.PhaseAwaitingAnswer
		return model.OutcomeRecord{}, err
	}
	if c.phase != model.PhaseGrading {
		// The driver stopped the session while the call was in
		// flight; discard the result.
		return model.OutcomeRecord{}, fmt.Errorf("session stopped during grading: %w", ErrPhase)
	}

	if err := c.bank.MarkUsed(c.current.ID, answer, score); err != nil {
		c.phase = model.PhaseAwaitingAnswer
		return model.OutcomeRecord{}, err
	}

	outcome := model.OutcomeRecord{
		Tier:            c.current.Tier,
		Question:        c.current.Text,
		ReferenceAnswer: c.current.ReferenceAnswer,
		CandidateAnswer: answer,
		Score:           score,
		Elapsed:         c.now().Sub(c.askedAt),
	}
	c.outcomes = append(c.outcomes, outcome)
	c.asked++
	if outcome.Correct() {
		c.correct++
	} else {
		c.incorrect++
	}
	c.lastScore = score

	if c.bank.Remaining() == 0 {
		c.finish()
		return outcome, nil
	}
	if err := c.ask(score); err != nil && !errors.Is(err, bank.ErrNoQuestion) {
		return outcome, err
	}
	return outcome, nil
}

// Stop forces the session to Finished from any non-terminal phase,
// preserving partial progress.
func (c *Controller) Stop() error {
	if c.phase == model.PhaseFinished {
		return fmt.Errorf("stop: %w", ErrPhase)
	}
	c.finish()
	return nil
}

func (c *Controller) finish() {
	c.phase = model.PhaseFinished
	slog.Info("viva finished",
		"student", c.student.Name,
		"asked", c.asked,
		"correct", c.correct,
		"incorrect", c.incorrect,
	)
}

// Summary aggregates the session for the results log. Valid at any
// point, but normally read in the Finished phase.
func (c *Controller) Summary() model.Summary {
	sum := model.Summary{
		Student:        c.student,
		QuestionsAsked: c.asked,
		Correct:        c.correct,
		Incorrect:      c.incorrect,
	}
	for _, o := range c.outcomes {
		sum.ScoreSum += o.Score
		sum.Times = append(sum.Times, o.Elapsed)
	}
	return sum
}
