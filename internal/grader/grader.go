// Package grader turns raw evaluation replies from the model into
// bounded scores and structured feedback.
package grader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/evalumate/evalumate/internal/model"
)

// Evaluator is the external scoring collaborator: it receives the
// question, the reference answer, and the candidate's answer and
// returns the model's raw text reply.
type Evaluator interface {
	Evaluate(ctx context.Context, question, referenceAnswer, candidateAnswer string) (string, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, question, referenceAnswer, candidateAnswer string) (string, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, question, referenceAnswer, candidateAnswer string) (string, error) {
	return f(ctx, question, referenceAnswer, candidateAnswer)
}

// Grader scores candidate answers through an Evaluator.
type Grader struct {
	eval Evaluator
}

// New creates a Grader backed by the given evaluator.
func New(eval Evaluator) *Grader {
	return &Grader{eval: eval}
}

// Score evaluates a candidate answer and returns an integer in
// [MinScore, MaxScore]. A reply that cannot be parsed as a number
// degrades to MinScore rather than failing: the candidate must still
// receive a usable score. Only a collaborator failure is an error, and
// in that case nothing has been recorded, so the caller may retry.
func (g *Grader) Score(ctx context.Context, q model.Question, candidateAnswer string) (int, error) {
	raw, err := g.eval.Evaluate(ctx, q.Text, q.ReferenceAnswer, candidateAnswer)
	if err != nil {
		return 0, fmt.Errorf("evaluate answer: %w", err)
	}
	return ParseScore(raw), nil
}

// ParseScore extracts an integer score from a raw reply and clamps it
// into [MinScore, MaxScore]. Non-numeric replies score MinScore.
func ParseScore(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("unparsable score reply, defaulting to 0", "raw", raw)
		return model.MinScore
	}
	return clamp(n)
}

func clamp(n int) int {
	if n < model.MinScore {
		return model.MinScore
	}
	if n > model.MaxScore {
		return model.MaxScore
	}
	return n
}

// Reply is the structured form of a multi-line evaluation reply.
type Reply struct {
	Correct      bool
	Feedback     string
	NextTier     model.Tier
	DisorderFlag string
}

// ParseReply applies the positional heuristic for multi-line replies:
// line 1 holds the verdict (counts as correct when it contains
// "correct" case-insensitively), line 2 the feedback, the last token of
// line 3 the next difficulty, and line 4 a learning-difficulty flag
// unless it reads "none". Missing lines fall back to empty feedback,
// medium difficulty, and no flag.
func ParseReply(raw string) Reply {
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	r := Reply{NextTier: model.TierModerate}
	if len(lines) > 0 {
		r.Correct = strings.Contains(strings.ToLower(lines[0]), "correct")
	}
	if len(lines) > 1 {
		r.Feedback = lines[1]
	}
	if len(lines) > 2 {
		fields := strings.Fields(lines[2])
		if len(fields) > 0 {
			r.NextTier = model.NormalizeTier(strings.ToLower(fields[len(fields)-1]))
		}
	}
	if len(lines) > 3 && strings.ToLower(strings.TrimSpace(lines[3])) != "none" {
		r.DisorderFlag = lines[3]
	}
	return r
}
