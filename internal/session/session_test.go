package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evalumate/evalumate/internal/bank"
	"github.com/evalumate/evalumate/internal/grader"
	"github.com/evalumate/evalumate/internal/model"
)

const testPayload = `Easy:
Q1: What is X?
A1: X is Y.
Moderate:
Q6: How does X relate to Z?
A6: Through Y.
Difficult:
Q11: Prove X implies Z.
A11: By transitivity via Y.`

var testStudent = model.StudentInfo{
	Name:      "Alice",
	Grade:     "10",
	Subject:   "Physics",
	BookTitle: "Concepts of Physics",
}

// scriptedEvaluator returns canned raw replies in order.
type scriptedEvaluator struct {
	replies []string
	calls   int
}

func (e *scriptedEvaluator) Evaluate(context.Context, string, string, string) (string, error) {
	if e.calls >= len(e.replies) {
		return "0", nil
	}
	reply := e.replies[e.calls]
	e.calls++
	return reply, nil
}

func newTestController(replies ...string) *Controller {
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		return testPayload, nil
	})
	c := New(gen, grader.New(&scriptedEvaluator{replies: replies}))
	// Deterministic clock: one second per observation.
	var tick int
	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return c
}

func TestFullRun(t *testing.T) {
	ctx := context.Background()
	c := newTestController("8", "3", "6")

	if c.Phase() != model.PhaseNotStarted {
		t.Fatalf("expected NotStarted, got %s", c.Phase())
	}

	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Phase() != model.PhaseReady {
		t.Fatalf("expected Ready, got %s", c.Phase())
	}

	// Opening question is Easy.
	q, err := c.CurrentQuestion()
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if q.Tier != model.TierEasy {
		t.Errorf("opening question should be Easy, got %s", q.Tier)
	}
	if c.Phase() != model.PhaseAwaitingAnswer {
		t.Fatalf("expected AwaitingAnswer, got %s", c.Phase())
	}

	// Score 8 climbs to Difficult.
	out, err := c.SubmitAnswer(ctx, "a good answer")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if out.Score != 8 {
		t.Errorf("expected score 8, got %d", out.Score)
	}
	if !out.Correct() {
		t.Error("score 8 should count as correct")
	}
	if out.Elapsed <= 0 {
		t.Errorf("expected positive elapsed, got %v", out.Elapsed)
	}
	q, _ = c.CurrentQuestion()
	if q.Tier != model.TierDifficult {
		t.Errorf("after score 8 expected Difficult, got %s", q.Tier)
	}

	// Score 3 targets Easy, which is used; nearest is Moderate.
	if _, err := c.SubmitAnswer(ctx, "a weak answer"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	q, _ = c.CurrentQuestion()
	if q.Tier != model.TierModerate {
		t.Errorf("after score 3 with Easy used expected Moderate, got %s", q.Tier)
	}

	// Last answer finishes the session.
	if _, err := c.SubmitAnswer(ctx, "final answer"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if c.Phase() != model.PhaseFinished {
		t.Fatalf("expected Finished, got %s", c.Phase())
	}

	if c.Asked() != 3 || c.Correct() != 2 || c.Incorrect() != 1 {
		t.Errorf("counters asked=%d correct=%d incorrect=%d, want 3/2/1",
			c.Asked(), c.Correct(), c.Incorrect())
	}
	if len(c.Outcomes()) != c.Asked() {
		t.Errorf("outcomes %d != asked %d", len(c.Outcomes()), c.Asked())
	}
	if c.Asked() != len(c.Questions()) {
		t.Errorf("a fully answered session should cover the whole bank: asked %d, bank %d",
			c.Asked(), len(c.Questions()))
	}

	sum := c.Summary()
	if sum.ScoreSum != 8+3+6 {
		t.Errorf("score sum %d, want 17", sum.ScoreSum)
	}
	if len(sum.Times) != 3 {
		t.Errorf("expected 3 times, got %d", len(sum.Times))
	}
}

func TestAskedCountMonotonic(t *testing.T) {
	ctx := context.Background()
	c := newTestController("5", "5", "5")
	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	prev := 0
	for c.Phase() != model.PhaseFinished {
		if _, err := c.CurrentQuestion(); err != nil {
			t.Fatalf("CurrentQuestion: %v", err)
		}
		if _, err := c.SubmitAnswer(ctx, "answer"); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
		if c.Asked() <= prev {
			t.Fatalf("asked count did not increase: %d -> %d", prev, c.Asked())
		}
		if len(c.Outcomes()) != c.Asked() {
			t.Fatalf("outcomes %d != asked %d", len(c.Outcomes()), c.Asked())
		}
		prev = c.Asked()
	}
}

func TestStartFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete metadata", func(t *testing.T) {
		c := newTestController()
		err := c.Start(ctx, model.StudentInfo{Name: "Bob"}, "content")
		if err == nil {
			t.Fatal("expected error")
		}
		if c.Phase() != model.PhaseNotStarted {
			t.Errorf("expected NotStarted, got %s", c.Phase())
		}
	})

	t.Run("empty content", func(t *testing.T) {
		c := newTestController()
		if err := c.Start(ctx, testStudent, ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty generation", func(t *testing.T) {
		gen := GeneratorFunc(func(context.Context, string) (string, error) {
			return "nothing parsable", nil
		})
		c := New(gen, grader.New(&scriptedEvaluator{}))
		err := c.Start(ctx, testStudent, "content")
		if !errors.Is(err, bank.ErrEmptyGeneration) {
			t.Fatalf("expected ErrEmptyGeneration, got %v", err)
		}
		if c.Phase() != model.PhaseNotStarted {
			t.Errorf("expected NotStarted after failed load, got %s", c.Phase())
		}
	})

	t.Run("generator failure leaves session retryable", func(t *testing.T) {
		failures := 1
		gen := GeneratorFunc(func(context.Context, string) (string, error) {
			if failures > 0 {
				failures--
				return "", errors.New("timeout")
			}
			return testPayload, nil
		})
		c := New(gen, grader.New(&scriptedEvaluator{}))
		if err := c.Start(ctx, testStudent, "content"); err == nil {
			t.Fatal("expected first Start to fail")
		}
		if c.Phase() != model.PhaseNotStarted {
			t.Fatalf("expected NotStarted, got %s", c.Phase())
		}
		if err := c.Start(ctx, testStudent, "content"); err != nil {
			t.Fatalf("retry Start: %v", err)
		}
	})

	t.Run("double start", func(t *testing.T) {
		c := newTestController()
		if err := c.Start(ctx, testStudent, "content"); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := c.Start(ctx, testStudent, "content"); !errors.Is(err, ErrPhase) {
			t.Errorf("expected ErrPhase, got %v", err)
		}
	})
}

func TestSubmitAnswerPhaseGuard(t *testing.T) {
	ctx := context.Background()
	c := newTestController("5")

	if _, err := c.SubmitAnswer(ctx, "answer"); !errors.Is(err, ErrPhase) {
		t.Errorf("submit before start: expected ErrPhase, got %v", err)
	}

	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Ready but question not yet presented.
	if _, err := c.SubmitAnswer(ctx, "answer"); !errors.Is(err, ErrPhase) {
		t.Errorf("submit before CurrentQuestion: expected ErrPhase, got %v", err)
	}
}

func TestGradingFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	failing := true
	eval := grader.EvaluatorFunc(func(context.Context, string, string, string) (string, error) {
		if failing {
			return "", errors.New("connection reset")
		}
		return "9", nil
	})
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		return testPayload, nil
	})
	c := New(gen, grader.New(eval))

	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	q, err := c.CurrentQuestion()
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}

	if _, err := c.SubmitAnswer(ctx, "answer"); err == nil {
		t.Fatal("expected collaborator failure")
	}
	if c.Phase() != model.PhaseAwaitingAnswer {
		t.Errorf("expected AwaitingAnswer after failure, got %s", c.Phase())
	}
	if c.Asked() != 0 || len(c.Outcomes()) != 0 {
		t.Error("failed grading must not record an outcome")
	}
	q2, _ := c.CurrentQuestion()
	if q2.ID != q.ID {
		t.Error("current question changed after failed grading")
	}

	// Retry succeeds.
	failing = false
	out, err := c.SubmitAnswer(ctx, "answer")
	if err != nil {
		t.Fatalf("retry SubmitAnswer: %v", err)
	}
	if out.Score != 9 {
		t.Errorf("expected score 9, got %d", out.Score)
	}
}

func TestStopPreservesPartialProgress(t *testing.T) {
	ctx := context.Background()
	c := newTestController("7")

	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.CurrentQuestion(); err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if _, err := c.SubmitAnswer(ctx, "answer"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Phase() != model.PhaseFinished {
		t.Fatalf("expected Finished, got %s", c.Phase())
	}
	if c.Asked() != 1 || len(c.Outcomes()) != 1 {
		t.Error("stop should preserve graded outcomes")
	}

	// Finished is terminal.
	if err := c.Stop(); !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase on double stop, got %v", err)
	}
	if _, err := c.SubmitAnswer(ctx, "late"); !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase after finish, got %v", err)
	}
	if c.Asked() != 1 {
		t.Error("asked count changed after finish")
	}
}

func TestScoreFallbackCountsIncorrect(t *testing.T) {
	ctx := context.Background()
	c := newTestController("garbled reply")

	if err := c.Start(ctx, testStudent, "content"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.CurrentQuestion(); err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	out, err := c.SubmitAnswer(ctx, "answer")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if out.Score != 0 {
		t.Errorf("unparsable reply should score 0, got %d", out.Score)
	}
	if c.Incorrect() != 1 {
		t.Errorf("expected 1 incorrect, got %d", c.Incorrect())
	}
}
