package grader

import (
	"context"
	"errors"
	"testing"

	"github.com/evalumate/evalumate/internal/model"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bare number", "7", 7},
		{"with whitespace", "  7\n", 7},
		{"zero", "0", 0},
		{"ten", "10", 10},
		{"clamped above", "15", 10},
		{"clamped below", "-2", 0},
		{"non-numeric", "abc", 0},
		{"empty", "", 0},
		{"number with prose", "I would give this 7 out of 10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseScore(tt.raw); got != tt.want {
				t.Errorf("ParseScore(%q) = %d, want %d", tt.raw, got, tt.want)
			}
			if got := ParseScore(tt.raw); got < model.MinScore || got > model.MaxScore {
				t.Errorf("ParseScore(%q) = %d, outside [%d,%d]", tt.raw, got, model.MinScore, model.MaxScore)
			}
		})
	}
}

func TestScore(t *testing.T) {
	q := model.Question{Text: "What is X?", ReferenceAnswer: "X is Y."}

	g := New(EvaluatorFunc(func(_ context.Context, question, reference, candidate string) (string, error) {
		if question != q.Text || reference != q.ReferenceAnswer || candidate != "my answer" {
			t.Errorf("unexpected evaluate args: %q %q %q", question, reference, candidate)
		}
		return "7", nil
	}))

	score, err := g.Score(context.Background(), q, "my answer")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 7 {
		t.Errorf("expected 7, got %d", score)
	}
}

func TestScoreFallback(t *testing.T) {
	g := New(EvaluatorFunc(func(context.Context, string, string, string) (string, error) {
		return "abc", nil
	}))
	score, err := g.Score(context.Background(), model.Question{}, "answer")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Errorf("expected fallback score 0, got %d", score)
	}
}

func TestScoreCollaboratorFailure(t *testing.T) {
	wantErr := errors.New("connection refused")
	g := New(EvaluatorFunc(func(context.Context, string, string, string) (string, error) {
		return "", wantErr
	}))
	if _, err := g.Score(context.Background(), model.Question{}, "answer"); !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped collaborator error, got %v", err)
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Reply
	}{
		{
			"full reply",
			"The answer is correct.\nWell explained.\nSuggested difficulty: hard\nNone",
			Reply{Correct: true, Feedback: "Well explained.", NextTier: model.TierDifficult},
		},
		{
			"incorrect with flag",
			"Incorrect, the answer misses the point.\nReview chapter 2.\nNext difficulty should be easy\nDyslexia indicators",
			// "Incorrect" contains "correct", preserving the source verdict quirk.
			Reply{Correct: true, Feedback: "Review chapter 2.", NextTier: model.TierEasy, DisorderFlag: "Dyslexia indicators"},
		},
		{
			"wrong answer",
			"The answer is wrong.\nMissing the key idea.\nTry easy",
			Reply{Correct: false, Feedback: "Missing the key idea.", NextTier: model.TierEasy},
		},
		{
			"single line",
			"Correct",
			Reply{Correct: true, NextTier: model.TierModerate},
		},
		{
			"two lines defaults tier",
			"correct\ngood work",
			Reply{Correct: true, Feedback: "good work", NextTier: model.TierModerate},
		},
		{
			"medium keyword",
			"correct\nok\nstay at medium",
			Reply{Correct: true, Feedback: "ok", NextTier: model.TierModerate},
		},
		{
			"none flag case-insensitive",
			"correct\nok\nmedium\nNONE",
			Reply{Correct: true, Feedback: "ok", NextTier: model.TierModerate},
		},
		{
			"empty reply",
			"",
			Reply{NextTier: model.TierModerate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReply(tt.raw); got != tt.want {
				t.Errorf("ParseReply(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
