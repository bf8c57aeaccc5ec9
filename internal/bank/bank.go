// Package bank parses the model-generated question payload into a
// question bank and tracks which questions have been used.
package bank

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evalumate/evalumate/internal/model"
)

var (
	// ErrEmptyGeneration is returned when a payload yields zero
	// parsable questions. The session cannot start without a bank.
	ErrEmptyGeneration = errors.New("generation payload produced no questions")
	// ErrNoQuestion signals that a tier has no unused questions left.
	ErrNoQuestion = errors.New("no unused question available")
	// ErrAlreadyUsed signals a double MarkUsed on the same question,
	// which is a caller bug.
	ErrAlreadyUsed = errors.New("question already used")
)

// Bank holds the generated questions for one viva session.
type Bank struct {
	questions []model.Question
	skipped   int
}

// Load parses a generation payload of three difficulty sections with
// alternating question/answer lines.
//
// The format is tolerated, not enforced: a line containing a tier name
// switches the current section, lines starting with Q or A are buffered
// per section, and buffered lines are paired two at a time with the
// text taken after the first colon. Pairs that cannot be split on a
// colon, or that come out empty, are dropped and counted. Report
// output depends on the after-the-colon substring staying exact, so
// keep the heuristic as is.
func Load(raw string) (*Bank, error) {
	sections := map[model.Tier][]string{}
	var current model.Tier

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.Contains(line, string(model.TierEasy)):
			current = model.TierEasy
		case strings.Contains(line, string(model.TierModerate)):
			current = model.TierModerate
		case strings.Contains(line, string(model.TierDifficult)):
			current = model.TierDifficult
		case current != "" && (strings.HasPrefix(line, "Q") || strings.HasPrefix(line, "A")):
			sections[current] = append(sections[current], line)
		}
	}

	b := &Bank{}
	for _, tier := range model.Tiers() {
		lines := sections[tier]
		for i := 0; i+1 < len(lines); i += 2 {
			q, okQ := afterColon(lines[i])
			a, okA := afterColon(lines[i+1])
			if !okQ || !okA || q == "" || a == "" {
				b.skipped++
				continue
			}
			b.questions = append(b.questions, model.Question{
				ID:              len(b.questions),
				Tier:            tier,
				Text:            q,
				ReferenceAnswer: a,
			})
		}
		if len(lines)%2 != 0 {
			b.skipped++
		}
	}

	if b.skipped > 0 {
		slog.Warn("dropped malformed question pairs", "skipped", b.skipped, "kept", len(b.questions))
	}
	if len(b.questions) == 0 {
		return nil, ErrEmptyGeneration
	}
	return b, nil
}

func afterColon(line string) (string, bool) {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// Len returns the total number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Skipped returns the number of malformed pairs dropped during Load.
func (b *Bank) Skipped() int {
	return b.skipped
}

// Questions returns a copy of all questions in bank order.
func (b *Bank) Questions() []model.Question {
	out := make([]model.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// Question returns a copy of the question with the given ID.
func (b *Bank) Question(id int) (model.Question, error) {
	if id < 0 || id >= len(b.questions) {
		return model.Question{}, fmt.Errorf("question %d out of range", id)
	}
	return b.questions[id], nil
}

// NextUnused returns the first not-yet-used question of the given tier,
// or ErrNoQuestion if that tier is exhausted.
func (b *Bank) NextUnused(tier model.Tier) (model.Question, error) {
	for _, q := range b.questions {
		if q.Tier == tier && !q.Used {
			return q, nil
		}
	}
	return model.Question{}, fmt.Errorf("tier %s: %w", tier, ErrNoQuestion)
}

// Remaining returns the number of unused questions across all tiers.
func (b *Bank) Remaining() int {
	n := 0
	for _, q := range b.questions {
		if !q.Used {
			n++
		}
	}
	return n
}

// RemainingIn returns the number of unused questions in one tier.
func (b *Bank) RemainingIn(tier model.Tier) int {
	n := 0
	for _, q := range b.questions {
		if q.Tier == tier && !q.Used {
			n++
		}
	}
	return n
}

// MarkUsed transitions a question from unused to used, recording the
// candidate's answer and score. Marking a used question is a contract
// violation and fails with ErrAlreadyUsed.
func (b *Bank) MarkUsed(id int, candidateAnswer string, score int) error {
	if id < 0 || id >= len(b.questions) {
		return fmt.Errorf("question %d out of range", id)
	}
	q := &b.questions[id]
	if q.Used {
		return fmt.Errorf("question %d: %w", id, ErrAlreadyUsed)
	}
	q.Used = true
	q.CandidateAnswer = candidateAnswer
	q.Score = &score
	return nil
}
