// Package report renders a finished viva session into its persisted
// artifacts: the plain-text report and the CSV results log.
package report

import (
	"fmt"
	"strings"

	"github.com/evalumate/evalumate/internal/model"
)

const rule = 70

// Build renders the structured text report for a session. The output is
// deterministic: the same questions and metadata always produce
// byte-identical text. Unanswered questions are listed with explicit
// "[Not answered]" and "[Not evaluated]" markers.
func Build(student model.StudentInfo, questions []model.Question) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Name: %s\nGrade: %s\nSubject: %s\nBook Title: %s\n\n",
		student.Name, student.Grade, student.Subject, student.BookTitle)
	sb.WriteString("Structured Viva Questions, Answers, and Scores\n")
	sb.WriteString(strings.Repeat("=", rule) + "\n\n")

	for i, q := range questions {
		fmt.Fprintf(&sb, "[%d] Difficulty: %s\n", i+1, q.Tier)
		fmt.Fprintf(&sb, "Q: %s\n", q.Text)
		fmt.Fprintf(&sb, "LLM Answer: %s\n", q.ReferenceAnswer)

		userAnswer := q.CandidateAnswer
		if userAnswer == "" {
			userAnswer = "[Not answered]"
		}
		fmt.Fprintf(&sb, "User Answer: %s\n", userAnswer)

		score := "[Not evaluated]"
		if q.Score != nil {
			score = fmt.Sprintf("%d", *q.Score)
		}
		fmt.Fprintf(&sb, "Score: %s / %d\n", score, model.MaxScore)
		sb.WriteString(strings.Repeat("-", rule) + "\n")
	}

	return sb.String()
}
