// Package prompts builds the chat prompts for question generation and
// answer evaluation.
package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	answerTagRegex       = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	instructionsTagRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// Generation asks for fifteen questions in the exact three-section
// format the bank parser expects. The section headers and the Q/A
// colon layout are load-bearing: do not reword them.
func Generation(content string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert examiner. Based on the following content:\n\n")
	sb.WriteString("--- CONTENT START ---\n")
	sb.WriteString(content)
	sb.WriteString("\n--- CONTENT END ---\n\n")
	sb.WriteString("Generate 15 viva questions along with their answers:\n")
	sb.WriteString("- 5 Easy\n- 5 Moderate\n- 5 Difficult\n\n")
	sb.WriteString("Format exactly like this:\n\n")
	sb.WriteString("Easy:\nQ1: ...\nA1: ...\n...\n\n")
	sb.WriteString("Moderate:\nQ6: ...\nA6: ...\n...\n\n")
	sb.WriteString("Difficult:\nQ11: ...\nA11: ...\n...\n")
	return sb.String()
}

// Evaluation asks for a bare numeric score so the reply parses as a
// single integer.
func Evaluation(question, referenceAnswer, candidateAnswer string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict examiner. Here is the question, the correct answer, and a student's answer.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	fmt.Fprintf(&sb, "Correct Answer: %s\n\n", referenceAnswer)
	fmt.Fprintf(&sb, "Student's Answer: %s\n\n", SanitizeAnswer(candidateAnswer))
	sb.WriteString("Evaluate the student's answer strictly and give a score out of 10. ")
	sb.WriteString("Just reply with a number between 0 and 10. No explanation, no extra words.\n")
	return sb.String()
}

// SanitizeAnswer strips prompt-injection tags from a candidate answer
// and truncates overlong input.
func SanitizeAnswer(answer string) string {
	answer = answerTagRegex.ReplaceAllString(answer, "")
	answer = instructionsTagRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
