package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/evalumate/evalumate/internal/model"
)

var csvHeader = []string{
	"name", "grade", "subject", "book",
	"questions_asked", "correct", "incorrect", "score", "times",
}

// CSVSink appends one summary row per finished session to a CSV file.
// Appends are whole-record writes, so concurrent sessions may share a
// sink file.
type CSVSink struct {
	path string
}

// NewCSVSink returns a sink writing to the given path. The file is
// created with a header row on first append.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Append writes one session summary. It returns an error when the
// write fails; the caller decides whether to retry or surface it.
func (s *CSVSink) Append(sum model.Summary) error {
	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	times := make([]string, len(sum.Times))
	for i, d := range sum.Times {
		times[i] = fmt.Sprintf("%.2f", d.Seconds())
	}

	record := []string{
		sum.Student.Name,
		sum.Student.Grade,
		sum.Student.Subject,
		sum.Student.BookTitle,
		fmt.Sprintf("%d", sum.QuestionsAsked),
		fmt.Sprintf("%d", sum.Correct),
		fmt.Sprintf("%d", sum.Incorrect),
		fmt.Sprintf("%d/%d", sum.Correct, sum.QuestionsAsked),
		strings.Join(times, ";"),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results log: %w", err)
	}
	return nil
}
