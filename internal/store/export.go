package store

import (
	"fmt"

	"github.com/evalumate/evalumate/internal/model"
)

// ExportAll builds export-ready results from all persisted reports.
func (s *Store) ExportAll() ([]model.StudentViva, error) {
	reports, err := s.ListReports()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var results []model.StudentViva
	for _, r := range reports {
		outcomes, err := s.GetOutcomes(r.ID)
		if err != nil {
			return nil, fmt.Errorf("get outcomes for report %d: %w", r.ID, err)
		}
		results = append(results, model.StudentViva{
			Student:        r.Student,
			QuestionsAsked: r.QuestionsAsked,
			Correct:        r.Correct,
			Incorrect:      r.Incorrect,
			ScoreSum:       r.ScoreSum,
			CreatedAt:      r.CreatedAt,
			Outcomes:       outcomes,
		})
	}

	return results, nil
}
