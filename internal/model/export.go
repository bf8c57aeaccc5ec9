package model

import "time"

// ReportExport is the top-level JSON structure for the export command.
type ReportExport struct {
	ExamID  string        `json:"exam_id"`
	Subject string        `json:"subject"`
	Date    string        `json:"date"`
	Results []StudentViva `json:"results"`
}

// StudentViva holds one student's finished viva for export.
type StudentViva struct {
	Student        StudentInfo     `json:"student"`
	QuestionsAsked int             `json:"questions_asked"`
	Correct        int             `json:"correct"`
	Incorrect      int             `json:"incorrect"`
	ScoreSum       int             `json:"score_sum"`
	CreatedAt      time.Time       `json:"created_at"`
	Outcomes       []OutcomeRecord `json:"outcomes"`
}

// ExamInfo is exam-level metadata stored alongside reports.
type ExamInfo struct {
	ExamID  string
	Subject string
	Date    string
}
