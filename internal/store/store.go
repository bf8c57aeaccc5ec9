package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/evalumate/evalumate/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		grade TEXT NOT NULL,
		subject TEXT NOT NULL,
		book_title TEXT NOT NULL,
		questions_asked INTEGER NOT NULL DEFAULT 0,
		correct INTEGER NOT NULL DEFAULT 0,
		incorrect INTEGER NOT NULL DEFAULT 0,
		score_sum INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		tier TEXT NOT NULL,
		question TEXT NOT NULL,
		reference_answer TEXT NOT NULL,
		candidate_answer TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (report_id) REFERENCES reports(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'examiner',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport persists a finished session's report together with its
// outcome records in one transaction.
func (s *Store) SaveReport(r model.Report, outcomes []model.OutcomeRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO reports (name, grade, subject, book_title, questions_asked, correct, incorrect, score_sum, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Student.Name, r.Student.Grade, r.Student.Subject, r.Student.BookTitle,
		r.QuestionsAsked, r.Correct, r.Incorrect, r.ScoreSum, r.Body, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, o := range outcomes {
		_, err := tx.Exec(
			`INSERT INTO outcomes (report_id, position, tier, question, reference_answer, candidate_answer, score, elapsed_ms, feedback)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reportID, i, o.Tier, o.Question, o.ReferenceAnswer, o.CandidateAnswer,
			o.Score, o.Elapsed.Milliseconds(), o.Feedback,
		)
		if err != nil {
			return 0, err
		}
	}

	return reportID, tx.Commit()
}

// GetReport returns a persisted report by ID.
func (s *Store) GetReport(id int64) (model.Report, error) {
	var r model.Report
	err := s.db.QueryRow(
		`SELECT id, name, grade, subject, book_title, questions_asked, correct, incorrect, score_sum, body, created_at
		 FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Student.Name, &r.Student.Grade, &r.Student.Subject, &r.Student.BookTitle,
		&r.QuestionsAsked, &r.Correct, &r.Incorrect, &r.ScoreSum, &r.Body, &r.CreatedAt)
	return r, err
}

// GetOutcomes returns a report's outcome records in chronological order.
func (s *Store) GetOutcomes(reportID int64) ([]model.OutcomeRecord, error) {
	rows, err := s.db.Query(
		`SELECT tier, question, reference_answer, candidate_answer, score, elapsed_ms, feedback
		 FROM outcomes WHERE report_id = ? ORDER BY position`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var outcomes []model.OutcomeRecord
	for rows.Next() {
		var o model.OutcomeRecord
		var elapsedMs int64
		if err := rows.Scan(&o.Tier, &o.Question, &o.ReferenceAnswer, &o.CandidateAnswer, &o.Score, &elapsedMs, &o.Feedback); err != nil {
			return nil, err
		}
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// ListReports returns all persisted reports, newest first.
func (s *Store) ListReports() ([]model.Report, error) {
	rows, err := s.db.Query(
		`SELECT id, name, grade, subject, book_title, questions_asked, correct, incorrect, score_sum, body, created_at
		 FROM reports ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []model.Report
	for rows.Next() {
		var r model.Report
		if err := rows.Scan(&r.ID, &r.Student.Name, &r.Student.Grade, &r.Student.Subject, &r.Student.BookTitle,
			&r.QuestionsAsked, &r.Correct, &r.Incorrect, &r.ScoreSum, &r.Body, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ReportCount returns the number of persisted reports.
func (s *Store) ReportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}
