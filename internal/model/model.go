package model

import (
	"fmt"
	"time"
)

// QuizQuestion is a single multiple-choice question as produced by the
// generation model. Options are keyed by short option letters ("a".."d").
type QuizQuestion struct {
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation"`
}

// Validate checks the structural invariants of a generated question.
// The correct answer must always be one of the option letters.
func (q QuizQuestion) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q has %d options, need at least 2", q.Question, len(q.Options))
	}
	if q.Correct == "" {
		return fmt.Errorf("question %q has no correct answer", q.Question)
	}
	if _, ok := q.Options[q.Correct]; !ok {
		return fmt.Errorf("question %q: correct answer %q is not an option letter", q.Question, q.Correct)
	}
	return nil
}

// QuizRecord is the persisted result of one successful generation.
// JSON keys follow the quiz_response.json layout consumed by the report.
type QuizRecord struct {
	ID             string         `json:"id"`
	Prompt         string         `json:"prompt"`
	NumQuestions   int            `json:"num_quizzes"`
	PriorQuestions string         `json:"questions,omitempty"`
	Questions      []QuizQuestion `json:"quiz_questions"`
	CreatedAt      time.Time      `json:"timestamp"`
}

// StudentResult records the outcome of one answered question.
type StudentResult struct {
	Question  string `json:"question"`
	Selected  string `json:"selected,omitempty"`
	Correct   string `json:"correct"`
	IsCorrect bool   `json:"is_correct"`
}

// StudentRecord is one student's scored quiz run, persisted as
// student_response_<id>.json and consumed by the report aggregator.
type StudentRecord struct {
	ID          string          `json:"id"`
	QuizID      string          `json:"quiz_id,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Results     []StudentResult `json:"results"`
}

// FeedbackColumn is one free-text column of the class feedback file.
type FeedbackColumn struct {
	Name   string
	Values []string
}

// NumericColumn is one numeric-rating column of the class feedback file.
// Cells that failed to parse as numbers are not included.
type NumericColumn struct {
	Name   string
	Values []float64
}

// FeedbackTable holds the parsed class feedback file: the first five
// columns are free text, the remaining columns are numeric ratings.
type FeedbackTable struct {
	TextColumns    []FeedbackColumn
	NumericColumns []NumericColumn
}
