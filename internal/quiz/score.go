package quiz

import (
	"github.com/classroom-ai/quizgen/internal/model"
)

// QuestionScore is the scoring outcome for a single question.
type QuestionScore struct {
	Index     int    `json:"index"`
	Question  string `json:"question"`
	Selected  string `json:"selected,omitempty"`
	Correct   string `json:"correct"`
	IsCorrect bool   `json:"is_correct"`
}

// Summary aggregates per-question scores. A summary with Total == 0 means
// there was nothing to score; callers should render it as "no data" rather
// than a percentage.
type Summary struct {
	Correct     int             `json:"correct"`
	Total       int             `json:"total"`
	PerQuestion []QuestionScore `json:"per_question"`
}

// HasData reports whether the summary covers at least one question.
func (s Summary) HasData() bool { return s.Total > 0 }

// ScoreAnswers compares recorded answers against the answer key. A missing
// answer counts as incorrect, never as an error.
func ScoreAnswers(questions []model.QuizQuestion, answers map[int]string) Summary {
	sum := Summary{Total: len(questions)}
	for i, q := range questions {
		selected := answers[i]
		qs := QuestionScore{
			Index:     i,
			Question:  q.Question,
			Selected:  selected,
			Correct:   q.Correct,
			IsCorrect: selected == q.Correct,
		}
		if qs.IsCorrect {
			sum.Correct++
		}
		sum.PerQuestion = append(sum.PerQuestion, qs)
	}
	return sum
}

// StudentResults converts a summary into the persisted per-student record
// entries consumed by the report aggregator.
func (s Summary) StudentResults() []model.StudentResult {
	results := make([]model.StudentResult, 0, len(s.PerQuestion))
	for _, qs := range s.PerQuestion {
		results = append(results, model.StudentResult{
			Question:  qs.Question,
			Selected:  qs.Selected,
			Correct:   qs.Correct,
			IsCorrect: qs.IsCorrect,
		})
	}
	return results
}
