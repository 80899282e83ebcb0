// Package quiz implements the quiz session lifecycle: a session is created
// empty, receives a generated question set, collects answers one at a time,
// and is scored on submission. Every failed transition leaves the session
// exactly as it was.
package quiz

import (
	"fmt"

	"github.com/classroom-ai/quizgen/internal/model"
)

// Phase is the lifecycle phase of a quiz session.
type Phase string

const (
	// PhaseGenerating means no questions are loaded yet.
	PhaseGenerating Phase = "generating"
	// PhaseAnswering means questions are loaded and answers are being collected.
	PhaseAnswering Phase = "answering"
	// PhaseScored is the terminal display phase after submission.
	PhaseScored Phase = "scored"
)

// Session tracks one user's quiz from generation through scoring.
// It is single-actor: callers that share a session across goroutines
// must serialize access themselves (see Manager).
type Session struct {
	phase     Phase
	questions []model.QuizQuestion
	answers   map[int]string
}

// NewSession creates an empty session in the generating phase.
func NewSession() *Session {
	return &Session{
		phase:   PhaseGenerating,
		answers: make(map[int]string),
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Questions returns the loaded question set (nil while generating).
func (s *Session) Questions() []model.QuizQuestion { return s.questions }

// Answers returns a copy of the recorded answers keyed by question index.
func (s *Session) Answers() map[int]string {
	out := make(map[int]string, len(s.answers))
	for i, letter := range s.answers {
		out[i] = letter
	}
	return out
}

// Begin loads a generated question set and moves the session to the
// answering phase. It is only valid while generating; every question must
// pass validation or the session stays untouched.
func (s *Session) Begin(questions []model.QuizQuestion) error {
	if s.phase != PhaseGenerating {
		return fmt.Errorf("cannot load questions in phase %q", s.phase)
	}
	if len(questions) == 0 {
		return fmt.Errorf("question set is empty")
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	s.questions = questions
	s.answers = make(map[int]string)
	s.phase = PhaseAnswering
	return nil
}

// RecordAnswer stores the chosen option letter for a question.
// The last write for an index wins. Unknown option letters are rejected so
// a typo cannot silently score as an unanswered question.
func (s *Session) RecordAnswer(index int, letter string) error {
	if s.phase != PhaseAnswering {
		return fmt.Errorf("cannot record answer in phase %q", s.phase)
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("question index %d out of range [0,%d)", index, len(s.questions))
	}
	if _, ok := s.questions[index].Options[letter]; !ok {
		return fmt.Errorf("question %d has no option %q", index, letter)
	}
	s.answers[index] = letter
	return nil
}

// Submit closes the answering phase and scores the session. There is no
// minimum number of answered questions; unanswered questions score as
// incorrect.
func (s *Session) Submit() (Summary, error) {
	if s.phase != PhaseAnswering {
		return Summary{}, fmt.Errorf("cannot submit in phase %q", s.phase)
	}
	s.phase = PhaseScored
	return ScoreAnswers(s.questions, s.answers), nil
}

// Score returns the score of a submitted session.
func (s *Session) Score() (Summary, error) {
	if s.phase != PhaseScored {
		return Summary{}, fmt.Errorf("session not scored yet (phase %q)", s.phase)
	}
	return ScoreAnswers(s.questions, s.answers), nil
}

// Restart discards questions and answers and returns to the generating
// phase. It is valid from any phase and idempotent.
func (s *Session) Restart() {
	s.phase = PhaseGenerating
	s.questions = nil
	s.answers = make(map[int]string)
}
