// Package handler exposes the quiz workflow over HTTP: generation, answer
// collection, scoring, and session restart.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classroom-ai/quizgen/internal/llm"
	"github.com/classroom-ai/quizgen/internal/model"
	"github.com/classroom-ai/quizgen/internal/quiz"
	"github.com/classroom-ai/quizgen/internal/store"
)

// Generator is the quiz generation gateway. Satisfied by *llm.Client.
type Generator interface {
	GenerateQuiz(ctx context.Context, req llm.Request) ([]model.QuizQuestion, error)
}

const (
	// maxQuestions bounds how many questions one request may ask for.
	maxQuestions = 10
	// maxUploadBytes bounds the lecture document upload.
	maxUploadBytes = 20 << 20

	sessionCookie = "quiz_session"
)

// Handler carries the request handlers' shared state.
type Handler struct {
	generator Generator
	store     *store.FileStore
	sessions  *quiz.Manager

	// mu serializes session transitions; sessions themselves are
	// single-actor.
	mu     sync.Mutex
	quizID string
}

// New creates the HTTP handler set.
func New(gen Generator, st *store.FileStore) *Handler {
	return &Handler{
		generator: gen,
		store:     st,
		sessions:  quiz.NewManager(),
	}
}

// Routes builds the router. Middleware is attached by the server setup.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Post("/generate-quiz", h.generateQuiz)
	r.Get("/quiz", h.getQuiz)
	r.Post("/quiz/answer", h.answer)
	r.Post("/quiz/submit", h.submit)
	r.Post("/quiz/restart", h.restart)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the caller's session, creating one (and setting the
// cookie) on first contact.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *quiz.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s := h.sessions.Get(c.Value); s != nil {
			return s
		}
	}
	id, s := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return s
}

func (h *Handler) generateQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	count, err := strconv.Atoi(r.FormValue("num_quizzes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "num_quizzes must be a number")
		return
	}
	if count < 1 || count > maxQuestions {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("num_quizzes must be between 1 and %d", maxQuestions))
		return
	}
	priorQuestions := strings.TrimSpace(r.FormValue("questions"))

	attachment, mime, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions, err := h.generator.GenerateQuiz(r.Context(), llm.Request{
		Topic:          prompt,
		Count:          count,
		PriorQuestions: priorQuestions,
		Attachment:     attachment,
		AttachmentMIME: mime,
	})
	if err != nil {
		status, msg := mapGenerationError(err)
		slog.Error("quiz generation failed", "error", err, "status", status)
		writeError(w, status, msg)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(w, r)
	s.Restart()
	if err := s.Begin(questions); err != nil {
		slog.Error("generated questions rejected", "error", err)
		writeError(w, http.StatusInternalServerError, "model returned an unusable question set")
		return
	}

	rec := model.QuizRecord{
		ID:             uuid.New().String(),
		Prompt:         prompt,
		NumQuestions:   count,
		PriorQuestions: priorQuestions,
		Questions:      questions,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.store.SaveQuizRecord(rec); err != nil {
		slog.Error("persist quiz record", "error", err)
		writeError(w, http.StatusInternalServerError, "could not persist the quiz")
		return
	}
	h.quizID = rec.ID

	slog.Info("quiz generated", "quiz_id", rec.ID, "questions", len(questions))
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(w, r)
	resp := map[string]any{
		"phase":     s.Phase(),
		"questions": s.Questions(),
		"answers":   s.Answers(),
	}
	if s.Phase() == quiz.PhaseScored {
		if summary, err := s.Score(); err == nil {
			resp["score"] = summary
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	letter := r.FormValue("answer")
	if letter == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(w, r)
	if err := s.RecordAnswer(index, letter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(w, r)
	summary, err := s.Submit()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := model.StudentRecord{
		ID:          uuid.New().String(),
		QuizID:      h.quizID,
		SubmittedAt: time.Now().UTC(),
		Results:     summary.StudentResults(),
	}
	// The score is already final; a persistence failure only costs the
	// report one record.
	if err := h.store.SaveStudentRecord(rec); err != nil {
		slog.Error("persist student record", "error", err, "record_id", rec.ID)
	}

	slog.Info("quiz submitted", "record_id", rec.ID, "correct", summary.Correct, "total", summary.Total)
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session(w, r)
	s.Restart()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mapGenerationError translates gateway failures into HTTP status codes.
// Response bodies stay generic; details go to the log.
func mapGenerationError(err error) (int, string) {
	var gw *llm.GatewayError
	var pe *llm.ParseError
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusGatewayTimeout, "generation service unavailable"
	case errors.As(err, &gw):
		return http.StatusBadGateway, "generation service error"
	case errors.As(err, &pe):
		return http.StatusInternalServerError, "model returned an unusable reply"
	default:
		return http.StatusInternalServerError, "quiz generation failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
