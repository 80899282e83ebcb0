package report

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/classroom-ai/quizgen/internal/i18n"
	"github.com/classroom-ai/quizgen/internal/insight"
	"github.com/classroom-ai/quizgen/internal/model"
	"github.com/classroom-ai/quizgen/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeAnalyst struct {
	quizText       string
	feedbackText   string
	err            error
	feedbackCalled bool
}

func (f *fakeAnalyst) AnalyzeQuiz(_ context.Context, _ *model.QuizRecord, _ []model.StudentRecord) (string, error) {
	return f.quizText, f.err
}

func (f *fakeAnalyst) AnalyzeFeedback(_ context.Context, _ map[string][]string, _ []insight.ColumnSummary) (string, error) {
	f.feedbackCalled = true
	return f.feedbackText, f.err
}

func seededStore(t *testing.T) (*store.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	rec := model.QuizRecord{
		ID:           "quiz-1",
		Prompt:       "photosynthesis",
		NumQuestions: 2,
		CreatedAt:    time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Questions: []model.QuizQuestion{
			{
				Question:    "What pigment absorbs light?",
				Options:     map[string]string{"a": "Chlorophyll", "b": "Keratin", "c": "Melanin", "d": "Hemoglobin"},
				Correct:     "a",
				Explanation: "Chlorophyll absorbs red and blue light for the light reactions.",
			},
			{
				Question:    "How is glucose produced?",
				Options:     map[string]string{"a": "Respiration", "b": "The Calvin cycle"},
				Correct:     "b",
				Explanation: "Carbon fixation in the Calvin cycle builds glucose.",
			},
		},
	}
	if err := st.SaveQuizRecord(rec); err != nil {
		t.Fatalf("SaveQuizRecord: %v", err)
	}
	return st, dir
}

func requirePDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", data[:min(8, len(data))])
	}
}

func TestGenerateQuizOnly(t *testing.T) {
	st, dir := seededStore(t)
	out := filepath.Join(dir, "report.pdf")

	err := Generate(context.Background(), Config{Store: st, OutputPath: out})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	requirePDF(t, out)

	// No leftover temp files from the atomic write.
	matches, _ := filepath.Glob(filepath.Join(dir, "report.pdf.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestGenerateMissingQuizRecord(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	err = Generate(context.Background(), Config{Store: st, OutputPath: filepath.Join(dir, "report.pdf")})
	if err == nil {
		t.Fatal("expected error for missing quiz record")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error should wrap fs.ErrNotExist, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "report.pdf")); statErr == nil {
		t.Error("no report should be written when the quiz record is missing")
	}
}

func TestGenerateWithStudentsAndFeedback(t *testing.T) {
	st, dir := seededStore(t)
	if err := st.SaveStudentRecord(model.StudentRecord{
		ID: "s1",
		Results: []model.StudentResult{
			{Question: "What pigment absorbs light?", Selected: "a", Correct: "a", IsCorrect: true},
			{Question: "How is glucose produced?", Selected: "a", Correct: "b", IsCorrect: false},
		},
	}); err != nil {
		t.Fatalf("SaveStudentRecord: %v", err)
	}

	feedbackPath := filepath.Join(dir, "feedback.csv")
	csv := "Enjoyed,Unclear,Improve,Pace,Comments,Content,Delivery\n" +
		"labs were great,nothing,more labs,fine,thanks,9,8\n" +
		"the labs,diagrams,shorter lectures,fast,,8,7\n"
	if err := os.WriteFile(feedbackPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	analyst := &fakeAnalyst{quizText: "Students did well.\n\nKeep the labs.", feedbackText: "Ratings are strong."}
	out := filepath.Join(dir, "report.pdf")
	err := Generate(context.Background(), Config{
		Store:        st,
		FeedbackPath: feedbackPath,
		OutputPath:   out,
		Analyst:      analyst,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	requirePDF(t, out)
	if !analyst.feedbackCalled {
		t.Error("feedback commentary was never requested")
	}
}

func TestGenerateAnalystFailureDegrades(t *testing.T) {
	st, dir := seededStore(t)
	out := filepath.Join(dir, "report.pdf")

	analyst := &fakeAnalyst{err: errors.New("model offline")}
	err := Generate(context.Background(), Config{Store: st, OutputPath: out, Analyst: analyst})
	if err != nil {
		t.Fatalf("analyst failure must not abort the report: %v", err)
	}
	requirePDF(t, out)
}

func TestGenerateBadFeedbackDegrades(t *testing.T) {
	st, dir := seededStore(t)
	out := filepath.Join(dir, "report.pdf")

	err := Generate(context.Background(), Config{
		Store:        st,
		FeedbackPath: filepath.Join(dir, "nope.csv"),
		OutputPath:   out,
	})
	if err != nil {
		t.Fatalf("missing feedback must not abort the report: %v", err)
	}
	requirePDF(t, out)
}

func TestGenerateSpanish(t *testing.T) {
	st, dir := seededStore(t)
	out := filepath.Join(dir, "informe.pdf")

	err := Generate(context.Background(), Config{Store: st, OutputPath: out, Lang: "es"})
	if err != nil {
		t.Fatalf("Generate(es): %v", err)
	}
	requirePDF(t, out)
}
