package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/classroom-ai/quizgen/internal/i18n"
	"github.com/classroom-ai/quizgen/internal/insight"
	"github.com/classroom-ai/quizgen/internal/model"
	"github.com/classroom-ai/quizgen/internal/store"
)

// Analyst produces the report's AI commentary. Any error from either method
// degrades that section to a placeholder, it never aborts the report.
type Analyst interface {
	AnalyzeQuiz(ctx context.Context, record *model.QuizRecord, students []model.StudentRecord) (string, error)
	AnalyzeFeedback(ctx context.Context, themes map[string][]string, stats []insight.ColumnSummary) (string, error)
}

// Config selects the report inputs and output location.
type Config struct {
	Store *store.FileStore
	// FeedbackPath optionally points at a class feedback CSV.
	FeedbackPath string
	OutputPath   string
	// Analyst may be nil, in which case commentary sections show the
	// unavailable placeholder.
	Analyst Analyst
	// Lang selects the report language tag, "en" when empty.
	Lang string
}

// reportData is everything the PDF renderer consumes.
type reportData struct {
	Record          *model.QuizRecord
	Analysis        *Analysis
	Tallies         []QuestionTally
	Feedback        *FeedbackAnalysis
	QuizInsight     string
	FeedbackInsight string
	Now             time.Time
}

// Generate builds the full PDF report. A missing quiz record is fatal; every
// other input (student results, feedback file, AI commentary) degrades to a
// report without that section.
func Generate(ctx context.Context, cfg Config) error {
	record, err := cfg.Store.LoadQuizRecord()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no quiz has been generated yet, expected %s in %s: %w",
				store.QuizRecordFile, cfg.Store.Dir(), err)
		}
		return err
	}

	students, err := cfg.Store.LoadStudentRecords()
	if err != nil {
		slog.Warn("student results unavailable", "error", err)
		students = nil
	}

	d := &reportData{
		Record:   record,
		Analysis: Analyze(record),
		Tallies:  AggregateStudents(students),
		Now:      time.Now(),
	}

	if cfg.FeedbackPath != "" {
		table, err := store.LoadFeedback(cfg.FeedbackPath)
		if err != nil {
			slog.Warn("feedback analysis skipped", "path", cfg.FeedbackPath, "error", err)
		} else {
			d.Feedback = AnalyzeFeedback(table)
		}
	}

	if cfg.Analyst != nil {
		text, err := cfg.Analyst.AnalyzeQuiz(ctx, record, students)
		if err != nil {
			slog.Warn("quiz commentary unavailable", "error", err)
		} else {
			d.QuizInsight = text
		}

		if d.Feedback != nil {
			text, err := cfg.Analyst.AnalyzeFeedback(ctx, themeTokens(d.Feedback), columnSummaries(d.Feedback.Stats))
			if err != nil {
				slog.Warn("feedback commentary unavailable", "error", err)
			} else {
				d.FeedbackInsight = text
			}
		}
	}

	lang := cfg.Lang
	if lang == "" {
		lang = "en"
	}
	ctx = i18n.WithLocalizer(ctx, i18n.NewLocalizer(lang))

	if err := writePDF(ctx, cfg.OutputPath, d); err != nil {
		return err
	}
	slog.Info("report written", "path", cfg.OutputPath, "questions", d.Analysis.TotalQuestions,
		"students", len(students), "feedback", d.Feedback != nil)
	return nil
}

// themeTokens flattens the frequency tables into the plain token lists the
// commentary prompt expects.
func themeTokens(fa *FeedbackAnalysis) map[string][]string {
	themes := make(map[string][]string, len(fa.Themes))
	for _, name := range fa.ColumnOrder {
		tokens := make([]string, 0, len(fa.Themes[name]))
		for _, tc := range fa.Themes[name] {
			tokens = append(tokens, tc.Token)
		}
		themes[name] = tokens
	}
	return themes
}

func columnSummaries(stats []ColumnStats) []insight.ColumnSummary {
	out := make([]insight.ColumnSummary, 0, len(stats))
	for _, st := range stats {
		out = append(out, insight.ColumnSummary{
			Name:   st.Name,
			Mean:   st.Mean,
			StdDev: st.StdDev,
			Min:    st.Min,
			Max:    st.Max,
		})
	}
	return out
}

// writePDF renders into a temp file next to the target and renames it in, so
// a half-rendered report never replaces a previous complete one.
func writePDF(ctx context.Context, path string, d *reportData) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}
	tmpName := tmp.Name()

	if err := renderPDF(ctx, tmp, d); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("render report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp report file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}
