package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/classroom-ai/quizgen/internal/i18n"
	"github.com/classroom-ai/quizgen/internal/model"
)

// Page layout bounds. Charts are placed manually, everything else flows
// through fpdf's auto page break.
const (
	chartImageW = 170.0
	chartImageH = 85.0
	pageBottomY = 270.0
)

// renderer carries the fpdf handle and the cp1252 translator through the
// report sections.
type renderer struct {
	ctx context.Context
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func renderPDF(ctx context.Context, w io.Writer, d *reportData) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 18)
	r := &renderer{ctx: ctx, pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.AddPage()
	r.title()
	r.executiveSummary(d)
	r.contentAnalysis(d.Analysis)
	r.qualityAssessment(d.Analysis)
	r.commentarySection(i18n.T(ctx, "section.insights"), d.QuizInsight)
	if err := r.visualAnalytics(d.Analysis); err != nil {
		return err
	}
	r.questionDetail(d.Record.Questions)
	r.studentPerformance(d.Tallies)
	if d.Feedback != nil {
		r.feedback(d.Feedback, d.FeedbackInsight)
	}
	r.recommendations()

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("assemble pdf: %w", err)
	}
	return pdf.Output(w)
}

func (r *renderer) title() {
	r.pdf.SetFont("Helvetica", "B", 18)
	r.pdf.MultiCell(0, 10, r.tr(i18n.T(r.ctx, "report.title")), "", "C", false)
	r.pdf.Ln(4)
}

func (r *renderer) heading(text string) {
	if r.pdf.GetY() > pageBottomY-25 {
		r.pdf.AddPage()
	}
	r.pdf.SetFont("Helvetica", "B", 14)
	r.pdf.CellFormat(0, 9, r.tr(text), "", 1, "L", false, 0, "")
	r.pdf.Ln(1)
}

func (r *renderer) paragraph(text string) {
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.MultiCell(0, 5, r.tr(text), "", "L", false)
	r.pdf.Ln(2)
}

func (r *renderer) line(text string) {
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.CellFormat(0, 6, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *renderer) executiveSummary(d *reportData) {
	r.heading(i18n.T(r.ctx, "report.exec_summary"))
	r.line(i18n.Td(r.ctx, "report.exec_topic", map[string]any{"Topic": d.Record.Prompt}))
	r.line(i18n.Td(r.ctx, "report.exec_questions", map[string]any{"Count": d.Analysis.TotalQuestions}))
	r.line(i18n.Td(r.ctx, "report.exec_generated", map[string]any{"When": d.Record.CreatedAt.Format("2006-01-02 15:04")}))
	r.line(i18n.Td(r.ctx, "report.exec_report_date", map[string]any{"When": d.Now.Format("2006-01-02 15:04")}))
	r.pdf.Ln(2)
	r.paragraph(i18n.T(r.ctx, "report.exec_blurb"))
}

func (r *renderer) metricTable(rows [][2]string) {
	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.CellFormat(130, 7, r.tr(i18n.T(r.ctx, "table.metric")), "1", 0, "L", false, 0, "")
	r.pdf.CellFormat(40, 7, r.tr(i18n.T(r.ctx, "table.value")), "1", 1, "R", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		r.pdf.CellFormat(130, 7, r.tr(row[0]), "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(40, 7, row[1], "1", 1, "R", false, 0, "")
	}
	r.pdf.Ln(4)
}

func (r *renderer) contentAnalysis(a *Analysis) {
	r.heading(i18n.T(r.ctx, "section.content_analysis"))

	rows := [][2]string{
		{i18n.T(r.ctx, "metric.total_questions"), strconv.Itoa(a.TotalQuestions)},
		{i18n.T(r.ctx, "metric.total_options"), strconv.Itoa(a.TotalOptions)},
	}
	for _, qt := range QuestionTypeOrder {
		if count := a.QuestionTypes[qt]; count > 0 {
			label := i18n.Td(r.ctx, "metric.type_count", map[string]any{"Type": string(qt)})
			rows = append(rows, [2]string{label, strconv.Itoa(count)})
		}
	}
	for _, level := range CognitiveLevelOrder {
		if count := a.CognitiveLevels[level]; count > 0 {
			rows = append(rows, [2]string{level, strconv.Itoa(count)})
		}
	}
	r.metricTable(rows)
}

func (r *renderer) qualityAssessment(a *Analysis) {
	r.heading(i18n.T(r.ctx, "section.quality"))
	r.paragraph(i18n.Td(r.ctx, "quality.body", map[string]any{
		"QuestionTerms":    len(a.WordFrequencies[CategoryQuestions]),
		"ExplanationTerms": len(a.WordFrequencies[CategoryExplanations]),
		"Levels":           len(a.CognitiveLevels),
		"Types":            len(a.QuestionTypes),
	}))
}

// commentarySection renders one AI commentary block, falling back to the
// unavailable placeholder.
func (r *renderer) commentarySection(title, text string) {
	r.heading(title)
	r.prose(text)
}

func (r *renderer) prose(text string) {
	if text == "" {
		text = i18n.T(r.ctx, "report.analysis_unavailable")
	}
	for _, para := range strings.Split(text, "\n\n") {
		r.paragraph(para)
	}
}

func (r *renderer) visualAnalytics(a *Analysis) error {
	r.heading(i18n.T(r.ctx, "section.visuals"))

	png, err := questionTypeChart(a, i18n.T(r.ctx, "chart.types"))
	if err != nil {
		return err
	}
	r.embedChart("question-types", png)

	png, err = complexityChart(a, i18n.T(r.ctx, "chart.complexity"))
	if err != nil {
		return err
	}
	r.embedChart("complexity", png)

	for _, cat := range CategoryOrder {
		title := i18n.Td(r.ctx, "chart.tokens", map[string]any{"Category": cat})
		png, err = frequencyChart(title, a.WordFrequencies[cat])
		if err != nil {
			return err
		}
		r.embedChart("tokens-"+cat, png)
	}
	return nil
}

func (r *renderer) embedChart(name string, png []byte) {
	if len(png) == 0 {
		return
	}
	if r.pdf.GetY()+chartImageH > pageBottomY {
		r.pdf.AddPage()
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	r.pdf.ImageOptions(name, 20, r.pdf.GetY(), chartImageW, chartImageH, true, opts, 0, "")
	r.pdf.Ln(6)
}

func (r *renderer) questionDetail(questions []model.QuizQuestion) {
	r.heading(i18n.T(r.ctx, "section.questions"))
	marker := i18n.T(r.ctx, "question.correct_marker")

	for i, q := range questions {
		if r.pdf.GetY() > pageBottomY-40 {
			r.pdf.AddPage()
		}
		stem := i18n.Td(r.ctx, "question.stem", map[string]any{"Number": i + 1})
		r.pdf.SetFont("Helvetica", "B", 10)
		r.pdf.MultiCell(0, 5, r.tr(stem+": "+q.Question), "", "L", false)

		r.pdf.SetFont("Helvetica", "", 10)
		for _, letter := range sortedLetters(q.Options) {
			text := fmt.Sprintf("   %s) %s", letter, q.Options[letter])
			if letter == q.Correct {
				text += " " + marker
			}
			r.pdf.MultiCell(0, 5, r.tr(text), "", "L", false)
		}

		r.pdf.SetFont("Helvetica", "I", 10)
		r.pdf.MultiCell(0, 5, r.tr(i18n.T(r.ctx, "label.explanation")+": "+q.Explanation), "", "L", false)
		r.pdf.Ln(3)
	}
}

func (r *renderer) studentPerformance(tallies []QuestionTally) {
	if len(tallies) == 0 {
		return
	}
	r.heading(i18n.T(r.ctx, "section.performance"))

	correctLabel := i18n.T(r.ctx, "table.correct")
	wrongLabel := i18n.T(r.ctx, "table.wrong")
	for i, t := range tallies {
		r.pdf.SetFont("Helvetica", "B", 10)
		r.pdf.MultiCell(0, 5, r.tr(fmt.Sprintf("%d. %s", i+1, t.Question)), "", "L", false)
		r.pdf.SetFont("Helvetica", "", 10)
		r.pdf.CellFormat(0, 5, r.tr(fmt.Sprintf("%s: %d    %s: %d", correctLabel, t.Correct, wrongLabel, t.Wrong)), "", 1, "L", false, 0, "")
		r.pdf.Ln(1)
	}
	r.pdf.Ln(2)
}

func (r *renderer) feedback(fa *FeedbackAnalysis, commentary string) {
	r.heading(i18n.T(r.ctx, "section.feedback"))

	if len(fa.Stats) > 0 {
		r.pdf.SetFont("Helvetica", "B", 9)
		r.pdf.CellFormat(50, 7, r.tr(i18n.T(r.ctx, "table.metric")), "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(22, 7, r.tr(i18n.T(r.ctx, "table.mean")), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(24, 7, r.tr(i18n.T(r.ctx, "table.std")), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(18, 7, r.tr(i18n.T(r.ctx, "table.min")), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(18, 7, r.tr(i18n.T(r.ctx, "table.max")), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(38, 7, r.tr(i18n.T(r.ctx, "table.interpretation")), "1", 1, "L", false, 0, "")

		r.pdf.SetFont("Helvetica", "", 9)
		for _, st := range fa.Stats {
			r.pdf.CellFormat(50, 7, r.tr(st.Name), "1", 0, "L", false, 0, "")
			r.pdf.CellFormat(22, 7, fmtFloat(st.Mean), "1", 0, "R", false, 0, "")
			r.pdf.CellFormat(24, 7, fmtFloat(st.StdDev), "1", 0, "R", false, 0, "")
			r.pdf.CellFormat(18, 7, fmtFloat(st.Min), "1", 0, "R", false, 0, "")
			r.pdf.CellFormat(18, 7, fmtFloat(st.Max), "1", 0, "R", false, 0, "")
			r.pdf.CellFormat(38, 7, r.tr(i18n.T(r.ctx, InterpretationBand(st.Mean))), "1", 1, "L", false, 0, "")
		}
		r.pdf.Ln(4)
	}

	for _, name := range fa.ColumnOrder {
		themes := fa.Themes[name]
		if len(themes) == 0 {
			continue
		}
		r.pdf.SetFont("Helvetica", "B", 10)
		r.pdf.CellFormat(0, 6, r.tr(name), "", 1, "L", false, 0, "")
		parts := make([]string, 0, len(themes))
		for _, tc := range themes {
			parts = append(parts, fmt.Sprintf("%s (%d)", tc.Token, tc.Count))
		}
		r.paragraph(strings.Join(parts, ", "))
	}

	r.prose(commentary)
}

func (r *renderer) recommendations() {
	r.heading(i18n.T(r.ctx, "section.recommendations"))
	r.paragraph(i18n.T(r.ctx, "rec.body"))
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
