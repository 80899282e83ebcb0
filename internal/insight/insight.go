// Package insight produces the report's pedagogical commentary through an
// OpenAI-compatible chat endpoint. The commentary is decorative: callers
// must treat every failure here as "analysis unavailable" and keep going.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/classroom-ai/quizgen/internal/model"
)

// ColumnSummary carries one numeric feedback column's descriptive statistics
// into the analysis prompt.
type ColumnSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a commentary client. baseURL may point at any
// OpenAI-compatible server (a hosted API, Ollama, ...).
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// AnalyzeQuiz asks the model for educational insights about the generated
// questions and any recorded student results. The return value is opaque
// prose for verbatim inclusion in the report.
func (c *Client) AnalyzeQuiz(ctx context.Context, record *model.QuizRecord, students []model.StudentRecord) (string, error) {
	prompt, err := buildQuizAnalysisPrompt(record, students)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, prompt)
}

// AnalyzeFeedback asks the model to interpret class feedback themes and
// rating statistics.
func (c *Client) AnalyzeFeedback(ctx context.Context, themes map[string][]string, stats []ColumnSummary) (string, error) {
	prompt, err := buildFeedbackAnalysisPrompt(themes, stats)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, prompt)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("insight API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("insight model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("insight reply", "bytes", len(raw))
	return CleanProse(raw), nil
}

// CleanProse strips leftover markdown bullets the model may emit despite
// instructions and normalizes paragraph breaks for PDF paragraphs.
func CleanProse(text string) string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func buildQuizAnalysisPrompt(record *model.QuizRecord, students []model.StudentRecord) (string, error) {
	type promptQuestion struct {
		Number      int               `json:"number"`
		Question    string            `json:"question"`
		Options     map[string]string `json:"options"`
		Correct     string            `json:"correct"`
		Explanation string            `json:"explanation"`
	}

	questions := make([]promptQuestion, 0, len(record.Questions))
	for i, q := range record.Questions {
		questions = append(questions, promptQuestion{
			Number:      i + 1,
			Question:    q.Question,
			Options:     q.Options,
			Correct:     q.Correct,
			Explanation: q.Explanation,
		})
	}

	questionsJSON, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}

	responsesJSON := "No student responses available."
	if len(students) > 0 {
		data, err := json.MarshalIndent(students, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal student responses: %w", err)
		}
		responsesJSON = string(data)
	}

	var sb strings.Builder
	sb.WriteString("As an educational data analyst, analyze the following quiz questions and student responses. Focus on:\n")
	sb.WriteString("- Patterns in student answers (common errors, misconceptions, strengths)\n")
	sb.WriteString("- The effectiveness and clarity of each question\n")
	sb.WriteString("- How student responses align with the intended learning objectives\n")
	sb.WriteString("- Actionable recommendations for improving both questions and student understanding\n\n")
	sb.WriteString("Questions:\n")
	sb.Write(questionsJSON)
	sb.WriteString("\n\nStudent Responses:\n")
	sb.WriteString(responsesJSON)
	sb.WriteString("\n\nStructure your analysis with clear sections:\n")
	sb.WriteString("1. Student Response Patterns\n")
	sb.WriteString("2. Question Effectiveness\n")
	sb.WriteString("3. Alignment with Learning Objectives\n")
	sb.WriteString("4. Recommendations for Educators\n")
	sb.WriteString("Format the response for direct inclusion in a report: no asterisks or markdown, clear paragraphs.\n")
	return sb.String(), nil
}

func buildFeedbackAnalysisPrompt(themes map[string][]string, stats []ColumnSummary) (string, error) {
	themesJSON, err := json.MarshalIndent(themes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal feedback themes: %w", err)
	}

	statsJSON := "No numeric data available."
	if len(stats) > 0 {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal feedback stats: %w", err)
		}
		statsJSON = string(data)
	}

	var sb strings.Builder
	sb.WriteString("As an educational expert, analyze this student feedback data and provide insights for course improvement.\n\n")
	sb.WriteString("QUALITATIVE FEEDBACK THEMES:\n")
	sb.Write(themesJSON)
	sb.WriteString("\n\nQUANTITATIVE RATINGS:\n")
	sb.WriteString(statsJSON)
	sb.WriteString("\n\nCover: overall satisfaction and trends, evidence of learning and engagement, ")
	sb.WriteString("what is working in the course structure, and specific actionable changes an educator can implement.\n")
	sb.WriteString("Format the response for direct inclusion in a report: no asterisks or markdown, clear paragraphs.\n")
	return sb.String(), nil
}
