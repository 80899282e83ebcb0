// Package llm is the gateway to the hosted generation model. It assembles
// the quiz instruction, sends it (with an optional document attachment) to
// Gemini, and decodes the JSON question array from the reply.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/classroom-ai/quizgen/internal/model"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Generation parameters, fixed to the values the quiz prompt was tuned with.
const (
	genTemperature     = 0.5
	genTopP            = 0.95
	genMaxOutputTokens = 8192
	genTimeout         = 45 * time.Second
)

const systemInstruction = `You are a classroom quiz generator for a particular lecture.
Given a prompt, which will specify the content of the lecture, the questions asked by students during the lecture and the answers given,
and the number of quizzes to generate, generate the questions in JSON format in the following order for each quiz: Question, Options, Correct, Explanation.`

// Request describes one quiz generation call.
type Request struct {
	Topic          string
	Count          int
	PriorQuestions string // newline-joined questions students asked during the lecture
	Attachment     []byte // optional lecture document
	AttachmentMIME string
}

// Client wraps the Gemini API client.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// New creates a generation client for the given model name.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(genTemperature)
	m.SetTopP(genTopP)
	m.SetMaxOutputTokens(genMaxOutputTokens)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	return &Client{client: client, model: m, name: modelName}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateQuiz sends the assembled prompt to the model and returns the
// decoded question array. The call is bounded by a fixed timeout; timeouts
// and transport failures wrap ErrUnavailable, non-success API replies become
// a GatewayError, and undecodable replies become a ParseError.
func (c *Client) GenerateQuiz(ctx context.Context, req Request) ([]model.QuizQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()

	parts := []genai.Part{genai.Text(buildQuizPrompt(req.Topic, req.Count, req.PriorQuestions))}
	if len(req.Attachment) > 0 {
		parts = append(parts, genai.Blob{
			MIMEType: req.AttachmentMIME,
			Data:     req.Attachment,
		})
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &GatewayError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw := responseText(resp)
	slog.Debug("generation reply", "model", c.name, "bytes", len(raw))

	questions, err := DecodeQuestions(raw)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// DecodeQuestions parses a model reply into a validated question array.
// The whole reply is parsed as JSON first; bracket extraction is only a
// fallback for replies wrapped in commentary. Both failing, or any question
// violating its invariants, is a ParseError.
func DecodeQuestions(raw string) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		extracted := ExtractArray(raw)
		if err2 := json.Unmarshal([]byte(extracted), &questions); err2 != nil {
			return nil, &ParseError{Preview: preview(raw), Err: err2}
		}
	}
	if len(questions) == 0 {
		return nil, &ParseError{Preview: preview(raw), Err: fmt.Errorf("empty question array")}
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, &ParseError{Preview: preview(raw), Err: fmt.Errorf("question %d: %w", i, err)}
		}
	}
	return questions, nil
}

// buildQuizPrompt assembles the generation instruction. The requested count
// and topic are always embedded, prior student questions become a coverage
// directive, and the output contract is stated explicitly so the decoder can
// rely on a stable shape.
func buildQuizPrompt(topic string, count int, priorQuestions string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d quizzes for the lecture content, and %s\n", count, topic)
	if priorQuestions != "" {
		sb.WriteString("Ensure to generate questions that cover the concepts from these questions: ")
		sb.WriteString(priorQuestions)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond ONLY with a JSON array. Each element must be an object with these keys:\n")
	sb.WriteString(`{"question": "<question text>", "options": {"a": "...", "b": "...", "c": "...", "d": "..."}, "correct": "<option letter>", "explanation": "<why the correct option is right>"}`)
	sb.WriteString("\n")
	return sb.String()
}
