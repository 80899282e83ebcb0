package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/classroom-ai/quizgen/internal/llm"
	"github.com/classroom-ai/quizgen/internal/model"
	"github.com/classroom-ai/quizgen/internal/quiz"
	"github.com/classroom-ai/quizgen/internal/store"
)

type fakeGenerator struct {
	questions []model.QuizQuestion
	err       error
	calls     int
	lastReq   llm.Request
}

func (f *fakeGenerator) GenerateQuiz(_ context.Context, req llm.Request) ([]model.QuizQuestion, error) {
	f.calls++
	f.lastReq = req
	return f.questions, f.err
}

func sampleQuestions() []model.QuizQuestion {
	return []model.QuizQuestion{
		{
			Question:    "What is osmosis?",
			Options:     map[string]string{"a": "Water movement", "b": "Cell division", "c": "Protein synthesis", "d": "Energy release"},
			Correct:     "a",
			Explanation: "Osmosis is the movement of water across a membrane.",
		},
		{
			Question:    "How do enzymes work?",
			Options:     map[string]string{"a": "By heating", "b": "By lowering activation energy"},
			Correct:     "b",
			Explanation: "Enzymes catalyze reactions by lowering activation energy.",
		},
	}
}

func newTestServer(t *testing.T, gen Generator) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	srv := httptest.NewServer(New(gen, st).Routes())
	t.Cleanup(srv.Close)
	return srv, dir
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func postForm(t *testing.T, client *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGenerateQuiz(t *testing.T) {
	gen := &fakeGenerator{questions: sampleQuestions()}
	srv, dir := newTestServer(t, gen)
	client := newClient(t)

	resp := postForm(t, client, srv.URL+"/generate-quiz", url.Values{
		"prompt":      {"cell biology"},
		"num_quizzes": {"2"},
		"questions":   {"What is a cell?"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var questions []model.QuizQuestion
	decodeBody(t, resp, &questions)
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if gen.lastReq.Topic != "cell biology" || gen.lastReq.Count != 2 {
		t.Errorf("unexpected generation request: %+v", gen.lastReq)
	}
	if gen.lastReq.PriorQuestions != "What is a cell?" {
		t.Errorf("prior questions not forwarded: %q", gen.lastReq.PriorQuestions)
	}

	// The quiz record is persisted for the report.
	if _, err := os.Stat(filepath.Join(dir, store.QuizRecordFile)); err != nil {
		t.Errorf("quiz record not persisted: %v", err)
	}

	// The session is now answering.
	var state struct {
		Phase quiz.Phase `json:"phase"`
	}
	stateResp, err := client.Get(srv.URL + "/quiz")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, stateResp, &state)
	if state.Phase != quiz.PhaseAnswering {
		t.Errorf("phase = %q, want %q", state.Phase, quiz.PhaseAnswering)
	}
}

func TestGenerateQuizValidation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing prompt", url.Values{"num_quizzes": {"2"}}},
		{"missing count", url.Values{"prompt": {"biology"}}},
		{"count not a number", url.Values{"prompt": {"biology"}, "num_quizzes": {"two"}}},
		{"count too small", url.Values{"prompt": {"biology"}, "num_quizzes": {"0"}}},
		{"count too large", url.Values{"prompt": {"biology"}, "num_quizzes": {"11"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{questions: sampleQuestions()}
			srv, _ := newTestServer(t, gen)
			resp := postForm(t, http.DefaultClient, srv.URL+"/generate-quiz", tt.form)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if gen.calls != 0 {
				t.Errorf("generator called %d times for an invalid request", gen.calls)
			}
		})
	}
}

func TestGenerateQuizRejectsBadExtension(t *testing.T) {
	gen := &fakeGenerator{questions: sampleQuestions()}
	srv, _ := newTestServer(t, gen)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("prompt", "biology")
	mw.WriteField("num_quizzes", "2")
	fw, err := mw.CreateFormFile("file", "lecture.exe")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, "not a lecture")
	mw.Close()

	resp, err := http.Post(srv.URL+"/generate-quiz", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called for a rejected upload")
	}
}

func TestGenerateQuizForwardsAttachment(t *testing.T) {
	gen := &fakeGenerator{questions: sampleQuestions()}
	srv, _ := newTestServer(t, gen)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("prompt", "biology")
	mw.WriteField("num_quizzes", "1")
	fw, _ := mw.CreateFormFile("file", "lecture.pdf")
	io.WriteString(fw, "%PDF-1.4 fake")
	mw.Close()

	resp, err := http.Post(srv.URL+"/generate-quiz", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gen.lastReq.AttachmentMIME != "application/pdf" {
		t.Errorf("attachment MIME = %q, want application/pdf", gen.lastReq.AttachmentMIME)
	}
	if len(gen.lastReq.Attachment) == 0 {
		t.Error("attachment bytes not forwarded")
	}
}

func TestGenerateQuizGatewayFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unavailable", llm.ErrUnavailable, http.StatusGatewayTimeout},
		{"gateway error", &llm.GatewayError{StatusCode: 429, Body: "quota"}, http.StatusBadGateway},
		{"parse error", &llm.ParseError{Preview: "oops"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, dir := newTestServer(t, &fakeGenerator{err: tt.err})
			client := newClient(t)

			resp := postForm(t, client, srv.URL+"/generate-quiz", url.Values{
				"prompt":      {"biology"},
				"num_quizzes": {"2"},
			})
			var body map[string]string
			decodeBody(t, resp, &body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body["error"] == "" {
				t.Error("error body missing")
			}

			// Nothing is persisted on failure.
			if _, err := os.Stat(filepath.Join(dir, store.QuizRecordFile)); err == nil {
				t.Error("quiz record written despite generation failure")
			}

			// The session never left the generating phase.
			var state struct {
				Phase quiz.Phase `json:"phase"`
			}
			stateResp, err := client.Get(srv.URL + "/quiz")
			if err != nil {
				t.Fatal(err)
			}
			decodeBody(t, stateResp, &state)
			if state.Phase != quiz.PhaseGenerating {
				t.Errorf("phase = %q, want %q", state.Phase, quiz.PhaseGenerating)
			}
		})
	}
}

func TestAnswerSubmitRestartFlow(t *testing.T) {
	srv, dir := newTestServer(t, &fakeGenerator{questions: sampleQuestions()})
	client := newClient(t)

	resp := postForm(t, client, srv.URL+"/generate-quiz", url.Values{
		"prompt":      {"biology"},
		"num_quizzes": {"2"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}

	// One right, one wrong.
	resp = postForm(t, client, srv.URL+"/quiz/answer", url.Values{"index": {"0"}, "answer": {"a"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}
	resp = postForm(t, client, srv.URL+"/quiz/answer", url.Values{"index": {"1"}, "answer": {"a"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}

	// An out-of-range index is rejected without touching recorded answers.
	resp = postForm(t, client, srv.URL+"/quiz/answer", url.Values{"index": {"9"}, "answer": {"a"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad index status = %d, want 400", resp.StatusCode)
	}

	var summary quiz.Summary
	resp = postForm(t, client, srv.URL+"/quiz/submit", url.Values{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &summary)
	if summary.Correct != 1 || summary.Total != 2 {
		t.Errorf("score = %d/%d, want 1/2", summary.Correct, summary.Total)
	}

	// The student record is persisted for the report aggregator.
	matches, _ := filepath.Glob(filepath.Join(dir, "student_response_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 student record, found %v", matches)
	}

	// A second submit is rejected: the session is already scored.
	resp = postForm(t, client, srv.URL+"/quiz/submit", url.Values{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("double submit status = %d, want 400", resp.StatusCode)
	}

	// Restart returns to the generating phase.
	resp = postForm(t, client, srv.URL+"/quiz/restart", url.Values{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restart status = %d", resp.StatusCode)
	}
	var state struct {
		Phase quiz.Phase `json:"phase"`
	}
	stateResp, err := client.Get(srv.URL + "/quiz")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, stateResp, &state)
	if state.Phase != quiz.PhaseGenerating {
		t.Errorf("phase after restart = %q, want %q", state.Phase, quiz.PhaseGenerating)
	}
}

func TestAnswerWithoutQuiz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeGenerator{})
	client := newClient(t)

	resp := postForm(t, client, srv.URL+"/quiz/answer", url.Values{"index": {"0"}, "answer": {"a"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
