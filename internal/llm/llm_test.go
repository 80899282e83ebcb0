package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildQuizPrompt(t *testing.T) {
	t.Run("embeds count and topic", func(t *testing.T) {
		prompt := buildQuizPrompt("photosynthesis basics", 3, "")
		if !strings.Contains(prompt, "Generate 3 quizzes") {
			t.Error("prompt should embed the requested count")
		}
		if !strings.Contains(prompt, "photosynthesis basics") {
			t.Error("prompt should embed the topic")
		}
		if strings.Contains(prompt, "cover the concepts") {
			t.Error("prompt should not mention prior questions when none given")
		}
	})

	t.Run("appends prior questions directive", func(t *testing.T) {
		prompt := buildQuizPrompt("cell biology", 2, "What is ATP?\nWhy do cells divide?")
		if !strings.Contains(prompt, "cover the concepts from these questions: What is ATP?\nWhy do cells divide?") {
			t.Error("prompt should carry the prior questions directive")
		}
	})

	t.Run("states the output contract", func(t *testing.T) {
		prompt := buildQuizPrompt("anything", 1, "")
		for _, key := range []string{`"question"`, `"options"`, `"correct"`, `"explanation"`, "JSON array"} {
			if !strings.Contains(prompt, key) {
				t.Errorf("prompt should mention %s", key)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := buildQuizPrompt("topic", 5, "prior")
		b := buildQuizPrompt("topic", 5, "prior")
		if a != b {
			t.Error("prompt builder must be deterministic")
		}
	})
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare array is unchanged", `[{"question":"q"}]`, `[{"question":"q"}]`},
		{"leading commentary", "Here is your quiz:\n[1,2,3]", "[1,2,3]"},
		{"trailing commentary", "[1,2,3]\nLet me know if you need more!", "[1,2,3]"},
		{"markdown fence", "```json\n[1,2,3]\n```", "[1,2,3]"},
		{"no brackets falls back to input", "no json here", "no json here"},
		{"reversed brackets fall back to input", "] oops [", "] oops ["},
		{"greedy across nested arrays", `x ["a",["b"]] y`, `["a",["b"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractArray(tt.in); got != tt.want {
				t.Errorf("ExtractArray(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const validQuizJSON = `[
  {"question": "What is chlorophyll?", "options": {"a": "A pigment", "b": "A sugar", "c": "A protein", "d": "A lipid"}, "correct": "a", "explanation": "It absorbs light."},
  {"question": "Where does photosynthesis occur?", "options": {"a": "Nucleus", "b": "Chloroplast", "c": "Ribosome", "d": "Vacuole"}, "correct": "b", "explanation": "Chloroplasts hold the machinery."}
]`

func TestDecodeQuestions(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		questions, err := DecodeQuestions(validQuizJSON)
		if err != nil {
			t.Fatalf("DecodeQuestions: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(questions))
		}
		if questions[0].Correct != "a" {
			t.Errorf("expected correct %q, got %q", "a", questions[0].Correct)
		}
	})

	t.Run("array wrapped in commentary", func(t *testing.T) {
		questions, err := DecodeQuestions("Sure! Here are the quizzes:\n" + validQuizJSON + "\nEnjoy!")
		if err != nil {
			t.Fatalf("DecodeQuestions: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(questions))
		}
	})

	t.Run("not JSON at all", func(t *testing.T) {
		_, err := DecodeQuestions("I cannot generate a quiz about that topic.")
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if parseErr.Preview == "" {
			t.Error("ParseError should carry a preview of the reply")
		}
	})

	t.Run("empty array", func(t *testing.T) {
		var parseErr *ParseError
		if _, err := DecodeQuestions("[]"); !errors.As(err, &parseErr) {
			t.Fatalf("expected ParseError for empty array, got %v", err)
		}
	})

	t.Run("correct letter missing from options", func(t *testing.T) {
		bad := `[{"question": "Q?", "options": {"a": "A", "b": "B"}, "correct": "z", "explanation": "E"}]`
		var parseErr *ParseError
		if _, err := DecodeQuestions(bad); !errors.As(err, &parseErr) {
			t.Fatalf("expected ParseError for invalid question, got %v", err)
		}
	})
}

func TestParseErrorPreviewTruncated(t *testing.T) {
	long := strings.Repeat("x", 5000)
	_, err := DecodeQuestions(long)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if len(parseErr.Preview) > previewLimit+len("...") {
		t.Errorf("preview too long: %d bytes", len(parseErr.Preview))
	}
	if !strings.Contains(parseErr.Error(), "...") {
		t.Error("truncated preview should end with ellipsis")
	}
	if strings.Contains(parseErr.Error(), long) {
		t.Error("error must not embed the full payload")
	}
}
