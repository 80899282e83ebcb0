package i18n

import (
	"context"
	"strings"
	"testing"
)

func TestInitRejectsBadLanguage(t *testing.T) {
	if err := Init("not a language tag"); err == nil {
		t.Error("expected error for invalid language tag")
	}
}

func TestTranslate(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Context without a localizer falls back to English.
	if got := T(context.Background(), "report.exec_summary"); got != "Executive Summary" {
		t.Errorf("fallback translation = %q", got)
	}

	ctx := WithLocalizer(context.Background(), NewLocalizer("es"))
	if got := T(ctx, "report.exec_summary"); got != "Resumen Ejecutivo" {
		t.Errorf("es translation = %q", got)
	}

	// Unknown IDs come back verbatim instead of panicking mid-render.
	if got := T(ctx, "no.such.key"); got != "no.such.key" {
		t.Errorf("unknown id = %q", got)
	}
}

func TestTranslateWithData(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := context.Background()

	got := Td(ctx, "question.stem", map[string]any{"Number": 3})
	if got != "Question 3" {
		t.Errorf("Td = %q, want %q", got, "Question 3")
	}

	got = Td(ctx, "report.exec_topic", map[string]any{"Topic": "photosynthesis"})
	if !strings.Contains(got, "photosynthesis") {
		t.Errorf("Td did not interpolate topic: %q", got)
	}
}
