package modelcard

import (
	"strings"
	"testing"
	"time"

	"github.com/promptpit/promptpit/internal/models"
)

func TestRenderMarkdown(t *testing.T) {
	card := &models.ModelCard{
		Title:       "Summarizer Shootout",
		Description: "Comparing summarization prompts across vendors.",
		Status:      models.CardPublished,
		Metrics: models.CardMetrics{
			TotalPrompts:     3,
			TotalOutputs:     12,
			TotalEvaluations: 12,
			AvgScore:         7.42,
			TotalCost:        0.0314,
		},
		ModelsTested:  []string{"gpt-4o-mini", "llama-3.1-8b-instant"},
		Providers:     []string{"openai", "groq"},
		ExperimentIDs: []int64{1, 4},
		CreatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	got := RenderMarkdown(card)

	for _, want := range []string{
		"# Summarizer Shootout",
		"Comparing summarization prompts across vendors.",
		"**Status:** published",
		"**Created:** 2026-03-01",
		"| Average score | 7.42 |",
		"| Total cost (USD) | $0.0314 |",
		"- gpt-4o-mini",
		"- llama-3.1-8b-instant",
		"- openai",
		"- groq",
		"- Experiment #1",
		"- Experiment #4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownMinimalCard(t *testing.T) {
	card := &models.ModelCard{
		Title:     "Empty Draft",
		Status:    models.CardDraft,
		CreatedAt: time.Now(),
	}

	got := RenderMarkdown(card)
	if !strings.Contains(got, "# Empty Draft") {
		t.Error("title missing")
	}
	for _, absent := range []string{"## Models Tested", "## Providers", "## Experiments"} {
		if strings.Contains(got, absent) {
			t.Errorf("section %q should be omitted for an empty card", absent)
		}
	}
}
