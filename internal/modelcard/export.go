package modelcard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptpit/promptpit/internal/models"
)

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Export renders a card in the requested format and returns the payload with
// its content type.
func (s *Service) Export(ctx context.Context, id int64, format string) ([]byte, string, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal card: %w", err)
		}
		return data, "application/json", nil
	case FormatMarkdown:
		return []byte(RenderMarkdown(c)), "text/markdown", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

// RenderMarkdown renders a card as a shareable markdown document.
func RenderMarkdown(c *models.ModelCard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Description)
	}
	fmt.Fprintf(&b, "**Status:** %s  \n", c.Status)
	fmt.Fprintf(&b, "**Created:** %s\n\n", c.CreatedAt.Format("2006-01-02"))

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Prompts tested | %d |\n", c.Metrics.TotalPrompts)
	fmt.Fprintf(&b, "| Outputs generated | %d |\n", c.Metrics.TotalOutputs)
	fmt.Fprintf(&b, "| Evaluations | %d |\n", c.Metrics.TotalEvaluations)
	fmt.Fprintf(&b, "| Average score | %.2f |\n", c.Metrics.AvgScore)
	fmt.Fprintf(&b, "| Total cost (USD) | $%.4f |\n\n", c.Metrics.TotalCost)

	if len(c.ModelsTested) > 0 {
		b.WriteString("## Models Tested\n\n")
		for _, m := range c.ModelsTested {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}
	if len(c.Providers) > 0 {
		b.WriteString("## Providers\n\n")
		for _, p := range c.Providers {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	if len(c.ExperimentIDs) > 0 {
		b.WriteString("## Experiments\n\n")
		for _, id := range c.ExperimentIDs {
			fmt.Fprintf(&b, "- Experiment #%d\n", id)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
