package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/promptpit/promptpit/internal/models"
)

// ExportBundle is the portable form of a prompt and its version history.
type ExportBundle struct {
	FormatVersion int                    `json:"format_version"`
	ExportedAt    time.Time              `json:"exported_at"`
	Prompt        models.Prompt          `json:"prompt"`
	Versions      []models.PromptVersion `json:"versions"`
}

const exportFormatVersion = 1

func (s *Service) Export(ctx context.Context, promptID int64) (*ExportBundle, error) {
	p, err := s.GetByID(ctx, promptID)
	if err != nil {
		return nil, err
	}
	versions, err := s.ListVersions(ctx, promptID)
	if err != nil {
		return nil, err
	}
	return &ExportBundle{
		FormatVersion: exportFormatVersion,
		ExportedAt:    time.Now().UTC(),
		Prompt:        *p,
		Versions:      versions,
	}, nil
}

// Import recreates an exported prompt under the given user. Version numbers
// are preserved; database IDs are reassigned.
func (s *Service) Import(ctx context.Context, userID string, bundle ExportBundle) (*models.Prompt, error) {
	if bundle.FormatVersion != exportFormatVersion {
		return nil, fmt.Errorf("unsupported export format version %d", bundle.FormatVersion)
	}
	if userID == "" {
		userID = "default_user"
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	title := bundle.Prompt.Title
	var taken bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM prompts WHERE title = $1 AND user_id = $2)",
		title, userID,
	).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if taken {
		title = title + " (Imported)"
	}

	var newID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO prompts (user_id, provider_id, model_id, title, text, system_prompt, temperature, max_tokens, last_output)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		userID, bundle.Prompt.ProviderID, bundle.Prompt.ModelID, title, bundle.Prompt.Text,
		bundle.Prompt.SystemPrompt, bundle.Prompt.Temperature, bundle.Prompt.MaxTokens,
		bundle.Prompt.LastOutput,
	).Scan(&newID)
	if err != nil {
		return nil, fmt.Errorf("import prompt: %w", err)
	}

	for i := len(bundle.Versions) - 1; i >= 0; i-- {
		v := bundle.Versions[i]
		if _, err := tx.Exec(ctx,
			`INSERT INTO prompt_versions
			   (prompt_id, version_number, prompt_text, system_prompt, temperature, max_tokens,
			    provider_id, model_id, files, images, include_file_content, file_content_prefix,
			    output, locked_by_user)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			newID, v.VersionNumber, v.PromptText, v.SystemPrompt, v.Temperature, v.MaxTokens,
			v.ProviderID, v.ModelID, v.Files, v.Images, v.IncludeFileContent, v.FileContentPrefix,
			v.Output, userID,
		); err != nil {
			return nil, fmt.Errorf("import version %d: %w", v.VersionNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return s.GetByID(ctx, newID)
}
