package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/promptpit/promptpit/internal/models"
)

// LockRequest snapshots a prompt into its next version. Files and Images carry
// attachment metadata from the run the user is locking in; Output carries the
// run result so the version record is self-contained.
type LockRequest struct {
	UserID             string          `json:"user_id"`
	Files              json.RawMessage `json:"files,omitempty"`
	Images             json.RawMessage `json:"images,omitempty"`
	IncludeFileContent bool            `json:"include_file_content"`
	FileContentPrefix  string          `json:"file_content_prefix"`
	Output             json.RawMessage `json:"output,omitempty"`
}

func (s *Service) Lock(ctx context.Context, promptID int64, req LockRequest) (*models.PromptVersion, error) {
	p, err := s.GetByID(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if req.UserID == "" {
		req.UserID = p.UserID
	}
	if req.FileContentPrefix == "" {
		req.FileContentPrefix = "Attached file content:"
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(version_number), 0) + 1 FROM prompt_versions WHERE prompt_id = $1",
		promptID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next version number: %w", err)
	}

	var v models.PromptVersion
	err = tx.QueryRow(ctx,
		`INSERT INTO prompt_versions
		   (prompt_id, version_number, prompt_text, system_prompt, temperature, max_tokens,
		    provider_id, model_id, files, images, include_file_content, file_content_prefix,
		    output, locked_by_user)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, prompt_id, version_number, prompt_text, system_prompt, temperature, max_tokens,
		           provider_id, model_id, files, images, include_file_content, file_content_prefix,
		           output, locked_by_user, created_at`,
		promptID, next, p.Text, p.SystemPrompt, p.Temperature, p.MaxTokens,
		p.ProviderID, p.ModelID, req.Files, req.Images, req.IncludeFileContent, req.FileContentPrefix,
		req.Output, req.UserID,
	).Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.PromptText, &v.SystemPrompt, &v.Temperature, &v.MaxTokens,
		&v.ProviderID, &v.ModelID, &v.Files, &v.Images, &v.IncludeFileContent, &v.FileContentPrefix,
		&v.Output, &v.LockedByUser, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	if req.Output != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE prompts SET last_output = $1, updated_at = now() WHERE id = $2",
			req.Output, promptID,
		); err != nil {
			return nil, fmt.Errorf("update last output: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lock: %w", err)
	}

	v.ModelName = p.ModelName
	return &v, nil
}

// CreateAndLock creates a prompt and immediately locks version 1 in one
// request. Used when the user locks a draft that was never saved.
func (s *Service) CreateAndLock(ctx context.Context, create CreateRequest, lock LockRequest) (*models.Prompt, *models.PromptVersion, error) {
	p, err := s.Create(ctx, create)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.Lock(ctx, p.ID, lock)
	if err != nil {
		return nil, nil, err
	}
	p.VersionsCount = 1
	return p, v, nil
}

func (s *Service) ListVersions(ctx context.Context, promptID int64) ([]models.PromptVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT v.id, v.prompt_id, v.version_number, v.prompt_text, v.system_prompt, v.temperature, v.max_tokens,
		        v.provider_id, v.model_id, v.files, v.images, v.include_file_content, v.file_content_prefix,
		        v.output, v.locked_by_user, v.created_at, COALESCE(m.name, '')
		 FROM prompt_versions v
		 LEFT JOIN models m ON m.id = v.model_id
		 WHERE v.prompt_id = $1
		 ORDER BY v.version_number DESC`, promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []models.PromptVersion
	for rows.Next() {
		var v models.PromptVersion
		if err := rows.Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.PromptText, &v.SystemPrompt,
			&v.Temperature, &v.MaxTokens, &v.ProviderID, &v.ModelID, &v.Files, &v.Images,
			&v.IncludeFileContent, &v.FileContentPrefix, &v.Output, &v.LockedByUser,
			&v.CreatedAt, &v.ModelName); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) GetVersion(ctx context.Context, promptID int64, versionNumber int) (*models.PromptVersion, error) {
	var v models.PromptVersion
	err := s.db.QueryRow(ctx,
		`SELECT v.id, v.prompt_id, v.version_number, v.prompt_text, v.system_prompt, v.temperature, v.max_tokens,
		        v.provider_id, v.model_id, v.files, v.images, v.include_file_content, v.file_content_prefix,
		        v.output, v.locked_by_user, v.created_at, COALESCE(m.name, '')
		 FROM prompt_versions v
		 LEFT JOIN models m ON m.id = v.model_id
		 WHERE v.prompt_id = $1 AND v.version_number = $2`, promptID, versionNumber,
	).Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.PromptText, &v.SystemPrompt,
		&v.Temperature, &v.MaxTokens, &v.ProviderID, &v.ModelID, &v.Files, &v.Images,
		&v.IncludeFileContent, &v.FileContentPrefix, &v.Output, &v.LockedByUser,
		&v.CreatedAt, &v.ModelName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// RestoreVersion copies a version's snapshot back into the draft. The version
// history is untouched; restoring then locking produces a new version.
func (s *Service) RestoreVersion(ctx context.Context, promptID int64, versionNumber int) (*models.Prompt, error) {
	v, err := s.GetVersion(ctx, promptID, versionNumber)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE prompts
		 SET text = $1, system_prompt = $2, temperature = $3, max_tokens = $4,
		     provider_id = $5, model_id = $6, updated_at = now()
		 WHERE id = $7`,
		v.PromptText, v.SystemPrompt, v.Temperature, v.MaxTokens, v.ProviderID, v.ModelID, promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("restore version: %w", err)
	}
	return s.GetByID(ctx, promptID)
}

func (s *Service) DeleteVersion(ctx context.Context, promptID int64, versionNumber int) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM prompt_versions WHERE prompt_id = $1 AND version_number = $2",
		promptID, versionNumber,
	)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionNotFound
	}
	return nil
}
