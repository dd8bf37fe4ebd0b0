package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/models"
)

var (
	ErrNotFound        = errors.New("prompt not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrOutputNotFound  = errors.New("output not found")
	ErrDuplicateTitle  = errors.New("a prompt with this title already exists")
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	UserID       string  `json:"user_id"`
	ProviderID   int64   `json:"provider_id"`
	ModelID      int64   `json:"model_id"`
	Title        string  `json:"title"`
	Text         string  `json:"text"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

func (r *CreateRequest) applyDefaults() {
	if r.UserID == "" {
		r.UserID = "default_user"
	}
	if r.Temperature == 0 {
		r.Temperature = 0.7
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = 1000
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Prompt, error) {
	req.applyDefaults()

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM prompts WHERE title = $1 AND user_id = $2)",
		req.Title, req.UserID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if exists && req.Title != "" {
		return nil, ErrDuplicateTitle
	}

	var p models.Prompt
	err = s.db.QueryRow(ctx,
		`INSERT INTO prompts (user_id, provider_id, model_id, title, text, system_prompt, temperature, max_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, uuid, user_id, provider_id, model_id, title, text, system_prompt,
		           temperature, max_tokens, last_output, created_at, updated_at`,
		req.UserID, req.ProviderID, req.ModelID, req.Title, req.Text, req.SystemPrompt,
		req.Temperature, req.MaxTokens,
	).Scan(&p.ID, &p.UUID, &p.UserID, &p.ProviderID, &p.ModelID, &p.Title, &p.Text, &p.SystemPrompt,
		&p.Temperature, &p.MaxTokens, &p.LastOutput, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert prompt: %w", err)
	}

	return &p, nil
}

const promptColumns = `p.id, p.uuid, p.user_id, p.provider_id, p.model_id, p.title, p.text, p.system_prompt,
	p.temperature, p.max_tokens, p.last_output, p.created_at, p.updated_at,
	COALESCE(pr.name, ''), COALESCE(m.name, ''),
	(SELECT COUNT(*) FROM prompt_versions v WHERE v.prompt_id = p.id)`

func scanPrompt(row pgx.Row) (*models.Prompt, error) {
	var p models.Prompt
	err := row.Scan(&p.ID, &p.UUID, &p.UserID, &p.ProviderID, &p.ModelID, &p.Title, &p.Text, &p.SystemPrompt,
		&p.Temperature, &p.MaxTokens, &p.LastOutput, &p.CreatedAt, &p.UpdatedAt,
		&p.ProviderName, &p.ModelName, &p.VersionsCount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRow(ctx,
		`SELECT `+promptColumns+`
		 FROM prompts p
		 LEFT JOIN providers pr ON pr.id = p.provider_id
		 LEFT JOIN models m ON m.id = p.model_id
		 WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

type ListFilter struct {
	UserID     string
	ProviderID int64
	ModelID    int64
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Prompt, error) {
	q := `SELECT ` + promptColumns + `
	      FROM prompts p
	      LEFT JOIN providers pr ON pr.id = p.provider_id
	      LEFT JOIN models m ON m.id = p.model_id
	      WHERE 1=1`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += fmt.Sprintf(" AND p.user_id = $%d", len(args))
	}
	if f.ProviderID > 0 {
		args = append(args, f.ProviderID)
		q += fmt.Sprintf(" AND p.provider_id = $%d", len(args))
	}
	if f.ModelID > 0 {
		args = append(args, f.ModelID)
		q += fmt.Sprintf(" AND p.model_id = $%d", len(args))
	}
	q += " ORDER BY p.created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var out []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// PromptWithVersions is a prompt plus its full version history, newest first.
type PromptWithVersions struct {
	models.Prompt
	Versions []models.PromptVersion `json:"versions"`
}

func (s *Service) ListWithVersions(ctx context.Context, f ListFilter) ([]PromptWithVersions, error) {
	prompts, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]PromptWithVersions, 0, len(prompts))
	for _, p := range prompts {
		versions, err := s.ListVersions(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PromptWithVersions{Prompt: p, Versions: versions})
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, req CreateRequest) (*models.Prompt, error) {
	req.applyDefaults()

	tag, err := s.db.Exec(ctx,
		`UPDATE prompts
		 SET provider_id = $1, model_id = $2, title = $3, text = $4, system_prompt = $5,
		     temperature = $6, max_tokens = $7, updated_at = now()
		 WHERE id = $8`,
		req.ProviderID, req.ModelID, req.Title, req.Text, req.SystemPrompt,
		req.Temperature, req.MaxTokens, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM prompts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Duplicate copies a prompt into a new draft titled "<title> (Copy)". The
// version history stays with the original.
func (s *Service) Duplicate(ctx context.Context, id int64) (*models.Prompt, error) {
	orig, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var newID int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO prompts (user_id, provider_id, model_id, title, text, system_prompt, temperature, max_tokens, last_output)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		orig.UserID, orig.ProviderID, orig.ModelID, orig.Title+" (Copy)", orig.Text, orig.SystemPrompt,
		orig.Temperature, orig.MaxTokens, orig.LastOutput,
	).Scan(&newID)
	if err != nil {
		return nil, fmt.Errorf("duplicate prompt: %w", err)
	}
	return s.GetByID(ctx, newID)
}

func (s *Service) ListOutputs(ctx context.Context, promptID int64) ([]models.Output, error) {
	if _, err := s.GetByID(ctx, promptID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, prompt_id, output_text, latency_ms, token_usage, cost_usd, response_metadata, rag_context, created_at
		 FROM outputs WHERE prompt_id = $1 ORDER BY created_at DESC`, promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	defer rows.Close()

	var out []models.Output
	for rows.Next() {
		var o models.Output
		if err := rows.Scan(&o.ID, &o.PromptID, &o.OutputText, &o.LatencyMs, &o.TokenUsage,
			&o.CostUSD, &o.ResponseMetadata, &o.RAGContext, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Service) GetOutput(ctx context.Context, outputID int64) (*models.Output, error) {
	var o models.Output
	err := s.db.QueryRow(ctx,
		`SELECT id, prompt_id, output_text, latency_ms, token_usage, cost_usd, response_metadata, rag_context, created_at
		 FROM outputs WHERE id = $1`, outputID,
	).Scan(&o.ID, &o.PromptID, &o.OutputText, &o.LatencyMs, &o.TokenUsage,
		&o.CostUSD, &o.ResponseMetadata, &o.RAGContext, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOutputNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get output: %w", err)
	}
	return &o, nil
}
