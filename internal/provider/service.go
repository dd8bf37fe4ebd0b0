package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/models"
)

var ErrNotFound = errors.New("provider not found")

// fixedProviders is the vendor set this service manages. Adding a provider
// means storing a key for one of these rows, never creating arbitrary ones.
var fixedProviders = []string{"openai", "groq", "anthropic"}

type Service struct {
	db      *pgxpool.Pool
	gateway llm.Gateway
}

func NewService(db *pgxpool.Pool, gw llm.Gateway) *Service {
	return &Service{db: db, gateway: gw}
}

func IsSupported(name string) bool {
	for _, p := range fixedProviders {
		if p == name {
			return true
		}
	}
	return false
}

// AddProvider stores the API key for a fixed provider, validates it against
// the vendor by listing models, and syncs the model table. Returns the
// provider and the number of models refreshed.
func (s *Service) AddProvider(ctx context.Context, name, apiKey string) (*models.Provider, int, error) {
	name = strings.ToLower(name)
	if !IsSupported(name) {
		return nil, 0, fmt.Errorf("unsupported provider %q", name)
	}

	vendorModels, err := s.gateway.Vendor(llm.Credential{Provider: name, APIKey: apiKey})
	if err != nil {
		return nil, 0, err
	}
	listed, err := vendorModels.ListModels(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("API key validation failed: %w", err)
	}

	var p models.Provider
	err = s.db.QueryRow(ctx,
		`UPDATE providers SET api_key = $1, is_active = TRUE WHERE name = $2
		 RETURNING id, name, api_key, is_active, created_at`,
		apiKey, name,
	).Scan(&p.ID, &p.Name, &p.APIKey, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("store provider key: %w", err)
	}

	count, err := s.syncModels(ctx, p.ID, listed)
	if err != nil {
		return nil, 0, fmt.Errorf("sync models: %w", err)
	}

	return &p, count, nil
}

// UpdateAPIKey replaces the key for an existing provider by name and
// refreshes its models.
func (s *Service) UpdateAPIKey(ctx context.Context, name, apiKey string) (*models.Provider, int, error) {
	return s.AddProvider(ctx, name, apiKey)
}

// RefreshModels re-pulls the model list from the vendor for one provider.
func (s *Service) RefreshModels(ctx context.Context, providerID int64) ([]models.Model, error) {
	p, err := s.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	vendor, err := s.gateway.Vendor(llm.Credential{Provider: p.Name, APIKey: p.APIKey})
	if err != nil {
		return nil, err
	}
	listed, err := vendor.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vendor models: %w", err)
	}

	if _, err := s.syncModels(ctx, p.ID, listed); err != nil {
		return nil, err
	}
	return s.ListModels(ctx, p.Name)
}

// syncModels upserts the vendor's current models and marks rows the vendor no
// longer reports as unavailable.
func (s *Service) syncModels(ctx context.Context, providerID int64, listed []llm.VendorModel) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"UPDATE models SET is_available = FALSE WHERE provider_id = $1", providerID,
	); err != nil {
		return 0, fmt.Errorf("mark models unavailable: %w", err)
	}

	for _, m := range listed {
		_, err := tx.Exec(ctx,
			`INSERT INTO models (provider_id, name, description, context_length, supports_vision, is_available, updated_at)
			 VALUES ($1, $2, $3, $4, $5, TRUE, now())
			 ON CONFLICT (provider_id, name) DO UPDATE
			 SET description = EXCLUDED.description,
			     context_length = EXCLUDED.context_length,
			     supports_vision = EXCLUDED.supports_vision,
			     is_available = TRUE,
			     updated_at = now()`,
			providerID, m.Name, m.Description, m.ContextLength, m.SupportsVision,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert model %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(listed), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Provider, error) {
	var p models.Provider
	err := s.db.QueryRow(ctx,
		"SELECT id, name, api_key, is_active, created_at FROM providers WHERE id = $1", id,
	).Scan(&p.ID, &p.Name, &p.APIKey, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return &p, nil
}

// ListActive returns providers that currently hold a key.
func (s *Service) ListActive(ctx context.Context) ([]models.Provider, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, api_key, is_active, created_at FROM providers WHERE is_active = TRUE ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []models.Provider
	for rows.Next() {
		var p models.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.APIKey, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ProviderStatus describes one fixed provider's configuration state,
// including providers not yet activated.
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	ProviderID *int64 `json:"provider_id,omitempty"`
	ModelCount int    `json:"model_count"`
}

func (s *Service) Status(ctx context.Context) ([]ProviderStatus, error) {
	out := make([]ProviderStatus, 0, len(fixedProviders))
	for _, name := range fixedProviders {
		st := ProviderStatus{Name: name}
		var id int64
		var active bool
		err := s.db.QueryRow(ctx,
			"SELECT id, is_active FROM providers WHERE name = $1", name,
		).Scan(&id, &active)
		if err == nil && active {
			st.Configured = true
			st.ProviderID = &id
			if err := s.db.QueryRow(ctx,
				"SELECT COUNT(*) FROM models WHERE provider_id = $1 AND is_available", id,
			).Scan(&st.ModelCount); err != nil {
				return nil, fmt.Errorf("count models: %w", err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// ListModels returns available models across active providers, optionally
// filtered by provider name.
func (s *Service) ListModels(ctx context.Context, providerName string) ([]models.Model, error) {
	q := `SELECT m.id, m.provider_id, m.name, m.description, m.context_length,
	             m.cost_per_token_input, m.cost_per_token_output, m.is_available, m.supports_vision, m.updated_at
	      FROM models m JOIN providers p ON p.id = m.provider_id
	      WHERE p.is_active AND m.is_available`
	args := []any{}
	if providerName != "" {
		q += " AND p.name = $1"
		args = append(args, strings.ToLower(providerName))
	}
	q += " ORDER BY m.provider_id, m.name"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []models.Model
	for rows.Next() {
		var m models.Model
		if err := rows.Scan(&m.ID, &m.ProviderID, &m.Name, &m.Description, &m.ContextLength,
			&m.CostPerTokenInput, &m.CostPerTokenOutput, &m.IsAvailable, &m.SupportsVision, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	var m models.Model
	err := s.db.QueryRow(ctx,
		`SELECT id, provider_id, name, description, context_length,
		        cost_per_token_input, cost_per_token_output, is_available, supports_vision, updated_at
		 FROM models WHERE id = $1`, id,
	).Scan(&m.ID, &m.ProviderID, &m.Name, &m.Description, &m.ContextLength,
		&m.CostPerTokenInput, &m.CostPerTokenOutput, &m.IsAvailable, &m.SupportsVision, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("model not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return &m, nil
}

// Deactivate clears the key and deactivates the provider; its models are
// marked unavailable but nothing is deleted, preserving run history.
func (s *Service) Deactivate(ctx context.Context, providerID int64) (int, error) {
	p, err := s.GetByID(ctx, providerID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"UPDATE providers SET is_active = FALSE, api_key = '' WHERE id = $1", p.ID,
	); err != nil {
		return 0, fmt.Errorf("deactivate provider: %w", err)
	}

	tag, err := tx.Exec(ctx,
		"UPDATE models SET is_available = FALSE WHERE provider_id = $1", p.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate models: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ClearAPIKey removes the stored key without deactivating the provider row.
func (s *Service) ClearAPIKey(ctx context.Context, providerID int64) (*models.Provider, error) {
	var p models.Provider
	err := s.db.QueryRow(ctx,
		`UPDATE providers SET api_key = '' WHERE id = $1
		 RETURNING id, name, api_key, is_active, created_at`,
		providerID,
	).Scan(&p.ID, &p.Name, &p.APIKey, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clear api key: %w", err)
	}
	return &p, nil
}

// DeletedCounts reports what a permanent delete removed.
type DeletedCounts struct {
	Providers int `json:"provider"`
	Models    int `json:"models"`
	Prompts   int `json:"prompts"`
}

// PermanentDelete removes the provider row and cascades to its models,
// prompts, outputs, and evaluations. This is the destructive variant of
// Deactivate and is never undoable.
func (s *Service) PermanentDelete(ctx context.Context, providerID int64) (*DeletedCounts, error) {
	p, err := s.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	counts := &DeletedCounts{Providers: 1}
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM models WHERE provider_id = $1", p.ID,
	).Scan(&counts.Models); err != nil {
		return nil, fmt.Errorf("count models: %w", err)
	}
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM prompts WHERE provider_id = $1", p.ID,
	).Scan(&counts.Prompts); err != nil {
		return nil, fmt.Errorf("count prompts: %w", err)
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM providers WHERE id = $1", p.ID); err != nil {
		return nil, fmt.Errorf("delete provider: %w", err)
	}

	// The fixed vendor row is recreated inactive so the provider can be
	// configured again later.
	if _, err := s.db.Exec(ctx,
		"INSERT INTO providers (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", p.Name,
	); err != nil {
		return nil, fmt.Errorf("reseed provider: %w", err)
	}

	return counts, nil
}

// Credential returns the stored credential for a provider id, for use with
// the LLM gateway.
func (s *Service) Credential(ctx context.Context, providerID int64) (llm.Credential, error) {
	p, err := s.GetByID(ctx, providerID)
	if err != nil {
		return llm.Credential{}, err
	}
	return llm.Credential{Provider: p.Name, APIKey: p.APIKey}, nil
}

// CredentialByName returns the stored credential for a provider name. Used for
// embedding calls, which always go through the OpenAI-compatible vendors.
func (s *Service) CredentialByName(ctx context.Context, name string) (llm.Credential, error) {
	var cred llm.Credential
	err := s.db.QueryRow(ctx,
		"SELECT name, api_key FROM providers WHERE name = $1 AND is_active = true", name,
	).Scan(&cred.Provider, &cred.APIKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return llm.Credential{}, fmt.Errorf("provider %q is not configured: %w", name, ErrNotFound)
	}
	if err != nil {
		return llm.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}
