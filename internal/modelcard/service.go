package modelcard

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/models"
)

var (
	ErrNotFound = errors.New("model card not found")
	ErrNotDraft = errors.New("only draft cards can be published")
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	UserID        string  `json:"user_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ExperimentIDs []int64 `json:"experiment_ids"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.ModelCard, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}
	if req.ExperimentIDs == nil {
		req.ExperimentIDs = []int64{}
	}

	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO model_cards (user_id, title, description, experiment_ids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		req.UserID, req.Title, req.Description, req.ExperimentIDs,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert model card: %w", err)
	}
	return s.GetByID(ctx, id)
}

const cardColumns = `id, uuid, user_id, title, description, status, metrics,
	models_tested, providers, experiment_ids, created_at, updated_at`

func scanCard(row pgx.Row) (*models.ModelCard, error) {
	var c models.ModelCard
	err := row.Scan(&c.ID, &c.UUID, &c.UserID, &c.Title, &c.Description, &c.Status,
		&c.Metrics, &c.ModelsTested, &c.Providers, &c.ExperimentIDs, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.ModelCard, error) {
	c, err := scanCard(s.db.QueryRow(ctx,
		"SELECT "+cardColumns+" FROM model_cards WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model card: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, userID, status string) ([]models.ModelCard, error) {
	q := "SELECT " + cardColumns + " FROM model_cards WHERE 1=1"
	var args []any
	if userID != "" {
		args = append(args, userID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list model cards: %w", err)
	}
	defer rows.Close()

	var out []models.ModelCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model card: %w", err)
		}
		out = append(out, *c)
	}
	return out, nil
}

type UpdateRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ExperimentIDs []int64 `json:"experiment_ids"`
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*models.ModelCard, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		req.Title = c.Title
	}
	if req.ExperimentIDs == nil {
		req.ExperimentIDs = c.ExperimentIDs
	}

	_, err = s.db.Exec(ctx,
		`UPDATE model_cards
		 SET title = $1, description = $2, experiment_ids = $3, updated_at = now()
		 WHERE id = $4`,
		req.Title, req.Description, req.ExperimentIDs, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update model card: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM model_cards WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete model card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNew creates a card and immediately computes its metrics from the
// referenced experiments.
func (s *Service) GenerateNew(ctx context.Context, req CreateRequest) (*models.ModelCard, error) {
	c, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, c.ID)
}

// Generate recomputes a card's metrics from the experiments it references:
// every prompt those experiments touched, the outputs those prompts produced,
// and the evaluations of those outputs.
func (s *Service) Generate(ctx context.Context, id int64) (*models.ModelCard, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics := models.CardMetrics{}
	modelSet := map[string]struct{}{}
	providerSet := map[string]struct{}{}

	if len(c.ExperimentIDs) > 0 {
		err = s.db.QueryRow(ctx,
			`SELECT COUNT(DISTINCT e.prompt_id)
			 FROM experiments e WHERE e.id = ANY($1) AND e.prompt_id IS NOT NULL`,
			c.ExperimentIDs,
		).Scan(&metrics.TotalPrompts)
		if err != nil {
			return nil, fmt.Errorf("count prompts: %w", err)
		}

		err = s.db.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(SUM(o.cost_usd), 0)
			 FROM outputs o
			 WHERE o.prompt_id IN (SELECT e.prompt_id FROM experiments e WHERE e.id = ANY($1))`,
			c.ExperimentIDs,
		).Scan(&metrics.TotalOutputs, &metrics.TotalCost)
		if err != nil {
			return nil, fmt.Errorf("aggregate outputs: %w", err)
		}

		err = s.db.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(AVG(ev.score), 0)
			 FROM evaluations ev
			 JOIN outputs o ON o.id = ev.output_id
			 WHERE o.prompt_id IN (SELECT e.prompt_id FROM experiments e WHERE e.id = ANY($1))`,
			c.ExperimentIDs,
		).Scan(&metrics.TotalEvaluations, &metrics.AvgScore)
		if err != nil {
			return nil, fmt.Errorf("aggregate evaluations: %w", err)
		}

		rows, err := s.db.Query(ctx,
			`SELECT DISTINCT m.name, pr.name
			 FROM experiments e
			 JOIN prompts p ON p.id = e.prompt_id
			 JOIN models m ON m.id = p.model_id
			 JOIN providers pr ON pr.id = p.provider_id
			 WHERE e.id = ANY($1)`,
			c.ExperimentIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("collect models tested: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var modelName, providerName string
			if err := rows.Scan(&modelName, &providerName); err != nil {
				return nil, fmt.Errorf("scan models tested: %w", err)
			}
			modelSet[modelName] = struct{}{}
			providerSet[providerName] = struct{}{}
		}
	}

	modelsTested := make([]string, 0, len(modelSet))
	for m := range modelSet {
		modelsTested = append(modelsTested, m)
	}
	providers := make([]string, 0, len(providerSet))
	for p := range providerSet {
		providers = append(providers, p)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE model_cards
		 SET metrics = $1, models_tested = $2, providers = $3, updated_at = now()
		 WHERE id = $4`,
		metrics, modelsTested, providers, id,
	)
	if err != nil {
		return nil, fmt.Errorf("store metrics: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Publish freezes a draft card. Published cards are read-only in the UI and
// can only move to archived.
func (s *Service) Publish(ctx context.Context, id int64) (*models.ModelCard, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CardDraft {
		return nil, ErrNotDraft
	}

	_, err = s.db.Exec(ctx,
		"UPDATE model_cards SET status = $1, updated_at = now() WHERE id = $2",
		models.CardPublished, id,
	)
	if err != nil {
		return nil, fmt.Errorf("publish model card: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Archive(ctx context.Context, id int64) (*models.ModelCard, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CardArchived {
		return c, nil
	}

	_, err = s.db.Exec(ctx,
		"UPDATE model_cards SET status = $1, updated_at = now() WHERE id = $2",
		models.CardArchived, id,
	)
	if err != nil {
		return nil, fmt.Errorf("archive model card: %w", err)
	}
	return s.GetByID(ctx, id)
}
