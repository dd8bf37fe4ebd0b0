package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/models"
)

var (
	ErrNotFound          = errors.New("experiment not found")
	ErrInvalidTransition = errors.New("invalid experiment status transition")
	ErrInvalidConfig     = errors.New("invalid experiment configuration")
)

var experimentTypes = map[string]bool{
	"report_generation": true,
	"content_creation":  true,
	"translation":       true,
	"summarization":     true,
	"qa":                true,
}

// Enqueuer schedules experiment runs onto the background worker.
type Enqueuer interface {
	EnqueueExperimentRun(ctx context.Context, experimentID int64) error
}

type Service struct {
	db       *pgxpool.Pool
	enqueuer Enqueuer
}

func NewService(db *pgxpool.Pool, enqueuer Enqueuer) *Service {
	return &Service{db: db, enqueuer: enqueuer}
}

type CreateRequest struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	TargetScore   float64 `json:"target_score"`
	MaxIterations int     `json:"max_iterations"`
	DatasetSize   int     `json:"dataset_size"`
	ReportType    string  `json:"report_type"`
	PromptID      *int64  `json:"prompt_id"`
}

// validate applies the creation defaults and rejects out-of-range settings.
func (req *CreateRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}
	if !experimentTypes[req.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidConfig, req.Type)
	}
	if req.Type == "report_generation" && req.ReportType == "" {
		return fmt.Errorf("%w: report_type is required for report_generation", ErrInvalidConfig)
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = 5
	}
	if req.MaxIterations < 1 || req.MaxIterations > 20 {
		return fmt.Errorf("%w: max_iterations must be between 1 and 20", ErrInvalidConfig)
	}
	if req.TargetScore == 0 {
		req.TargetScore = 8.0
	}
	if req.TargetScore < 0 || req.TargetScore > 10 {
		return fmt.Errorf("%w: target_score must be between 0 and 10", ErrInvalidConfig)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Experiment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO experiments (user_id, name, description, type, target_score, max_iterations, dataset_size, report_type, prompt_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		req.UserID, req.Name, req.Description, req.Type, req.TargetScore,
		req.MaxIterations, req.DatasetSize, req.ReportType, req.PromptID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert experiment: %w", err)
	}
	return s.GetByID(ctx, id)
}

const experimentColumns = `id, uuid, user_id, name, description, type, status, progress,
	target_score, current_score, iterations, max_iterations, dataset_size,
	report_type, prompt_id, error, created_at, updated_at`

func scanExperiment(row pgx.Row) (*models.Experiment, error) {
	var e models.Experiment
	err := row.Scan(&e.ID, &e.UUID, &e.UserID, &e.Name, &e.Description, &e.Type, &e.Status,
		&e.Progress, &e.TargetScore, &e.CurrentScore, &e.Iterations, &e.MaxIterations,
		&e.DatasetSize, &e.ReportType, &e.PromptID, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Experiment, error) {
	e, err := scanExperiment(s.db.QueryRow(ctx,
		"SELECT "+experimentColumns+" FROM experiments WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	return e, nil
}

type ListFilter struct {
	UserID string
	Status string
	Type   string
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Experiment, error) {
	q := "SELECT " + experimentColumns + " FROM experiments WHERE 1=1"
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		q += fmt.Sprintf(" AND type = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var out []models.Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		out = append(out, *e)
	}
	return out, nil
}

// Transition moves an experiment between statuses, enforcing the legal paths.
func (s *Service) Transition(ctx context.Context, id int64, to string) (*models.Experiment, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidExperimentTransition(e.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE experiments SET status = $1, updated_at = now() WHERE id = $2", to, id)
	if err != nil {
		return nil, fmt.Errorf("transition experiment: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Start enqueues a pending experiment onto the worker. The worker performs the
// pending -> running transition when it picks the job up.
func (s *Service) Start(ctx context.Context, id int64) (*models.Experiment, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != models.ExperimentPending {
		return nil, fmt.Errorf("%w: experiment is %s", ErrInvalidTransition, e.Status)
	}
	if e.PromptID == nil {
		return nil, fmt.Errorf("experiment has no prompt attached")
	}

	if err := s.enqueuer.EnqueueExperimentRun(ctx, id); err != nil {
		return nil, fmt.Errorf("enqueue experiment: %w", err)
	}
	return e, nil
}

type UpdateRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	TargetScore   float64 `json:"target_score"`
	MaxIterations int     `json:"max_iterations"`
	DatasetSize   int     `json:"dataset_size"`
	PromptID      *int64  `json:"prompt_id"`
}

// Update edits an experiment's configuration. Running experiments are frozen
// so the worker never observes a config change mid-loop.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*models.Experiment, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == models.ExperimentRunning {
		return nil, fmt.Errorf("%w: cannot update a running experiment", ErrInvalidTransition)
	}

	if req.Name == "" {
		req.Name = e.Name
	}
	if req.TargetScore == 0 {
		req.TargetScore = e.TargetScore
	}
	if req.MaxIterations <= 0 {
		req.MaxIterations = e.MaxIterations
	}
	if req.PromptID == nil {
		req.PromptID = e.PromptID
	}

	_, err = s.db.Exec(ctx,
		`UPDATE experiments
		 SET name = $1, description = $2, target_score = $3, max_iterations = $4,
		     dataset_size = $5, prompt_id = $6, updated_at = now()
		 WHERE id = $7`,
		req.Name, req.Description, req.TargetScore, req.MaxIterations,
		req.DatasetSize, req.PromptID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update experiment: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == models.ExperimentRunning {
		return fmt.Errorf("cannot delete a running experiment")
	}
	if _, err := s.db.Exec(ctx, "DELETE FROM experiments WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete experiment: %w", err)
	}
	return nil
}

type CycleRequest struct {
	Iteration     int     `json:"iteration"`
	Score         float64 `json:"score"`
	PromptChanges string  `json:"prompt_changes"`
	PromptID      *int64  `json:"prompt_id"`
	OutputID      *int64  `json:"output_id"`
}

// nextCycleIteration resolves the iteration number for a recorded cycle and
// holds it inside the experiment's iteration budget.
func nextCycleIteration(e *models.Experiment, requested int) (int, error) {
	if requested <= 0 {
		requested = e.Iterations + 1
	}
	if requested > e.MaxIterations {
		return 0, fmt.Errorf("%w: iteration %d exceeds max_iterations %d",
			ErrInvalidConfig, requested, e.MaxIterations)
	}
	return requested, nil
}

// CreateCycle records an externally produced optimization step, for callers
// that drive the loop themselves instead of through the worker.
func (s *Service) CreateCycle(ctx context.Context, experimentID int64, req CycleRequest) (*models.OptimizationCycle, error) {
	e, err := s.GetByID(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	req.Iteration, err = nextCycleIteration(e, req.Iteration)
	if err != nil {
		return nil, err
	}

	var c models.OptimizationCycle
	err = s.db.QueryRow(ctx,
		`INSERT INTO optimization_cycles (experiment_id, iteration, score, prompt_changes, prompt_id, output_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, experiment_id, iteration, score, prompt_changes, prompt_id, output_id, created_at`,
		experimentID, req.Iteration, req.Score, req.PromptChanges, req.PromptID, req.OutputID,
	).Scan(&c.ID, &c.ExperimentID, &c.Iteration, &c.Score, &c.PromptChanges,
		&c.PromptID, &c.OutputID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert cycle: %w", err)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE experiments SET iterations = GREATEST(iterations, $1), updated_at = now() WHERE id = $2",
		req.Iteration, experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("bump iteration count: %w", err)
	}
	return &c, nil
}

func (s *Service) ListCycles(ctx context.Context, experimentID int64) ([]models.OptimizationCycle, error) {
	if _, err := s.GetByID(ctx, experimentID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, experiment_id, iteration, score, prompt_changes, prompt_id, output_id, created_at
		 FROM optimization_cycles WHERE experiment_id = $1 ORDER BY iteration ASC`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []models.OptimizationCycle
	for rows.Next() {
		var c models.OptimizationCycle
		if err := rows.Scan(&c.ID, &c.ExperimentID, &c.Iteration, &c.Score, &c.PromptChanges,
			&c.PromptID, &c.OutputID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
