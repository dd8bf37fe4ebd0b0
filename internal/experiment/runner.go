package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpit/promptpit/internal/judge"
	"github.com/promptpit/promptpit/internal/llm"
	"github.com/promptpit/promptpit/internal/models"
	"github.com/promptpit/promptpit/internal/prompt"
)

const judgeScale = 10

// Executor runs a prompt and persists its output.
type Executor interface {
	Run(ctx context.Context, req prompt.RunRequest) (*prompt.RunResult, error)
}

// Evaluator scores a persisted output.
type Evaluator interface {
	Evaluate(ctx context.Context, req judge.EvaluateRequest) (*models.Evaluation, error)
}

// Chatter issues raw chat calls, used for the revision step.
type Chatter interface {
	Chat(ctx context.Context, cred llm.Credential, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// CredentialSource resolves provider credentials and model names.
type CredentialSource interface {
	Credential(ctx context.Context, providerID int64) (llm.Credential, error)
	GetModel(ctx context.Context, id int64) (*models.Model, error)
}

// Runner drives one experiment through run, judge, revise cycles until the
// target score is reached or the iteration budget runs out. The prompt under
// test is rewritten in place each cycle; every intermediate state is captured
// as an optimization cycle row.
type Runner struct {
	db       *pgxpool.Pool
	service  *Service
	executor Executor
	judge    Evaluator
	chatter  Chatter
	creds    CredentialSource
}

func NewRunner(db *pgxpool.Pool, service *Service, executor Executor, evaluator Evaluator, chatter Chatter, creds CredentialSource) *Runner {
	return &Runner{db: db, service: service, executor: executor, judge: evaluator, chatter: chatter, creds: creds}
}

func (r *Runner) RunExperiment(ctx context.Context, experimentID int64) error {
	exp, err := r.service.Transition(ctx, experimentID, models.ExperimentRunning)
	if err != nil {
		return err
	}
	if exp.PromptID == nil {
		return r.fail(ctx, experimentID, fmt.Errorf("experiment has no prompt attached"))
	}

	slog.Info("experiment started",
		"experiment_id", experimentID,
		"prompt_id", *exp.PromptID,
		"target_score", exp.TargetScore,
		"max_iterations", exp.MaxIterations,
	)

	var best float64
	for i := 1; i <= exp.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, experimentID, err)
		}

		score, err := r.iterate(ctx, exp, i)
		if err != nil {
			return r.fail(ctx, experimentID, err)
		}
		if score > best {
			best = score
		}

		if err := r.recordProgress(ctx, experimentID, i, exp.MaxIterations, best); err != nil {
			return r.fail(ctx, experimentID, err)
		}

		if best >= exp.TargetScore {
			slog.Info("experiment converged", "experiment_id", experimentID, "iteration", i, "score", best)
			break
		}
	}

	if _, err := r.service.Transition(ctx, experimentID, models.ExperimentCompleted); err != nil {
		return err
	}
	slog.Info("experiment completed", "experiment_id", experimentID, "best_score", best)
	return nil
}

// iterate executes one cycle: run the current prompt, judge the output, and
// unless this was the last iteration, rewrite the prompt for the next one.
func (r *Runner) iterate(ctx context.Context, exp *models.Experiment, iteration int) (float64, error) {
	var p models.Prompt
	err := r.db.QueryRow(ctx,
		`SELECT id, provider_id, model_id, text, system_prompt, temperature, max_tokens, user_id
		 FROM prompts WHERE id = $1`, *exp.PromptID,
	).Scan(&p.ID, &p.ProviderID, &p.ModelID, &p.Text, &p.SystemPrompt, &p.Temperature, &p.MaxTokens, &p.UserID)
	if err != nil {
		return 0, fmt.Errorf("load prompt: %w", err)
	}

	result, err := r.executor.Run(ctx, prompt.RunRequest{
		PromptID:     p.ID,
		ProviderID:   p.ProviderID,
		ModelID:      p.ModelID,
		Text:         p.Text,
		SystemPrompt: p.SystemPrompt,
		Temperature:  p.Temperature,
		MaxTokens:    p.MaxTokens,
		UserID:       p.UserID,
	})
	if err != nil {
		return 0, fmt.Errorf("iteration %d run: %w", iteration, err)
	}

	ev, err := r.judge.Evaluate(ctx, judge.EvaluateRequest{
		OutputID:        result.ID,
		JudgeProviderID: p.ProviderID,
		JudgeModelID:    p.ModelID,
		Scale:           judgeScale,
	})
	if err != nil {
		return 0, fmt.Errorf("iteration %d judge: %w", iteration, err)
	}

	var changes string
	if iteration < exp.MaxIterations && ev.Score < exp.TargetScore {
		revised, err := r.revise(ctx, &p, result.OutputText, ev.Feedback, ev.Score)
		if err != nil {
			return 0, fmt.Errorf("iteration %d revise: %w", iteration, err)
		}
		if revised != "" && revised != p.Text {
			if _, err := r.db.Exec(ctx,
				"UPDATE prompts SET text = $1, updated_at = now() WHERE id = $2",
				revised, p.ID,
			); err != nil {
				return 0, fmt.Errorf("apply revision: %w", err)
			}
			changes = revised
		}
	}

	if _, err := r.db.Exec(ctx,
		`INSERT INTO optimization_cycles (experiment_id, iteration, score, prompt_changes, prompt_id, output_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		exp.ID, iteration, ev.Score, changes, p.ID, result.ID,
	); err != nil {
		return 0, fmt.Errorf("record cycle: %w", err)
	}

	slog.Info("optimization cycle finished",
		"experiment_id", exp.ID,
		"iteration", iteration,
		"score", ev.Score,
		"revised", changes != "",
	)
	return ev.Score, nil
}

// revise asks the prompt's own model to rewrite the prompt based on the judge
// feedback. The reply is expected to be the new prompt text and nothing else.
func (r *Runner) revise(ctx context.Context, p *models.Prompt, output, feedback string, score float64) (string, error) {
	cred, err := r.creds.Credential(ctx, p.ProviderID)
	if err != nil {
		return "", err
	}
	model, err := r.creds.GetModel(ctx, p.ModelID)
	if err != nil {
		return "", err
	}

	instruction := fmt.Sprintf(
		"You are an expert prompt engineer. Rewrite the prompt below to address the evaluator feedback and raise its score.\n\n"+
			"Current prompt:\n%s\n\nResponse it produced:\n%s\n\nEvaluator score: %.1f/%d\nEvaluator feedback:\n%s\n\n"+
			"Reply with ONLY the improved prompt text. No preamble, no explanation, no quotes.",
		p.Text, output, score, judgeScale, feedback,
	)

	resp, err := r.chatter.Chat(ctx, cred, llm.ChatRequest{
		Model: model.Name,
		Messages: []llm.Message{
			{Role: "user", Content: instruction},
		},
		Temperature: 0.7,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	revised := strings.TrimSpace(resp.Content)
	revised = strings.Trim(revised, "\"")
	return revised, nil
}

func (r *Runner) recordProgress(ctx context.Context, experimentID int64, iteration, maxIterations int, best float64) error {
	progress := float64(iteration) / float64(maxIterations) * 100
	_, err := r.db.Exec(ctx,
		`UPDATE experiments
		 SET iterations = $1, progress = $2, current_score = $3, updated_at = now()
		 WHERE id = $4`,
		iteration, progress, best, experimentID,
	)
	if err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, experimentID int64, cause error) error {
	slog.Error("experiment failed", "experiment_id", experimentID, "error", cause)
	// The failure may be a context cancellation, so detach before writing.
	ctx = context.WithoutCancel(ctx)
	if _, err := r.db.Exec(ctx,
		"UPDATE experiments SET status = $1, error = $2, updated_at = now() WHERE id = $3",
		models.ExperimentFailed, cause.Error(), experimentID,
	); err != nil {
		slog.Error("failed to mark experiment failed", "experiment_id", experimentID, "error", err)
	}
	return cause
}
